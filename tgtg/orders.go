package tgtg

import (
	"context"
	"fmt"
	"net/http"
)

// InactiveOptions selects a page of past orders. Page is zero-based; a zero
// PageSize defaults to 20.
type InactiveOptions struct {
	Page     int `validate:"gte=0"`
	PageSize int `validate:"gte=0,lte=400"`
}

type createOrderRequest struct {
	ItemCount int `json:"item_count"`
}

type createOrderResponse struct {
	State string `json:"state"`
	Order *Order `json:"order"`
}

type abortOrderRequest struct {
	CancelReasonID int `json:"cancel_reason_id"`
}

type abortOrderResponse struct {
	State string `json:"state"`
}

type activeRequest struct {
	UserID string `json:"user_id"`
}

type inactiveRequest struct {
	Paging paging `json:"paging"`
	UserID string `json:"user_id"`
}

// CreateOrder reserves itemCount units of a listing. The call fails unless the
// server reports state SUCCESS, even on HTTP 200.
func (c *Client) CreateOrder(ctx context.Context, itemID string, itemCount int) (*Order, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidOptions)
	}
	if itemCount < 1 {
		return nil, fmt.Errorf("%w: item count must be at least 1, got %d", ErrInvalidOptions, itemCount)
	}

	if _, err := c.RefreshedAuth(ctx); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, fmt.Sprintf("%s/%s", orderCreateEndpoint, itemID), createOrderRequest{ItemCount: itemCount})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var data createOrderResponse
	if err := resp.decode(&data); err != nil {
		return nil, err
	}
	if data.State != OrderStateSuccess {
		return nil, stateError(resp, data.State)
	}
	if data.Order == nil {
		return nil, fmt.Errorf("order missing from %s response", orderCreateEndpoint)
	}

	c.logger.Info().
		Str("item_id", itemID).
		Str("order_id", data.Order.ID).
		Int("count", itemCount).
		Msg("Created order")

	return data.Order, nil
}

// GetOrderStatus returns the current state of an order
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidOptions)
	}

	if _, err := c.RefreshedAuth(ctx); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, fmt.Sprintf(orderStatusEndpoint, orderID), struct{}{})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var status OrderStatus
	if err := resp.decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

// AbortOrder cancels an order that has not been paid yet. The call fails
// unless the server reports state SUCCESS, even on HTTP 200.
func (c *Client) AbortOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidOptions)
	}

	if _, err := c.RefreshedAuth(ctx); err != nil {
		return err
	}

	resp, err := c.post(ctx, fmt.Sprintf(orderAbortEndpoint, orderID), abortOrderRequest{CancelReasonID: 1})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	var data abortOrderResponse
	if err := resp.decode(&data); err != nil {
		return err
	}
	if data.State != OrderStateSuccess {
		return stateError(resp, data.State)
	}

	c.logger.Info().Str("order_id", orderID).Msg("Aborted order")
	return nil
}

// GetActive returns the user's open orders
func (c *Client) GetActive(ctx context.Context) (*OrdersResponse, error) {
	auth, err := c.RefreshedAuth(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, orderActiveEndpoint, activeRequest{UserID: auth.UserID})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var orders OrdersResponse
	if err := resp.decode(&orders); err != nil {
		return nil, err
	}
	return &orders, nil
}

// GetInactive returns a page of the user's past orders. A nil opts returns
// the first page of 20.
func (c *Client) GetInactive(ctx context.Context, opts *InactiveOptions) (*OrdersResponse, error) {
	var o InactiveOptions
	if opts != nil {
		o = *opts
	}
	if o.PageSize == 0 {
		o.PageSize = 20
	}
	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	auth, err := c.RefreshedAuth(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, orderInactiveEndpoint, inactiveRequest{
		Paging: paging{Page: o.Page, Size: o.PageSize},
		UserID: auth.UserID,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var orders OrdersResponse
	if err := resp.decode(&orders); err != nil {
		return nil, err
	}
	return &orders, nil
}

// stateError reports a 200 response whose application state is not SUCCESS
func stateError(resp *Response, state string) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		State:      state,
		Message:    "unexpected order state",
		Body:       string(resp.Body),
	}
}
