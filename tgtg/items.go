package tgtg

import (
	"context"
	"fmt"
	"net/http"
)

// ItemsOptions selects listings for GetItems. Use DefaultItemsOptions as a
// starting point; zero Radius, PageSize and Page are replaced by their
// defaults.
type ItemsOptions struct {
	Latitude       float64  `validate:"gte=-90,lte=90"`
	Longitude      float64  `validate:"gte=-180,lte=180"`
	Radius         float64  `validate:"gte=0"`
	PageSize       int      `validate:"gte=0,lte=400"`
	Page           int      `validate:"gte=0"` // 1-based, 0 selects page 1
	Discover       bool
	FavoritesOnly  bool
	ItemCategories []string
	DietCategories []string
	PickupEarliest *string
	PickupLatest   *string
	SearchPhrase   *string
	WithStockOnly  bool
	HiddenOnly     bool
	WeCareOnly     bool
}

// DefaultItemsOptions returns the options used when GetItems gets nil
func DefaultItemsOptions() ItemsOptions {
	return ItemsOptions{
		Radius:        21,
		PageSize:      20,
		Page:          1,
		FavoritesOnly: true,
	}
}

// FavoritesOptions selects the page of favorites returned by GetFavorites
type FavoritesOptions struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
	Radius    float64 `validate:"gte=0"`
	PageSize  int     `validate:"gte=0,lte=400"`
	Page      int     `validate:"gte=0"` // 1-based, 0 selects page 1
}

type origin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type paging struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

type itemsRequest struct {
	UserID         string   `json:"user_id"`
	Origin         origin   `json:"origin"`
	Radius         float64  `json:"radius"`
	PageSize       int      `json:"page_size"`
	Page           int      `json:"page"`
	Discover       bool     `json:"discover"`
	FavoritesOnly  bool     `json:"favorites_only"`
	ItemCategories []string `json:"item_categories"`
	DietCategories []string `json:"diet_categories"`
	PickupEarliest *string  `json:"pickup_earliest"`
	PickupLatest   *string  `json:"pickup_latest"`
	SearchPhrase   *string  `json:"search_phrase"`
	WithStockOnly  bool     `json:"with_stock_only"`
	HiddenOnly     bool     `json:"hidden_only"`
	WeCareOnly     bool     `json:"we_care_only"`
}

type itemsResponse struct {
	Items []PickupItem `json:"items"`
}

type itemRequest struct {
	UserID string  `json:"user_id"`
	Origin *origin `json:"origin"`
}

type favoritesRequest struct {
	Origin origin  `json:"origin"`
	Radius float64 `json:"radius"`
	UserID string  `json:"user_id"`
	Paging paging  `json:"paging"`
	Bucket struct {
		FillerType string `json:"filler_type"`
	} `json:"bucket"`
}

type favoritesResponse struct {
	MobileBucket struct {
		Items []PickupItem `json:"items"`
	} `json:"mobile_bucket"`
}

type setFavoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}

// GetItems returns the listings matching opts. A nil opts uses DefaultItemsOptions.
func (c *Client) GetItems(ctx context.Context, opts *ItemsOptions) ([]PickupItem, error) {
	o := DefaultItemsOptions()
	if opts != nil {
		o = *opts
	}
	if o.Radius == 0 {
		o.Radius = 21
	}
	if o.PageSize == 0 {
		o.PageSize = 20
	}
	if o.Page == 0 {
		o.Page = 1
	}
	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	auth, err := c.RefreshedAuth(ctx)
	if err != nil {
		return nil, err
	}

	query := itemsRequest{
		UserID:         auth.UserID,
		Origin:         origin{Latitude: o.Latitude, Longitude: o.Longitude},
		Radius:         o.Radius,
		PageSize:       o.PageSize,
		Page:           o.Page,
		Discover:       o.Discover,
		FavoritesOnly:  o.FavoritesOnly,
		ItemCategories: nonNil(o.ItemCategories),
		DietCategories: nonNil(o.DietCategories),
		PickupEarliest: o.PickupEarliest,
		PickupLatest:   o.PickupLatest,
		SearchPhrase:   o.SearchPhrase,
		WithStockOnly:  o.WithStockOnly,
		HiddenOnly:     o.HiddenOnly,
		WeCareOnly:     o.WeCareOnly,
	}

	resp, err := c.post(ctx, itemEndpoint, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var data itemsResponse
	if err := resp.decode(&data); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("page", o.Page).
		Int("count", len(data.Items)).
		Msg("Retrieved items")

	return data.Items, nil
}

// GetItem returns a single listing
func (c *Client) GetItem(ctx context.Context, itemID string) (*PickupItem, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidOptions)
	}

	auth, err := c.RefreshedAuth(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, fmt.Sprintf("%s/%s", itemEndpoint, itemID), itemRequest{UserID: auth.UserID})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var item PickupItem
	if err := resp.decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetFavorites returns one page of the user's favorite listings. Zero Radius,
// PageSize and Page default to 21, 50 and 1.
func (c *Client) GetFavorites(ctx context.Context, opts *FavoritesOptions) ([]PickupItem, error) {
	var o FavoritesOptions
	if opts != nil {
		o = *opts
	}
	if o.Radius == 0 {
		o.Radius = 21
	}
	if o.PageSize == 0 {
		o.PageSize = 50
	}
	if o.Page == 0 {
		o.Page = 1
	}
	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	auth, err := c.RefreshedAuth(ctx)
	if err != nil {
		return nil, err
	}

	query := favoritesRequest{
		Origin: origin{Latitude: o.Latitude, Longitude: o.Longitude},
		Radius: o.Radius,
		UserID: auth.UserID,
		Paging: paging{Page: o.Page, Size: o.PageSize},
	}
	query.Bucket.FillerType = "Favorites"

	resp, err := c.post(ctx, bucketEndpoint, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}

	var data favoritesResponse
	if err := resp.decode(&data); err != nil {
		return nil, err
	}
	return data.MobileBucket.Items, nil
}

// SetFavorite adds or removes a listing from the user's favorites
func (c *Client) SetFavorite(ctx context.Context, itemID string, isFavorite bool) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", ErrInvalidOptions)
	}

	if _, err := c.RefreshedAuth(ctx); err != nil {
		return err
	}

	resp, err := c.post(ctx, fmt.Sprintf("%s/%s/setFavorite", itemEndpoint, itemID), setFavoriteRequest{IsFavorite: isFavorite})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	c.logger.Info().Str("item_id", itemID).Bool("favorite", isFavorite).Msg("Updated favorite")
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
