package tgtg

import "context"

// BaseURL is the production API root
const BaseURL = "https://apptoogoodtogo.com/api"

const (
	itemEndpoint = "item/v8"

	authByEmailEndpoint       = "auth/v3/authByEmail"
	authPollingEndpoint       = "auth/v3/authByRequestPollingId"
	authSignUpByEmailEndpoint = "auth/v3/signUpByEmail"
	authRefreshEndpoint       = "auth/v3/token/refresh"

	orderActiveEndpoint   = "order/v6/active"
	orderInactiveEndpoint = "order/v6/inactive"
	orderCreateEndpoint   = "order/v7/create"
	orderAbortEndpoint    = "order/v7/%s/abort"
	orderStatusEndpoint   = "order/v7/%s/status"

	bucketEndpoint = "discover/v1/bucket"
)

// API defines the operations offered by Client
type API interface {
	// AuthByEmail sends a login email and polls until the user confirms it
	AuthByEmail(ctx context.Context) error

	// SignUpByEmail registers a new account and logs it in
	SignUpByEmail(ctx context.Context, opts SignUpOptions) (AuthInfo, error)

	// Credentials returns valid credentials, refreshing them if they expired
	Credentials(ctx context.Context) (AuthToken, error)

	GetItems(ctx context.Context, opts *ItemsOptions) ([]PickupItem, error)
	GetItem(ctx context.Context, itemID string) (*PickupItem, error)
	GetFavorites(ctx context.Context, opts *FavoritesOptions) ([]PickupItem, error)
	SetFavorite(ctx context.Context, itemID string, isFavorite bool) error

	CreateOrder(ctx context.Context, itemID string, itemCount int) (*Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
	AbortOrder(ctx context.Context, orderID string) error
	GetActive(ctx context.Context) (*OrdersResponse, error)
	GetInactive(ctx context.Context, opts *InactiveOptions) (*OrdersResponse, error)
}

var _ API = (*Client)(nil)
