package tgtg

import (
	"math"
	"time"
)

// Price is an amount in minor units, e.g. 1999 with 2 decimals is 19.99
type Price struct {
	Code       string `json:"code"`
	Decimals   int    `json:"decimals"`
	MinorUnits int64  `json:"minor_units"`
}

// Decimal returns the price in major units
func (p Price) Decimal() float64 {
	return float64(p.MinorUnits) / math.Pow10(p.Decimals)
}

// Picture is an image hosted by the API
type Picture struct {
	PictureID              string `json:"picture_id"`
	CurrentURL             string `json:"current_url"`
	IsAutomaticallyCreated bool   `json:"is_automatically_created"`
}

// Interval is a pickup window
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the interval
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// SalesTax is one tax line applied to an item price
type SalesTax struct {
	TaxDescription string  `json:"tax_description"`
	TaxPercentage  float64 `json:"tax_percentage"`
}

// Badge is a store rating highlight such as "great value"
type Badge struct {
	BadgeType   string  `json:"badge_type"`
	RatingGroup string  `json:"rating_group"`
	Percentage  float64 `json:"percentage"`
	UserCount   int     `json:"user_count"`
	MonthCount  int     `json:"month_count"`
}

// Rating is the aggregate user rating of an item
type Rating struct {
	AverageOverallRating float64 `json:"average_overall_rating"`
	RatingCount          int     `json:"rating_count"`
	MonthCount           int     `json:"month_count"`
}

// Item is the product sold in a listing
type Item struct {
	ItemID                 string     `json:"item_id"`
	SalesTaxes             []SalesTax `json:"sales_taxes"`
	TaxAmount              Price      `json:"tax_amount"`
	PriceExcludingTaxes    Price      `json:"price_excluding_taxes"`
	PriceIncludingTaxes    Price      `json:"price_including_taxes"`
	ValueExcludingTaxes    Price      `json:"value_excluding_taxes"`
	ValueIncludingTaxes    Price      `json:"value_including_taxes"`
	TaxationPolicy         string     `json:"taxation_policy"`
	ShowSalesTaxes         bool       `json:"show_sales_taxes"`
	CoverPicture           Picture    `json:"cover_picture"`
	LogoPicture            Picture    `json:"logo_picture"`
	Name                   string     `json:"name"`
	Description            string     `json:"description"`
	CanUserSupplyPackaging bool       `json:"can_user_supply_packaging"`
	PackagingOption        string     `json:"packaging_option"`
	CollectionInfo         string     `json:"collection_info"`
	DietCategories         []string   `json:"diet_categories"`
	ItemCategory           string     `json:"item_category"`
	Buffet                 bool       `json:"buffet"`
	Badges                 []Badge    `json:"badges"`
	PositiveRatingReasons  []string   `json:"positive_rating_reasons"`
	AverageOverallRating   Rating     `json:"average_overall_rating"`
	FavoriteCount          int        `json:"favorite_count"`
}

// Country identifies a store country by ISO code
type Country struct {
	IsoCode string `json:"iso_code"`
	Name    string `json:"name"`
}

// Address is a store postal address
type Address struct {
	Country     Country `json:"country"`
	AddressLine string  `json:"address_line"`
	City        string  `json:"city"`
	PostalCode  string  `json:"postal_code"`
}

// Coordinates is a latitude and longitude in degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a store address with its coordinates
type Location struct {
	Address  Address     `json:"address"`
	Location Coordinates `json:"location"`
}

// Store is the business offering a listing
type Store struct {
	StoreID        string   `json:"store_id"`
	StoreName      string   `json:"store_name"`
	Branch         string   `json:"branch"`
	Description    string   `json:"description"`
	Website        string   `json:"website"`
	StoreLocation  Location `json:"store_location"`
	LogoPicture    Picture  `json:"logo_picture"`
	StoreTimeZone  string   `json:"store_time_zone"`
	Hidden         bool     `json:"hidden"`
	FavoriteCount  int      `json:"favorite_count"`
	WeCare         bool     `json:"we_care"`
	Distance       float64  `json:"distance"`
	CoverPicture   Picture  `json:"cover_picture"`
	IsManufacturer bool     `json:"is_manufacturer"`
}

// PickupItem is one listing: an item offered by a store for a pickup window
type PickupItem struct {
	Item           Item      `json:"item"`
	Store          Store     `json:"store"`
	DisplayName    string    `json:"display_name"`
	PickupInterval *Interval `json:"pickup_interval,omitempty"`
	PickupLocation Location  `json:"pickup_location"`
	PurchaseEnd    string    `json:"purchase_end,omitempty"`
	ItemsAvailable int       `json:"items_available"`
	SoldOutAt      string    `json:"sold_out_at,omitempty"`
	Distance       float64   `json:"distance"`
	Favorite       bool      `json:"favorite"`
	InSalesWindow  bool      `json:"in_sales_window"`
	NewItem        bool      `json:"new_item"`
	ItemType       string    `json:"item_type"`
}

// IsAvailable reports whether the listing can be ordered right now
func (p *PickupItem) IsAvailable() bool {
	return p.ItemsAvailable > 0 && p.InSalesWindow
}

// OrderState values returned by the order endpoints
const (
	OrderStateSuccess   = "SUCCESS"
	OrderStateReserved  = "RESERVED"
	OrderStateCancelled = "CANCELLED"
)

// OrderLine holds the quantity and prices of an order
type OrderLine struct {
	Quantity                 int   `json:"quantity"`
	ItemPriceIncludingTaxes  Price `json:"item_price_including_taxes"`
	TotalPriceIncludingTaxes Price `json:"total_price_including_taxes"`
}

// Order is a reservation of one or more items
type Order struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"item_id"`
	UserID         string    `json:"user_id"`
	State          string    `json:"state"`
	ReservedAt     string    `json:"reserved_at,omitempty"`
	OrderLine      OrderLine `json:"order_line"`
	PickupInterval *Interval `json:"pickup_interval,omitempty"`
	StoreName      string    `json:"store_name,omitempty"`
	ItemName       string    `json:"item_name,omitempty"`
	CanUserCancel  bool      `json:"can_user_cancel,omitempty"`
}

// OrderStatus is the state of one order
type OrderStatus struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	ItemID string `json:"item_id"`
}

// OrdersResponse is a page of orders
type OrdersResponse struct {
	CurrentTime string  `json:"current_time,omitempty"`
	HasMore     bool    `json:"has_more"`
	Orders      []Order `json:"orders"`
}
