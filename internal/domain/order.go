package domain

import "time"

type Fulfillment string

const (
	FulfillmentPickup   Fulfillment = "pickup"
	FulfillmentDelivery Fulfillment = "delivery"
)

// Order is one customer order as seen by a vendor. Everything except
// Status is immutable after the order enters the store; Status changes
// only through the reconciler.
type Order struct {
	ID            string
	Status        Status
	Fulfillment   Fulfillment
	Items         []LineItem
	TotalAmount   float64
	CustomerName  string
	CustomerEmail string
	AssignedStaff string
	CreatedAt     time.Time
	Promo         *Promo
}

type LineItem struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// Promo carries optional promotional metadata attached at checkout.
type Promo struct {
	VoucherCode    string
	DiscountAmount float64
	DealID         string
}
