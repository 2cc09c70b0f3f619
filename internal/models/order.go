package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// OrderStatuses lists every recognized status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// ParseOrderStatus returns the status named s, if it is recognized.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further lifecycle progress is expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment method tags understood by the redaction step.
const (
	PaymentMethodCard     = "card"
	PaymentMethodMBWay    = "mbway"
	PaymentMethodTransfer = "transfer"
)

type CustomerSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ShippingInfo struct {
	Address string          `json:"address"`
	Method  string          `json:"method,omitempty"`
	Cost    decimal.Decimal `json:"cost"`
	Notes   string          `json:"notes"`
}

// PaymentDetails is the redacted payment snapshot; it never holds full numbers.
type PaymentDetails struct {
	CardLastDigits  string `json:"card_last_digits,omitempty"`
	CardType        string `json:"card_type,omitempty"`
	PhoneLastDigits string `json:"phone_last_digits,omitempty"`
}

type PaymentInfo struct {
	Method  string          `json:"method"`
	Status  PaymentStatus   `json:"status"`
	Amount  decimal.Decimal `json:"amount"`
	Details PaymentDetails  `json:"details"`
}

// OrderItem is a priced line frozen at order creation.
type OrderItem struct {
	ProductID               string            `json:"product_id"`
	ProductNamePT           string            `json:"product_name_pt"`
	ProductNameEN           string            `json:"product_name_en"`
	Quantity                int               `json:"quantity"`
	BasePrice               decimal.Decimal   `json:"base_price"`
	UnitPrice               decimal.Decimal   `json:"unit_price"`
	SelectedColor           string            `json:"selected_color,omitempty"`
	SelectedSize            string            `json:"selected_size,omitempty"`
	SizePriceAdjustment     decimal.Decimal   `json:"size_price_adjustment"`
	Customizations          map[string]string `json:"customizations"`
	CustomizationAdjustment decimal.Decimal   `json:"customization_adjustment"`
	ImageURL                string            `json:"image_url,omitempty"`
	TotalPrice              decimal.Decimal   `json:"total_price"`
}

type OrderTotals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Adjustments decimal.Decimal `json:"adjustments"`
	Shipping    decimal.Decimal `json:"shipping"`
	Total       decimal.Decimal `json:"total"`
}

type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note"`
	UpdatedBy string      `json:"updated_by"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Refund struct {
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	Method      string          `json:"method"`
	ProcessedBy string          `json:"processed_by"`
	ProcessedAt time.Time       `json:"processed_at"`
}

type Order struct {
	ID             string               `json:"id"`
	OrderNumber    string               `json:"order_number"`
	CustomerID     *string              `json:"customer_id"`
	Customer       CustomerSnapshot     `json:"customer"`
	Shipping       ShippingInfo         `json:"shipping"`
	Payment        PaymentInfo          `json:"payment"`
	Items          []OrderItem          `json:"items"`
	Totals         OrderTotals          `json:"totals"`
	SubmittedTotal *decimal.Decimal     `json:"submitted_total,omitempty"`
	Status         OrderStatus          `json:"status"`
	StatusHistory  []StatusHistoryEntry `json:"status_history"`
	Refund         *Refund              `json:"refund,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// RecordStatus sets the status and prepends the matching history entry so both
// change together.
func (o *Order) RecordStatus(status OrderStatus, note, actor string, at time.Time) {
	o.Status = status
	o.UpdatedAt = at
	entry := StatusHistoryEntry{Status: status, Note: note, UpdatedBy: actor, UpdatedAt: at}
	o.StatusHistory = append([]StatusHistoryEntry{entry}, o.StatusHistory...)
}

type CreateOrderRequest struct {
	CustomerName    string           `json:"customer_name" binding:"required"`
	CustomerEmail   string           `json:"customer_email" binding:"required,email"`
	CustomerPhone   string           `json:"customer_phone"`
	ShippingAddress string           `json:"shipping_address" binding:"required"`
	ShippingMethod  string           `json:"shipping_method"`
	ShippingCost    decimal.Decimal  `json:"shipping_cost"`
	Notes           string           `json:"notes"`
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	PaymentDetails  map[string]any   `json:"payment_details"`
	Items           []CartItem       `json:"items" binding:"required,min=1,dive"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" form:"status"`
	Note   string `json:"note" form:"note"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
	Method string           `json:"method"`
}
