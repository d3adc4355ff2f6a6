// Package storefront holds the read-only records pulled from the storefront backend.
package storefront

import "strings"

// OrderStatus mirrors the fulfilment status strings emitted by the backend.
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "Order Placed"
	StatusProcessing     OrderStatus = "Processing"
	StatusShipped        OrderStatus = "Shipped"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Order Cancelled"
	StatusPendingPayment OrderStatus = "pending_payment"
)

// PaymentMode identifies how the customer chose to pay.
type PaymentMode string

const (
	PaymentOnline PaymentMode = "online"
	PaymentCOD    PaymentMode = "cod"
	PaymentCash   PaymentMode = "cash"
)

// PaymentStatus tracks settlement of the order payment.
type PaymentStatus string

const (
	PaymentPaid           PaymentStatus = "paid"
	PaymentPending        PaymentStatus = "pending"
	PaymentPendingPayment PaymentStatus = "pending_payment"
)

// Is compares statuses the way the backend emits them: trimmed, case-insensitive.
func (s OrderStatus) Is(other OrderStatus) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(other))
}

// Is compares payment modes ignoring case and surrounding space.
func (m PaymentMode) Is(other PaymentMode) bool {
	return strings.EqualFold(strings.TrimSpace(string(m)), string(other))
}

// Is compares payment statuses ignoring case and surrounding space.
func (s PaymentStatus) Is(other PaymentStatus) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(other))
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductID Ref      `json:"productId"`
	VariantID Ref      `json:"variantId"`
	Quantity  Quantity `json:"quantity"`
	CostPrice Amount   `json:"costPrice"`
	Price     Amount   `json:"price"`
}

// Order is a storefront order snapshot. Report orders use the same shape with
// CostPrice resolved on every line.
type Order struct {
	ID            string        `json:"id"`
	CreatedAt     Timestamp     `json:"createdAt"`
	TotalAmount   Amount        `json:"totalAmount"`
	Status        OrderStatus   `json:"status"`
	PaymentMode   PaymentMode   `json:"paymentMode"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	UserID        Ref           `json:"userId"`
	Products      []OrderItem   `json:"products,omitempty"`
	OrderItems    []OrderItem   `json:"orderItems,omitempty"`
}

// Items returns the detailed order lines, falling back to the summary products list.
func (o Order) Items() []OrderItem {
	if len(o.OrderItems) > 0 {
		return o.OrderItems
	}
	return o.Products
}

// User is a storefront customer account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	Orders    []Order   `json:"orders,omitempty"`
}

// Variant is a purchasable size/edition of a product.
type Variant struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Stock    Quantity `json:"stock"`
	OPrice   Amount   `json:"oprice"`
	Discount Amount   `json:"discount"`
}

// Product is a catalog entry.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Images   ImageSet  `json:"imageurl"`
	Variants []Variant `json:"variants"`
}

// CartUser identifies the owner of a cart entry.
type CartUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// CartEntry is the cart line itself.
type CartEntry struct {
	Quantity Quantity  `json:"quantity"`
	AddedAt  Timestamp `json:"addedAt"`
}

// AbandonedCartItem flattens one cart line together with its owner and variant.
// Any part may be missing in partial payloads.
type AbandonedCartItem struct {
	User     *CartUser  `json:"user"`
	Variant  *Variant   `json:"variant"`
	CartItem *CartEntry `json:"cartItem"`
}
