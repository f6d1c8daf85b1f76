package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"orderId" gorm:"not null;index"`
	ProductID   *uint           `json:"productId" gorm:"index"`
	Product     *Product        `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	ProductName string          `json:"productName" gorm:"type:varchar(255)"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // Price at the time of order
}

// Subtotal is the snapshot price times quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order.
type Order struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          *uint           `json:"userId" gorm:"index"`
	User            *User           `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	ShippingAddress string          `json:"shippingAddress" gorm:"type:varchar(500)"`
	TotalAmount     decimal.Decimal `json:"totalAmount" gorm:"type:decimal(10,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	PaymentMethod   string          `json:"paymentMethod" gorm:"type:varchar(50)"`
	PaymentID       string          `json:"paymentId" gorm:"type:varchar(100)"`
	Items           []OrderItem     `json:"orderItems" gorm:"constraint:OnDelete:CASCADE"`
	OrderDate       time.Time       `json:"orderDate" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time       `json:"-"`
}

// CustomerName returns the owner's full name, or "Guest" for orders without a user.
func (o *Order) CustomerName() string {
	if o.User == nil {
		return "Guest"
	}
	return o.User.FullName
}

// CustomerEmail returns the owner's email, or "" for guest orders.
func (o *Order) CustomerEmail() string {
	if o.User == nil {
		return ""
	}
	return o.User.Email
}

// OwnedBy reports whether the order belongs to userID.
func (o *Order) OwnedBy(userID uint) bool {
	return o.UserID != nil && *o.UserID == userID
}
