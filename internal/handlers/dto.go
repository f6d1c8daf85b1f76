package handlers

import (
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

type productDTO struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"Quantity"`
	ImageURL     string          `json:"imageUrl"`
	CategoryID   *uint           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func newProductDTO(p *models.Product) productDTO {
	return productDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Quantity:     p.Quantity,
		ImageURL:     p.ImageURL,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName(),
		CreatedAt:    p.CreatedAt,
	}
}

func productDTOs(products []models.Product) []productDTO {
	out := make([]productDTO, 0, len(products))
	for i := range products {
		out = append(out, newProductDTO(&products[i]))
	}
	return out
}

type categoryDTO struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	ProductCount *int64 `json:"productCount,omitempty"`
}

func newCategoryDTO(c *models.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Description: c.Description, ImageURL: c.ImageURL}
}

type cartLineDTO struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"productId"`
	ProductName  string          `json:"productName"`
	Price        decimal.Decimal `json:"price"`
	ProductImage string          `json:"productImage"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type summaryLineDTO struct {
	ID          uint            `json:"id"`
	CartItemID  uint            `json:"cartItemId"`
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"imageUrl"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type adminOrderDTO struct {
	ID              uint               `json:"id"`
	OrderDate       time.Time          `json:"orderDate"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	Status          models.OrderStatus `json:"status"`
	ShippingAddress string             `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod,omitempty"`
	PaymentID       string             `json:"paymentId,omitempty"`
	ItemCount       *int               `json:"itemCount,omitempty"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	OrderItems      []orderLineDTO     `json:"orderItems,omitempty"`
}

type orderLineDTO struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func newAdminOrderDTO(o *models.Order, withItems bool) adminOrderDTO {
	dto := adminOrderDTO{
		ID:              o.ID,
		OrderDate:       o.OrderDate,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		PaymentID:       o.PaymentID,
		CustomerName:    o.CustomerName(),
		CustomerEmail:   o.CustomerEmail(),
	}
	if !withItems {
		count := len(o.Items)
		dto.ItemCount = &count
		return dto
	}
	dto.OrderItems = make([]orderLineDTO, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		name := item.ProductName
		if name == "" {
			name = "Unknown Product"
		}
		dto.OrderItems = append(dto.OrderItems, orderLineDTO{
			ProductName: name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal(),
		})
	}
	return dto
}
