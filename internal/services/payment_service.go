package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log"
	"strconv"
	"strings"

	"storefront/internal/config"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// Acknowledgement tokens expected by the PayHere notify contract.
const (
	AckOK    = "OK"
	AckError = "ERROR"
)

// PayHere status codes.
const (
	payHereSuccess  = "2"
	payHerePending  = "0"
	payHereCanceled = "-1"
	payHereFailed   = "-2"
)

// PayHereForm is the field set posted to the hosted PayHere checkout page.
type PayHereForm struct {
	MerchantID string `json:"merchant_id"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	NotifyURL  string `json:"notify_url"`
	OrderID    string `json:"order_id"`
	Items      string `json:"items"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Hash       string `json:"hash,omitempty"`
}

// Notification is the server-to-server callback PayHere sends after a payment.
type Notification struct {
	MerchantID    string
	OrderID       string
	StatusCode    string
	Amount        string
	Currency      string
	PaymentID     string
	Method        string
	StatusMessage string
	MD5Sig        string
}

// PaymentService handles the PayHere integration.
type PaymentService struct {
	cfg    config.PayHereConfig
	orders *OrderService
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(cfg config.PayHereConfig, orders *OrderService) *PaymentService {
	return &PaymentService{
		cfg:    cfg,
		orders: orders,
	}
}

// CheckoutURL is the hosted payment page the form is posted to.
func (s *PaymentService) CheckoutURL() string {
	return s.cfg.CheckoutURL
}

// Initiate builds the PayHere form for one of the user's orders.
// baseURL is the public origin the gateway redirects and calls back to.
func (s *PaymentService) Initiate(ctx context.Context, userID, orderID uint, baseURL string) (*PayHereForm, error) {
	order, err := s.orders.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	baseURL = strings.TrimRight(baseURL, "/")

	form := &PayHereForm{
		MerchantID: s.cfg.MerchantID,
		ReturnURL:  baseURL + "/checkout/payhere/return",
		CancelURL:  baseURL + "/checkout/cancel",
		NotifyURL:  baseURL + "/payment/payhere/notify",
		OrderID:    strconv.FormatUint(uint64(order.ID), 10),
		Items:      "Order #" + strconv.FormatUint(uint64(order.ID), 10),
		Amount:     order.TotalAmount.StringFixed(2),
		Currency:   s.cfg.Currency,
		FirstName:  "Customer",
		Email:      "customer@example.com",
		Phone:      "94771234567",
		Address:    order.ShippingAddress,
		City:       "Colombo",
		Country:    "Sri Lanka",
	}
	if user := order.User; user != nil {
		if parts := strings.Fields(user.FullName); len(parts) > 0 {
			form.FirstName = parts[0]
			if len(parts) > 1 {
				form.LastName = parts[1]
			}
		}
		if user.Email != "" {
			form.Email = user.Email
		}
		if user.Phone != "" {
			form.Phone = user.Phone
		}
	}
	if s.cfg.MerchantSecret != "" {
		form.Hash = upperMD5(form.MerchantID + form.OrderID + form.Amount + form.Currency + upperMD5(s.cfg.MerchantSecret))
	}
	return form, nil
}

// HandleNotification applies a gateway callback and returns the token to answer with.
func (s *PaymentService) HandleNotification(ctx context.Context, n Notification) string {
	ack := s.handleNotification(ctx, n)
	metrics.PaymentNotifications.WithLabelValues(ack).Inc()
	return ack
}

func (s *PaymentService) handleNotification(ctx context.Context, n Notification) string {
	log.Printf("PayHere notification: order=%s status=%s method=%s message=%q",
		n.OrderID, n.StatusCode, n.Method, n.StatusMessage)

	if n.MerchantID != s.cfg.MerchantID {
		log.Printf("PayHere notification rejected: merchant ID mismatch (got %q)", n.MerchantID)
		return AckError
	}
	if !s.signatureValid(n) {
		log.Printf("PayHere notification rejected: bad md5sig for order %s", n.OrderID)
		return AckError
	}
	id, err := strconv.ParseUint(strings.TrimSpace(n.OrderID), 10, 64)
	if err != nil || id == 0 {
		log.Printf("PayHere notification rejected: invalid order ID %q", n.OrderID)
		return AckError
	}

	var next models.OrderStatus
	switch n.StatusCode {
	case payHereSuccess:
		next = models.StatusProcessing
	case payHerePending, payHereCanceled, payHereFailed:
		next = models.StatusCancelled
	default:
		log.Printf("Unknown PayHere status %q for order %d; status unchanged", n.StatusCode, id)
		return AckOK
	}

	err = s.applyOutcome(ctx, uint(id), n, next)
	var terr *models.TransitionError
	switch {
	case err == nil:
		return AckOK
	case errors.As(err, &terr):
		log.Printf("PayHere notification for order %d ignored: %v", id, err)
		return AckOK
	case next == models.StatusCancelled:
		log.Printf("Failed to cancel order %d after PayHere notification: %v", id, err)
		return AckOK
	default:
		log.Printf("Failed to update order %d after PayHere notification: %v", id, err)
		return AckError
	}
}

func (s *PaymentService) applyOutcome(ctx context.Context, orderID uint, n Notification, next models.OrderStatus) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("PayHere notification for unknown order %d", orderID)
		}
		return err
	}
	method := n.Method
	if method == "" {
		method = "payhere"
	}
	return s.orders.RecordPayment(ctx, order, method, n.PaymentID, next)
}

// signatureValid checks md5sig when a merchant secret is configured.
func (s *PaymentService) signatureValid(n Notification) bool {
	if s.cfg.MerchantSecret == "" {
		return true
	}
	currency := n.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}
	expected := upperMD5(n.MerchantID + n.OrderID + n.Amount + currency + n.StatusCode + upperMD5(s.cfg.MerchantSecret))
	return strings.EqualFold(expected, n.MD5Sig)
}

func upperMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
