package handlers

import (
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const notAuthenticated = "User not authenticated"

// CheckoutHandler handles checkout and the PayHere payment endpoints.
type CheckoutHandler struct {
	orders   *services.OrderService
	payments *services.PaymentService
	// baseURL is the public origin handed to PayHere. Empty derives it from the request.
	baseURL string
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(orders *services.OrderService, payments *services.PaymentService, baseURL string) *CheckoutHandler {
	return &CheckoutHandler{orders: orders, payments: payments, baseURL: strings.TrimRight(baseURL, "/")}
}

// Routes returns the checkout and payment routes.
func (h *CheckoutHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/checkout/summary", Requires: middleware.Customer, DeniedMessage: notAuthenticated, Handler: h.HandleSummary},
		{Method: fiber.MethodPost, Path: "/checkout", Requires: middleware.Customer, DeniedMessage: notAuthenticated, Handler: h.HandleCreateOrder},
		{Method: fiber.MethodPost, Path: "/checkout/createOrder", Requires: middleware.Customer, DeniedMessage: notAuthenticated, Handler: h.HandleCreateOrder},
		{Method: fiber.MethodPost, Path: "/checkout/payhere/initiate", Requires: middleware.Customer, DeniedMessage: notAuthenticated, Handler: h.HandleInitiatePayHere},
		{Method: fiber.MethodPost, Path: "/checkout/confirm", Requires: middleware.Customer, DeniedMessage: notAuthenticated, Handler: h.HandleConfirm},
		{Method: fiber.MethodPost, Path: "/payment/payhere/notify", Requires: middleware.Public, Handler: h.HandlePayHereNotify},
		{Method: fiber.MethodPost, Path: "/payment/finalize", Requires: middleware.Customer, DeniedMessage: notAuthenticated, Handler: h.HandleFinalize},
	}
}

// HandleSummary returns the cart lines with shipping and tax applied.
func (h *CheckoutHandler) HandleSummary(c *fiber.Ctx) error {
	summary, err := h.orders.Summary(c.UserContext(), middleware.PrincipalFrom(c).UserID)
	if err != nil {
		return shopperFailure(c, err, "loading checkout summary")
	}
	items := make([]summaryLineDTO, 0, len(summary.Items))
	for i := range summary.Items {
		line := &summary.Items[i]
		items = append(items, summaryLineDTO{
			ID:          line.ID,
			CartItemID:  line.ID,
			ProductID:   line.ProductID,
			ProductName: line.Product.Name,
			Price:       line.Product.Price,
			Quantity:    line.Quantity,
			ImageURL:    line.Product.ImageURL,
			Subtotal:    line.Subtotal(),
		})
	}
	return c.JSON(fiber.Map{
		"items":     items,
		"totals":    summary.Totals,
		"itemCount": len(items),
	})
}

// HandleCreateOrder places an order from the cart. The total is recomputed on the
// server; a submitted totalAmount is only compared against it.
func (h *CheckoutHandler) HandleCreateOrder(c *fiber.Ctx) error {
	in := services.PlaceOrderInput{
		UserID:          middleware.PrincipalFrom(c).UserID,
		ShippingAddress: c.FormValue("shippingAddress"),
		PaymentMethod:   c.FormValue("paymentMethod"),
	}
	if raw := param(c, "totalAmount"); raw != "" {
		total, err := decimal.NewFromString(raw)
		if err != nil {
			return failJSON(c, fiber.StatusBadRequest, "Invalid total amount")
		}
		in.ClientTotal = &total
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), in)
	if err != nil {
		return shopperFailure(c, err, "creating order")
	}
	session.FromCtx(c).SetCurrentOrder(order.ID)
	return c.JSON(fiber.Map{
		"success": true,
		"orderId": order.ID,
		"message": "Order created successfully",
		"total":   order.TotalAmount,
	})
}

func (h *CheckoutHandler) publicBaseURL(c *fiber.Ctx) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	return c.BaseURL()
}

// HandleInitiatePayHere returns the PayHere form for the order being checked out.
func (h *CheckoutHandler) HandleInitiatePayHere(c *fiber.Ctx) error {
	orderID := session.FromCtx(c).Data().CurrentOrderID
	if raw := param(c, "orderId"); orderID == 0 && raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return failJSON(c, fiber.StatusBadRequest, "Invalid order ID")
		}
		orderID = id
	}
	if orderID == 0 {
		return failJSON(c, fiber.StatusBadRequest, "No active order found")
	}

	form, err := h.payments.Initiate(c.UserContext(), middleware.PrincipalFrom(c).UserID, orderID, h.publicBaseURL(c))
	if err != nil {
		return shopperFailure(c, err, "initiating payment")
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"payhereData": form,
		"paymentUrl":  h.payments.CheckoutURL(),
	})
}

// HandleConfirm moves the order to PROCESSING and forgets it as the current order.
func (h *CheckoutHandler) HandleConfirm(c *fiber.Ctx) error {
	raw := param(c, "orderId")
	if raw == "" {
		return failJSON(c, fiber.StatusBadRequest, "Order ID is required")
	}
	orderID, err := parseID(raw)
	if err != nil {
		return failJSON(c, fiber.StatusBadRequest, "Invalid order ID")
	}
	if _, err := h.orders.ConfirmOrder(c.UserContext(), middleware.PrincipalFrom(c).UserID, orderID); err != nil {
		return shopperFailure(c, err, "confirming order")
	}
	session.FromCtx(c).SetCurrentOrder(0)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order confirmed successfully",
		"orderId": orderID,
	})
}

// HandlePayHereNotify is the gateway's server-to-server callback. It always
// answers 200 with OK or ERROR as plain text.
func (h *CheckoutHandler) HandlePayHereNotify(c *fiber.Ctx) error {
	amount := param(c, "payhere_amount")
	if amount == "" {
		amount = param(c, "amount")
	}
	currency := param(c, "payhere_currency")
	if currency == "" {
		currency = param(c, "currency")
	}
	ack := h.payments.HandleNotification(c.UserContext(), services.Notification{
		MerchantID:    param(c, "merchant_id"),
		OrderID:       param(c, "order_id"),
		StatusCode:    param(c, "status_code"),
		Amount:        amount,
		Currency:      currency,
		PaymentID:     param(c, "payment_id"),
		Method:        param(c, "method"),
		StatusMessage: param(c, "status_message"),
		MD5Sig:        param(c, "md5sig"),
	})
	return c.SendString(ack)
}

// HandleFinalize records the payment method chosen on the checkout page.
func (h *CheckoutHandler) HandleFinalize(c *fiber.Ctx) error {
	raw := param(c, "orderId")
	if raw == "" {
		return failJSON(c, fiber.StatusBadRequest, "Order ID is required")
	}
	orderID, err := parseID(raw)
	if err != nil {
		return failJSON(c, fiber.StatusBadRequest, "Invalid order ID format")
	}
	order, err := h.orders.FinalizePayment(c.UserContext(), middleware.PrincipalFrom(c).UserID, orderID,
		c.FormValue("paymentMethod"), c.FormValue("paymentId"))
	if err != nil {
		return shopperFailure(c, err, "finalizing payment")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment finalized successfully",
		"orderId": order.ID,
		"status":  order.Status,
	})
}
