package handlers

import (
	"bytes"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

const dashboardRecentOrders = 5

// ReportHandler serves the admin dashboard and reports.
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Routes returns the dashboard and report routes.
func (h *ReportHandler) Routes() []middleware.Route {
	return []middleware.Route{
		{Method: fiber.MethodGet, Path: "/admin-dashboard", Requires: middleware.Admin, Handler: h.HandleDashboard},
		{Method: fiber.MethodGet, Path: "/admin-reports", Requires: middleware.Admin, Handler: h.HandleReports},
	}
}

// HandleDashboard dispatches action=stats|recent-orders|low-stock|status-counts.
func (h *ReportHandler) HandleDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var (
		out interface{}
		err error
	)
	switch param(c, "action") {
	case "stats":
		out, err = h.reports.DashboardStats(ctx)
	case "recent-orders":
		out, err = h.reports.RecentOrders(ctx, dashboardRecentOrders)
	case "low-stock":
		out, err = h.reports.LowStock(ctx)
	case "status-counts":
		out, err = h.reports.StatusCounts(ctx)
	default:
		return errorJSON(c, fiber.StatusBadRequest, invalidAction)
	}
	if err != nil {
		return adminFailure(c, err, "loading dashboard")
	}
	return c.JSON(out)
}

// HandleReports dispatches the report, export and receipt actions.
func (h *ReportHandler) HandleReports(c *fiber.Ctx) error {
	ctx := c.UserContext()
	month := param(c, "month")
	var (
		out interface{}
		err error
	)
	switch param(c, "action") {
	case "quick-stats":
		out, err = h.reports.QuickStats(ctx)
	case "sales-report":
		out, err = h.reports.SalesReport(ctx, month)
	case "inventory-report":
		out, err = h.reports.InventoryReport(ctx)
	case "customer-report":
		out, err = h.reports.CustomerReport(ctx, month)
	case "payment-receipts":
		out, err = h.reports.PaymentReceipts(ctx)
	case "export-sales":
		return h.csv(c, "sales_report.csv", func(buf *bytes.Buffer) error {
			return h.reports.ExportSales(ctx, buf, month)
		})
	case "export-inventory":
		return h.csv(c, "inventory_report.csv", func(buf *bytes.Buffer) error {
			return h.reports.ExportInventory(ctx, buf)
		})
	case "export-customers":
		return h.csv(c, "customer_report.csv", func(buf *bytes.Buffer) error {
			return h.reports.ExportCustomers(ctx, buf, month)
		})
	case "print-receipt":
		var buf bytes.Buffer
		if err := h.reports.WriteReceipt(ctx, &buf, param(c, "id")); err != nil {
			return adminFailure(c, err, "printing receipt")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	default:
		return errorJSON(c, fiber.StatusBadRequest, invalidAction)
	}
	if err != nil {
		return adminFailure(c, err, "generating report")
	}
	return c.JSON(out)
}

// csv renders into a buffer first so a failure can still be reported as JSON.
func (h *ReportHandler) csv(c *fiber.Ctx, filename string, render func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return adminFailure(c, err, "exporting "+filename)
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}
