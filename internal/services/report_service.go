package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"

	dashboardLowStock = 10
	reportLowStock    = 5
	topListSize       = 5
	growthMonths      = 6
)

// DashboardStats is the admin dashboard headline block.
type DashboardStats struct {
	TotalOrders     int64  `json:"totalOrders"`
	TotalRevenue    string `json:"totalRevenue"`
	TotalProducts   int64  `json:"totalProducts"`
	TotalUsers      int64  `json:"totalUsers"`
	TodayOrders     int64  `json:"todayOrders"`
	TodayRevenue    string `json:"todayRevenue"`
	TodayUsers      int64  `json:"todayUsers"`
	LowStockCount   int64  `json:"lowStockCount"`
	OutOfStockCount int64  `json:"outOfStockCount"`
}

// QuickStats is the headline block of the reports page.
type QuickStats struct {
	TotalOrders   int64  `json:"totalOrders"`
	TotalRevenue  string `json:"totalRevenue"`
	TotalProducts int64  `json:"totalProducts"`
	TotalUsers    int64  `json:"totalUsers"`
}

// RecentOrder is one row of the dashboard's recent orders table.
type RecentOrder struct {
	ID           uint            `json:"id"`
	CustomerName string          `json:"customerName"`
	Total        decimal.Decimal `json:"total"`
	Date         string          `json:"date"`
	Status       string          `json:"status"`
}

// LowStockAlert is a product running out of stock.
type LowStockAlert struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Stock int             `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// SalesReport summarizes orders placed in a month, or in all time.
type SalesReport struct {
	TotalSales      string                     `json:"totalSales"`
	CompletedOrders int                        `json:"completedOrders"`
	AvgOrderValue   string                     `json:"avgOrderValue"`
	BestCategory    string                     `json:"bestCategory"`
	DailySales      map[string]decimal.Decimal `json:"dailySales"`
}

// TopProduct is a product ranked by the value of its stock on hand.
type TopProduct struct {
	Name    string `json:"name"`
	Sold    int    `json:"sold"`
	Revenue string `json:"revenue"`
	Stock   int    `json:"stock"`
}

// InventoryReport buckets products by stock level.
type InventoryReport struct {
	InStockCount    int          `json:"inStockCount"`
	InStockValue    string       `json:"inStockValue"`
	LowStockCount   int          `json:"lowStockCount"`
	LowStockValue   string       `json:"lowStockValue"`
	OutOfStockCount int          `json:"outOfStockCount"`
	OutOfStockValue string       `json:"outOfStockValue"`
	TopProducts     []TopProduct `json:"topProducts"`
}

// TopCustomer is a customer ranked by spend.
type TopCustomer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	TotalSpent string `json:"totalSpent"`
	OrderCount int    `json:"orderCount"`
}

// CustomerReport summarizes registrations and spend.
type CustomerReport struct {
	NewCustomers     int            `json:"newCustomers"`
	TotalCustomers   int            `json:"totalCustomers"`
	RepeatRate       string         `json:"repeatRate"`
	AvgCustomerValue string         `json:"avgCustomerValue"`
	CustomerGrowth   map[string]int `json:"customerGrowth"`
	TopCustomers     []TopCustomer  `json:"topCustomers"`
}

// PaymentReceipt is a paid order as listed on the receipts page.
type PaymentReceipt struct {
	ID           int       `json:"id"`
	OrderID      uint      `json:"orderId"`
	CustomerName string    `json:"customerName"`
	Amount       string    `json:"amount"`
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
}

// ReportService computes the admin dashboard and reports.
type ReportService struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	now      func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(repos repositories.Repositories) *ReportService {
	return &ReportService{
		users:    repos.Users,
		products: repos.Products,
		orders:   repos.Orders,
		now:      time.Now,
	}
}

var delivered = []models.OrderStatus{models.StatusDelivered}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// monthRange parses a yyyy-MM month. An empty month matches all time.
func (s *ReportService) monthRange(month string) (from, to time.Time, err error) {
	month = strings.TrimSpace(month)
	if month == "" {
		return time.Time{}, time.Time{}, nil
	}
	from, err = time.ParseInLocation(monthLayout, month, s.now().Location())
	if err != nil {
		return time.Time{}, time.Time{}, invalid("Invalid month format, expected YYYY-MM")
	}
	return from, from.AddDate(0, 1, 0), nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// QuickStats returns order, revenue, product and user totals.
func (s *ReportService) QuickStats(ctx context.Context) (*QuickStats, error) {
	totalOrders, err := s.orders.Count(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.SumTotals(ctx, repositories.OrderFilter{Statuses: delivered})
	if err != nil {
		return nil, err
	}
	totalProducts, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &QuickStats{
		TotalOrders:   totalOrders,
		TotalRevenue:  money(revenue),
		TotalProducts: totalProducts,
		TotalUsers:    totalUsers,
	}, nil
}

// DashboardStats adds today's activity and stock alerts to the quick stats.
func (s *ReportService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	quick, err := s.QuickStats(ctx)
	if err != nil {
		return nil, err
	}
	today := startOfDay(s.now())
	todayFilter := repositories.OrderFilter{From: today, To: today.AddDate(0, 0, 1)}

	todayOrders, err := s.orders.Count(ctx, todayFilter)
	if err != nil {
		return nil, err
	}
	todayFilter.Statuses = delivered
	todayRevenue, err := s.orders.SumTotals(ctx, todayFilter)
	if err != nil {
		return nil, err
	}
	todayUsers, err := s.users.CountSince(ctx, today)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.products.CountStockBetween(ctx, 1, dashboardLowStock)
	if err != nil {
		return nil, err
	}
	outOfStock, err := s.products.CountStockBetween(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		TotalOrders:     quick.TotalOrders,
		TotalRevenue:    quick.TotalRevenue,
		TotalProducts:   quick.TotalProducts,
		TotalUsers:      quick.TotalUsers,
		TodayOrders:     todayOrders,
		TodayRevenue:    money(todayRevenue),
		TodayUsers:      todayUsers,
		LowStockCount:   lowStock,
		OutOfStockCount: outOfStock,
	}, nil
}

// RecentOrders returns the newest orders.
func (s *ReportService) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	orders, err := s.orders.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]RecentOrder, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		rows = append(rows, RecentOrder{
			ID:           o.ID,
			CustomerName: o.CustomerName(),
			Total:        o.TotalAmount,
			Date:         o.OrderDate.Format(dayLayout),
			Status:       string(o.Status),
		})
	}
	return rows, nil
}

// LowStock returns products with at most five units, lowest first.
func (s *ReportService) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	products, err := s.products.ListLowStock(ctx, reportLowStock)
	if err != nil {
		return nil, err
	}
	alerts := make([]LowStockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, LowStockAlert{ID: p.ID, Name: p.Name, Stock: p.Quantity, Price: p.Price})
	}
	return alerts, nil
}

// StatusCounts returns the number of orders in every status.
func (s *ReportService) StatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out, nil
}

// dailySales sums order totals per calendar day.
func dailySales(orders []models.Order) map[string]decimal.Decimal {
	daily := make(map[string]decimal.Decimal)
	for i := range orders {
		day := orders[i].OrderDate.Format(dayLayout)
		daily[day] = daily[day].Add(orders[i].TotalAmount)
	}
	return daily
}

func (s *ReportService) ordersIn(ctx context.Context, month string) ([]models.Order, error) {
	from, to, err := s.monthRange(month)
	if err != nil {
		return nil, err
	}
	all, err := s.orders.Find(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, err
	}
	orders := all[:0]
	for _, o := range all {
		if inRange(o.OrderDate, from, to) {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// SalesReport summarizes the orders placed in month (yyyy-MM, empty for all time).
// Only DELIVERED orders count as sales.
func (s *ReportService) SalesReport(ctx context.Context, month string) (*SalesReport, error) {
	orders, err := s.ordersIn(ctx, month)
	if err != nil {
		return nil, err
	}

	totalSales := decimal.Zero
	completed := 0
	categoryUnits := make(map[string]int)
	for i := range orders {
		o := &orders[i]
		if o.Status == models.StatusDelivered {
			completed++
			totalSales = totalSales.Add(o.TotalAmount)
		}
		for _, item := range o.Items {
			if item.Product != nil && item.Product.Category != nil {
				categoryUnits[item.Product.Category.Name] += item.Quantity
			}
		}
	}

	best, bestUnits := "None", 0
	for name, units := range categoryUnits {
		if units > bestUnits || (units == bestUnits && units > 0 && name < best) {
			best, bestUnits = name, units
		}
	}

	avg := decimal.Zero
	if len(orders) > 0 {
		avg = totalSales.Div(decimal.NewFromInt(int64(len(orders))))
	}
	return &SalesReport{
		TotalSales:      money(totalSales),
		CompletedOrders: completed,
		AvgOrderValue:   money(avg),
		BestCategory:    best,
		DailySales:      dailySales(orders),
	}, nil
}

// InventoryReport buckets products into out of stock (0), low (1 to 5) and in stock,
// and ranks the top five by stock value.
func (s *ReportService) InventoryReport(ctx context.Context) (*InventoryReport, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.Find(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, err
	}
	sold := make(map[uint]int)
	for i := range orders {
		if orders[i].Status == models.StatusCancelled {
			continue
		}
		for _, item := range orders[i].Items {
			if item.ProductID != nil {
				sold[*item.ProductID] += item.Quantity
			}
		}
	}

	inValue, lowValue, outValue := decimal.Zero, decimal.Zero, decimal.Zero
	report := &InventoryReport{}
	ranked := make([]models.Product, len(products))
	copy(ranked, products)
	for i := range products {
		p := &products[i]
		value := p.StockValue()
		switch {
		case p.Quantity == 0:
			report.OutOfStockCount++
			outValue = outValue.Add(value)
		case p.Quantity <= reportLowStock:
			report.LowStockCount++
			lowValue = lowValue.Add(value)
		default:
			report.InStockCount++
			inValue = inValue.Add(value)
		}
	}
	report.InStockValue = money(inValue)
	report.LowStockValue = money(lowValue)
	report.OutOfStockValue = money(outValue)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].StockValue().GreaterThan(ranked[j].StockValue())
	})
	if len(ranked) > topListSize {
		ranked = ranked[:topListSize]
	}
	report.TopProducts = make([]TopProduct, 0, len(ranked))
	for i := range ranked {
		report.TopProducts = append(report.TopProducts, TopProduct{
			Name:    ranked[i].Name,
			Sold:    sold[ranked[i].ID],
			Revenue: money(ranked[i].StockValue()),
			Stock:   ranked[i].Quantity,
		})
	}
	return report, nil
}

type customerTotals struct {
	orders int
	spent  decimal.Decimal
}

func totalsByCustomer(orders []models.Order) map[uint]*customerTotals {
	totals := make(map[uint]*customerTotals)
	for i := range orders {
		if orders[i].UserID == nil {
			continue
		}
		t, ok := totals[*orders[i].UserID]
		if !ok {
			t = &customerTotals{}
			totals[*orders[i].UserID] = t
		}
		t.orders++
		t.spent = t.spent.Add(orders[i].TotalAmount)
	}
	return totals
}

// CustomerReport counts new customers in month (the current month when empty),
// the repeat purchase rate and the top customers by spend.
func (s *ReportService) CustomerReport(ctx context.Context, month string) (*CustomerReport, error) {
	now := s.now()
	if strings.TrimSpace(month) == "" {
		month = now.Format(monthLayout)
	}
	from, to, err := s.monthRange(month)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListRecent(ctx, -1)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.Find(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.SumTotals(ctx, repositories.OrderFilter{Statuses: delivered})
	if err != nil {
		return nil, err
	}

	report := &CustomerReport{
		TotalCustomers: len(users),
		CustomerGrowth: make(map[string]int, growthMonths),
	}
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := growthMonths - 1; i >= 0; i-- {
		report.CustomerGrowth[thisMonth.AddDate(0, -i, 0).Format(monthLayout)] = 0
	}
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		u := &users[i]
		byID[u.ID] = u
		if inRange(u.CreatedAt, from, to) {
			report.NewCustomers++
		}
		key := u.CreatedAt.In(now.Location()).Format(monthLayout)
		if _, tracked := report.CustomerGrowth[key]; tracked {
			report.CustomerGrowth[key]++
		}
	}

	totals := totalsByCustomer(orders)
	repeat := 0
	for _, t := range totals {
		if t.orders > 1 {
			repeat++
		}
	}
	repeatRate, avgValue := 0.0, decimal.Zero
	if report.TotalCustomers > 0 {
		repeatRate = float64(repeat) / float64(report.TotalCustomers) * 100
		avgValue = revenue.Div(decimal.NewFromInt(int64(report.TotalCustomers)))
	}
	report.RepeatRate = strconv.FormatFloat(repeatRate, 'f', 1, 64)
	report.AvgCustomerValue = money(avgValue)

	type ranked struct {
		user   *models.User
		totals *customerTotals
	}
	var top []ranked
	for id, t := range totals {
		if u, ok := byID[id]; ok {
			top = append(top, ranked{user: u, totals: t})
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if !top[i].totals.spent.Equal(top[j].totals.spent) {
			return top[i].totals.spent.GreaterThan(top[j].totals.spent)
		}
		return top[i].user.ID < top[j].user.ID
	})
	if len(top) > topListSize {
		top = top[:topListSize]
	}
	report.TopCustomers = make([]TopCustomer, 0, len(top))
	for _, r := range top {
		report.TopCustomers = append(report.TopCustomers, TopCustomer{
			Name:       r.user.DisplayName(),
			Email:      r.user.Email,
			TotalSpent: money(r.totals.spent),
			OrderCount: r.totals.orders,
		})
	}
	return report, nil
}

func receiptCustomer(o *models.Order) string {
	if o.User == nil {
		return "Guest Customer"
	}
	return o.User.DisplayName()
}

// PaymentReceipts lists SHIPPED and DELIVERED orders as receipts numbered from 1.
func (s *ReportService) PaymentReceipts(ctx context.Context) ([]PaymentReceipt, error) {
	orders, err := s.orders.Find(ctx, repositories.OrderFilter{
		Statuses: []models.OrderStatus{models.StatusShipped, models.StatusDelivered},
	})
	if err != nil {
		return nil, err
	}
	receipts := make([]PaymentReceipt, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		receipts = append(receipts, PaymentReceipt{
			ID:           i + 1,
			OrderID:      o.ID,
			CustomerName: receiptCustomer(o),
			Amount:       money(o.TotalAmount),
			Date:         o.OrderDate,
			Status:       string(o.Status),
		})
	}
	return receipts, nil
}

func writeCSV(w io.Writer, title string, header []string, rows [][]string) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", title); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func titled(title, month string) string {
	if month = strings.TrimSpace(month); month != "" {
		return title + " - " + month
	}
	return title
}

// ExportSales writes daily revenue for month as CSV.
func (s *ReportService) ExportSales(ctx context.Context, w io.Writer, month string) error {
	orders, err := s.ordersIn(ctx, month)
	if err != nil {
		return err
	}
	daily := dailySales(orders)
	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	rows := make([][]string, 0, len(days))
	for _, day := range days {
		rows = append(rows, []string{day, money(daily[day])})
	}
	return writeCSV(w, titled("Sales Report", month), []string{"Date", "Revenue"}, rows)
}

// ExportInventory writes every product with its stock value as CSV.
func (s *ReportService) ExportInventory(ctx context.Context, w io.Writer) error {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(products))
	for i := range products {
		p := &products[i]
		rows = append(rows, []string{
			p.Name,
			p.CategoryName(),
			strconv.Itoa(p.Quantity),
			money(p.Price),
			money(p.StockValue()),
		})
	}
	return writeCSV(w, "Inventory Report",
		[]string{"Product Name", "Category", "Stock", "Price", "Total Value"}, rows)
}

// ExportCustomers writes every user with their order count and spend as CSV.
func (s *ReportService) ExportCustomers(ctx context.Context, w io.Writer, month string) error {
	users, err := s.users.ListRecent(ctx, -1)
	if err != nil {
		return err
	}
	orders, err := s.orders.Find(ctx, repositories.OrderFilter{})
	if err != nil {
		return err
	}
	totals := totalsByCustomer(orders)
	rows := make([][]string, 0, len(users))
	for i := range users {
		u := &users[i]
		count, spent := 0, decimal.Zero
		if t, ok := totals[u.ID]; ok {
			count, spent = t.orders, t.spent
		}
		rows = append(rows, []string{
			u.DisplayName(),
			u.Email,
			strconv.Itoa(count),
			money(spent),
			u.CreatedAt.Format(dayLayout),
		})
	}
	return writeCSV(w, titled("Customer Report", month),
		[]string{"Customer Name", "Email", "Total Orders", "Total Spent", "Join Date"}, rows)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Payment Receipt</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.receipt { border: 1px solid #000; padding: 20px; max-width: 400px; }
.header { text-align: center; margin-bottom: 20px; }
.details { margin-bottom: 20px; }
.footer { text-align: center; margin-top: 20px; font-size: 12px; }
</style>
</head>
<body>
<div class="receipt">
<div class="header">
<h2>SMART TECH</h2>
<p>Payment Receipt</p>
</div>
<div class="details">
<p><strong>Receipt ID:</strong> RC-{{.ID}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
{{- with .Order}}
<p><strong>Order:</strong> #{{.ID}}</p>
<p><strong>Customer:</strong> {{.Customer}}</p>
{{- range .Items}}
<p>{{.Name}} x {{.Quantity}}: {{.Subtotal}}</p>
{{- end}}
<p><strong>Amount:</strong> {{.Amount}}</p>
{{- end}}
<p><strong>Status:</strong> PAID</p>
</div>
<div class="footer">
<p>Thank you for your business!</p>
</div>
</div>
<script>window.print();</script>
</body>
</html>
`))

type receiptLine struct {
	Name     string
	Quantity int
	Subtotal string
}

type receiptOrder struct {
	ID       uint
	Customer string
	Items    []receiptLine
	Amount   string
}

type receiptView struct {
	ID    string
	Date  string
	Order *receiptOrder
}

// WriteReceipt renders a printable receipt. When id names a shipped or
// delivered order its details are included.
func (s *ReportService) WriteReceipt(ctx context.Context, w io.Writer, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("Receipt ID required")
	}
	view := receiptView{ID: id, Date: s.now().Format("2006-01-02 15:04")}
	if orderID, err := strconv.ParseUint(id, 10, 64); err == nil && orderID > 0 {
		order, err := s.orders.GetByID(ctx, uint(orderID))
		if err == nil && (order.Status == models.StatusShipped || order.Status == models.StatusDelivered) {
			ro := &receiptOrder{ID: order.ID, Customer: receiptCustomer(order), Amount: money(order.TotalAmount)}
			for i := range order.Items {
				item := &order.Items[i]
				ro.Items = append(ro.Items, receiptLine{Name: item.ProductName, Quantity: item.Quantity, Subtotal: money(item.Subtotal())})
			}
			view.Order = ro
			view.Date = order.OrderDate.Format("2006-01-02 15:04")
		}
	}
	return receiptTemplate.Execute(w, view)
}
