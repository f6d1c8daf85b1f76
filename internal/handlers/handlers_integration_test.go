package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/server"
	"storefront/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	adminUser     = "admin"
	adminPassword = "admin-secret"
)

// setupApp builds the full app on an in-memory SQLite database seeded with the
// sample catalog and an administrator.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	if err := database.Seed(db, database.SeedOptions{
		AdminUsername: adminUser,
		AdminEmail:    "admin@example.com",
		AdminPassword: adminPassword,
	}); err != nil {
		t.Fatalf("failed to seed database: %v", err)
	}

	disk, err := storage.NewLocalDisk(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("failed to create upload disk: %v", err)
	}
	cfg := &config.Config{
		SessionCookie:  "sid",
		SessionTimeout: 30 * time.Minute,
		JWTSecret:      "test_jwt_secret",
		PayHere: config.PayHereConfig{
			MerchantID:  "1232299",
			CheckoutURL: "https://sandbox.payhere.lk/pay/checkout",
			Currency:    "LKR",
		},
		ShippingFee: decimal.RequireFromString("5.99"),
		TaxRate:     decimal.RequireFromString("0.10"),
		Storage:     config.StorageConfig{URL: "/uploads"},
	}
	return server.New(server.Deps{Config: cfg, DB: db, Disk: disk})
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

// browser keeps cookies between requests the way a web page would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
	header  http.Header
}

func newBrowser(t *testing.T, app *fiber.App) *browser {
	return &browser{t: t, app: app, cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (b *browser) send(req *http.Request) *http.Response {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	for k, v := range b.header {
		req.Header[k] = v
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("request %s %s failed: %v", req.Method, req.URL, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return b.send(req)
}

func (b *browser) login(username, password string) {
	b.t.Helper()
	resp := b.post("/login", url.Values{"username": {username}, "password": {password}})
	assert.Equal(b.t, http.StatusOK, resp.StatusCode)
	assert.Equal(b.t, "Login successful", readText(b.t, resp))
}

func (b *browser) registerAndLogin(username string) {
	b.t.Helper()
	resp := b.post("/register", url.Values{
		"username":        {username},
		"email":           {username + "@example.com"},
		"password":        {"password123"},
		"confirmPassword": {"password123"},
		"fullName":        {"Test " + username},
	})
	assert.Equal(b.t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	b.login(username, "password123")
}

func readText(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	assert.NoError(t, err)
	return string(body)
}

func readJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func readMap(t *testing.T, resp *http.Response) map[string]interface{} {
	var m map[string]interface{}
	readJSON(t, resp, &m)
	return m
}

// money reads a decimal that JSON encoded as a string.
func money(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(v))
	assert.NoError(t, err)
	return d
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)
	b := newBrowser(t, app)

	form := url.Values{
		"username":        {"testuser"},
		"email":           {"test@example.com"},
		"password":        {"password123"},
		"confirmPassword": {"password123"},
	}
	resp := b.post("/register", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Registration successful", readText(t, resp))

	// Duplicate username
	resp = b.post("/register", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Username already exists", readText(t, resp))

	resp = b.post("/login", url.Values{"username": {"testuser"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password is required", readText(t, resp))

	resp = b.post("/login", url.Values{"username": {"testuser"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid username or password", readText(t, resp))

	resp = b.post("/login", url.Values{"username": {"testuser"}, "password": {"password123"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get("X-Auth-Token")
	assert.NotEmpty(t, token)
	resp.Body.Close()

	profile := readMap(t, b.get("/user-profile"))
	assert.Equal(t, "testuser", profile["username"])
	assert.Equal(t, "CUSTOMER", profile["role"])
	assert.NotContains(t, profile, "password")

	resp = b.get("/admin-auth?action=check")
	assert.Equal(t, map[string]interface{}{"isAdmin": false}, readMap(t, resp))

	resp = b.get("/logout")
	assert.Equal(t, "Logged out successfully", readText(t, resp))

	resp = b.get("/user-profile")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"success": false, "error": "Not logged in"}, readMap(t, resp))

	// API clients authenticate with the bearer token instead of the cookie
	api := newBrowser(t, app)
	api.header.Set("Authorization", "Bearer "+token)
	resp = api.get("/user-profile")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "testuser", readMap(t, resp)["username"])
}

func TestForgotPassword(t *testing.T) {
	app := setupApp(t)
	b := newBrowser(t, app)
	b.registerAndLogin("forgetful")
	b.get("/logout").Body.Close()

	resp := b.post("/forgot-password", url.Values{"action": {"recover"}, "email": {"nobody@example.com"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No account found with this email", readText(t, resp))

	resp = b.post("/forgot-password", url.Values{"action": {"update"}, "email": {"forgetful@example.com"},
		"newPassword": {"fresh-pass"}, "confirmPassword": {"fresh-pass"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = b.post("/forgot-password", url.Values{"action": {"recover"}, "email": {"forgetful@example.com"}})
	assert.Equal(t, "Email found", readText(t, resp))

	resp = b.post("/forgot-password", url.Values{"action": {"update"}, "email": {"forgetful@example.com"},
		"newPassword": {"fresh-pass"}, "confirmPassword": {"other"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Passwords do not match", readText(t, resp))

	resp = b.post("/forgot-password", url.Values{"action": {"update"}, "email": {"forgetful@example.com"},
		"newPassword": {"fresh-pass"}, "confirmPassword": {"fresh-pass"}})
	assert.Equal(t, "Password updated successfully", readText(t, resp))

	b.login("forgetful", "fresh-pass")

	resp = b.post("/forgot-password", url.Values{"action": {"bogus"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid action", readText(t, resp))
}

func TestCatalogEndpoints(t *testing.T) {
	app := setupApp(t)
	b := newBrowser(t, app)

	var products []map[string]interface{}
	readJSON(t, b.get("/products"), &products)
	assert.Len(t, products, 5)

	products = nil
	readJSON(t, b.get("/products?category=2&sort=price_low"), &products)
	if assert.Len(t, products, 2) {
		assert.Equal(t, "Wireless Mouse", products[0]["name"])
		assert.Equal(t, "Accessories", products[0]["categoryName"])
		assert.Equal(t, float64(50), products[0]["Quantity"])
	}

	products = nil
	readJSON(t, b.get("/products?search=ULTRA"), &products)
	if assert.Len(t, products, 1) {
		assert.Equal(t, "Ultrabook Air", products[0]["name"])
	}

	resp := b.get("/products?category=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid category ID", readMap(t, resp)["error"])

	resp = b.get("/product-details")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Product ID is required", readMap(t, resp)["error"])

	resp = b.get("/product-details?id=999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", readMap(t, resp)["error"])

	var details struct {
		Product         map[string]interface{}   `json:"product"`
		RelatedProducts []map[string]interface{} `json:"relatedProducts"`
	}
	readJSON(t, b.get("/product-details?id=1&related=true"), &details)
	assert.Equal(t, "Laptop Pro 14", details.Product["name"])
	if assert.Len(t, details.RelatedProducts, 1) {
		assert.Equal(t, "Ultrabook Air", details.RelatedProducts[0]["name"])
	}

	var categories []map[string]interface{}
	readJSON(t, b.get("/categories"), &categories)
	assert.Len(t, categories, 3)
	assert.NotContains(t, categories[0], "productCount")
}

func TestCartRequiresLogin(t *testing.T) {
	app := setupApp(t)
	b := newBrowser(t, app)

	resp := b.get("/cart?format=json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"success": false, "error": "User not logged in"}, readMap(t, resp))

	resp = b.get("/checkout/summary")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User not authenticated", readMap(t, resp)["error"])
}

func TestCartAndCheckoutFlow(t *testing.T) {
	app := setupApp(t)
	shopper := newBrowser(t, app)
	shopper.registerAndLogin("shopper")

	resp := shopper.post("/cart", url.Values{})
	assert.Equal(t, "Action parameter required", readMap(t, resp)["error"])

	resp = shopper.post("/cart", url.Values{"action": {"add"}, "productId": {"3"}, "quantity": {"2"}})
	body := readMap(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["cartCount"])

	resp = shopper.post("/cart", url.Values{"action": {"add"}, "productId": {"5"}, "quantity": {"1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Insufficient stock. Available: 0", readMap(t, resp)["error"])

	resp = shopper.get("/cart")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart.html", resp.Header.Get("Location"))
	resp.Body.Close()

	cart := readMap(t, shopper.get("/cart?format=json"))
	assert.Equal(t, float64(1), cart["totalItems"])
	assert.True(t, money(t, cart["cartTotal"]).Equal(decimal.NewFromInt(150)))

	// Another user cannot touch this cart line
	lineID := strconv.Itoa(int(cart["items"].([]interface{})[0].(map[string]interface{})["id"].(float64)))
	thief := newBrowser(t, app)
	thief.registerAndLogin("thief")
	resp = thief.post("/cart", url.Values{"action": {"update"}, "cartItemId": {lineID}, "quantity": {"9"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	summary := readMap(t, shopper.get("/checkout/summary"))
	totals := summary["totals"].(map[string]interface{})
	assert.True(t, money(t, totals["total"]).Equal(decimal.RequireFromString("170.99")))
	assert.Equal(t, float64(1), summary["itemCount"])

	resp = shopper.post("/checkout/createOrder", url.Values{"shippingAddress": {""}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Shipping address is required", readMap(t, resp)["error"])

	// The submitted total is ignored in favour of the recomputed one
	resp = shopper.post("/checkout/createOrder", url.Values{"shippingAddress": {"1 Main St"}, "totalAmount": {"1.00"}})
	created := readMap(t, resp)
	assert.Equal(t, "Order created successfully", created["message"])
	assert.True(t, money(t, created["total"]).Equal(decimal.RequireFromString("170.99")))
	orderID := strconv.Itoa(int(created["orderId"].(float64)))

	assert.Equal(t, float64(0), readMap(t, shopper.get("/cart?action=count"))["count"])
	product := readMap(t, shopper.get("/product-details?id=3"))
	assert.Equal(t, float64(23), product["Quantity"])

	initiated := readMap(t, shopper.post("/checkout/payhere/initiate", url.Values{}))
	assert.Equal(t, "https://sandbox.payhere.lk/pay/checkout", initiated["paymentUrl"])
	form := initiated["payhereData"].(map[string]interface{})
	assert.Equal(t, orderID, form["order_id"])
	assert.Equal(t, "170.99", form["amount"])
	assert.Equal(t, "shopper@example.com", form["email"])

	resp = thief.post("/checkout/confirm", url.Values{"orderId": {orderID}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	gateway := newBrowser(t, app)
	resp = gateway.post("/payment/payhere/notify", url.Values{"merchant_id": {"other"}, "order_id": {orderID}, "status_code": {"2"}})
	assert.Equal(t, "ERROR", readText(t, resp))
	resp = gateway.post("/payment/payhere/notify", url.Values{
		"merchant_id": {"1232299"}, "order_id": {orderID}, "status_code": {"2"},
		"payhere_amount": {"170.99"}, "payhere_currency": {"LKR"}, "payment_id": {"PH-1"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", readText(t, resp))

	confirmed := readMap(t, shopper.post("/checkout/confirm", url.Values{"orderId": {orderID}}))
	assert.Equal(t, "Order confirmed successfully", confirmed["message"])

	resp = shopper.post("/checkout/payhere/initiate", url.Values{})
	assert.Equal(t, "No active order found", readMap(t, resp)["error"])

	admin := newBrowser(t, app)
	admin.login(adminUser, adminPassword)
	order := readMap(t, admin.get("/admin-orders?action=get&id="+orderID))
	assert.Equal(t, "PROCESSING", order["status"])
	assert.Equal(t, "PH-1", order["paymentId"])
}

func TestAdminAccessControl(t *testing.T) {
	app := setupApp(t)

	anonymous := newBrowser(t, app)
	resp := anonymous.get("/admin/dashboard.html")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin-login.html", resp.Header.Get("Location"))
	resp.Body.Close()

	customer := newBrowser(t, app)
	customer.registerAndLogin("customer")
	resp = customer.get("/admin-orders?action=list")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"success": false, "error": "Admin access required"}, readMap(t, resp))

	admin := newBrowser(t, app)
	admin.login(adminUser, adminPassword)
	check := readMap(t, admin.get("/admin-auth?action=check"))
	assert.Equal(t, true, check["isAdmin"])
	assert.Equal(t, adminUser, check["username"])
}

func TestAdminOrdersAndUsers(t *testing.T) {
	app := setupApp(t)
	shopper := newBrowser(t, app)
	shopper.registerAndLogin("buyer")
	shopper.post("/cart", url.Values{"action": {"add"}, "productId": {"4"}, "quantity": {"1"}}).Body.Close()
	created := readMap(t, shopper.post("/checkout", url.Values{"shippingAddress": {"2 Side St"}}))
	orderID := strconv.Itoa(int(created["orderId"].(float64)))

	admin := newBrowser(t, app)
	admin.login(adminUser, adminPassword)

	var orders []map[string]interface{}
	readJSON(t, admin.get("/admin-orders?action=list&status=pending"), &orders)
	if assert.Len(t, orders, 1) {
		assert.Equal(t, float64(1), orders[0]["itemCount"])
	}

	resp := admin.get("/admin-orders?action=list&status=LOST")
	assert.Equal(t, "Invalid status value", readMap(t, resp)["error"])

	resp = admin.post("/admin-orders", url.Values{"action": {"update-status"}, "id": {orderID}, "status": {"DELIVERED"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Cannot change order status from PENDING to DELIVERED", readMap(t, resp)["error"])

	for _, status := range []string{"PROCESSING", "SHIPPED", "DELIVERED"} {
		resp = admin.post("/admin-orders", url.Values{"action": {"update-status"}, "id": {orderID}, "status": {status}})
		assert.Equal(t, http.StatusOK, resp.StatusCode, status)
		resp.Body.Close()
	}

	resp = admin.get("/admin-orders?action=get&id=999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Order not found", readMap(t, resp)["error"])

	var users []map[string]interface{}
	readJSON(t, admin.get("/admin-users?action=list"), &users)
	assert.Len(t, users, 2)

	buyerID := ""
	for _, u := range users {
		if u["username"] == "buyer" {
			buyerID = strconv.Itoa(int(u["id"].(float64)))
		}
	}
	resp = admin.post("/admin-users", url.Values{"action": {"update-role"}, "id": {buyerID}, "role": {"OWNER"}})
	assert.Equal(t, "Invalid role value", readMap(t, resp)["error"])

	resp = admin.post("/admin-users", url.Values{"action": {"update-role"}, "id": {buyerID}})
	assert.Equal(t, "User ID and role are required", readMap(t, resp)["error"])

	resp = admin.post("/admin-users", url.Values{"action": {"update-role"}, "id": {buyerID}, "role": {"ADMIN"}})
	assert.Equal(t, "User role updated successfully", readMap(t, resp)["message"])
	assert.Equal(t, "ADMIN", readMap(t, admin.get("/admin-users?action=get&id="+buyerID))["role"])
}

func TestAdminCatalogManagement(t *testing.T) {
	app := setupApp(t)
	admin := newBrowser(t, app)
	admin.login(adminUser, adminPassword)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("name", "USB-C Hub")
	w.WriteField("price", "39.90")
	w.WriteField("Quantity", "12")
	w.WriteField("categoryId", "2")
	part, _ := w.CreateFormFile("image", "hub.png")
	part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/admin-products", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	saved := readMap(t, admin.send(req))
	assert.Equal(t, "Product saved successfully", saved["message"])
	productID := strconv.Itoa(int(saved["id"].(float64)))

	product := readMap(t, admin.get("/admin-products?action=get&id="+productID))
	imageURL, _ := product["imageUrl"].(string)
	assert.True(t, strings.HasPrefix(imageURL, "/uploads/products/"), imageURL)
	resp := admin.get(imageURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = admin.post("/admin-products", url.Values{"name": {"Broken"}, "price": {"-1"}, "Quantity": {"1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var categories []map[string]interface{}
	readJSON(t, admin.get("/admin-categories?action=list"), &categories)
	counts := map[string]float64{}
	for _, c := range categories {
		counts[c["name"].(string)] = c["productCount"].(float64)
	}
	assert.Equal(t, map[string]float64{"Laptops": 2, "Accessories": 3, "Phones": 1}, counts)

	resp = admin.post("/admin-categories", url.Values{"action": {"delete"}, "id": {"3"}})
	assert.Equal(t, "Category deleted successfully", readMap(t, resp)["message"])
	product = readMap(t, admin.get("/product-details?id=5"))
	assert.Nil(t, product["categoryId"])

	resp = admin.post("/admin-products", url.Values{"action": {"delete"}, "id": {productID}})
	assert.Equal(t, "Product deleted successfully", readMap(t, resp)["message"])
	resp = admin.get("/admin-products?action=get&id=" + productID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = admin.get("/admin-products?action=bogus")
	assert.Equal(t, map[string]interface{}{"error": "Invalid action"}, readMap(t, resp))
}

func TestAdminDashboardAndReports(t *testing.T) {
	app := setupApp(t)
	admin := newBrowser(t, app)
	admin.login(adminUser, adminPassword)

	stats := readMap(t, admin.get("/admin-dashboard?action=stats"))
	assert.Equal(t, float64(5), stats["totalProducts"])
	assert.Equal(t, "0.00", stats["totalRevenue"])
	assert.Equal(t, float64(1), stats["outOfStockCount"])

	var lowStock []map[string]interface{}
	readJSON(t, admin.get("/admin-dashboard?action=low-stock"), &lowStock)
	if assert.Len(t, lowStock, 2) {
		assert.Equal(t, "Smartphone X", lowStock[0]["name"])
	}

	resp := admin.get("/admin-reports?action=sales-report&month=2024-13")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = admin.get("/admin-reports?action=export-inventory")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "inventory_report.csv")
	assert.Contains(t, readText(t, resp), "Laptop Pro 14")

	resp = admin.get("/admin-reports?action=print-receipt")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Receipt ID required", readMap(t, resp)["error"])

	resp = admin.get("/admin-reports?action=print-receipt&id=77")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, readText(t, resp), "RC-77")

	resp = admin.get("/admin-reports?action=nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"error": "Invalid action"}, readMap(t, resp))
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupApp(t)
	b := newBrowser(t, app)

	health := readMap(t, b.get("/health"))
	assert.Equal(t, "healthy", health["status"])

	for i := 0; i < 20; i++ {
		b.get("/products").Body.Close()
		b.get("/cart?format=json").Body.Close()
		b.post("/cart", url.Values{"action": {"clear"}}).Body.Close()
		b.get("/product-details?id=1").Body.Close()
	}
	resp := b.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readText(t, resp), "storefront_http_requests_total")
}
