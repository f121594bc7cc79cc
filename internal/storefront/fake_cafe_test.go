package storefront_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cafeapi"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

type member struct {
	id       int64
	name     string
	email    string
	phone    string
	password string
}

// fakeCafe imitates the café API closely enough to drive a storefront end to end.
type fakeCafe struct {
	mu          sync.Mutex
	members     []member
	prefs       map[int64][]cafeapi.Preference
	orders      []cafeapi.OrderRequest
	nextOrderID int64
	failOrders  bool
	noCategory  bool
}

func newFakeCafe(t *testing.T) (*fakeCafe, *cafeapi.Client) {
	t.Helper()
	f := &fakeCafe{
		members: []member{
			{id: 7, name: "Ann Lee", email: "ann@example.com", phone: "5550100", password: "secret1"},
		},
		prefs:       make(map[int64][]cafeapi.Preference),
		nextOrderID: 100,
	}

	r := chi.NewRouter()
	r.Get("/api/products", f.products)
	r.Get("/api/categories", f.categories)
	r.Post("/api/auth/login", f.login)
	r.Post("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	r.Post("/api/orders", f.createOrder)
	r.Get("/api/orders", f.listOrders)
	r.Get("/api/orders/{id}/details", f.orderDetails)
	r.Post("/api/customers/verify", f.verify)
	r.Get("/api/member/preferences", f.getPrefs)
	r.Post("/api/member/preferences", f.savePref)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, cafeapi.NewClient(srv.URL, 2*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeCafe) products(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
		{"id": 1, "name": "Latte", "price": 4.5, "is_active": "Y", "category": "Coffee"},
		{"id": 2, "name": "Croissant", "price": 3.25, "is_active": "Y", "category": "Pastry"},
		{"id": 3, "name": "Flat White", "price": 4.0, "is_active": "Y", "category": "Coffee"},
	}})
}

func (f *fakeCafe) categories(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	down := f.noCategory
	f.mu.Unlock()
	if down {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "no such table: categories"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
		{"id": 1, "name": "Coffee", "description": "Espresso drinks"},
		{"id": 2, "name": "Pastry", "description": "Baked fresh daily"},
	}})
}

func (f *fakeCafe) login(w http.ResponseWriter, r *http.Request) {
	var creds cafeapi.Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.email == creds.Email && m.password == creds.Password {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
				"customer_id": m.id, "name": m.name, "email": m.email, "phone": m.phone,
				"address": "Kowloon", "customer_type": "member",
			}})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid email or password"})
}

func (f *fakeCafe) createOrder(w http.ResponseWriter, r *http.Request) {
	var req cafeapi.OrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOrders {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "database is locked"})
		return
	}
	if req.CustomerID == nil && req.CustomerEmail == "" && req.CustomerPhone == "" && !req.ForceRegular {
		for _, m := range f.members {
			if strings.EqualFold(m.name, req.CustomerName) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"success": false,
					"error":   cafeapi.CodeVerificationRequired,
					"message": "Found potential member(s) with name \"" + req.CustomerName + "\".",
				})
				return
			}
		}
	}

	f.nextOrderID++
	f.orders = append(f.orders, req)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order_id": f.nextOrderID})
}

func (f *fakeCafe) listOrders(w http.ResponseWriter, r *http.Request) {
	customerID, _ := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0)
	for i, o := range f.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, map[string]any{
				"order_id": i + 101, "customer_name": o.CustomerName, "order_date": "2025-01-02 10:00:00",
				"status": "pending", "payment_method": o.PaymentMethod, "total_amount": 9.0,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (f *fakeCafe) orderDetails(w http.ResponseWriter, r *http.Request) {
	orderID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := int(orderID - 101)
	if idx < 0 || idx >= len(f.orders) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
		return
	}
	out := make([]map[string]any, 0, len(f.orders[idx].Items))
	for _, item := range f.orders[idx].Items {
		out = append(out, map[string]any{
			"product_id": item.ProductID, "product_name": item.Name, "quantity": item.Quantity,
			"unit_price": item.Price, "line_amount": item.LineTotal(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (f *fakeCafe) verify(w http.ResponseWriter, r *http.Request) {
	var req cafeapi.VerifyRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if !strings.EqualFold(m.name, req.Name) {
			continue
		}
		if (req.Email != "" && req.Email == m.email) || (req.Email == "" && req.Phone != "" && req.Phone == m.phone) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true, "verified": true,
				"customer": map[string]any{"customer_id": m.id, "name": m.name, "customer_type": "member"},
			})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false, "error": "Email or phone does not match any member with this name",
	})
}

func (f *fakeCafe) getPrefs(w http.ResponseWriter, r *http.Request) {
	customerID, _ := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
		"preferences": f.prefs[customerID],
		"favorites":   []any{},
	}})
}

func (f *fakeCafe) savePref(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int64  `json:"customer_id"`
		Type       string `json:"preference_type"`
		Value      string `json:"preference_value"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.prefs[body.CustomerID]
	for i := range list {
		if list[i].Type == body.Type {
			list[i].Value = body.Value
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	f.prefs[body.CustomerID] = append(list, cafeapi.Preference{Type: body.Type, Value: body.Value})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// seedOrder records a past order for the customer and returns its id.
func (f *fakeCafe) seedOrder(customerID int64, items ...cart.Item) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextOrderID++
	f.orders = append(f.orders, cafeapi.OrderRequest{CustomerName: "Ann Lee", PaymentMethod: "card", Items: items, CustomerID: &customerID})
	return f.nextOrderID
}

func (f *fakeCafe) lastOrder() cafeapi.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[len(f.orders)-1]
}

func (f *fakeCafe) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}
