package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drygo/backend/internal/domain/auth"
	"github.com/drygo/backend/internal/domain/cart"
	"github.com/drygo/backend/internal/domain/coupon"
	"github.com/drygo/backend/internal/domain/order"
	"github.com/drygo/backend/internal/domain/pricing"
	"github.com/drygo/backend/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	byID     map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type memCartRepo struct {
	items map[string][]cart.Item
}

func (m *memCartRepo) Get(_ context.Context, userID string) ([]cart.Item, error) {
	return m.items[userID], nil
}

func (m *memCartRepo) Save(_ context.Context, userID string, items []cart.Item) error {
	m.items[userID] = items
	return nil
}

func (m *memCartRepo) Clear(_ context.Context, userID string) error {
	delete(m.items, userID)
	return nil
}

type mockCouponRepo struct {
	coupon.Repository

	byCode map[string]*coupon.Coupon
	usage  map[string]int
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (m *mockCouponRepo) UserUsage(_ context.Context, code, userID string) (int, error) {
	return m.usage[code+"/"+userID], nil
}

type mockOrderRepo struct {
	order.Repository

	created    []*order.Order
	redemption *order.Redemption
	stored     *order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order, redemption *order.Redemption) error {
	cp := *o
	m.created = append(m.created, &cp)
	m.redemption = redemption
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*order.Order, error) {
	if m.stored == nil {
		return nil, order.ErrNotFound
	}
	return m.stored, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, _ string) (*order.Order, error) {
	if m.stored == nil {
		return nil, order.ErrNotFound
	}
	return m.stored, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	if m.stored == nil {
		return nil, nil
	}
	return []order.Order{*m.stored}, nil
}

type mockCredRepo struct {
	byHash map[string]*auth.Credential
}

func (m *mockCredRepo) FindByHash(_ context.Context, hash string) (*auth.Credential, error) {
	c, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return c, nil
}

// --- Fixture ---

const (
	customerKey = "customer-key"
	adminKey    = "admin-key"
)

type fixture struct {
	mux        *http.ServeMux
	orderRepo  *mockOrderRepo
	couponRepo *mockCouponRepo
	cartRepo   *memCartRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &mockProductRepo{byID: map[string]*product.Product{}}
	for _, p := range []product.Product{
		{ID: "p1", Name: "Dried Mango", Price: decimal.NewFromInt(100), Image: "mango.jpg"},
		{ID: "p2", Name: "Dried Figs", Price: decimal.NewFromInt(150), Image: "figs.jpg"},
	} {
		cp := p
		products.products = append(products.products, cp)
		products.byID[p.ID] = &cp
	}

	couponRepo := &mockCouponRepo{
		byCode: map[string]*coupon.Coupon{},
		usage:  map[string]int{},
	}
	couponRepo.byCode["SAVE10"] = &coupon.Coupon{
		ID:           "c1",
		Code:         "SAVE10",
		DiscountType: coupon.DiscountPercentage,
		Value:        decimal.NewFromInt(10),
		PerUserLimit: 1,
		ValidFrom:    time.Now().Add(-time.Hour),
		ValidUntil:   time.Now().Add(time.Hour),
		Active:       true,
	}

	cartRepo := &memCartRepo{items: map[string][]cart.Item{}}
	orderRepo := &mockOrderRepo{}

	credRepo := &mockCredRepo{byHash: map[string]*auth.Credential{}}
	verifier := auth.NewVerifier(credRepo, []byte("pepper"))
	credRepo.byHash[verifier.HashKey(customerKey)] = &auth.Credential{
		ID: "cred1", KeyHash: verifier.HashKey(customerKey),
		UserID: "u1", Scopes: []string{auth.ScopeCustomer},
	}
	credRepo.byHash[verifier.HashKey(adminKey)] = &auth.Credential{
		ID: "cred2", KeyHash: verifier.HashKey(adminKey),
		Scopes: []string{auth.ScopeAdmin},
	}

	cfg := pricing.DefaultConfig()
	ledger := coupon.NewLedger(couponRepo)
	h := NewHandler(
		products,
		cart.NewService(products, cartRepo, cfg),
		couponRepo,
		ledger,
		order.NewService(products, ledger, orderRepo, cfg, nil),
		verifier,
	)

	return &fixture{
		mux:        h.Routes(),
		orderRepo:  orderRepo,
		couponRepo: couponRepo,
		cartRepo:   cartRepo,
	}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("token", token)
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), "body: %s", rec.Body.String())
	return rec, envelope
}

func data(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()
	d, ok := envelope["data"].(map[string]any)
	require.True(t, ok, "envelope: %v", envelope)
	return d
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/products", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, env["success"])
	items := env["data"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "Dried Mango", first["name"])
	assert.Equal(t, float64(100), first["price"])
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/products/ghost", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, env["success"])
}

func TestCart_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/cart", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, env["success"])
}

func TestCart_AddAndView(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/cart/add", customerKey,
		`{"productId":"p1","quantity":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, env)
	assert.Equal(t, float64(1), d["itemCount"])
	assert.Equal(t, float64(200), d["subtotal"])
	assert.Equal(t, float64(49), d["shipping"])
	assert.Equal(t, float64(10), d["gst"])
	assert.Equal(t, float64(259), d["total"])
	assert.Equal(t, "Add ₹50 more for free shipping!", d["message"])

	rec, env = f.do(t, http.MethodGet, "/api/cart", customerKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), data(t, env)["itemCount"])
}

func TestValidateCoupon(t *testing.T) {
	f := newFixture(t)

	t.Run("anonymous preview", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/api/coupon/validate", "",
			`{"code":"save10","cartTotal":200}`)

		require.Equal(t, http.StatusOK, rec.Code)
		d := data(t, env)
		assert.Equal(t, "SAVE10", d["code"])
		assert.Equal(t, "percentage", d["discountType"])
		assert.Equal(t, float64(20), d["discount"])
		assert.Equal(t, float64(180), d["newTotal"])
	})

	t.Run("unknown code", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/api/coupon/validate", "",
			`{"code":"NOPE","cartTotal":200}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, false, env["success"])
	})

	t.Run("expired code maps to 422", func(t *testing.T) {
		f.couponRepo.byCode["OLD"] = &coupon.Coupon{
			Code: "OLD", DiscountType: coupon.DiscountFixed,
			Value:      decimal.NewFromInt(5),
			ValidFrom:  time.Now().Add(-48 * time.Hour),
			ValidUntil: time.Now().Add(-24 * time.Hour),
			Active:     true,
		}

		rec, _ := f.do(t, http.MethodPost, "/api/coupon/validate", "",
			`{"code":"OLD","cartTotal":200}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing cart total", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/api/coupon/validate", "", `{"code":"SAVE10"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCouponAdmin_Authorization(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/coupon/all", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/coupon/all", customerKey, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	body := `{
		"customerName": "Asha Rao",
		"customerEmail": "asha@example.com",
		"customerPhone": "9999999999",
		"shippingAddress": {"line1": "12 MG Road", "city": "Bengaluru", "state": "Karnataka", "pincode": "560001"},
		"cartItems": [{"productId": "p1", "quantity": 2}],
		"couponCode": "SAVE10",
		"paymentMethod": "cod"
	}`

	rec, env := f.do(t, http.MethodPost, "/api/orders", customerKey, body)

	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	d := data(t, env)
	assert.NotEmpty(t, d["orderId"])
	assert.Contains(t, d["orderNumber"], "ORD-")
	// 200 - 20 discount, shipping 49, gst 9 = 238.
	assert.Equal(t, float64(238), d["totalAmount"])
	assert.Equal(t, "cod", d["paymentMethod"])
	assert.Equal(t, "pending", d["orderStatus"])
	assert.NotEmpty(t, d["deliveryEstimate"])

	require.Len(t, f.orderRepo.created, 1)
	require.NotNil(t, f.orderRepo.redemption)
	assert.Equal(t, "SAVE10", f.orderRepo.redemption.Code)
	assert.Equal(t, "u1", f.orderRepo.redemption.UserID)
}

func TestCreateOrder_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/orders", customerKey,
		`{"customerName":"A","customerEmail":"a@b.c","customerPhone":"1",
		  "shippingAddress":{"line1":"x","city":"y","state":"z","pincode":"1"},
		  "cartItems":[],"paymentMethod":"cod"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, env["success"])
	assert.Empty(t, f.orderRepo.created)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/orders", customerKey,
		`{"customerName":"A","customerEmail":"a@b.c","customerPhone":"1",
		  "shippingAddress":{"line1":"x","city":"y","state":"z","pincode":"1"},
		  "cartItems":[{"productId":"ghost","quantity":1}],"paymentMethod":"cod"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, env["message"], "ghost")
	assert.Empty(t, f.orderRepo.created)
}

func TestGetOrder_EmailVerification(t *testing.T) {
	f := newFixture(t)
	f.orderRepo.stored = &order.Order{
		ID: "o1", OrderNumber: "ORD-X", CustomerEmail: "asha@example.com",
		Status: order.StatusPending, PaymentMethod: order.PaymentCashOnDelivery,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORD-X", nil)
	req.Header.Set("X-Verify-Email", "other@example.com")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/ORD-X", nil)
	req.Header.Set("X-Verify-Email", "Asha@Example.com")
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListUserOrders_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/orders/user/u2", customerKey, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateOrderStatus_AdminOnly(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPut, "/api/orders/o1/status", customerKey,
		`{"orderStatus":"shipped"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
