package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drygo/backend/internal/domain/order"
)

func sampleOrder() *order.Order {
	return &order.Order{
		OrderNumber:   "ORD-TEST-ABC123",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9999999999",
		ShippingAddress: order.Address{
			Line1:   "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
			Country: "India",
		},
		Items: []order.Item{
			{Name: "Dried Mango", Price: decimal.RequireFromString("100"), Quantity: 2},
		},
		PaymentMethod:    order.PaymentCashOnDelivery,
		Subtotal:         decimal.RequireFromString("200"),
		Shipping:         decimal.RequireFromString("49"),
		Tax:              decimal.RequireFromString("10.00"),
		Discount:         decimal.Zero,
		Total:            decimal.RequireFromString("259.00"),
		DeliveryEstimate: "2025-06-22",
	}
}

func TestWhatsApp_OrderCreated(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	n := NewWhatsApp(WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+14155238886",
		To:         "whatsapp:+916362185820",
		BaseURL:    srv.URL,
	}, srv.Client())

	err := n.OrderCreated(context.Background(), sampleOrder())

	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+14155238886", got.Get("From"))
	assert.Equal(t, "whatsapp:+916362185820", got.Get("To"))
	assert.Contains(t, got.Get("Body"), "ORD-TEST-ABC123")
	assert.Contains(t, got.Get("Body"), "• Dried Mango x2 - ₹200.00")
}

func TestWhatsApp_OrderCreatedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":20003,"message":"Authentication Error"}`))
	}))
	defer srv.Close()

	n := NewWhatsApp(WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "wrong",
		From:       "+14155238886",
		To:         "+916362185820",
		BaseURL:    srv.URL,
	}, srv.Client())

	err := n.OrderCreated(context.Background(), sampleOrder())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication Error")
}

func TestFormatOrderMessage(t *testing.T) {
	o := sampleOrder()
	o.Discount = decimal.RequireFromString("20")
	o.CouponCode = "SAVE10"

	msg := FormatOrderMessage(o)

	assert.Contains(t, msg, "Name: Asha Rao")
	assert.Contains(t, msg, "12 MG Road, Bengaluru, Karnataka, 560001, India")
	assert.Contains(t, msg, "Method: COD")
	assert.Contains(t, msg, "Discount: -₹20.00")
	assert.Contains(t, msg, "Coupon: SAVE10")
	assert.Contains(t, msg, "Est. Delivery: 2025-06-22")
}

func TestFormatOrderMessage_NoDiscountLine(t *testing.T) {
	msg := FormatOrderMessage(sampleOrder())

	assert.NotContains(t, msg, "Discount:")
	assert.NotContains(t, msg, "Coupon:")
	assert.Contains(t, msg, "*Total: ₹259.00*")
}
