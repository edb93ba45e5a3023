// Package notify delivers order confirmations to the business WhatsApp
// number through the Twilio messaging API.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/drygo/backend/internal/domain/order"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// WhatsAppConfig carries the Twilio credentials and routing numbers.
type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	// From is the Twilio WhatsApp sender, To the business number that
	// receives new-order alerts. A missing "whatsapp:" prefix is added.
	From string
	To   string
	// BaseURL overrides the Twilio endpoint, used in tests.
	BaseURL string
}

// WhatsApp sends a formatted order summary over Twilio's messaging API.
// It implements order.Notifier.
type WhatsApp struct {
	cfg    WhatsAppConfig
	client *http.Client
}

// NewWhatsApp creates a WhatsApp notifier. client may be nil to use a
// default with a conservative timeout.
func NewWhatsApp(cfg WhatsAppConfig, client *http.Client) *WhatsApp {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioAPIBase
	}
	return &WhatsApp{cfg: cfg, client: client}
}

func (w *WhatsApp) OrderCreated(ctx context.Context, o *order.Order) error {
	form := url.Values{}
	form.Set("From", whatsAppAddr(w.cfg.From))
	form.Set("To", whatsAppAddr(w.cfg.To))
	form.Set("Body", FormatOrderMessage(o))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", w.cfg.BaseURL, w.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("twilio: %s: %s", resp.Status, twilioError(resp.Body))
	}

	zctx.From(ctx).Info("Order notification sent",
		zap.String("order_number", o.OrderNumber),
	)
	return nil
}

func whatsAppAddr(number string) string {
	number = strings.ReplaceAll(number, " ", "")
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// twilioError extracts the message field from a Twilio error body.
func twilioError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil {
		return "unreadable response"
	}

	var msg string
	d := jx.DecodeBytes(raw)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		msg, err = d.Str()
		return err
	})
	if err != nil || msg == "" {
		return string(raw)
	}
	return msg
}

// FormatOrderMessage renders the WhatsApp alert body for a new order.
func FormatOrderMessage(o *order.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🛒 *New Order - DryGo*\n\n")
	fmt.Fprintf(&b, "📋 *Order ID:* %s\n\n", o.OrderNumber)

	fmt.Fprintf(&b, "👤 *Customer Details*\n")
	fmt.Fprintf(&b, "Name: %s\n", o.CustomerName)
	fmt.Fprintf(&b, "Email: %s\n", o.CustomerEmail)
	fmt.Fprintf(&b, "Phone: %s\n\n", o.CustomerPhone)

	fmt.Fprintf(&b, "📍 *Shipping Address*\n%s\n\n", formatAddress(o.ShippingAddress))

	fmt.Fprintf(&b, "📦 *Items*\n%s\n\n", formatItems(o.Items))

	fmt.Fprintf(&b, "💰 *Payment*\n")
	fmt.Fprintf(&b, "Method: %s\n", strings.ToUpper(string(o.PaymentMethod)))
	fmt.Fprintf(&b, "Subtotal: ₹%s\n", o.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Shipping: ₹%s\n", o.Shipping.StringFixed(2))
	fmt.Fprintf(&b, "GST: ₹%s\n", o.Tax.StringFixed(2))
	if o.Discount.IsPositive() {
		fmt.Fprintf(&b, "Discount: -₹%s\n", o.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "*Total: ₹%s*\n", o.Total.StringFixed(2))
	if o.CouponCode != "" {
		fmt.Fprintf(&b, "Coupon: %s\n", o.CouponCode)
	}

	fmt.Fprintf(&b, "\n📅 Est. Delivery: %s\n", o.DeliveryEstimate)
	return b.String()
}

func formatAddress(a order.Address) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, ", ")
}

func formatItems(items []order.Item) string {
	if len(items) == 0 {
		return "No items"
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lineTotal := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		lines[i] = fmt.Sprintf("• %s x%d - ₹%s", it.Name, it.Quantity, lineTotal.StringFixed(2))
	}
	return strings.Join(lines, "\n")
}
