// Command seed-db loads the product catalog, launch coupons, and API
// credentials into PostgreSQL. Safe to re-run: every write is an upsert.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/drygo/backend/internal/domain/product"
	"github.com/drygo/backend/internal/repository"
)

// productJSON mirrors the catalog row shape; nutrition uses the domain's
// fact type so the seed file cannot drift from what scanProduct decodes.
type productJSON struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Price       decimal.Decimal         `json:"price"`
	Image       string                  `json:"image"`
	Badge       string                  `json:"badge"`
	Nutrition   []product.NutritionFact `json:"nutrition"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminKey     string
		customerKey  string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or DRYGO_SEED_ADMIN_KEY env)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or DRYGO_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&pepper, "pepper", "", "HMAC pepper for key hashing (or DRYGO_CREDENTIAL_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("DRYGO_SEED_ADMIN_KEY")
	}
	if adminKey == "" {
		slog.Error("admin key is required: set --admin-key or DRYGO_SEED_ADMIN_KEY")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("DRYGO_SEED_CUSTOMER_KEY")
	}
	if pepper == "" {
		pepper = os.Getenv("DRYGO_CREDENTIAL_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminKey, customerKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminKey, customerKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedCredentials(ctx, pool, adminKey, customerKey, pepper); err != nil {
		return errors.Wrap(err, "seed credentials")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, description, price, image, badge, nutrition)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    image = EXCLUDED.image,
    badge = EXCLUDED.badge,
    nutrition = EXCLUDED.nutrition
`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		nutrition, err := json.Marshal(p.Nutrition)
		if err != nil {
			return errors.Wrapf(err, "marshal nutrition for %s", p.ID)
		}
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Description, p.Price, p.Image, p.Badge, nutrition,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertCouponSQL = `
INSERT INTO coupons (id, code, description, discount_type, value, min_order_amount,
                     max_discount, usage_limit, per_user_limit, valid_from, valid_until, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (UPPER(code)) DO UPDATE SET
    description = EXCLUDED.description,
    discount_type = EXCLUDED.discount_type,
    value = EXCLUDED.value,
    min_order_amount = EXCLUDED.min_order_amount,
    max_discount = EXCLUDED.max_discount,
    usage_limit = EXCLUDED.usage_limit,
    per_user_limit = EXCLUDED.per_user_limit,
    valid_from = EXCLUDED.valid_from,
    valid_until = EXCLUDED.valid_until,
    active = EXCLUDED.active,
    updated_at = now()
`

type couponSeed struct {
	Code           string
	Description    string
	DiscountType   string
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscount    *decimal.Decimal
	UsageLimit     *int32
	PerUserLimit   int32
	ValidFor       time.Duration
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding launch coupons")

	maxWelcome := decimal.NewFromInt(100)
	festiveLimit := int32(500)

	coupons := []couponSeed{
		{
			Code:           "WELCOME10",
			Description:    "Welcome offer: 10% off your first order",
			DiscountType:   "percentage",
			Value:          decimal.NewFromInt(10),
			MinOrderAmount: decimal.NewFromInt(100),
			MaxDiscount:    &maxWelcome,
			PerUserLimit:   1,
			ValidFor:       365 * 24 * time.Hour,
		},
		{
			Code:           "FESTIVE50",
			Description:    "Festive season: flat ₹50 off orders above ₹300",
			DiscountType:   "fixed",
			Value:          decimal.NewFromInt(50),
			MinOrderAmount: decimal.NewFromInt(300),
			UsageLimit:     &festiveLimit,
			PerUserLimit:   3,
			ValidFor:       90 * 24 * time.Hour,
		},
	}

	now := time.Now()
	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			uuid.New(), c.Code, c.Description, c.DiscountType, c.Value,
			c.MinOrderAmount, c.MaxDiscount, c.UsageLimit, c.PerUserLimit,
			now, now.Add(c.ValidFor), true,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

const upsertCredentialSQL = `
INSERT INTO credentials (id, key_hash, name, user_id, scopes, active)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key_hash) DO UPDATE SET
    name = EXCLUDED.name,
    user_id = EXCLUDED.user_id,
    scopes = EXCLUDED.scopes,
    active = EXCLUDED.active
`

func seedCredentials(ctx context.Context, pool *pgxpool.Pool, adminKey, customerKey, pepper string) error {
	slog.Info("seeding API credentials")

	if err := upsertCredential(ctx, pool, adminKey, pepper, "Default admin key", "", []string{"admin"}); err != nil {
		return errors.Wrap(err, "upsert admin credential")
	}
	slog.Info("upserted credential", slog.String("name", "Default admin key"))

	if customerKey != "" {
		if err := upsertCredential(ctx, pool, customerKey, pepper, "Default customer key", "seed-customer", []string{"customer"}); err != nil {
			return errors.Wrap(err, "upsert customer credential")
		}
		slog.Info("upserted credential", slog.String("name", "Default customer key"))
	}

	return nil
}

func upsertCredential(ctx context.Context, pool *pgxpool.Pool, key, pepper, name, userID string, scopes []string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertCredentialSQL,
		uuid.New(), keyHash, name, userID, scopes, true,
	)
	return err
}
