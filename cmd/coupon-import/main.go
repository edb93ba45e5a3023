// Command coupon-import bulk-loads campaign coupon codes from
// gzip-compressed code lists (one code per line) into PostgreSQL. Every
// imported code becomes a coupon with the discount parameters given on the
// command line. Marketing exports routinely overlap, so a bloom filter
// screens out duplicates before they reach the database; the unique index
// on the code column remains the final arbiter.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/drygo/backend/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	minCodeLen    = 4
	maxCodeLen    = 24
	batchSize     = 1000
	progressEvery = 100_000
)

type importRule struct {
	discountType   string
	value          decimal.Decimal
	minOrderAmount decimal.Decimal
	perUserLimit   int32
	validUntil     time.Time
	description    string
}

func main() {
	var (
		dataDir      string
		databaseURL  string
		discountType string
		value        string
		minOrder     string
		perUserLimit int
		validDays    int
		description  string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing .gz code lists")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountType, "discount-type", "percentage", "discount type for imported codes: percentage or fixed")
	flag.StringVar(&value, "value", "10", "discount value for imported codes")
	flag.StringVar(&minOrder, "min-order", "0", "minimum order amount for imported codes")
	flag.IntVar(&perUserLimit, "per-user-limit", 1, "redemptions per user for imported codes (0 = unlimited)")
	flag.IntVar(&validDays, "valid-days", 90, "days until imported codes expire")
	flag.StringVar(&description, "description", "Campaign promo code", "description for imported codes")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	valueDec, err := decimal.NewFromString(value)
	if err != nil {
		slog.Error("invalid --value", slog.String("error", err.Error()))
		os.Exit(1)
	}
	minOrderDec, err := decimal.NewFromString(minOrder)
	if err != nil {
		slog.Error("invalid --min-order", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rule := importRule{
		discountType:   discountType,
		value:          valueDec,
		minOrderAmount: minOrderDec,
		perUserLimit:   int32(perUserLimit),
		validUntil:     time.Now().Add(time.Duration(validDays) * 24 * time.Hour),
		description:    description,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, rule); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, rule importRule) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("importing code lists", slog.Int("files", len(files)))

	// Readers stream codes concurrently; a single writer owns the bloom
	// filter and the database batches.
	codes := make(chan string, 4*batchSize)

	g, gctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(gctx)
	for _, f := range files {
		readers.Go(streamCodes(rctx, f, codes))
	}
	g.Go(func() error {
		defer close(codes)
		return readers.Wait()
	})
	g.Go(func() error {
		return writeCoupons(gctx, pool, codes, rule)
	})

	return g.Wait()
}

func streamCodes(ctx context.Context, path string, out chan<- string) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			code := strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				continue
			}
			select {
			case out <- code:
			case <-ctx.Done():
				return ctx.Err()
			}
			count++
			if count%progressEvery == 0 {
				slog.Info("read progress", slog.String("file", filepath.Base(path)), slog.Uint64("codes", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete", slog.String("file", filepath.Base(path)), slog.Uint64("codes", count))
		return nil
	}
}

const importCouponSQL = `
INSERT INTO coupons (id, code, description, discount_type, value, min_order_amount,
                     per_user_limit, valid_from, valid_until, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8, TRUE)
ON CONFLICT (UPPER(code)) DO NOTHING
`

func writeCoupons(ctx context.Context, pool *pgxpool.Pool, codes <-chan string, rule importRule) error {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var (
		batch   = &pgx.Batch{}
		written uint64
		skipped uint64
	)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "send batch")
		}
		batch = &pgx.Batch{}
		return nil
	}

	for code := range codes {
		if filter.TestAndAddString(code) {
			skipped++
			continue
		}

		batch.Queue(importCouponSQL,
			uuid.New(), code, rule.description, rule.discountType, rule.value,
			rule.minOrderAmount, rule.perUserLimit, rule.validUntil,
		)
		written++

		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
			if written%progressEvery < batchSize {
				slog.Info("write progress", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	slog.Info("import complete", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
	return nil
}
