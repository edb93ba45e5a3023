// Package cartstore persists shopping carts in Redis. Each cart lives
// under a single key as an encoded line array with a sliding TTL, so
// abandoned carts age out on their own.
package cartstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/drygo/backend/internal/domain/cart"
)

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 30 * 24 * time.Hour

var _ cart.Repository = (*Redis)(nil)

// Redis implements cart.Repository on a go-redis client.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis cart store. ttl <= 0 falls back to DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s:items", userID)
}

func (r *Redis) Get(ctx context.Context, userID string) ([]cart.Item, error) {
	raw, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	items, err := decodeItems(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

func (r *Redis) Save(ctx context.Context, userID string, items []cart.Item) error {
	if len(items) == 0 {
		return r.Clear(ctx, userID)
	}

	if err := r.client.Set(ctx, cartKey(userID), encodeItems(items), r.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

func encodeItems(items []cart.Item) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.Str(it.Price.String())
		e.FieldStart("image")
		e.Str(it.Image)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeItems(raw []byte) ([]cart.Item, error) {
	var items []cart.Item
	d := jx.DecodeBytes(raw)
	err := d.Arr(func(d *jx.Decoder) error {
		var it cart.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "productId":
				s, err := d.Str()
				it.ProductID = s
				return err
			case "name":
				s, err := d.Str()
				it.Name = s
				return err
			case "price":
				s, err := d.Str()
				if err != nil {
					return err
				}
				it.Price, err = decimal.NewFromString(s)
				return err
			case "image":
				s, err := d.Str()
				it.Image = s
				return err
			case "quantity":
				n, err := d.Int()
				it.Quantity = n
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
