package cart

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Carts idle for longer than this are dropped by Redis.
const cartTTL = 30 * 24 * time.Hour

// RedisStore keeps one hash per user: product id to quantity.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func cartKey(userID string) string {
	return "mecano:cart:" + userID
}

func (s *RedisStore) Items(ctx context.Context, userID string) ([]Item, error) {
	raw, err := s.rdb.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for id, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil || qty <= 0 {
			continue
		}
		items = append(items, Item{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (s *RedisStore) Add(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	key := cartKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, key, productID, int64(qty))
		p.Expire(ctx, key, cartTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Set(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	key := cartKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, productID, qty)
		p.Expire(ctx, key, cartTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, userID, productID string) error {
	if err := s.rdb.HDel(ctx, cartKey(userID), productID).Err(); err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
