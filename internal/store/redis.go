package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

// Redis keeps each user's requests in one hash per kind, the way the web
// client kept them per user: mecano:<kind>s:<owner> maps request id to JSON.
// Side keys index requests by id, target and kind.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

const ownerIndexKey = "mecano:requests:owner"

func ownerKey(kind lifecycle.Kind, ownerID string) string {
	return fmt.Sprintf("mecano:%ss:%s", kind, ownerID)
}

func targetKey(kind lifecycle.Kind, targetID string) string {
	return fmt.Sprintf("mecano:%ss:target:%s", kind, targetID)
}

func kindKey(kind lifecycle.Kind) string {
	return fmt.Sprintf("mecano:%ss:all", kind)
}

type ownerRef struct {
	Kind    lifecycle.Kind `json:"kind"`
	OwnerID string         `json:"owner_id"`
}

func (s *Redis) Save(ctx context.Context, r lifecycle.Request) error {
	return s.SaveAll(ctx, []lifecycle.Request{r})
}

// SaveAll writes every request and its index entries in one MULTI block.
func (s *Redis) SaveAll(ctx context.Context, rs []lifecycle.Request) error {
	if len(rs) == 0 {
		return nil
	}
	bodies := make([][]byte, len(rs))
	refs := make([][]byte, len(rs))
	for i, r := range rs {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", r.ID, err)
		}
		bodies[i] = body
		refs[i], _ = json.Marshal(ownerRef{Kind: r.Kind, OwnerID: r.OwnerID})
	}

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, r := range rs {
			p.HSet(ctx, ownerKey(r.Kind, r.OwnerID), r.ID, bodies[i])
			p.HSet(ctx, ownerIndexKey, r.ID, refs[i])
			p.SAdd(ctx, targetKey(r.Kind, r.TargetID), r.ID)
			p.SAdd(ctx, kindKey(r.Kind), r.ID)
		}
		return nil
	})
	if err != nil {
		if len(rs) == 1 {
			return fmt.Errorf("save request %s: %w", rs[0].ID, err)
		}
		return fmt.Errorf("save %d requests: %w", len(rs), err)
	}
	return nil
}

func (s *Redis) FindByID(ctx context.Context, id string) (lifecycle.Request, error) {
	raw, err := s.rdb.HGet(ctx, ownerIndexKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return lifecycle.Request{}, lifecycle.ErrNotFound
	}
	if err != nil {
		return lifecycle.Request{}, fmt.Errorf("lookup request %s: %w", id, err)
	}
	var ref ownerRef
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return lifecycle.Request{}, fmt.Errorf("decode owner of %s: %w", id, err)
	}

	body, err := s.rdb.HGet(ctx, ownerKey(ref.Kind, ref.OwnerID), id).Result()
	if errors.Is(err, redis.Nil) {
		return lifecycle.Request{}, lifecycle.ErrNotFound
	}
	if err != nil {
		return lifecycle.Request{}, fmt.Errorf("load request %s: %w", id, err)
	}
	return decodeRequest(body)
}

func (s *Redis) FindByOwner(ctx context.Context, ownerID string, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	all, err := s.rdb.HGetAll(ctx, ownerKey(kind, ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load requests of %s: %w", ownerID, err)
	}
	out := make([]lifecycle.Request, 0, len(all))
	for _, body := range all {
		r, err := decodeRequest(body)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	newestFirst(out)
	return out, nil
}

func (s *Redis) FindByTarget(ctx context.Context, targetID string, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return s.loadSet(ctx, targetKey(kind, targetID))
}

func (s *Redis) List(ctx context.Context, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return s.loadSet(ctx, kindKey(kind))
}

func (s *Redis) loadSet(ctx context.Context, key string) ([]lifecycle.Request, error) {
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out := make([]lifecycle.Request, 0, len(ids))
	for _, id := range ids {
		r, err := s.FindByID(ctx, id)
		if errors.Is(err, lifecycle.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	newestFirst(out)
	return out, nil
}

func decodeRequest(body string) (lifecycle.Request, error) {
	var r lifecycle.Request
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return lifecycle.Request{}, fmt.Errorf("decode request: %w", err)
	}
	return r, nil
}
