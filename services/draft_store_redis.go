package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

const (
	draftKeyPrefix   = "meal_draft:"
	maxUpdateRetries = 5
)

// RedisDraftStore keeps drafts as JSON values under expiring keys. Redis gives
// us the three primitives the lifecycle needs for free: SETNX for
// duplicate-safe creation, WATCH/MULTI for atomic per-key updates and DEL's
// removed-count for the conditional consume on promotion.
type RedisDraftStore struct {
	rdb *redis.Client
}

func NewRedisDraftStore(rdb *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb}
}

func draftKey(draftID string) string {
	return draftKeyPrefix + draftID
}

func (s *RedisDraftStore) Create(ctx context.Context, draft *models.Draft, ttl time.Duration) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", draft.DraftID, err)
	}
	ok, err := s.rdb.SetNX(ctx, draftKey(draft.DraftID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return ErrDuplicateDraft
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, draftID string) (*models.Draft, error) {
	raw, err := s.rdb.Get(ctx, draftKey(draftID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", draftID, err)
	}
	return &draft, nil
}

// Update applies mutate under an optimistic WATCH transaction so concurrent
// writers to the same draft cannot clobber each other. The key's remaining TTL
// is preserved. A draft that has been deleted or expired yields ErrNotFound
// and nothing is written.
func (s *RedisDraftStore) Update(ctx context.Context, draftID string, mutate func(*models.Draft)) (*models.Draft, error) {
	key := draftKey(draftID)
	var updated *models.Draft

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var draft models.Draft
			if err := json.Unmarshal(raw, &draft); err != nil {
				return fmt.Errorf("decode draft %s: %w", draftID, err)
			}

			mutate(&draft)

			out, err := json.Marshal(&draft)
			if err != nil {
				return fmt.Errorf("encode draft %s: %w", draftID, err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, redis.KeepTTL)
				return nil
			})
			if err == nil {
				updated = &draft
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: draft %s update contention", ErrStoreUnavailable, draftID)
}

func (s *RedisDraftStore) Delete(ctx context.Context, draftID string) (bool, error) {
	removed, err := s.rdb.Del(ctx, draftKey(draftID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return removed > 0, nil
}
