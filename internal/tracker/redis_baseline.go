package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const baselineKeyPrefix = "geoplaylists:baseline:"

// RedisBaseline persists the background baseline so that entries are dispatched
// once even when the background task restarts between invocations.
type RedisBaseline struct {
	rdb *redis.Client
}

func NewRedisBaseline(rdb *redis.Client) *RedisBaseline {
	return &RedisBaseline{rdb: rdb}
}

func baselineKey(userID uuid.UUID) string {
	return baselineKeyPrefix + userID.String()
}

func (b *RedisBaseline) Load(ctx context.Context, userID uuid.UUID) (IDSet, error) {
	raw, err := b.rdb.Get(ctx, baselineKey(userID)).Bytes()
	return decodeIDSet(raw, err)
}

// CompareAndSwap uses WATCH so that two overlapping invocations cannot both
// advance from the same stored set.
func (b *RedisBaseline) CompareAndSwap(ctx context.Context, userID uuid.UUID, prev, next IDSet) error {
	key := baselineKey(userID)

	payload, err := json.Marshal(next.Slice())
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}

	err = b.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := decodeIDSet(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		if !current.Equal(prev) {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (b *RedisBaseline) Clear(ctx context.Context, userID uuid.UUID) error {
	return b.rdb.Del(ctx, baselineKey(userID)).Err()
}

func decodeIDSet(raw []byte, err error) (IDSet, error) {
	if errors.Is(err, redis.Nil) {
		return IDSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading baseline: %w", err)
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decoding baseline: %w", err)
	}
	return NewIDSet(ids...), nil
}
