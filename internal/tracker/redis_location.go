package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	locationKeyPrefix = "geoplaylists:location:"
	trackedUsersKey   = "geoplaylists:tracked"
)

// ErrNoLocation means no fresh sample is stored for the user.
var ErrNoLocation = errors.New("no recent location for user")

// LocationProvider returns the current location of a user.
type LocationProvider interface {
	CurrentLocation(ctx context.Context, userID uuid.UUID) (Sample, error)
}

// RedisLocations keeps the last sample each device reported and the set of users
// with background tracking turned on.
type RedisLocations struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocations(rdb *redis.Client, ttl time.Duration) *RedisLocations {
	return &RedisLocations{rdb: rdb, ttl: ttl}
}

type storedSample struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	At        time.Time `json:"at"`
}

func (l *RedisLocations) Record(ctx context.Context, userID uuid.UUID, s Sample) error {
	payload, err := json.Marshal(storedSample{
		Latitude:  s.Coordinate.Latitude,
		Longitude: s.Coordinate.Longitude,
		At:        s.At,
	})
	if err != nil {
		return err
	}
	if err := l.rdb.Set(ctx, locationKeyPrefix+userID.String(), payload, l.ttl).Err(); err != nil {
		return fmt.Errorf("recording location: %w", err)
	}
	return nil
}

func (l *RedisLocations) CurrentLocation(ctx context.Context, userID uuid.UUID) (Sample, error) {
	raw, err := l.rdb.Get(ctx, locationKeyPrefix+userID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Sample{}, ErrNoLocation
	}
	if err != nil {
		return Sample{}, fmt.Errorf("reading location: %w", err)
	}

	var s storedSample
	if err := json.Unmarshal(raw, &s); err != nil {
		return Sample{}, fmt.Errorf("decoding location: %w", err)
	}
	sample := Sample{At: s.At}
	sample.Coordinate.Latitude = s.Latitude
	sample.Coordinate.Longitude = s.Longitude
	return sample, nil
}

func (l *RedisLocations) Track(ctx context.Context, userID uuid.UUID) error {
	return l.rdb.SAdd(ctx, trackedUsersKey, userID.String()).Err()
}

// Untrack removes the user from background tracking and forgets their last location.
func (l *RedisLocations) Untrack(ctx context.Context, userID uuid.UUID) error {
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, trackedUsersKey, userID.String())
		pipe.Del(ctx, locationKeyPrefix+userID.String())
		return nil
	})
	return err
}

func (l *RedisLocations) IsTracked(ctx context.Context, userID uuid.UUID) (bool, error) {
	return l.rdb.SIsMember(ctx, trackedUsersKey, userID.String()).Result()
}

func (l *RedisLocations) TrackedUsers(ctx context.Context) ([]uuid.UUID, error) {
	members, err := l.rdb.SMembers(ctx, trackedUsersKey).Result()
	if err != nil {
		return nil, err
	}

	users := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}
