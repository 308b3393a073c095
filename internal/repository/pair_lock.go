package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// PairLockKeyPrefix is the Redis key prefix for relationship pair locks
	PairLockKeyPrefix = "pair_lock:"
	pairLockRetryWait = 25 * time.Millisecond
)

// ErrPairLocked is returned when another operation holds the pair lock for longer than the wait budget.
var ErrPairLocked = errors.New("relationship pair is locked by another operation")

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisPairLocker serialises relationship operations on the same account pair
// across server processes.
type RedisPairLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisPairLocker creates a locker whose locks expire after ttl. Acquisition
// waits at most ttl for a competing holder.
func NewRedisPairLocker(client *redis.Client, ttl time.Duration) *RedisPairLocker {
	return &RedisPairLocker{
		client: client,
		ttl:    ttl,
		wait:   ttl,
	}
}

// PairKey builds the lock key for an unordered pair of accounts.
func PairKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return PairLockKeyPrefix + x + ":" + y
}

// Lock acquires the pair lock and returns the function that releases it.
func (l *RedisPairLocker) Lock(ctx context.Context, a, b primitive.ObjectID) (func(), error) {
	key := PairKey(a, b)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire pair lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			logrus.WithField("key", key).Warn("Pair lock wait budget exhausted")
			return nil, ErrPairLocked
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pairLockRetryWait):
		}
	}

	return func() {
		// the caller's context may already be cancelled
		if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to release pair lock")
		}
	}, nil
}
