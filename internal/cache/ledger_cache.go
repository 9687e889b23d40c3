package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LedgerCacheTTL bounds how long a cached view can lag behind the
// trailing date windows, which move with the clock.
const LedgerCacheTTL = 5 * time.Minute

// generationTTL must outlive any in-flight read.
const generationTTL = 24 * time.Hour

// LedgerCache stores every cached read view of one user (recent list,
// totals, summaries) as fields of a single hash, so a write only has to
// drop one key.
type LedgerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedgerCache(client *redis.Client) *LedgerCache {
	return &LedgerCache{client: client, ttl: LedgerCacheTTL}
}

// Get returns the cached view and the user's current generation. data
// is nil on a miss; pass generation to Set when filling the view.
func (c *LedgerCache) Get(ctx context.Context, userID int, view string) ([]byte, int64, error) {
	var viewCmd *redis.StringCmd
	var genCmd *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		viewCmd = pipe.HGet(ctx, UserLedgerKey(userID), view)
		genCmd = pipe.Get(ctx, userGenerationKey(userID))
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, 0, err
	}

	generation, err := genCmd.Int64()
	if err != nil && err != redis.Nil {
		return nil, 0, err
	}

	data, err := viewCmd.Bytes()
	if err == redis.Nil {
		return nil, generation, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return data, generation, nil
}

// Set stores data as JSON under view and refreshes the hash TTL. The
// write is skipped when the user was invalidated after generation was
// read.
func (c *LedgerCache) Set(ctx context.Context, userID int, view string, generation int64, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	key := UserLedgerKey(userID)
	genKey := userGenerationKey(userID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != generation {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, view, jsonData)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// an invalidation landed while we were writing
		return nil
	}
	return err
}

// InvalidateUser drops every cached view of userID and bumps its
// generation so reads already in flight cannot refill them.
func (c *LedgerCache) InvalidateUser(ctx context.Context, userID int) error {
	genKey := userGenerationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, UserLedgerKey(userID))
		return nil
	})
	return err
}

// Build cache key for a user's ledger views
func UserLedgerKey(userID int) string {
	return fmt.Sprintf("ledger:user:%d", userID)
}

func userGenerationKey(userID int) string {
	return fmt.Sprintf("ledger:user:%d:gen", userID)
}
