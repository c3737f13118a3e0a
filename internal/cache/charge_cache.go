// Package cache keeps a snapshot of the loaded charge collection in Redis.
//
// Every invalidation bumps a generation counter. A snapshot is only stored
// when the generation it was loaded under is still current, so a listing
// that raced with a write cannot put the pre-write collection back.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segyhp/fleet-charges/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	chargesKey    = "charges:all"
	generationKey = "charges:gen"
)

// ChargeCache stores the fully loaded charge collection under a single key.
type ChargeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewChargeCache(client *redis.Client, ttl time.Duration) *ChargeCache {
	return &ChargeCache{client: client, ttl: ttl}
}

// Get returns the cached collection and the current generation; ok is false
// on a miss. The generation must be read before the collection is reloaded
// and handed back to Set.
func (c *ChargeCache) Get(ctx context.Context) ([]*domain.Charge, uint64, bool, error) {
	var genCmd, snapshotCmd *redis.StringCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		genCmd = pipe.Get(ctx, generationKey)
		snapshotCmd = pipe.Get(ctx, chargesKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}

	generation, err := readGeneration(genCmd)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := snapshotCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	var charges []*domain.Charge
	if err := json.Unmarshal(raw, &charges); err != nil {
		return nil, 0, false, err
	}
	return charges, generation, true, nil
}

// Set stores the collection if no invalidation happened since generation was
// read. stored is false when the snapshot was dropped as stale.
func (c *ChargeCache) Set(ctx context.Context, generation uint64, charges []*domain.Charge) (bool, error) {
	raw, err := json.Marshal(charges)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(tx.Get(ctx, generationKey))
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, chargesKey, raw, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, generationKey)

	// The generation moved between WATCH and EXEC
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate drops the cached collection and starts a new generation.
func (c *ChargeCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, chargesKey)
		return nil
	})
	return err
}

func readGeneration(cmd *redis.StringCmd) (uint64, error) {
	generation, err := cmd.Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}
