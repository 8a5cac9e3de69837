// Package cache stores censor results in Redis so repeated texts skip
// scanning.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"censorship/pkg/censor"
)

const (
	keyPrefix     = "censor"
	generationKey = keyPrefix + ":generation"
)

// Redis caches results under a generation number. Bumping the generation
// orphans every cached result at once; orphans expire with their TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect opens a client and checks that the server answers.
func Connect(ctx context.Context, addr, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis at %s is not responding: %w", addr, err)
	}
	log.Infof("[cache] connected to redis at %s", addr)

	return New(client, ttl), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) key(ctx context.Context, text string, fullWords bool) (string, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return "", err
	}

	mode := 0
	if fullWords {
		mode = 1
	}
	sum := sha256.Sum256([]byte(text))

	return fmt.Sprintf("%s:%d:%d:%s", keyPrefix, gen, mode, hex.EncodeToString(sum[:])), nil
}

// Get returns the cached result for text. The boolean reports a hit. The
// returned key is bound to the generation read during the lookup; results
// computed after a miss are stored with Set under that key, so a result
// computed before an Invalidate can never be served after it.
func (r *Redis) Get(ctx context.Context, text string, fullWords bool) (censor.Result, string, bool, error) {
	key, err := r.key(ctx, text, fullWords)
	if err != nil {
		return censor.Result{}, "", false, err
	}

	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return censor.Result{}, key, false, nil
	}
	if err != nil {
		return censor.Result{}, key, false, err
	}

	var res censor.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return censor.Result{}, key, false, err
	}
	return res, key, true, nil
}

// Set stores res under a key returned by Get.
func (r *Redis) Set(ctx context.Context, key string, res censor.Result) error {
	if key == "" {
		return errors.New("empty cache key")
	}

	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, b, r.ttl).Err()
}

// Invalidate drops every cached result. It must be called after the terms,
// the whitelist or the fill value change.
func (r *Redis) Invalidate(ctx context.Context) error {
	gen, err := r.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return err
	}
	log.Debugf("[cache] moved to generation %d", gen)
	return nil
}
