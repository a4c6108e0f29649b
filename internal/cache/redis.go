package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valpere/adaptran/internal"
)

const redisKeyPrefix = "adaptran:cache:"

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RedisStore keeps entries as JSON under adaptran:cache:<fingerprint>.
// A zero TTL means entries never expire.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}

	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func (s *RedisStore) Name() string {
	return "redis"
}

func redisKey(key internal.CacheKey) string {
	return redisKeyPrefix + key.Fingerprint()
}

func (s *RedisStore) Load(ctx context.Context, key internal.CacheKey) (*internal.CacheEntry, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry internal.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	// fingerprints are collision-free by construction; this guards against
	// foreign data under our prefix
	if entry.Key != key {
		return nil, nil
	}
	return &entry, nil
}

// maxHitRetries bounds the optimistic retries of RecordHit when the key
// changes under WATCH.
const maxHitRetries = 3

// Save writes entry with the configured TTL, replacing any previous entry
// and its remaining lifetime.
func (s *RedisStore) Save(ctx context.Context, entry *internal.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return s.client.Set(ctx, redisKey(entry.Key), data, s.ttl).Err()
}

// RecordHit bumps the counters of the stored entry inside a WATCH
// transaction. The write uses XX and KEEPTTL, so a hit neither resurrects a
// deleted entry nor extends its lifetime.
func (s *RedisStore) RecordHit(ctx context.Context, key internal.CacheKey) (*internal.CacheEntry, error) {
	k := redisKey(key)
	var hit *internal.CacheEntry

	txf := func(tx *redis.Tx) error {
		hit = nil
		val, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var entry internal.CacheEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return fmt.Errorf("decode cache entry: %w", err)
		}
		if entry.Key != key {
			return nil
		}
		entry.AccessCount++
		entry.HitCount++

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, k, data, redis.SetArgs{Mode: "XX", KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}
		hit = &entry
		return nil
	}

	for i := 0; i < maxHitRetries; i++ {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			// the XX write found no key: the entry went away after the read
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return hit, nil
	}
	return nil, fmt.Errorf("record cache hit: %w", redis.TxFailedErr)
}

func (s *RedisStore) Delete(ctx context.Context, key internal.CacheKey) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

// Len counts keys under the cache prefix with SCAN.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
