package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const documentKey = "ktpData"

// kv is the subset of the redis client the store uses.
type kv interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisOptions configures a Redis store.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
	// Prefix namespaces the keys, e.g. one prefix per verification session.
	Prefix string
}

// Redis stores the document result in Redis with an expiry, so a later
// liveness run can pick it up.
type Redis struct {
	client kv
	ttl    time.Duration
	key    string
	log    logrus.FieldLogger
	closer func() error
}

// NewRedis connects to Redis. A failed ping is logged, not returned; calls
// fail individually until the server is reachable.
func NewRedis(ctx context.Context, opts RedisOptions, log logrus.FieldLogger) *Redis {
	log.Infof("[store] connecting to Redis at %s", opts.Address)

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Errorf("[store] failed to connect to Redis: %v", err)
	} else {
		log.Infof("[store] connected to Redis")
	}

	r := newRedis(client, opts, log)
	r.closer = client.Close
	return r
}

func newRedis(client kv, opts RedisOptions, log logrus.FieldLogger) *Redis {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ekyc"
	}
	return &Redis{
		client: client,
		ttl:    opts.TTL,
		key:    prefix + ":" + documentKey,
		log:    log,
	}
}

// SaveDocument stores data as JSON under the document key.
func (r *Redis) SaveDocument(ctx context.Context, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	r.log.Debugf("[store] saved %s (ttl %s)", r.key, r.ttl)
	return nil
}

// LoadDocument returns the stored result, if any.
func (r *Redis) LoadDocument(ctx context.Context) (map[string]string, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false, fmt.Errorf("unmarshal document: %w", err)
	}
	return data, true, nil
}

// Clear removes the stored result.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
