package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arbengine/fundarb/internal/log"
)

// envelope is what actually gets written to Redis: value bytes plus
// metadata, so GetWithMetadata can recover both in one round trip.
type envelope struct {
	Data     json.RawMessage   `json:"data"`
	Metadata map[string]string `json:"metadata,omitempty"`
	StoredAt time.Time         `json:"stored_at"`
}

type redisStore struct {
	client *redis.Client
}

// NewRedis constructs a Store backed by a Redis instance.
func NewRedis(addr string) Store {
	return &redisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

var casScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if ARGV[1] == "" then
  if cur then return 0 end
else
  if not cur or cur ~= ARGV[1] then return 0 end
end
redis.call("SET", KEYS[1], ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`)

func (r *redisStore) Get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err // transient I/O: caller decides retry vs fail-open
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Component("kv").Warn().Str("key", key).Msg("corrupted envelope, treating as miss")
		return false, nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		log.Component("kv").Warn().Str("key", key).Msg("corrupted value json, treating as miss")
		return false, nil
	}
	return true, nil
}

func (r *redisStore) GetWithMetadata(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Component("kv").Warn().Str("key", key).Msg("corrupted envelope, treating as miss")
		return nil, false, nil
	}
	return &Entry{Raw: env.Data, Metadata: env.Metadata, StoredAt: env.StoredAt}, true, nil
}

func (r *redisStore) Put(ctx context.Context, key string, v any, opts PutOptions) error {
	raw, err := marshalEnvelope(v, opts)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, ttlOf(opts)).Err()
}

func (r *redisStore) CompareAndSwap(ctx context.Context, key string, oldVal, newVal any, opts PutOptions) error {
	// The stored envelope carries its own stored_at, so the expected value
	// is compared against the envelope's data field, and the script then
	// checks that the exact stored bytes are still in place.
	var oldRaw []byte
	if oldVal != nil {
		want, err := encode(oldVal)
		if err != nil {
			return err
		}
		cur, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(cur, &env); err != nil || !bytes.Equal(env.Data, want) {
			return ErrNotFound
		}
		oldRaw = cur
	}
	newRaw, err := marshalEnvelope(newVal, opts)
	if err != nil {
		return err
	}

	ttlMs := int64(0)
	if d := ttlOf(opts); d > 0 {
		ttlMs = d.Milliseconds()
	}

	res, err := casScript.Run(ctx, r.client, []string{key}, string(oldRaw), string(newRaw), ttlMs).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisStore) List(ctx context.Context, prefix, cursor string, limit int) (ListResult, error) {
	if limit <= 0 {
		limit = 100
	}
	cur := uint64(0)
	if cursor != "" {
		if parsed, err := parseUint(cursor); err == nil {
			cur = parsed
		}
	}

	keys, next, err := r.client.Scan(ctx, cur, prefix+"*", int64(limit)).Result()
	if err != nil {
		return ListResult{}, err
	}

	nextCursor := ""
	if next != 0 {
		nextCursor = formatUint(next)
	}
	return ListResult{Keys: keys, Cursor: nextCursor}, nil
}

func marshalEnvelope(v any, opts PutOptions) ([]byte, error) {
	data, err := encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Data: data, Metadata: opts.Metadata, StoredAt: time.Now()})
}

func ttlOf(opts PutOptions) time.Duration {
	if !opts.TTLAt.IsZero() {
		if d := time.Until(opts.TTLAt); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return opts.TTL
}
