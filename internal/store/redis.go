package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Compare-and-set scripts. Redis runs a script without interleaving other
// commands, so the GET and the write form one step.
var (
	replaceIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "KEEPTTL")
	return 1
end
return 0`)

	deleteIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisKV stores values as plain strings. SetNX maps to SET NX, which Redis
// executes atomically.
type RedisKV struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisKV prefixes every key with namespace (may be empty).
func NewRedisKV(rdb *redis.Client, namespace string) *RedisKV {
	return &RedisKV{rdb: rdb, namespace: namespace}
}

func (r *RedisKV) key(k string) string {
	return r.namespace + k
}

func (r *RedisKV) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(key), value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX: %w", err)
	}
	return ok, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	return nil
}

func (r *RedisKV) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := r.rdb.SetXX(ctx, r.key(key), value, redis.KeepTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETXX: %w", err)
	}
	return ok, nil
}

func (r *RedisKV) ReplaceIf(ctx context.Context, key string, expected, value []byte) (bool, error) {
	n, err := replaceIfScript.Run(ctx, r.rdb, []string{r.key(key)}, expected, value).Int64()
	if err != nil {
		return false, fmt.Errorf("redis replace-if: %w", err)
	}
	return n == 1, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET: %w", err)
	}
	return v, nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis DEL: %w", err)
	}
	return n > 0, nil
}

func (r *RedisKV) DeleteIf(ctx context.Context, key string, expected []byte) (bool, error) {
	n, err := deleteIfScript.Run(ctx, r.rdb, []string{r.key(key)}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("redis delete-if: %w", err)
	}
	return n > 0, nil
}

// Scan walks the keyspace with SCAN MATCH and then fetches values with MGET.
// Keys deleted between the two steps are skipped.
func (r *RedisKV) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	pattern := escapeGlob(r.key(prefix)) + "*"
	var keys []string
	iter := r.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis SCAN: %w", err)
	}

	out := make(map[string][]byte, len(keys))
	const batch = 200
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		vals, err := r.rdb.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis MGET: %w", err)
		}
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				continue
			}
			out[strings.TrimPrefix(keys[start+i], r.namespace)] = []byte(s)
		}
	}
	return out, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
