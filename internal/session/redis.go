package session

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the encrypted session envelope under a single redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	secret []byte
	kdf    KDFParams
}

func NewRedisStore(client *redis.Client, key string, secret []byte, kdf KDFParams) (*RedisStore, error) {
	if key == "" {
		return nil, errors.New("session redis key is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("session secret is required for the redis backend")
	}

	return &RedisStore{client: client, key: key, secret: append([]byte(nil), secret...), kdf: kdf}, nil
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session from redis")
	}

	return openSession(raw, r.secret, []byte(r.key))
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b, err := sealSession(s, r.secret, r.kdf, []byte(r.key))
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key, b, 0).Err(); err != nil {
		return errors.Wrap(err, "failed to set session in redis")
	}

	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete session from redis")
	}

	return nil
}

// Close releases the redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
