package session

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github/keyless/go-connector/internal/config"
)

// NewStoreFromConfig builds the configured session backend.
//
//nolint:ireturn
func NewStoreFromConfig(cfg config.SessionServer) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.FilePath, []byte(cfg.Secret), DefaultKDF)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.RedisKey, []byte(cfg.Secret), DefaultKDF)
	default:
		return nil, errors.Errorf("unknown session backend %q", cfg.Backend)
	}
}
