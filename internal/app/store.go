package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gestor-crm/gestor/internal/auth"
	"github.com/gestor-crm/gestor/internal/platform/cache"
	"github.com/gestor-crm/gestor/internal/platform/db"
)

// OpenSessionStore builds the session store selected by SESSION_STORE. The
// returned close function releases any connection the store holds.
func OpenSessionStore(ctx context.Context, cfg *Config, logger *slog.Logger) (auth.Store, func(), error) {
	noop := func() {}
	switch cfg.SessionStore {
	case StoreMemory:
		return auth.NewMemoryStore(), noop, nil
	case StoreFile:
		return auth.NewFileStore(cfg.SessionFile), noop, nil
	case StoreRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil && logger != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
		return auth.NewRedisStore(client, cfg.SessionKey, cfg.SessionTTL), closeFn, nil
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, noop, err
		}
		store := auth.NewPGStore(pool, cfg.SessionKey)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("app: unknown session store %q", cfg.SessionStore)
	}
}
