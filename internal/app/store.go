package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/jrsteele09/restaurant-portal/storage/redisstore"
	"github.com/jrsteele09/restaurant-portal/storage/sqlitestore"
	"github.com/rs/zerolog/log"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the configured driver, wrapped for encryption when a
// passphrase is set. The closer releases the driver's connection.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, io.Closer, error) {
	var (
		store  storage.Store
		closer io.Closer = nopCloser{}
	)

	switch driver := cfg.GetStorageDriver(); driver {
	case config.StorageMemory:
		store = storage.NewInMemoryStore()
	case config.StorageSQLite:
		s, err := sqlitestore.Open(ctx, cfg.GetSQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("[app OpenStore] %w", err)
		}
		store, closer = s, s
	case config.StorageRedis:
		s, err := redisstore.Dial(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisPrefix())
		if err != nil {
			return nil, nil, fmt.Errorf("[app OpenStore] %w", err)
		}
		store, closer = s, s
	default:
		return nil, nil, fmt.Errorf("[app OpenStore] %w: unknown storage driver %q", errors.ErrUnsupported, driver)
	}
	log.Debug().Str("driver", string(cfg.GetStorageDriver())).Msg("Storage opened")

	passphrase := cfg.GetStoragePassphrase()
	if passphrase == "" {
		return store, closer, nil
	}
	encrypted, err := storage.NewEncryptedStore(ctx, store, passphrase)
	if err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("[app OpenStore] %w", err)
	}
	return encrypted, closer, nil
}
