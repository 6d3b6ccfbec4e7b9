package session

import (
	"context"
	"fmt"
	"io"

	"github.com/iliyamo/ticketctl/internal/config"
)

// OpenStore builds the Store selected by cfg.  The returned closer
// releases the redis connection, if any.
func OpenStore(ctx context.Context, cfg config.SessionConfig, rc config.RedisConfig) (Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client, err := config.NewRedisClient(ctx, rc)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: %w", err)
		}
		return NewRedisStore(client, cfg.Key), client, nil
	case config.StoreFile, "":
		return NewFileStore(cfg.File), io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("session store: unknown kind %q", cfg.Store)
	}
}
