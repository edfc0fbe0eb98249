package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/blitz/pkg/sessions"
	sessionfile "github.com/dukex/blitz/pkg/sessions/file"
	sessionredis "github.com/dukex/blitz/pkg/sessions/redis"
)

// NewSessionStore opens the conversation store named by url: redis:// and rediss:// URLs use
// Redis, anything else is a file system path.
func NewSessionStore(ctx context.Context, logger *slog.Logger, url string, maxMessages int, ttl time.Duration) (sessions.Store, error) {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		store, err := sessionredis.NewStore(ctx, url, logger,
			sessionredis.WithMaxMessages(maxMessages),
			sessionredis.WithTTL(ttl))
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	return sessionfile.NewStore(url, maxMessages), nil
}
