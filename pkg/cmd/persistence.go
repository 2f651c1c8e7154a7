package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hkcm91/stickernest/pkg/persistence"
	"github.com/hkcm91/stickernest/pkg/persistence/file"
	"github.com/hkcm91/stickernest/pkg/persistence/postgresql"
	"github.com/hkcm91/stickernest/pkg/persistence/redis"
)

// NewPersistence creates a persistence backend from a database URL. The
// scheme selects the adapter; anything unrecognized is treated as a file
// path for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "redis", "rediss":
		p, err := redis.NewPersistence(databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}

// MustNewPersistence panics on setup failure. Commands use it during
// startup where there is nothing to do but exit.
func MustNewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	p, err := NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to create persistence for %q: %w", parsePersistenceProvider(databaseURL), err))
	}

	return p
}
