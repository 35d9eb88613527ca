package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/postgres"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/tracking"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/config"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

// FromConfig builds the registry backend the tracking URI points at:
// postgres:// connects to the store directly, anything http-like goes
// through the REST tracking server. The returned func releases the backend.
func FromConfig(ctx context.Context, cfg *config.Config) (ports.Registry, func(), error) {
	uri := cfg.Tracking.URI

	if strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://") {
		pool, err := pgxpool.New(ctx, uri)
		if err != nil {
			return nil, nil, fmt.Errorf("create registry pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping registry store: %w", err)
		}
		log.Info("using Postgres registry backend")
		return postgres.NewRegistryRepository(pool), pool.Close, nil
	}

	log.WithField("uri", uri).Info("using tracking server registry backend")
	return tracking.NewClient(&cfg.Tracking), func() {}, nil
}
