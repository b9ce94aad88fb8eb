package cli

import (
	"context"
	"fmt"

	"github.com/idilsaglam/grocery/internal/config"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/idilsaglam/grocery/internal/store/jsonstore"
	"github.com/idilsaglam/grocery/internal/store/memstore"
	"github.com/idilsaglam/grocery/internal/store/pgstore"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// OpenStore builds the configured backend wrapped with metrics and logging.
// reg may be nil when nobody scrapes the metrics.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (store.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var s store.Store
	switch cfg.Store.Backend {
	case config.StoreMemory:
		s = memstore.New()

	case config.StoreJSON:
		path := cfg.Store.DataFile
		if path == "" {
			p, err := jsonstore.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		js, err := jsonstore.Open(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("json store opened", zap.String("path", path))
		s = js

	case config.StorePostgres:
		ps, err := pgstore.Open(ctx, cfg.Store.DatabaseURL, pgstore.Options{
			MigrationsPath: cfg.Store.MigrationsPath,
			ConnectRetries: cfg.Store.ConnectRetries,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		s = ps

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return store.Instrument(s, store.NewMetrics(reg), logger), nil
}
