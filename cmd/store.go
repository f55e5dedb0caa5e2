package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/draftscan/internal/config"
	"github.com/sells-group/draftscan/internal/detector"
	"github.com/sells-group/draftscan/internal/resilience"
	"github.com/sells-group/draftscan/internal/store"
)

// initStore opens and migrates the configured baseline store.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "draftscan.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		retry := resilience.ConnectRetryConfig(sc.ConnectAttempts)
		retry.OnRetry = resilience.RetryLogger("postgres connect")
		st, err = resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
				MaxConns: sc.MaxConns,
				MinConns: sc.MinConns,
			})
		})
	case "memory":
		st = store.NewMemory()
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	zap.L().Debug("store ready", zap.String("driver", sc.Driver))
	return st, nil
}

// newDetector builds a Detector with the configured policy.
func newDetector(dc config.DetectConfig) *detector.Detector {
	return detector.New(nil, detector.Options{
		KeepThreshold:       dc.KeepThreshold,
		ActionableThreshold: dc.ActionableThreshold,
		FenceTag:            dc.FenceTag,
	})
}
