// Package app wires configuration to the concrete store backends. It is shared
// by the HTTP server and the matrixctl command.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/JonMunkholm/attrmatrix/internal/store/memory"
	"github.com/JonMunkholm/attrmatrix/internal/store/postgres"
	"github.com/JonMunkholm/attrmatrix/internal/store/sqlite"
)

// OpenStore opens the backend selected by cfg.Driver and applies the schema.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		st, err = postgres.Open(ctx, cfg)
		if err == nil {
			slog.Info("connected to database", "driver", cfg.Driver, "name", databaseName(cfg.URL))
		}
	case config.DriverSQLite:
		st, err = sqlite.Open(ctx, cfg.SQLitePath, cfg.StatementTimeout)
		if err == nil {
			slog.Info("opened database", "driver", cfg.Driver, "path", cfg.SQLitePath)
		}
	case config.DriverMemory:
		st = memory.New()
		slog.Warn("using in-memory store; data is lost on exit")
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// databaseName extracts the database name from a connection URL for logging.
func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
