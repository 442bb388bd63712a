package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/attrmatrix/internal/app"
	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/JonMunkholm/attrmatrix/internal/logging"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "matrixctl",
		Short: "matrixctl manages the attribute matrix database",
		Long: `matrixctl is a maintenance tool for the attribute matrix service.

It reads the same environment variables as the server:
    DATABASE_DRIVER      postgres, sqlite or memory
    DATABASE_URL         PostgreSQL connection URL
    SQLITE_PATH          SQLite database file
    LOG_LEVEL            debug, info, warn or error

A .env file in the working directory (or --env-file) is loaded first.`,
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Overload(envFile); err != nil {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			} else {
				_ = godotenv.Load()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"environment file to load (default: .env if present)")
	rootCmd.Flags().BoolP("version", "V", false, "version for matrixctl")

	rootCmd.AddCommand(
		getMigrateCmd(),
		getExportCmd(),
		getImportCmd(),
		getResetCmd(),
		getHashPasswordCmd(),
		getVersionCmd(),
	)
	return rootCmd
}

// openStore loads configuration, sets up logging on stderr and opens the
// configured store with its schema applied.
func openStore(ctx context.Context) (*config.Config, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	st, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return cfg, st, nil
}

// openService is openStore plus the matrix service on top of it.
func openService(ctx context.Context) (*core.Service, func(), error) {
	cfg, st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return core.NewService(st, cfg.Import), func() { st.Close() }, nil
}

func getVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the matrixctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "matrixctl %s\n", Version)
		},
	}
}
