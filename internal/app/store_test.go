package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{"memory", config.DatabaseConfig{Driver: config.DriverMemory}},
		{"sqlite", config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "matrix.db"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := OpenStore(ctx, tt.cfg)
			require.NoError(t, err)
			defer st.Close()

			require.NoError(t, st.Ping(ctx))
			err = st.InTx(ctx, func(tx store.Tx) error {
				_, err := tx.InsertCriterion(ctx, "Hot")
				return err
			})
			assert.NoError(t, err)
		})
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, `unknown database driver "oracle"`)
}

func TestDatabaseName(t *testing.T) {
	assert.Equal(t, "matrix", databaseName("postgres://u:p@localhost:5432/matrix?sslmode=disable"))
	assert.Equal(t, "", databaseName("::bad"))
}
