package testdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/platform/sqldb"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// DefaultPoolSize is the database/sql pool size used by Open.
const DefaultPoolSize = 8

// DB is a migrated test database.
type DB struct {
	*sql.DB
	Dialect sqldb.Dialect

	cfg config.DatabaseConfig
}

// IsIntegrationTestEnvironment reports whether an external test database
// is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDatabaseURL returns the external test database URL, if any.
func GetTestDatabaseURL() string {
	return os.Getenv("IMAGEBATCH_TEST_DB_URL")
}

// Open returns a fresh migrated database closed at test cleanup.
func Open(t *testing.T) *DB {
	t.Helper()
	return OpenWithPoolSize(t, DefaultPoolSize)
}

// OpenWithPoolSize is Open with an explicit database/sql pool size.
func OpenWithPoolSize(t *testing.T, poolSize int) *DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:   "sqlite",
		URL:      filepath.Join(t.TempDir(), "test.db"),
		PoolSize: poolSize,
	}
	if url := GetTestDatabaseURL(); url != "" {
		cfg.Driver = os.Getenv("IMAGEBATCH_TEST_DB_DRIVER")
		if cfg.Driver == "" {
			cfg.Driver = "postgres"
		}
		cfg.URL = url
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, dialect, err := sqldb.Open(ctx, cfg, nil)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqldb.Migrate(ctx, db, dialect, "up", nil), "failed to migrate test database")

	if IsIntegrationTestEnvironment() {
		_, err := db.ExecContext(ctx, "DELETE FROM utb_ImageScraperResult")
		require.NoError(t, err, "failed to clean tracking table")
	}

	return &DB{DB: db, Dialect: dialect, cfg: cfg}
}

// Writer opens a second handle on the same database. Tests use it to play
// the external writer while the primary handle is saturated by a pool.
func (d *DB) Writer(t *testing.T) *DB {
	t.Helper()

	cfg := d.cfg
	cfg.PoolSize = 2

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, dialect, err := sqldb.Open(ctx, cfg, nil)
	require.NoError(t, err, "failed to open writer handle")
	t.Cleanup(func() { _ = db.Close() })

	return &DB{DB: db, Dialect: dialect, cfg: cfg}
}
