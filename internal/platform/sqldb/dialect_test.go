package sqldb

import (
	"testing"

	"github.com/pressly/goose/v3/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"postgres", Postgres, false},
		{"SQLServer", SQLServer, false},
		{"mssql", SQLServer, false},
		{" mysql ", MySQL, false},
		{"sqlite", SQLite, false},
		{"sqlite3", SQLite, false},
		{"oracle", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDialect(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedDialect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialectDrivers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pgx", Postgres.DriverName())
	assert.Equal(t, "sqlserver", SQLServer.DriverName())
	assert.Equal(t, "mysql", MySQL.DriverName())
	assert.Equal(t, "sqlite", SQLite.DriverName())

	assert.Equal(t, database.DialectPostgres, Postgres.GooseDialect())
	assert.Equal(t, database.DialectMSSQL, SQLServer.GooseDialect())
	assert.Equal(t, database.DialectMySQL, MySQL.GooseDialect())
	assert.Equal(t, database.DialectSQLite3, SQLite.GooseDialect())
}

func TestRebind(t *testing.T) {
	t.Parallel()

	query := "SELECT completeTime FROM utb_ImageScraperResult WHERE ResultID = ? AND FileID = ?"

	assert.Equal(t,
		"SELECT completeTime FROM utb_ImageScraperResult WHERE ResultID = $1 AND FileID = $2",
		Postgres.Rebind(query))
	assert.Equal(t,
		"SELECT completeTime FROM utb_ImageScraperResult WHERE ResultID = @p1 AND FileID = @p2",
		SQLServer.Rebind(query))
	assert.Equal(t, query, MySQL.Rebind(query))
	assert.Equal(t, query, SQLite.Rebind(query))

	t.Run("quoted question marks are kept", func(t *testing.T) {
		got := Postgres.Rebind("SELECT '?' WHERE a = ?")
		assert.Equal(t, "SELECT '?' WHERE a = $1", got)
	})
}
