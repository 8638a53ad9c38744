package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ORPHAN_POLICY", "")

	path := filepath.Join(t.TempDir(), "database.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: mysql
  host: db.internal
  port: 3307
  schema: modspace
  username: app
  password: secret
  orphan_policy: collect
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 3307, cfg.Port)
	assert.Equal(t, "modspace", cfg.Database)
	assert.Equal(t, "collect", cfg.OrphanPolicy)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "app:secret@tcp(db.internal:3307)/modspace?parseTime=true", cfg.ConnectionString())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ORPHAN_POLICY", "best-effort")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "file:test.db", cfg.ConnectionString())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "best-effort", cfg.OrphanPolicy)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: ["), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "explicit dsn",
			cfg:  Config{Driver: DriverMySQL, DSN: "root@/x"},
			want: "root@/x",
		},
		{
			name: "pgx keyword/value",
			cfg:  Config{Driver: DriverPgx, Host: "localhost", Port: 5432, User: "postgres", Password: "pw", Database: "app", SSLMode: "require"},
			want: "host=localhost port=5432 user=postgres password=pw dbname=app sslmode=require",
		},
		{
			name: "lib/pq url",
			cfg:  Config{Driver: DriverPostgres, Host: "localhost", User: "postgres", Password: "pw", Database: "app"},
			want: "postgres://postgres:pw@localhost:5432/app?sslmode=disable",
		},
		{
			name: "mysql default port",
			cfg:  Config{Driver: DriverMySQL, Host: "localhost", Port: 5432, User: "root", Database: "app"},
			want: "root:@tcp(localhost:3306)/app?parseTime=true",
		},
		{
			name: "sqlite memory",
			cfg:  Config{Driver: DriverSQLite},
			want: ":memory:",
		},
		{
			name: "sqlite file",
			cfg:  Config{Driver: DriverSQLite, Database: "modspace.db"},
			want: "modspace.db",
		},
		{
			name: "sqlite3 alias",
			cfg:  Config{Driver: "sqlite3", Database: "app.db"},
			want: "app.db",
		},
		{
			name: "postgresql alias",
			cfg:  Config{Driver: "postgresql", Host: "db", User: "app", Password: "pw", Database: "app"},
			want: "postgres://app:pw@db:5432/app?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ConnectionString())
		})
	}
}
