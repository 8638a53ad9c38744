package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour spoken by a connection.
type Dialect string

const (
	// Postgres covers both the pgx and lib/pq drivers.
	Postgres Dialect = "postgres"
	// MySQL is served by go-sql-driver/mysql.
	MySQL Dialect = "mysql"
	// SQLite is served by modernc.org/sqlite.
	SQLite Dialect = "sqlite"
)

// Driver names registered with database/sql.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// driverAliases maps alternative spellings to the name registered with
// database/sql.
var driverAliases = map[string]string{
	"pgsql":      DriverPostgres,
	"postgresql": DriverPostgres,
	"sqlite3":    DriverSQLite,
}

// NormalizeDriver returns the registered database/sql driver name for
// driver, resolving aliases such as "postgresql" and "sqlite3".
func NormalizeDriver(driver string) string {
	name := strings.ToLower(driver)
	if alias, ok := driverAliases[name]; ok {
		return alias
	}
	return name
}

// DialectForDriver maps a database/sql driver name or alias to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch NormalizeDriver(driver) {
	case DriverPgx, DriverPostgres:
		return Postgres, nil
	case DriverMySQL:
		return MySQL, nil
	case DriverSQLite:
		return SQLite, nil
	}
	return "", fmt.Errorf("%w: unsupported driver %q", ErrInvalidArgument, driver)
}

// Placeholder renders the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// SupportsReturning reports whether INSERT ... RETURNING is available.
func (d Dialect) SupportsReturning() bool {
	return d == Postgres || d == SQLite
}

// String implements fmt.Stringer.
func (d Dialect) String() string {
	return string(d)
}
