package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between supported servers.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case DriverMySQL:
		return DialectMySQL, nil
	case DriverPostgres, DriverPGX:
		return DialectPostgres, nil
	case DriverSQLite, "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// readOnlyStatement asks the server to reject writes for the rest of the
// session.
func (d Dialect) readOnlyStatement() string {
	switch d {
	case DialectMySQL:
		return "SET SESSION TRANSACTION READ ONLY"
	case DialectPostgres:
		return "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"
	case DialectSQLite:
		return "PRAGMA query_only = ON"
	default:
		return ""
	}
}

// readWriteStatement undoes readOnlyStatement before the connection goes back
// to the pool.
func (d Dialect) readWriteStatement() string {
	switch d {
	case DialectMySQL:
		return "SET SESSION TRANSACTION READ WRITE"
	case DialectPostgres:
		return "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE"
	case DialectSQLite:
		return "PRAGMA query_only = OFF"
	default:
		return ""
	}
}
