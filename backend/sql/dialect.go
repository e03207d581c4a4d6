// Package sqlbackend implements the portable SQL Backend of spec.md §4.4 and
// §6.3: a fixed schema (entries, tree_parents, store_memberships,
// store_parents, heights, tips, private_keys, crdt_cache, schema_version)
// driven through database/sql, registered against three drivers
// (modernc.org/sqlite, github.com/go-sql-driver/mysql,
// github.com/jackc/pgx/v5/stdlib). The package is named sqlbackend rather
// than sql to avoid shadowing the stdlib database/sql import every file
// here needs.
package sqlbackend

import (
	"fmt"
	"strings"
)

// Dialect picks the placeholder style for the one query shape difference
// between the three drivers this package registers against: SQLite and
// MySQL both accept positional "?" placeholders, Postgres requires
// numbered "$1", "$2", ... placeholders. The DDL and every query body is
// otherwise identical across all three (spec.md §6.3: "heights and flags
// are 64-bit integers for SQLite/Postgres portability").
type Dialect int

const (
	// DialectSQLite targets modernc.org/sqlite (driver name "sqlite").
	DialectSQLite Dialect = iota
	// DialectMySQL targets github.com/go-sql-driver/mysql (driver name
	// "mysql").
	DialectMySQL
	// DialectPostgres targets github.com/jackc/pgx/v5/stdlib (driver name
	// "pgx").
	DialectPostgres
)

// dialectForDriver maps a database/sql driver name to the Dialect that
// query-builds for it.
func dialectForDriver(driverName string) (Dialect, error) {
	switch driverName {
	case "sqlite":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("backend/sql: unsupported driver %q", driverName)
	}
}

// rebind rewrites a query written with "?" placeholders into the target
// dialect's placeholder style. SQLite and MySQL pass through unchanged.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
