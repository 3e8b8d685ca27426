package client

import (
	"fmt"
	"strings"
)

// Kind identifies the type of backing database a target points at.
type Kind string

const (
	Postgres  Kind = "postgres"
	Oracle    Kind = "oracle"
	MySQL     Kind = "mysql"
	SQLServer Kind = "sqlserver"
	SQLite    Kind = "sqlite"
)

// Kinds lists every supported database kind.
var Kinds = []Kind{Postgres, Oracle, MySQL, SQLServer, SQLite}

// ParseKind maps a user-supplied type name (case-insensitive, common aliases
// accepted) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "oracle":
		return Oracle, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return "", fmt.Errorf("%w: unsupported database type %q (want one of %s)", ErrInvalidTarget, s, strings.Join(names, ", "))
}

// networked reports whether targets of this kind are reached over TCP and
// therefore need a host and port.
func (k Kind) networked() bool {
	return k != SQLite
}

// driverName returns the database/sql driver registered for the kind.
// pgDriver selects between lib/pq ("postgres") and pgx ("pgx").
func (k Kind) driverName(pgDriver string) (string, error) {
	switch k {
	case Postgres:
		if pgDriver == "pgx" {
			return "pgx", nil
		}
		return "postgres", nil
	case Oracle:
		return "oracle", nil
	case MySQL:
		return "mysql", nil
	case SQLServer:
		return "sqlserver", nil
	case SQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("%w: unsupported database type %q", ErrInvalidTarget, string(k))
}

// IsReadQuery reports whether query starts with SELECT or WITH, ignoring case
// and leading whitespace.
func IsReadQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.HasPrefix(q, "select") || strings.HasPrefix(q, "with")
}
