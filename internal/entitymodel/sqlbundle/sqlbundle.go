// Package sqlbundle exposes the cage schema DDL bundles for the relational stores.
package sqlbundle

import (
	"bufio"
	"fmt"
	"strings"

	sqldocs "cagecore/docs/schema/sql"
)

// SQLite returns the cage schema DDL for SQLite.
func SQLite() string {
	return sqldocs.SQLite
}

// Postgres returns the cage schema DDL for Postgres.
func Postgres() string {
	return sqldocs.Postgres
}

// ForDialect returns the DDL bundle for the named dialect ("sqlite" or "postgres").
func ForDialect(dialect string) (string, error) {
	switch dialect {
	case "sqlite":
		return SQLite(), nil
	case "postgres":
		return Postgres(), nil
	default:
		return "", fmt.Errorf("no schema bundle for dialect %q", dialect)
	}
}

// SplitStatements splits a semicolon-terminated DDL script into executable
// statements, skipping blank lines and whole-line "--" comments.
func SplitStatements(ddl string) []string {
	var (
		stmts   []string
		current strings.Builder
	)
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ";") {
			stmts = append(stmts, current.String())
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}
	return stmts
}
