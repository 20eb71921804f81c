// Package sqldocs exposes the cage schema DDL bundles directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the cage schema DDL for SQLite.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the cage schema DDL for Postgres.
//
//go:embed postgres.sql
var Postgres string
