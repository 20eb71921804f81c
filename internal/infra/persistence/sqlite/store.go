// Package sqlite provides the embedded SQLite backend for cage persistence.
package sqlite

import (
	"cagecore/internal/infra/persistence/sqlstore"
	"cagecore/pkg/domain"
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName  = "sqlite"
	defaultPath = "cagecore.db"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not map to a bind style.
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Store is a sqlstore.Store backed by a single SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating when needed) the SQLite file at path and applies
// the cage schema.
func NewStore(ctx context.Context, path string, opts ...sqlstore.Option) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, "create dirs")
		}
	}
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection serialises writers; every statement inside a transaction
	// must therefore go through the transaction handle.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "configure sqlite")
	}
	if err := sqlstore.ApplySchema(ctx, db, driverName); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: sqlstore.New(db, opts...), path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
