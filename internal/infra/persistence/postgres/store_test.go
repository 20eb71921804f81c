package postgres

import (
	"cagecore/internal/entitymodel/sqlbundle"
	"cagecore/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return db, mock
}

func expectSchema(mock sqlmock.Sqlmock) {
	for _, stmt := range sqlbundle.SplitStatements(sqlbundle.Postgres()) {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func TestNewStoreAppliesPostgresBundle(t *testing.T) {
	db, mock := newMock(t)
	expectSchema(mock)
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	defer restore()

	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if gotDriver != defaultDriver || gotDSN != defaultDSN {
		t.Fatalf("unexpected open args %s %s", gotDriver, gotDSN)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	mock.ExpectClose()
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewStoreSurfacesDDLFailure(t *testing.T) {
	db, mock := newMock(t)
	first := sqlbundle.SplitStatements(sqlbundle.Postgres())[0]
	mock.ExpectExec(first).WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore(context.Background(), "postgres://example"); err == nil {
		t.Fatal("expected ddl failure")
	}
}

func TestNewStoreSurfacesOpenFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://example"); err == nil {
		t.Fatal("expected open failure")
	}
}

func TestStatementsUseDollarPlaceholders(t *testing.T) {
	db, mock := newMock(t)
	expectSchema(mock)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore(context.Background(), "postgres://example")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE cages SET status = $1 WHERE cage_id = $2`).
		WithArgs("archived", "H-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		found, err := tx.SetCageStatus("H-1", domain.StatusArchived)
		if err != nil {
			return err
		}
		if !found {
			t.Fatal("expected cage to be found")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	mock.ExpectQuery(`SELECT parent_cage_id FROM holding WHERE cage_id = $1`).
		WithArgs("H-1").
		WillReturnRows(sqlmock.NewRows([]string{"parent_cage_id"}).AddRow("B-9"))
	err = store.View(context.Background(), func(v domain.CageView) error {
		parent, ok, err := v.ParentOf("H-1")
		if err != nil {
			return err
		}
		if !ok || parent != "B-9" {
			t.Fatalf("unexpected parent %q (found=%v)", parent, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
