// Package sqlstore implements the cage persistence contract over database/sql
// via sqlx. The sqlite and postgres packages open a connection, apply the DDL
// bundle and wrap this store; placeholder rebinding is left to sqlx.
package sqlstore

import (
	"cagecore/internal/entitymodel/sqlbundle"
	"cagecore/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Compile-time contract assertion ensuring the relational store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store runs cage reads and mutations against a relational database.
type Store struct {
	db    *sqlx.DB
	nowFn func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp created_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// New wraps an open sqlx handle. The handle's driver name decides the bind style.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, nowFn: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplySchema executes the DDL bundle of the given dialect statement by statement.
func ApplySchema(ctx context.Context, db sqlx.ExecerContext, dialect string) error {
	ddl, err := sqlbundle.ForDialect(dialect)
	if err != nil {
		return err
	}
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "execute ddl")
		}
	}
	return nil
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunInTransaction executes fn inside one database transaction. Every statement
// fn issues commits together or is rolled back when fn or the commit fails.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&transaction{view: view{ctx: ctx, q: tx}, now: s.nowFn()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	committed = true
	return nil
}

// View runs fn against the database outside an explicit transaction.
func (s *Store) View(ctx context.Context, fn func(domain.CageView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&view{ctx: ctx, q: s.db})
}

// tableFor maps a collection to its table name, rejecting anything unknown so
// collection names are never interpolated unchecked.
func tableFor(c domain.Collection) (string, error) {
	switch c {
	case domain.CollectionStrains, domain.CollectionActivityLog:
		return string(c), nil
	}
	if c.Deletable() {
		return string(c), nil
	}
	return "", fmt.Errorf("unknown collection %q", c)
}

type view struct {
	ctx context.Context
	q   sqlx.ExtContext
}

func (v *view) get(dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(v.ctx, v.q, dest, v.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (v *view) selectAll(dest any, query string, args ...any) error {
	return sqlx.SelectContext(v.ctx, v.q, dest, v.q.Rebind(query), args...)
}

func (v *view) FindCage(id string) (domain.Cage, bool, error) {
	var cage domain.Cage
	ok, err := v.get(&cage, `SELECT cage_id, status, pi_id, room, rack, remarks, created_at FROM cages WHERE cage_id = ?`, id)
	if err != nil {
		return domain.Cage{}, false, errors.Wrapf(err, "find cage %s", id)
	}
	return cage, ok, nil
}

func (v *view) exists(table, id string) (bool, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE cage_id = ?`, table)
	if _, err := v.get(&n, query, id); err != nil {
		return false, errors.Wrapf(err, "probe %s for %s", table, id)
	}
	return n > 0, nil
}

func (v *view) HoldingExists(id string) (bool, error) {
	return v.exists(string(domain.CollectionHolding), id)
}

func (v *view) BreedingExists(id string) (bool, error) {
	return v.exists(string(domain.CollectionBreeding), id)
}

const holdingInfoSelect = `SELECT h.cage_id AS cage_id,
	COALESCE(s.name, '') AS label,
	COALESCE(c.status, '') AS status,
	h.parent_cage_id AS parent_cage_id
FROM holding h
LEFT JOIN strains s ON s.id = h.strain_id
LEFT JOIN cages c ON c.cage_id = h.cage_id`

func (v *view) HoldingInfo(id string) (domain.CageInfo, bool, error) {
	var info domain.CageInfo
	ok, err := v.get(&info, holdingInfoSelect+` WHERE h.cage_id = ?`, id)
	if err != nil {
		return domain.CageInfo{}, false, errors.Wrapf(err, "holding info %s", id)
	}
	if !ok {
		return domain.CageInfo{}, false, nil
	}
	info.Type = domain.CageTypeHolding
	return info, true, nil
}

func (v *view) BreedingInfo(id string) (domain.CageInfo, bool, error) {
	var info domain.CageInfo
	ok, err := v.get(&info, `SELECT b.cage_id AS cage_id,
	b.cross_name AS label,
	COALESCE(c.status, '') AS status
FROM breeding b
LEFT JOIN cages c ON c.cage_id = b.cage_id
WHERE b.cage_id = ?`, id)
	if err != nil {
		return domain.CageInfo{}, false, errors.Wrapf(err, "breeding info %s", id)
	}
	if !ok {
		return domain.CageInfo{}, false, nil
	}
	info.Type = domain.CageTypeBreeding
	return info, true, nil
}

func (v *view) ParentOf(id string) (string, bool, error) {
	var parent sql.NullString
	ok, err := v.get(&parent, `SELECT parent_cage_id FROM holding WHERE cage_id = ?`, id)
	if err != nil {
		return "", false, errors.Wrapf(err, "parent of %s", id)
	}
	if !ok || !parent.Valid || parent.String == "" {
		return "", false, nil
	}
	return parent.String, true, nil
}

func (v *view) ChildrenOf(parentID string) ([]domain.CageInfo, error) {
	var children []domain.CageInfo
	if err := v.selectAll(&children, holdingInfoSelect+` WHERE h.parent_cage_id = ? ORDER BY h.cage_id`, parentID); err != nil {
		return nil, errors.Wrapf(err, "children of %s", parentID)
	}
	for i := range children {
		children[i].Type = domain.CageTypeHolding
	}
	return children, nil
}

func (v *view) LineageEdges() ([]domain.LineageEdge, error) {
	var edges []domain.LineageEdge
	err := v.selectAll(&edges, `SELECT cage_id, parent_cage_id FROM holding
WHERE parent_cage_id IS NOT NULL AND parent_cage_id <> ''
ORDER BY parent_cage_id, cage_id`)
	if err != nil {
		return nil, errors.Wrap(err, "lineage edges")
	}
	return edges, nil
}

func (v *view) AssignedUsers(id string) ([]string, error) {
	var users []string
	if err := v.selectAll(&users, `SELECT user_id FROM cage_users WHERE cage_id = ? AND user_id <> '' ORDER BY user_id`, id); err != nil {
		return nil, errors.Wrapf(err, "assigned users of %s", id)
	}
	return users, nil
}

func (v *view) ListDependents(c domain.Collection, cageID string) ([]domain.DependentRecord, error) {
	if !c.IsDependent() {
		return nil, fmt.Errorf("collection %q is not a dependent collection", c)
	}
	var rows []domain.DependentRecord
	query := fmt.Sprintf(`SELECT id, cage_id, %s AS ref FROM %s WHERE cage_id = ? ORDER BY id`, c.RefColumn(), c)
	if err := v.selectAll(&rows, query, cageID); err != nil {
		return nil, errors.Wrapf(err, "list %s of %s", c, cageID)
	}
	for i := range rows {
		rows[i].Kind = c
	}
	return rows, nil
}

func (v *view) Count(c domain.Collection) (int, error) {
	table, err := tableFor(c)
	if err != nil {
		return 0, err
	}
	var n int
	if _, err := v.get(&n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)); err != nil {
		return 0, errors.Wrapf(err, "count %s", table)
	}
	return n, nil
}

type transaction struct {
	view
	now time.Time
}

func (tx *transaction) exec(query string, args ...any) (sql.Result, error) {
	return tx.q.ExecContext(tx.ctx, tx.q.Rebind(query), args...)
}

func (tx *transaction) named(query string, arg any) error {
	_, err := sqlx.NamedExecContext(tx.ctx, tx.q, query, arg)
	return err
}

func (tx *transaction) CreateStrain(s domain.Strain) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: strain id required", domain.ErrValidation)
	}
	if err := tx.named(`INSERT INTO strains (id, name) VALUES (:id, :name)`, s); err != nil {
		return errors.Wrapf(err, "insert strain %s", s.ID)
	}
	return nil
}

func (tx *transaction) insertCage(c domain.Cage) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now
	}
	err := tx.named(`INSERT INTO cages (cage_id, status, pi_id, room, rack, remarks, created_at)
VALUES (:cage_id, :status, :pi_id, :room, :rack, :remarks, :created_at)`, c)
	if err != nil {
		return errors.Wrapf(err, "insert cage %s", c.CageID)
	}
	return nil
}

func (tx *transaction) CreateHoldingCage(h domain.HoldingCage) error {
	if err := h.Normalize(); err != nil {
		return err
	}
	if err := tx.insertCage(h.Cage); err != nil {
		return err
	}
	err := tx.named(`INSERT INTO holding (cage_id, strain_id, sex, dob, quantity, parent_cage_id)
VALUES (:cage_id, :strain_id, :sex, :dob, :quantity, :parent_cage_id)`, h.Holding)
	if err != nil {
		return errors.Wrapf(err, "insert holding %s", h.Cage.CageID)
	}
	return nil
}

func (tx *transaction) CreateBreedingCage(b domain.BreedingCage) error {
	if err := b.Normalize(); err != nil {
		return err
	}
	if err := tx.insertCage(b.Cage); err != nil {
		return err
	}
	err := tx.named(`INSERT INTO breeding (cage_id, cross_name, male_id, female_id, male_dob, female_dob)
VALUES (:cage_id, :cross_name, :male_id, :female_id, :male_dob, :female_dob)`, b.Breeding)
	if err != nil {
		return errors.Wrapf(err, "insert breeding %s", b.Cage.CageID)
	}
	return nil
}

func (tx *transaction) AddDependent(rec domain.DependentRecord) error {
	if err := rec.Normalize(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, cage_id, %s) VALUES (?, ?, ?)`, rec.Kind, rec.Kind.RefColumn())
	if _, err := tx.exec(query, rec.ID, rec.CageID, rec.Ref); err != nil {
		return errors.Wrapf(err, "insert %s row for %s", rec.Kind, rec.CageID)
	}
	return nil
}

func (tx *transaction) SetCageStatus(id string, status domain.CageStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown cage status %q", domain.ErrValidation, status)
	}
	res, err := tx.exec(`UPDATE cages SET status = ? WHERE cage_id = ?`, string(status), id)
	if err != nil {
		return false, errors.Wrapf(err, "update status of %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

func (tx *transaction) DeleteByKey(c domain.Collection, keyField, value string) (int64, error) {
	if keyField != domain.CageKeyField {
		return 0, fmt.Errorf("unsupported key field %q for %s", keyField, c)
	}
	if !c.Deletable() {
		return 0, fmt.Errorf("collection %q cannot be deleted by cage", c)
	}
	res, err := tx.exec(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, c, keyField), value)
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", c)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

func (tx *transaction) AppendActivity(entry domain.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = tx.now
	}
	err := tx.named(`INSERT INTO activity_log (id, user_id, action, entity_type, entity_id, details, created_at)
VALUES (:id, :user_id, :action, :entity_type, :entity_id, :details, :created_at)`, entry)
	if err != nil {
		return errors.Wrap(err, "append activity")
	}
	return nil
}
