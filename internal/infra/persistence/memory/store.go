// Package memory provides an in-memory implementation of the cage persistence
// store used for tests and ephemeral environments.
package memory

import (
	"cagecore/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Cage aliases domain.Cage for in-memory persistence operations.
	Cage = domain.Cage
	// HoldingRecord aliases domain.HoldingRecord.
	HoldingRecord = domain.HoldingRecord
	// BreedingRecord aliases domain.BreedingRecord.
	BreedingRecord = domain.BreedingRecord
	// Strain aliases domain.Strain.
	Strain = domain.Strain
	// DependentRecord aliases domain.DependentRecord.
	DependentRecord = domain.DependentRecord
	// ActivityEntry aliases domain.ActivityEntry.
	ActivityEntry = domain.ActivityEntry
	// Collection aliases domain.Collection.
	Collection = domain.Collection
)

type memoryState struct {
	cages      map[string]Cage
	holding    map[string]HoldingRecord
	breeding   map[string]BreedingRecord
	strains    map[string]Strain
	dependents map[Collection]map[string]DependentRecord
	activity   []ActivityEntry
}

func newMemoryState() memoryState {
	state := memoryState{
		cages:      make(map[string]Cage),
		holding:    make(map[string]HoldingRecord),
		breeding:   make(map[string]BreedingRecord),
		strains:    make(map[string]Strain),
		dependents: make(map[Collection]map[string]DependentRecord),
	}
	for _, c := range domain.DependentCollections() {
		state.dependents[c] = make(map[string]DependentRecord)
	}
	return state
}

func cloneHolding(h HoldingRecord) HoldingRecord {
	if h.ParentCageID != nil {
		parent := *h.ParentCageID
		h.ParentCageID = &parent
	}
	return h
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	for k, v := range s.cages {
		out.cages[k] = v
	}
	for k, v := range s.holding {
		out.holding[k] = cloneHolding(v)
	}
	for k, v := range s.breeding {
		out.breeding[k] = v
	}
	for k, v := range s.strains {
		out.strains[k] = v
	}
	for c, rows := range s.dependents {
		dst := out.dependents[c]
		if dst == nil {
			dst = make(map[string]DependentRecord, len(rows))
			out.dependents[c] = dst
		}
		for k, v := range rows {
			dst[k] = v
		}
	}
	out.activity = append([]ActivityEntry(nil), s.activity...)
	return out
}

// Store provides an in-memory transactional store for cage records.
type Store struct {
	mu          sync.RWMutex
	state       memoryState
	nowFn       func() time.Time
	failDeletes map[Collection]error
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// FailDeletesOn makes every delete against collection c fail with err until
// cleared with a nil err. It lets tests exercise transaction rollback.
func (s *Store) FailDeletesOn(c Collection, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failDeletes, c)
		return
	}
	if s.failDeletes == nil {
		s.failDeletes = make(map[Collection]error)
	}
	s.failDeletes[c] = err
}

// Close implements domain.PersistentStore; the memory store holds no resources.
func (s *Store) Close() error { return nil }

// RunInTransaction executes fn against a transactional copy of the store state
// and swaps it in only when fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{
		view:        view{state: s.state.clone()},
		now:         s.nowFn(),
		failDeletes: s.failDeletes,
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against the live state under a read lock.
func (s *Store) View(ctx context.Context, fn func(domain.CageView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&view{state: s.state})
}

type view struct {
	state memoryState
}

func (v *view) FindCage(id string) (Cage, bool, error) {
	c, ok := v.state.cages[id]
	return c, ok, nil
}

func (v *view) HoldingExists(id string) (bool, error) {
	_, ok := v.state.holding[id]
	return ok, nil
}

func (v *view) BreedingExists(id string) (bool, error) {
	_, ok := v.state.breeding[id]
	return ok, nil
}

func (v *view) holdingInfo(h HoldingRecord) domain.CageInfo {
	info := domain.CageInfo{
		CageID:       h.CageID,
		Type:         domain.CageTypeHolding,
		ParentCageID: cloneHolding(h).ParentCageID,
	}
	if strain, ok := v.state.strains[h.StrainID]; ok {
		info.Label = strain.Name
	}
	if cage, ok := v.state.cages[h.CageID]; ok {
		info.Status = cage.Status
	}
	return info
}

func (v *view) HoldingInfo(id string) (domain.CageInfo, bool, error) {
	h, ok := v.state.holding[id]
	if !ok {
		return domain.CageInfo{}, false, nil
	}
	return v.holdingInfo(h), true, nil
}

func (v *view) BreedingInfo(id string) (domain.CageInfo, bool, error) {
	b, ok := v.state.breeding[id]
	if !ok {
		return domain.CageInfo{}, false, nil
	}
	info := domain.CageInfo{CageID: b.CageID, Type: domain.CageTypeBreeding, Label: b.Cross}
	if cage, ok := v.state.cages[b.CageID]; ok {
		info.Status = cage.Status
	}
	return info, true, nil
}

func (v *view) ParentOf(id string) (string, bool, error) {
	h, ok := v.state.holding[id]
	if !ok || h.ParentCageID == nil || *h.ParentCageID == "" {
		return "", false, nil
	}
	return *h.ParentCageID, true, nil
}

func (v *view) ChildrenOf(parentID string) ([]domain.CageInfo, error) {
	var out []domain.CageInfo
	for _, h := range v.state.holding {
		if h.ParentCageID != nil && *h.ParentCageID == parentID {
			out = append(out, v.holdingInfo(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CageID < out[j].CageID })
	return out, nil
}

func (v *view) LineageEdges() ([]domain.LineageEdge, error) {
	var out []domain.LineageEdge
	for _, h := range v.state.holding {
		if h.ParentCageID == nil || *h.ParentCageID == "" {
			continue
		}
		out = append(out, domain.LineageEdge{ChildID: h.CageID, ParentID: *h.ParentCageID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParentID != out[j].ParentID {
			return out[i].ParentID < out[j].ParentID
		}
		return out[i].ChildID < out[j].ChildID
	})
	return out, nil
}

func (v *view) AssignedUsers(id string) ([]string, error) {
	var users []string
	for _, link := range v.state.dependents[domain.CollectionUserLinks] {
		if link.CageID == id && link.Ref != "" {
			users = append(users, link.Ref)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (v *view) ListDependents(c Collection, cageID string) ([]DependentRecord, error) {
	if !c.IsDependent() {
		return nil, fmt.Errorf("collection %q is not a dependent collection", c)
	}
	var out []DependentRecord
	for _, rec := range v.state.dependents[c] {
		if rec.CageID == cageID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) Count(c Collection) (int, error) {
	switch c {
	case domain.CollectionCages:
		return len(v.state.cages), nil
	case domain.CollectionHolding:
		return len(v.state.holding), nil
	case domain.CollectionBreeding:
		return len(v.state.breeding), nil
	case domain.CollectionStrains:
		return len(v.state.strains), nil
	case domain.CollectionActivityLog:
		return len(v.state.activity), nil
	default:
		if !c.IsDependent() {
			return 0, fmt.Errorf("unknown collection %q", c)
		}
		return len(v.state.dependents[c]), nil
	}
}

type transaction struct {
	view
	now         time.Time
	failDeletes map[Collection]error
}

func (tx *transaction) CreateStrain(s Strain) error {
	if s.ID == "" {
		return fmt.Errorf("%w: strain id required", domain.ErrValidation)
	}
	if _, exists := tx.state.strains[s.ID]; exists {
		return fmt.Errorf("strain %q already exists", s.ID)
	}
	tx.state.strains[s.ID] = s
	return nil
}

func (tx *transaction) createCage(c Cage) error {
	if _, exists := tx.state.cages[c.CageID]; exists {
		return fmt.Errorf("cage %q already exists", c.CageID)
	}
	if _, exists := tx.state.holding[c.CageID]; exists {
		return fmt.Errorf("cage %q already has a holding record", c.CageID)
	}
	if _, exists := tx.state.breeding[c.CageID]; exists {
		return fmt.Errorf("cage %q already has a breeding record", c.CageID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now
	}
	tx.state.cages[c.CageID] = c
	return nil
}

func (tx *transaction) CreateHoldingCage(h domain.HoldingCage) error {
	if err := h.Normalize(); err != nil {
		return err
	}
	if err := tx.createCage(h.Cage); err != nil {
		return err
	}
	tx.state.holding[h.Cage.CageID] = cloneHolding(h.Holding)
	return nil
}

func (tx *transaction) CreateBreedingCage(b domain.BreedingCage) error {
	if err := b.Normalize(); err != nil {
		return err
	}
	if err := tx.createCage(b.Cage); err != nil {
		return err
	}
	tx.state.breeding[b.Cage.CageID] = b.Breeding
	return nil
}

func (tx *transaction) AddDependent(rec DependentRecord) error {
	if err := rec.Normalize(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rows := tx.state.dependents[rec.Kind]
	if rows == nil {
		rows = make(map[string]DependentRecord)
		tx.state.dependents[rec.Kind] = rows
	}
	if _, exists := rows[rec.ID]; exists {
		return fmt.Errorf("%s row %q already exists", rec.Kind, rec.ID)
	}
	rows[rec.ID] = rec
	return nil
}

func (tx *transaction) SetCageStatus(id string, status domain.CageStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown cage status %q", domain.ErrValidation, status)
	}
	cage, ok := tx.state.cages[id]
	if !ok {
		return false, nil
	}
	cage.Status = status
	tx.state.cages[id] = cage
	return true, nil
}

func (tx *transaction) DeleteByKey(c Collection, keyField, value string) (int64, error) {
	if keyField != domain.CageKeyField {
		return 0, fmt.Errorf("unsupported key field %q for %s", keyField, c)
	}
	if err, ok := tx.failDeletes[c]; ok {
		return 0, fmt.Errorf("delete from %s: %w", c, err)
	}
	switch c {
	case domain.CollectionCages:
		return deleteKey(tx.state.cages, value), nil
	case domain.CollectionHolding:
		return deleteKey(tx.state.holding, value), nil
	case domain.CollectionBreeding:
		return deleteKey(tx.state.breeding, value), nil
	}
	if !c.IsDependent() {
		return 0, fmt.Errorf("collection %q cannot be deleted by cage", c)
	}
	var removed int64
	for id, rec := range tx.state.dependents[c] {
		if rec.CageID == value {
			delete(tx.state.dependents[c], id)
			removed++
		}
	}
	return removed, nil
}

func deleteKey[V any](m map[string]V, key string) int64 {
	if _, ok := m[key]; !ok {
		return 0
	}
	delete(m, key)
	return 1
}

func (tx *transaction) AppendActivity(entry ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = tx.now
	}
	tx.state.activity = append(tx.state.activity, entry)
	return nil
}
