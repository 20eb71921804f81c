package core

import (
	"cagecore/internal/infra/persistence/memory"
	"cagecore/internal/infra/persistence/sqlite"
	"cagecore/pkg/domain"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var (
	adminActor = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	ownerActor = domain.Actor{ID: "u-owner", Role: domain.RoleUser}
	otherActor = domain.Actor{ID: "u-other", Role: domain.RoleUser}
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func ptr(s string) *string { return &s }

type holdingSeed struct {
	id     string
	parent string
	status domain.CageStatus
	users  []string
}

// seed writes a strain, the given holding cages and breeding cages in one
// transaction. Every cage gets one row in each dependent collection.
func seed(t *testing.T, store domain.PersistentStore, holdings []holdingSeed, breedings ...string) {
	t.Helper()
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.CreateStrain(domain.Strain{ID: "s1", Name: "C57BL/6"}); err != nil {
			return err
		}
		for _, h := range holdings {
			cage := domain.HoldingCage{
				Cage:    domain.Cage{CageID: h.id, Status: h.status, PIID: "pi-1"},
				Holding: domain.HoldingRecord{StrainID: "s1", Sex: "female", Quantity: 3},
			}
			if h.parent != "" {
				cage.Holding.ParentCageID = ptr(h.parent)
			}
			if err := tx.CreateHoldingCage(cage); err != nil {
				return err
			}
			if err := addDependents(tx, h.id, h.users); err != nil {
				return err
			}
		}
		for _, id := range breedings {
			cage := domain.BreedingCage{
				Cage:     domain.Cage{CageID: id, PIID: "pi-1"},
				Breeding: domain.BreedingRecord{Cross: "Cross " + id, MaleID: "m-" + id, FemaleID: "f-" + id},
			}
			if err := tx.CreateBreedingCage(cage); err != nil {
				return err
			}
			if err := addDependents(tx, id, []string{ownerActor.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func addDependents(tx domain.Transaction, cageID string, users []string) error {
	refs := map[domain.Collection]string{
		domain.CollectionMice:        "M-" + cageID,
		domain.CollectionLitters:     "2024-01-01",
		domain.CollectionFiles:       "uploads/" + cageID + "/card.pdf",
		domain.CollectionNotes:       "note for " + cageID,
		domain.CollectionIacucLinks:  "IACUC-1",
		domain.CollectionTasks:       "weigh " + cageID,
		domain.CollectionMaintenance: "bedding changed",
		domain.CollectionReminders:   "check " + cageID,
	}
	for c, ref := range refs {
		if err := tx.AddDependent(domain.DependentRecord{CageID: cageID, Kind: c, Ref: ref}); err != nil {
			return err
		}
	}
	for _, u := range users {
		if err := tx.AddDependent(domain.DependentRecord{CageID: cageID, Kind: domain.CollectionUserLinks, Ref: u}); err != nil {
			return err
		}
	}
	return nil
}

func newMemoryService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store, opts...), store
}

func newSQLiteService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "cages.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	svc := NewService(store, opts...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// backends runs fn against the memory and sqlite stores.
func backends(t *testing.T, fn func(t *testing.T, svc *Service)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		fn(t, svc)
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteService(t))
	})
}

func counts(t *testing.T, store domain.PersistentStore) map[domain.Collection]int {
	t.Helper()
	all := append([]domain.Collection{domain.CollectionCages, domain.CollectionHolding, domain.CollectionBreeding}, domain.DependentCollections()...)
	out := make(map[domain.Collection]int, len(all))
	err := store.View(context.Background(), func(v domain.CageView) error {
		for _, c := range all {
			n, err := v.Count(c)
			if err != nil {
				return err
			}
			out[c] = n
		}
		return nil
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return out
}

func ids(infos []domain.CageInfo) []string {
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.CageID)
	}
	return out
}

// activityLog wraps a store and keeps the activity entries of committed
// transactions.
type activityLog struct {
	domain.PersistentStore
	mu      sync.Mutex
	entries []domain.ActivityEntry
}

func (l *activityLog) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	var pending []domain.ActivityEntry
	err := l.PersistentStore.RunInTransaction(ctx, func(tx domain.Transaction) error {
		pending = pending[:0]
		return fn(activityTx{Transaction: tx, pending: &pending})
	})
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.entries = append(l.entries, pending...)
	l.mu.Unlock()
	return nil
}

func (l *activityLog) committed() []domain.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ActivityEntry(nil), l.entries...)
}

type activityTx struct {
	domain.Transaction
	pending *[]domain.ActivityEntry
}

func (tx activityTx) AppendActivity(e domain.ActivityEntry) error {
	if err := tx.Transaction.AppendActivity(e); err != nil {
		return err
	}
	*tx.pending = append(*tx.pending, e)
	return nil
}
