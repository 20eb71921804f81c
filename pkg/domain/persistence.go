package domain

import "context"

// CageView provides read access to the cage collections. Reads return an error
// only for storage failures; absence is reported through the boolean results.
type CageView interface {
	FindCage(id string) (Cage, bool, error)
	HoldingExists(id string) (bool, error)
	BreedingExists(id string) (bool, error)
	HoldingInfo(id string) (CageInfo, bool, error)
	BreedingInfo(id string) (CageInfo, bool, error)
	ParentOf(id string) (string, bool, error)
	ChildrenOf(parentID string) ([]CageInfo, error)
	LineageEdges() ([]LineageEdge, error)
	AssignedUsers(id string) ([]string, error)
	ListDependents(c Collection, cageID string) ([]DependentRecord, error)
	Count(c Collection) (int, error)
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. All statements issued through one Transaction commit
// or roll back together.
type Transaction interface {
	CageView
	CreateStrain(Strain) error
	CreateHoldingCage(HoldingCage) error
	CreateBreedingCage(BreedingCage) error
	AddDependent(DependentRecord) error
	SetCageStatus(id string, status CageStatus) (bool, error)
	DeleteByKey(c Collection, keyField, value string) (int64, error)
	AppendActivity(ActivityEntry) error
}

// PersistentStore is the abstraction over durable and in-memory backends.
// View reads are not wrapped in a transaction and may observe concurrent
// commits between calls.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(CageView) error) error
	Close() error
}
