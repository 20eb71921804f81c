// Package domain defines the cage records, lineage value types, error taxonomy
// and persistence contracts used by cagecore.
package domain

import "time"

// CageStatus is the persisted lifecycle status of a cage. A deleted cage has no
// status because its row no longer exists.
type CageStatus string

// Persisted cage statuses.
const (
	StatusActive   CageStatus = "active"
	StatusArchived CageStatus = "archived"
)

// Valid reports whether s is one of the persisted statuses.
func (s CageStatus) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Cage is the top-level record shared by holding and breeding cages.
type Cage struct {
	CageID    string     `json:"cage_id" db:"cage_id"`
	Status    CageStatus `json:"status" db:"status"`
	PIID      string     `json:"pi_id" db:"pi_id"`
	Room      string     `json:"room" db:"room"`
	Rack      string     `json:"rack" db:"rack"`
	Remarks   string     `json:"remarks" db:"remarks"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// HoldingRecord extends a cage that houses mice of one strain. ParentCageID is
// an unverified pointer to another cage and forms the lineage edge child→parent.
type HoldingRecord struct {
	CageID       string  `json:"cage_id" db:"cage_id"`
	StrainID     string  `json:"strain_id" db:"strain_id"`
	Sex          string  `json:"sex" db:"sex"`
	DOB          string  `json:"dob" db:"dob"`
	Quantity     int     `json:"quantity" db:"quantity"`
	ParentCageID *string `json:"parent_cage_id,omitempty" db:"parent_cage_id"`
}

// BreedingRecord extends a cage configured for a breeding cross. Breeding cages
// never store a parent.
type BreedingRecord struct {
	CageID    string `json:"cage_id" db:"cage_id"`
	Cross     string `json:"cross" db:"cross_name"`
	MaleID    string `json:"male_id" db:"male_id"`
	FemaleID  string `json:"female_id" db:"female_id"`
	MaleDOB   string `json:"male_dob" db:"male_dob"`
	FemaleDOB string `json:"female_dob" db:"female_dob"`
}

// Strain names the genetic strain referenced by holding records.
type Strain struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// HoldingCage bundles the rows created together for a new holding cage.
type HoldingCage struct {
	Cage    Cage          `json:"cage"`
	Holding HoldingRecord `json:"holding"`
}

// BreedingCage bundles the rows created together for a new breeding cage.
type BreedingCage struct {
	Cage     Cage           `json:"cage"`
	Breeding BreedingRecord `json:"breeding"`
}

// DependentRecord is a row owned by another subsystem but keyed by cage id, so
// it is removed together with its cage. Ref carries the collection specific
// reference (mouse id, file path, task title, ...).
type DependentRecord struct {
	ID     string     `json:"id" db:"id"`
	CageID string     `json:"cage_id" db:"cage_id"`
	Kind   Collection `json:"kind" db:"-"`
	Ref    string     `json:"ref" db:"ref"`
}

// ActivityEntry records who changed what, mirroring the colony activity log.
type ActivityEntry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	Details    string    `json:"details" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
