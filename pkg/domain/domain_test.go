package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestActorCanModify(t *testing.T) {
	cases := []struct {
		name     string
		actor    Actor
		assigned []string
		want     bool
	}{
		{"admin unassigned", Actor{ID: "a", Role: RoleAdmin}, nil, true},
		{"assigned user", Actor{ID: "u1", Role: RoleUser}, []string{"u0", "u1"}, true},
		{"unassigned user", Actor{ID: "u2", Role: RoleUser}, []string{"u1"}, false},
		{"anonymous user", Actor{Role: RoleUser}, []string{""}, false},
	}
	for _, tc := range cases {
		if got := tc.actor.CanModify(tc.assigned); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
	if Role("owner").Valid() {
		t.Fatalf("unexpected role accepted")
	}
}

func TestOperationError(t *testing.T) {
	err := NewOperationError("delete", "H-1", ErrPersistence, "the operation could not be completed")
	if err.Error() != "delete H-1: the operation could not be completed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrPersistence) || errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected kind matching")
	}
	bare := &OperationError{Op: "forest", Kind: ErrNotFound}
	if bare.Error() != "forest: cage not found" {
		t.Fatalf("unexpected message %q", bare.Error())
	}
	if !Classified(fmt.Errorf("wrapped: %w", ErrUnauthorized)) || Classified(errors.New("disk")) {
		t.Fatalf("unexpected classification")
	}
}

func TestHoldingCageNormalize(t *testing.T) {
	blank := "  "
	h := HoldingCage{Cage: Cage{CageID: " H-1 "}, Holding: HoldingRecord{ParentCageID: &blank}}
	if err := h.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if h.Cage.CageID != "H-1" || h.Holding.CageID != "H-1" || h.Cage.Status != StatusActive || h.Holding.ParentCageID != nil {
		t.Fatalf("unexpected normalized cage %+v", h)
	}

	bad := []HoldingCage{
		{},
		{Cage: Cage{CageID: "H-1", Status: "frozen"}},
		{Cage: Cage{CageID: "H-1"}, Holding: HoldingRecord{CageID: "H-2"}},
		{Cage: Cage{CageID: "H-1"}, Holding: HoldingRecord{Quantity: -1}},
	}
	for i, c := range bad {
		if err := c.Normalize(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	b := BreedingCage{Cage: Cage{CageID: "B-1"}, Breeding: BreedingRecord{CageID: "B-2"}}
	if err := b.Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected mismatched breeding record to fail, got %v", err)
	}
}

func TestCollections(t *testing.T) {
	deps := DependentCollections()
	if len(deps) != 9 || deps[0] != CollectionMice || deps[8] != CollectionReminders {
		t.Fatalf("unexpected cascade order %v", deps)
	}
	for _, c := range deps {
		if !c.IsDependent() || c.RefColumn() == "" || !c.Deletable() {
			t.Fatalf("%s should be a deletable dependent", c)
		}
	}
	if CollectionActivityLog.Deletable() || CollectionStrains.Deletable() {
		t.Fatalf("activity log and strains are never cascaded")
	}
	if !CollectionCages.Deletable() || CollectionCages.RefColumn() != "" {
		t.Fatalf("cages row is deletable and has no ref column")
	}
	rec := DependentRecord{CageID: "H-1", Kind: CollectionCages}
	if err := rec.Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected non-dependent kind to fail, got %v", err)
	}
}

func TestTypesAndDirections(t *testing.T) {
	if CageTypeHolding.Short() != "HC" || CageTypeBreeding.Short() != "BC" || CageTypeUnknown.Short() != "Unknown" {
		t.Fatalf("unexpected short names")
	}
	p := PlaceholderInfo("GONE")
	if !p.Placeholder || p.Type != CageTypeUnknown || p.Label != "" || p.Status != "" {
		t.Fatalf("unexpected placeholder %+v", p)
	}
	for _, d := range []LineageDirection{DirectionBoth, DirectionUp, DirectionDown} {
		if !d.Valid() {
			t.Fatalf("%s should be valid", d)
		}
	}
	if LineageDirection("left").Valid() {
		t.Fatalf("unexpected direction accepted")
	}
}
