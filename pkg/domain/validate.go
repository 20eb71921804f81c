package domain

import (
	"fmt"
	"strings"
)

func normalizeCage(c *Cage) error {
	c.CageID = strings.TrimSpace(c.CageID)
	if c.CageID == "" {
		return fmt.Errorf("%w: cage id required", ErrValidation)
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown cage status %q", ErrValidation, c.Status)
	}
	return nil
}

// Normalize trims identifiers, applies defaults and checks the holding cage
// is internally consistent.
func (h *HoldingCage) Normalize() error {
	if err := normalizeCage(&h.Cage); err != nil {
		return err
	}
	if h.Holding.CageID == "" {
		h.Holding.CageID = h.Cage.CageID
	}
	if h.Holding.CageID != h.Cage.CageID {
		return fmt.Errorf("%w: holding record %q does not match cage %q", ErrValidation, h.Holding.CageID, h.Cage.CageID)
	}
	if h.Holding.ParentCageID != nil {
		parent := strings.TrimSpace(*h.Holding.ParentCageID)
		if parent == "" {
			h.Holding.ParentCageID = nil
		} else {
			h.Holding.ParentCageID = &parent
		}
	}
	if h.Holding.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	return nil
}

// Normalize trims identifiers, applies defaults and checks the breeding cage
// is internally consistent.
func (b *BreedingCage) Normalize() error {
	if err := normalizeCage(&b.Cage); err != nil {
		return err
	}
	if b.Breeding.CageID == "" {
		b.Breeding.CageID = b.Cage.CageID
	}
	if b.Breeding.CageID != b.Cage.CageID {
		return fmt.Errorf("%w: breeding record %q does not match cage %q", ErrValidation, b.Breeding.CageID, b.Cage.CageID)
	}
	return nil
}

// Normalize checks a dependent row before it is stored.
func (d *DependentRecord) Normalize() error {
	d.CageID = strings.TrimSpace(d.CageID)
	if d.CageID == "" {
		return fmt.Errorf("%w: dependent record requires cage id", ErrValidation)
	}
	if !d.Kind.IsDependent() {
		return fmt.Errorf("%w: %q is not a dependent collection", ErrValidation, d.Kind)
	}
	return nil
}
