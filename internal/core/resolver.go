package core

import (
	"cagecore/pkg/domain"
	"context"
)

// resolveType tests holding membership before breeding. A cage present in
// neither collection is Unknown; only storage failures return an error.
func resolveType(v domain.CageView, cageID string) (domain.CageType, error) {
	if cageID == "" {
		return domain.CageTypeUnknown, nil
	}
	ok, err := v.HoldingExists(cageID)
	if err != nil {
		return domain.CageTypeUnknown, err
	}
	if ok {
		return domain.CageTypeHolding, nil
	}
	ok, err = v.BreedingExists(cageID)
	if err != nil {
		return domain.CageTypeUnknown, err
	}
	if ok {
		return domain.CageTypeBreeding, nil
	}
	return domain.CageTypeUnknown, nil
}

// ResolveType reports whether cageID is a holding or breeding cage.
func (s *Service) ResolveType(ctx context.Context, cageID string) (domain.CageType, error) {
	const op = "resolve_type"
	cageType := domain.CageTypeUnknown
	err := s.observe(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.CageView) error {
			var err error
			cageType, err = resolveType(v, cageID)
			return err
		})
	})
	if err != nil {
		return domain.CageTypeUnknown, s.storageFailure(op, cageID, err)
	}
	return cageType, nil
}
