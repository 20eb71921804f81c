package core

import (
	"cagecore/pkg/domain"
	"context"
)

// lookupInfo builds the display record of a cage, trying the holding
// collection first. Breeding cages never carry a parent.
func lookupInfo(v domain.CageView, cageID string) (domain.CageInfo, bool, error) {
	if cageID == "" {
		return domain.CageInfo{}, false, nil
	}
	info, ok, err := v.HoldingInfo(cageID)
	if err != nil || ok {
		return info, ok, err
	}
	info, ok, err = v.BreedingInfo(cageID)
	if err != nil || !ok {
		return domain.CageInfo{}, false, err
	}
	info.ParentCageID = nil
	return info, true, nil
}

// GetInfo returns the normalized info of a cage, or an ErrNotFound operation
// error when the id is in neither typed collection.
func (s *Service) GetInfo(ctx context.Context, cageID string) (domain.CageInfo, error) {
	const op = "get_info"
	var (
		info  domain.CageInfo
		found bool
	)
	err := s.observe(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(v domain.CageView) error {
			var err error
			info, found, err = lookupInfo(v, cageID)
			return err
		})
	})
	if err != nil {
		return domain.CageInfo{}, s.storageFailure(op, cageID, err)
	}
	if !found {
		return domain.CageInfo{}, domain.NewOperationError(op, cageID, domain.ErrNotFound, "cage not found")
	}
	return info, nil
}
