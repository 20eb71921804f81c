package core

import (
	"cagecore/pkg/domain"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is a lifecycle transition a caller may request.
type Action string

// Lifecycle actions.
const (
	ActionArchive Action = "archive"
	ActionRestore Action = "restore"
	ActionDelete  Action = "delete"
)

// Transition describes the effect of an action. Terminal transitions remove
// the cage instead of writing a status.
type Transition struct {
	Action   Action
	Target   domain.CageStatus
	Terminal bool
}

// transitions is keyed by action, then by the current status. Archive and
// restore accept their own target so repeating them is a no-op write.
var transitions = map[Action]map[domain.CageStatus]Transition{
	ActionArchive: {
		domain.StatusActive:   {Action: ActionArchive, Target: domain.StatusArchived},
		domain.StatusArchived: {Action: ActionArchive, Target: domain.StatusArchived},
	},
	ActionRestore: {
		domain.StatusArchived: {Action: ActionRestore, Target: domain.StatusActive},
		domain.StatusActive:   {Action: ActionRestore, Target: domain.StatusActive},
	},
	ActionDelete: {
		domain.StatusActive:   {Action: ActionDelete, Terminal: true},
		domain.StatusArchived: {Action: ActionDelete, Terminal: true},
	},
}

// TransitionFor looks up the transition of action from status.
func TransitionFor(from domain.CageStatus, action Action) (Transition, bool) {
	byStatus, ok := transitions[action]
	if !ok {
		return Transition{}, false
	}
	t, ok := byStatus[from]
	return t, ok
}

// TransitionRequest carries everything a lifecycle operation needs. Confirmed
// must be set explicitly by the caller after the user confirmed the action.
type TransitionRequest struct {
	CageID    string
	Actor     domain.Actor
	Confirmed bool
}

// TransitionResult reports what a committed transition did. To is empty for a
// permanent delete.
type TransitionResult struct {
	CageID      string                      `json:"cage_id"`
	Action      Action                      `json:"action"`
	From        domain.CageStatus           `json:"from"`
	To          domain.CageStatus           `json:"to,omitempty"`
	Deleted     map[domain.Collection]int64 `json:"deleted,omitempty"`
	PurgedFiles int                         `json:"purged_files,omitempty"`
}

// Archive hides a cage from active listings. Archiving an archived cage
// succeeds without change.
func (s *Service) Archive(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	return s.transition(ctx, ActionArchive, req)
}

// Restore returns an archived cage to active. Restoring an active cage
// succeeds without change.
func (s *Service) Restore(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	return s.transition(ctx, ActionRestore, req)
}

// PermanentDelete removes the cage, its typed record and every dependent row
// in one transaction, then purges the cage's stored files.
func (s *Service) PermanentDelete(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	return s.transition(ctx, ActionDelete, req)
}

func validateRequest(op string, req TransitionRequest) error {
	if strings.TrimSpace(req.CageID) == "" {
		return domain.NewOperationError(op, "", domain.ErrValidation, "cage id is required")
	}
	if !req.Confirmed {
		return domain.NewOperationError(op, req.CageID, domain.ErrValidation, "confirmation is required")
	}
	if req.Actor.ID == "" || !req.Actor.Role.Valid() {
		return domain.NewOperationError(op, req.CageID, domain.ErrValidation, "a known actor is required")
	}
	return nil
}

func (s *Service) transition(ctx context.Context, action Action, req TransitionRequest) (TransitionResult, error) {
	op := string(action)
	start := s.clock.Now()
	req.CageID = strings.TrimSpace(req.CageID)
	result := TransitionResult{CageID: req.CageID, Action: action}
	var files []domain.DependentRecord

	err := s.observe(ctx, op, func(ctx context.Context) error {
		if err := validateRequest(op, req); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			cage, found, err := tx.FindCage(req.CageID)
			if err != nil {
				return fmt.Errorf("find cage: %w", err)
			}
			if !found {
				return domain.NewOperationError(op, req.CageID, domain.ErrNotFound, "cage not found")
			}
			assigned, err := tx.AssignedUsers(req.CageID)
			if err != nil {
				return fmt.Errorf("assigned users: %w", err)
			}
			if !req.Actor.CanModify(assigned) {
				return domain.NewOperationError(op, req.CageID, domain.ErrUnauthorized, "you do not have permission to modify this cage")
			}
			next, ok := TransitionFor(cage.Status, action)
			if !ok {
				return domain.NewOperationError(op, req.CageID, domain.ErrValidation, fmt.Sprintf("cannot %s a cage in status %q", action, cage.Status))
			}
			result.From = cage.Status
			if next.Terminal {
				if files, err = tx.ListDependents(domain.CollectionFiles, req.CageID); err != nil {
					return fmt.Errorf("list files: %w", err)
				}
				cageType, err := resolveType(tx, req.CageID)
				if err != nil {
					return fmt.Errorf("resolve type: %w", err)
				}
				if result.Deleted, err = runCascade(tx, req.CageID, cascadeManifest(cageType)); err != nil {
					return err
				}
			} else {
				if _, err := tx.SetCageStatus(req.CageID, next.Target); err != nil {
					return fmt.Errorf("set status: %w", err)
				}
				result.To = next.Target
			}
			return tx.AppendActivity(domain.ActivityEntry{
				ID:         uuid.NewString(),
				UserID:     req.Actor.ID,
				Action:     op,
				EntityType: "cage",
				EntityID:   req.CageID,
				Details:    activityDetails(action, result),
				CreatedAt:  s.clock.Now(),
			})
		})
	})
	err = s.classify(op, req.CageID, err)
	s.recordAudit(ctx, op, req, start, err)
	if err != nil {
		return TransitionResult{}, err
	}
	s.logger.Info("cage transition committed", "op", op, "cage_id", req.CageID, "actor", req.Actor.ID, "from", string(result.From), "to", string(result.To))
	if action == ActionDelete {
		result.PurgedFiles = s.purgeFiles(ctx, req.CageID, files)
	}
	return result, nil
}

func activityDetails(action Action, result TransitionResult) string {
	if action == ActionDelete {
		return fmt.Sprintf("Permanently deleted cage %s", result.CageID)
	}
	return fmt.Sprintf("Cage %s %s -> %s", result.CageID, result.From, result.To)
}

func (s *Service) recordAudit(ctx context.Context, op string, req TransitionRequest, start time.Time, err error) {
	now := s.clock.Now()
	entry := AuditEntry{
		Operation: op,
		CageID:    req.CageID,
		ActorID:   req.Actor.ID,
		Status:    AuditStatusSuccess,
		Duration:  now.Sub(start),
		Timestamp: now,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
