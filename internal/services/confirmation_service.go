package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/metrics"
	"ledgerd/internal/models"
)

// confirmationService moves transaction groups between statuses. Each change
// locks the group row and is written conditionally on its version.
type confirmationService struct {
	db        *gorm.DB
	balances  BalancePoster
	funding   FundingServicer
	validator ledger.Validator
	log       *zap.SugaredLogger
}

// NewConfirmationService creates a new ConfirmationServicer.
func NewConfirmationService(db *gorm.DB, balances BalancePoster, funding FundingServicer, tolerance ledger.TolerancePolicy, log *zap.SugaredLogger) ConfirmationServicer {
	return &confirmationService{
		db:        db,
		balances:  balances,
		funding:   funding,
		validator: ledger.NewValidator(tolerance),
		log:       log,
	}
}

// ConfirmTransactionGroup posts a balanced draft group to the account balances.
func (s *confirmationService) ConfirmTransactionGroup(ctx context.Context, actor Actor, groupID string) (group *models.TransactionGroup, err error) {
	defer func() { metrics.ObserveOperation("confirm", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = s.lockForTransition(tx, actor, groupID, ledger.StatusConfirmed)
		if err != nil {
			return err
		}
		if result := s.validator.Validate(group.Entries); !result.IsValid {
			return validationError(result)
		}

		now := time.Now().UTC()
		group.Status = ledger.StatusConfirmed
		group.ConfirmedAt = &now
		if err := saveVersioned(tx, group, "status", "confirmed_at"); err != nil {
			return err
		}
		return s.balances.ApplyEntries(tx, group.OrganizationID, group.Entries, false)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("transaction group confirmed", "group_id", group.ID, "group_number", group.GroupNumber, "user_id", actor.UserID)
	return group, nil
}

// UnlockTransactionGroup returns a confirmed group to draft. It is refused
// while any non-cancelled group names it as its primary source.
func (s *confirmationService) UnlockTransactionGroup(ctx context.Context, actor Actor, groupID string) (group *models.TransactionGroup, err error) {
	defer func() { metrics.ObserveOperation("unlock", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = s.lockForTransition(tx, actor, groupID, ledger.StatusDraft)
		if err != nil {
			return err
		}

		refs, err := s.funding.ReferencedBy(tx, group.ID)
		if err != nil {
			return err
		}
		var live []GroupSummary
		for _, r := range refs {
			if r.Status != ledger.StatusCancelled {
				live = append(live, r)
			}
		}
		if len(live) > 0 {
			return dependentsError(live)
		}

		group.Status = ledger.StatusDraft
		group.ConfirmedAt = nil
		if err := saveVersioned(tx, group, "status", "confirmed_at"); err != nil {
			return err
		}
		return s.balances.ApplyEntries(tx, group.OrganizationID, group.Entries, true)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("transaction group unlocked", "group_id", group.ID, "group_number", group.GroupNumber, "user_id", actor.UserID)
	return group, nil
}

// CancelTransactionGroup voids a draft group. Cancelled groups stop counting
// against their sources and can never change again.
func (s *confirmationService) CancelTransactionGroup(ctx context.Context, actor Actor, groupID string) (group *models.TransactionGroup, err error) {
	defer func() { metrics.ObserveOperation("cancel", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = s.lockForTransition(tx, actor, groupID, ledger.StatusCancelled)
		if err != nil {
			return err
		}

		deps, err := s.funding.Dependents(tx, group.ID)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return dependentsError(deps)
		}

		group.Status = ledger.StatusCancelled
		return saveVersioned(tx, group, "status")
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("transaction group cancelled", "group_id", group.ID, "group_number", group.GroupNumber, "user_id", actor.UserID)
	return group, nil
}

func (s *confirmationService) lockForTransition(tx *gorm.DB, actor Actor, groupID string, to ledger.Status) (*models.TransactionGroup, error) {
	group, err := loadGroup(tx, actor.OrganizationID, groupID, true)
	if err != nil {
		return nil, err
	}
	if group.Status.Terminal() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusTransition,
			fmt.Sprintf("transaction is %s and can no longer change", group.Status))
	}
	if err := ledger.Transition(group.Status, to); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusTransition, err.Error())
	}
	return group, nil
}
