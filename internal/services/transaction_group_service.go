package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/metrics"
	"ledgerd/internal/migration"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
	"ledgerd/internal/uuid"
)

// transactionGroupService stores transaction groups with embedded entries.
type transactionGroupService struct {
	db        *gorm.DB
	accounts  AccountChecker
	funding   FundingServicer
	costs     UnitCostProvider
	validator ledger.Validator
	log       *zap.SugaredLogger
}

// NewTransactionGroupService creates a new TransactionGroupServicer.
func NewTransactionGroupService(db *gorm.DB, accounts AccountChecker, funding FundingServicer, costs UnitCostProvider, tolerance ledger.TolerancePolicy, log *zap.SugaredLogger) TransactionGroupServicer {
	return &transactionGroupService{
		db:        db,
		accounts:  accounts,
		funding:   funding,
		costs:     costs,
		validator: ledger.NewValidator(tolerance),
		log:       log,
	}
}

// CreateTransactionGroup validates and stores a draft group. The group number
// is allocated inside the same database transaction.
func (s *transactionGroupService) CreateTransactionGroup(ctx context.Context, actor Actor, in TransactionGroupInput) (group *models.TransactionGroup, err error) {
	defer func() { metrics.ObserveOperation("create", err) }()

	entries := ledger.Resequence(in.Entries)
	if err := s.checkEntries(ctx, actor.OrganizationID, entries); err != nil {
		return nil, err
	}

	date := in.TransactionDate
	if date.IsZero() {
		date = time.Now().UTC()
	}

	group = &models.TransactionGroup{
		Base:                 models.Base{ID: uuid.New()},
		OrganizationID:       actor.OrganizationID,
		Description:          strings.TrimSpace(in.Description),
		TransactionDate:      date,
		Entries:              entries,
		Status:               ledger.StatusDraft,
		TotalAmount:          ledger.TotalAmount(entries),
		SourceTransactionID:  nonEmpty(in.SourceTransactionID),
		LinkedTransactionIDs: in.LinkedTransactionIDs,
		CreatedBy:            actor.UserID,
		Version:              1,
		SchemaVersion:        models.SchemaVersionEmbedded,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextGroupNumber(tx)
		if err != nil {
			return err
		}
		group.GroupNumber = number

		if err := s.funding.ApplyDraws(tx, group); err != nil {
			return err
		}
		if err := tx.Create(group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.WithMessage(apperrors.ErrDuplicateGroupNumber, fmt.Sprintf("group number %d is already in use", number))
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("transaction group created",
		"group_id", group.ID,
		"group_number", group.GroupNumber,
		"organization_id", actor.OrganizationID,
		"total_amount", group.TotalAmount.String(),
		"funding_type", group.FundingType,
	)
	return group, nil
}

// GetTransactionGroups retrieves a filtered, paginated list of groups, newest first.
func (s *transactionGroupService) GetTransactionGroups(ctx context.Context, actor Actor, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.TransactionGroup], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)

	base := db.Model(&models.TransactionGroup{}).Where("organization_id = ?", actor.OrganizationID)
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.FundingType != nil {
		base = base.Where("funding_type = ?", *filter.FundingType)
	}
	if filter.FromDate != nil {
		base = base.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("transaction_date <= ?", *filter.ToDate)
	}
	if filter.SourceTransactionID != nil {
		base = base.Where("source_transaction_id = ?", *filter.SourceTransactionID)
	}
	if filter.GroupNumber != nil {
		base = base.Where("group_number = ?", *filter.GroupNumber)
	}
	if filter.Search != "" {
		base = base.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	base = base.Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var groups []models.TransactionGroup
	if err := base.Order("transaction_date DESC, group_number DESC").
		Scopes(pagination.Paginate(page)).
		Find(&groups).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := hydrateLegacy(db, groups); err != nil {
		return nil, err
	}

	result := pagination.NewPageResponse(groups, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionGroupByID retrieves a group with its entries in either storage layout.
func (s *transactionGroupService) GetTransactionGroupByID(ctx context.Context, actor Actor, groupID string) (*models.TransactionGroup, error) {
	return loadGroup(s.db.WithContext(ctx), actor.OrganizationID, groupID, false)
}

// UpdateTransactionGroup changes a draft group. Replacing entries re-runs
// validation and the funding checks; the write is conditional on the version
// read under lock. A legacy group is only rewritten if its entry rows balance.
func (s *transactionGroupService) UpdateTransactionGroup(ctx context.Context, actor Actor, groupID string, fields TransactionGroupUpdateFields) (group *models.TransactionGroup, err error) {
	defer func() { metrics.ObserveOperation("update", err) }()

	var entries []ledger.Entry
	if fields.Entries != nil {
		entries = ledger.Resequence(fields.Entries)
		if err := s.checkEntries(ctx, actor.OrganizationID, entries); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = loadGroup(tx, actor.OrganizationID, groupID, true)
		if err != nil {
			return err
		}
		if err := ledger.EnsureStatus(group.Status, ledger.StatusDraft); err != nil {
			return apperrors.WithMessage(apperrors.ErrTransactionNotEditable, err.Error())
		}
		if fields.Version != nil && *fields.Version != group.Version {
			return apperrors.WithMessage(apperrors.ErrConcurrentModification,
				fmt.Sprintf("transaction is at version %d, update was based on version %d", group.Version, *fields.Version))
		}

		// Saving moves a legacy group into the embedded layout, so its
		// entry rows must pass the same checks as a fresh entry set.
		if entries == nil && group.SchemaVersion == models.SchemaVersionLegacy {
			if result := s.validator.Validate(group.Entries); !result.IsValid {
				return validationError(result)
			}
			entries = group.Entries
		}

		if fields.Description != nil {
			group.Description = strings.TrimSpace(*fields.Description)
		}
		if fields.TransactionDate != nil {
			group.TransactionDate = *fields.TransactionDate
		}
		if fields.LinkedTransactionIDs != nil {
			group.LinkedTransactionIDs = *fields.LinkedTransactionIDs
		}
		if fields.SourceTransactionID != nil {
			group.SourceTransactionID = nonEmpty(fields.SourceTransactionID)
		}
		if entries != nil {
			group.Entries = entries
			group.TotalAmount = ledger.TotalAmount(entries)

			used, err := s.funding.UsedAmount(tx, group.ID)
			if err != nil {
				return err
			}
			if group.TotalAmount < used {
				return apperrors.WithDetails(apperrors.ErrFundingExceedsAvailable,
					fmt.Sprintf("total %s is below the %s already drawn by other transactions", group.TotalAmount, used),
					map[string]interface{}{"totalAmount": group.TotalAmount.Decimal(), "usedAmount": used.Decimal()})
			}
		}

		if err := s.funding.ApplyDraws(tx, group); err != nil {
			return err
		}
		group.SchemaVersion = models.SchemaVersionEmbedded
		return saveVersioned(tx, group,
			"description", "transaction_date", "entries", "total_amount",
			"source_transaction_id", "linked_transaction_ids", "funding_type", "schema_version")
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("transaction group updated", "group_id", group.ID, "version", group.Version, "organization_id", actor.OrganizationID)
	return group, nil
}

// DeleteTransactionGroup soft-deletes a draft group nothing draws on and
// releases its own draws.
func (s *transactionGroupService) DeleteTransactionGroup(ctx context.Context, actor Actor, groupID string) (err error) {
	defer func() { metrics.ObserveOperation("delete", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := loadGroup(tx, actor.OrganizationID, groupID, true)
		if err != nil {
			return err
		}
		if err := ledger.EnsureStatus(group.Status, ledger.StatusDraft); err != nil {
			return apperrors.WithMessage(apperrors.ErrTransactionNotEditable, err.Error())
		}
		deps, err := s.funding.Dependents(tx, group.ID)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return dependentsError(deps)
		}
		if err := s.funding.ReleaseDraws(tx, group.ID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND version = ?", group.ID, group.Version).Delete(&models.TransactionGroup{})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConcurrentModification
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infow("transaction group deleted", "group_id", groupID, "organization_id", actor.OrganizationID)
	return nil
}

// GetBalance reports the balance of a stored group's entries.
func (s *transactionGroupService) GetBalance(ctx context.Context, actor Actor, groupID string) (*ledger.ValidationResult, error) {
	group, err := s.GetTransactionGroupByID(ctx, actor, groupID)
	if err != nil {
		return nil, err
	}
	result := s.validator.Validate(group.Entries)
	return &result, nil
}

// ValidateEntries checks an entry set without storing anything.
func (s *transactionGroupService) ValidateEntries(entries []ledger.Entry) ledger.ValidationResult {
	return s.validator.Validate(ledger.Resequence(entries))
}

// CreateCostOfSales records a draft group moving inventory into cost of
// goods sold at the product's pre-computed unit cost.
func (s *transactionGroupService) CreateCostOfSales(ctx context.Context, actor Actor, in CostOfSalesInput) (*models.TransactionGroup, error) {
	if in.ProductID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "product is required")
	}
	unitCost, err := s.costs.UnitCost(ctx, actor.OrganizationID, in.ProductID)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = fmt.Sprintf("Cost of sales: %s x %s", in.Quantity.String(), in.ProductID)
	}
	entries, err := ledger.CostOfSalesEntries(unitCost, in.Quantity, in.CogsAccountID, in.InventoryAccountID, description)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	var linked []string
	if in.SaleTransactionID != nil && *in.SaleTransactionID != "" {
		linked = []string{*in.SaleTransactionID}
	}
	return s.CreateTransactionGroup(ctx, actor, TransactionGroupInput{
		Description:          description,
		TransactionDate:      in.TransactionDate,
		Entries:              entries,
		LinkedTransactionIDs: linked,
	})
}

// checkEntries validates entries and resolves their accounts. Unknown accounts
// and deactivated accounts are both rejected.
func (s *transactionGroupService) checkEntries(ctx context.Context, organizationID string, entries []ledger.Entry) error {
	result := s.validator.Validate(entries)
	if !result.IsValid {
		return validationError(result)
	}

	ids := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			ids = append(ids, e.AccountID)
		}
	}
	found, err := s.accounts.LookupAccounts(ctx, organizationID, ids)
	if err != nil {
		return err
	}
	for _, e := range entries {
		account, ok := found[e.AccountID]
		if !ok {
			return apperrors.WithMessage(apperrors.ErrAccountNotFound, fmt.Sprintf("entry %d: account %s not found", e.Sequence, e.AccountID))
		}
		if !account.IsActive {
			return apperrors.WithMessage(apperrors.ErrAccountInactive, fmt.Sprintf("entry %d: account %s (%s) is inactive", e.Sequence, account.Code, account.Name))
		}
	}
	return nil
}

// validationError maps a failed ValidationResult onto the matching sentinel.
func validationError(result ledger.ValidationResult) error {
	first := result.First()
	sentinel := apperrors.ErrInvalidEntry
	switch first.Problem {
	case ledger.ProblemInsufficientEntries:
		sentinel = apperrors.ErrInsufficientEntries
	case ledger.ProblemUnbalanced:
		sentinel = apperrors.ErrUnbalancedEntries
	}
	return apperrors.WithDetails(sentinel, first.Message, map[string]interface{}{
		"errors":      result.Errors,
		"totalDebit":  result.TotalDebit.Decimal(),
		"totalCredit": result.TotalCredit.Decimal(),
		"difference":  result.Difference.Decimal(),
	})
}

// dependentsError lists the groups that block a change to their source.
func dependentsError(deps []GroupSummary) error {
	refs := make([]map[string]interface{}, len(deps))
	for i, d := range deps {
		refs[i] = map[string]interface{}{
			"id":          d.ID,
			"groupNumber": d.GroupNumber,
			"description": d.Description,
			"totalAmount": d.TotalAmount.Decimal(),
			"status":      d.Status,
		}
	}
	return apperrors.WithDetails(apperrors.ErrHasDependentTransactions,
		fmt.Sprintf("%d active transaction(s) draw funds from this transaction", len(deps)),
		map[string]interface{}{"dependentTransactions": refs})
}

// nextGroupNumber increments the group counter inside tx. The row update
// serializes concurrent creators.
func nextGroupNumber(tx *gorm.DB) (int64, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LedgerSequence{Name: models.SequenceTransactionGroup}).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(&models.LedgerSequence{}).
		Where("name = ?", models.SequenceTransactionGroup).
		UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var seq models.LedgerSequence
	if err := tx.Where("name = ?", models.SequenceTransactionGroup).First(&seq).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return seq.Value, nil
}

// loadGroup fetches a group of the organization, optionally locking the row,
// and fills in entries for rows still in the legacy layout.
func loadGroup(tx *gorm.DB, organizationID, groupID string, lock bool) (*models.TransactionGroup, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var group models.TransactionGroup
	if err := q.Where("id = ? AND organization_id = ?", groupID, organizationID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	groups := []models.TransactionGroup{group}
	if err := hydrateLegacy(tx, groups); err != nil {
		return nil, err
	}
	return &groups[0], nil
}

// hydrateLegacy reads transaction_entries for groups that have not been
// migrated to embedded entries.
func hydrateLegacy(tx *gorm.DB, groups []models.TransactionGroup) error {
	var ids []string
	for _, g := range groups {
		if g.SchemaVersion == models.SchemaVersionLegacy {
			ids = append(ids, g.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var rows []models.LegacyEntry
	if err := tx.Where("transaction_group_id IN ?", ids).Find(&rows).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byGroup := make(map[string][]models.LegacyEntry, len(ids))
	for _, r := range rows {
		byGroup[r.TransactionGroupID] = append(byGroup[r.TransactionGroupID], r)
	}
	for i := range groups {
		if groups[i].SchemaVersion == models.SchemaVersionLegacy {
			groups[i].Entries = migration.EntriesFromLegacy(byGroup[groups[i].ID])
		}
	}
	return nil
}

// saveVersioned writes columns of group if its stored version still matches
// and bumps the version. A lost race surfaces as ErrConcurrentModification.
func saveVersioned(tx *gorm.DB, group *models.TransactionGroup, columns ...string) error {
	expected := group.Version
	group.Version = expected + 1
	group.UpdatedAt = time.Now().UTC()

	res := tx.Model(&models.TransactionGroup{}).
		Where("id = ? AND version = ?", group.ID, expected).
		Select(append(columns, "version", "updated_at")).
		Updates(group)
	if res.Error != nil {
		group.Version = expected
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		group.Version = expected
		return apperrors.ErrConcurrentModification
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
