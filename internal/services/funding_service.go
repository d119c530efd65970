package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
)

// maxFundingDepth bounds walks over the funding graph.
const maxFundingDepth = 64

// fundingService tracks draws between transaction groups. Derived amounts are
// computed from funding_usages on read; the rows themselves are rewritten in
// the same database transaction as the drawing group.
type fundingService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewFundingService creates a new FundingServicer.
func NewFundingService(db *gorm.DB, log *zap.SugaredLogger) FundingServicer {
	return &fundingService{db: db, log: log}
}

// ApplyDraws validates the draws declared by group against its sources and
// replaces the group's usage rows. Entry funding paths left empty are filled
// in and the funding type is derived. Sources are locked for the rest of tx.
func (s *fundingService) ApplyDraws(tx *gorm.DB, group *models.TransactionGroup) error {
	draws := ledger.Draws(group.SourceID(), group.Entries)
	group.FundingType = ledger.ClassifyFunding(draws)

	if err := s.ReleaseDraws(tx, group.ID); err != nil {
		return err
	}
	if len(draws) == 0 {
		return nil
	}

	ids := ledger.SourceIDs(draws)
	var sources []models.TransactionGroup
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND organization_id = ?", ids, group.OrganizationID).
		Find(&sources).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.TransactionGroup, len(sources))
	for _, src := range sources {
		byID[src.ID] = src
	}

	paths := make(map[string][]string, len(ids))
	for _, id := range ids {
		if id == group.ID {
			return apperrors.WithMessage(apperrors.ErrInvalidFundingSource, "a transaction cannot fund itself")
		}
		src, ok := byID[id]
		if !ok {
			return apperrors.WithMessage(apperrors.ErrInvalidFundingSource, "funding source "+id+" not found")
		}
		if src.Status == ledger.StatusCancelled {
			return apperrors.WithMessage(apperrors.ErrInvalidFundingSource, "funding source "+id+" is cancelled")
		}
		cyclic, err := s.reaches(tx, id, group.ID)
		if err != nil {
			return err
		}
		if cyclic {
			return apperrors.WithMessage(apperrors.ErrInvalidFundingSource, "funding source "+id+" already draws on this transaction")
		}
		trail, err := s.TraceFundingPath(tx, id)
		if err != nil {
			return err
		}
		paths[id] = append(trail, id)
	}

	totals := ledger.DrawTotals(draws)
	for _, id := range ids {
		src := byID[id]
		used, err := s.usedAmount(tx, id, group.ID)
		if err != nil {
			return err
		}
		available := ledger.Available(src.TotalAmount, used)
		if err := ledger.CheckDraw(id, available, totals[id]); err != nil {
			return apperrors.WithDetails(apperrors.ErrFundingExceedsAvailable, err.Error(), map[string]interface{}{
				"sourceTransactionId": id,
				"sourceGroupNumber":   src.GroupNumber,
				"availableAmount":     available.Decimal(),
				"requestedAmount":     totals[id].Decimal(),
			})
		}
	}

	for i := range group.Entries {
		e := &group.Entries[i]
		if e.SourceTransactionID != "" && len(e.FundingPath) == 0 {
			e.FundingPath = append([]string(nil), paths[e.SourceTransactionID]...)
		}
	}

	for _, d := range draws {
		if err := s.RecordUsage(tx, group.ID, d); err != nil {
			return err
		}
	}
	return nil
}

// RecordUsage writes a single draw. Callers validate availability first.
func (s *fundingService) RecordUsage(tx *gorm.DB, drawingGroupID string, draw ledger.Draw) error {
	usage := &models.FundingUsage{
		SourceGroupID:  draw.SourceID,
		DrawingGroupID: drawingGroupID,
		EntrySequence:  draw.EntrySequence,
		Amount:         draw.Amount,
	}
	if err := tx.Create(usage).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ReleaseDraws removes every draw made by drawingGroupID.
func (s *fundingService) ReleaseDraws(tx *gorm.DB, drawingGroupID string) error {
	if err := tx.Unscoped().Where("drawing_group_id = ?", drawingGroupID).Delete(&models.FundingUsage{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// UsedAmount sums the draws on groupID made by non-cancelled groups.
func (s *fundingService) UsedAmount(tx *gorm.DB, groupID string) (ledger.Amount, error) {
	return s.usedAmount(tx, groupID, "")
}

// AvailableAmount is the group's total less what non-cancelled groups draw from it.
func (s *fundingService) AvailableAmount(tx *gorm.DB, group *models.TransactionGroup) (ledger.Amount, error) {
	used, err := s.usedAmount(tx, group.ID, "")
	if err != nil {
		return 0, err
	}
	return ledger.Available(group.TotalAmount, used), nil
}

// ReferencedBy lists the groups naming groupID as their primary source, in
// any status, oldest first.
func (s *fundingService) ReferencedBy(tx *gorm.DB, groupID string) ([]GroupSummary, error) {
	var groups []models.TransactionGroup
	if err := tx.Select("id", "group_number", "description", "total_amount", "status").
		Where("source_transaction_id = ?", groupID).
		Order("group_number ASC").
		Find(&groups).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return summarize(groups), nil
}

// Dependents lists the non-cancelled groups that draw on groupID, either as
// their primary source or from individual entries.
func (s *fundingService) Dependents(tx *gorm.DB, groupID string) ([]GroupSummary, error) {
	drawing := tx.Model(&models.FundingUsage{}).Select("drawing_group_id").Where("source_group_id = ?", groupID)
	var groups []models.TransactionGroup
	if err := tx.Select("id", "group_number", "description", "total_amount", "status").
		Where("status <> ?", ledger.StatusCancelled).
		Where("(source_transaction_id = ? OR id IN (?))", groupID, drawing).
		Order("group_number ASC").
		Find(&groups).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return summarize(groups), nil
}

// TraceFundingPath returns the chain of primary sources above groupID, the
// topmost source first. The walk stops at a repeated id.
func (s *fundingService) TraceFundingPath(tx *gorm.DB, groupID string) ([]string, error) {
	var trail []string
	seen := map[string]bool{groupID: true}
	current := groupID
	for depth := 0; depth < maxFundingDepth; depth++ {
		var g models.TransactionGroup
		if err := tx.Select("id", "source_transaction_id").Where("id = ?", current).First(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		next := g.SourceID()
		if next == "" || seen[next] {
			break
		}
		seen[next] = true
		trail = append(trail, next)
		current = next
	}
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail, nil
}

// GetFundingInfo returns the funding picture of a group of the caller's organization.
func (s *fundingService) GetFundingInfo(ctx context.Context, actor Actor, groupID string) (*FundingInfo, error) {
	db := s.db.WithContext(ctx)

	var group models.TransactionGroup
	if err := db.Where("id = ? AND organization_id = ?", groupID, actor.OrganizationID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	used, err := s.usedAmount(db, group.ID, "")
	if err != nil {
		return nil, err
	}
	refs, err := s.ReferencedBy(db, group.ID)
	if err != nil {
		return nil, err
	}
	path, err := s.TraceFundingPath(db, group.ID)
	if err != nil {
		return nil, err
	}

	var draws []FundingDraw
	if err := db.Table("funding_usages AS fu").
		Select("fu.source_group_id, g.group_number AS source_group_number, fu.entry_sequence, fu.amount").
		Joins("JOIN transaction_groups g ON g.id = fu.source_group_id").
		Where("fu.drawing_group_id = ? AND fu.deleted_at IS NULL", group.ID).
		Order("fu.entry_sequence ASC, g.group_number ASC").
		Scan(&draws).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &FundingInfo{
		TotalAmount:     group.TotalAmount,
		UsedAmount:      used,
		AvailableAmount: ledger.Available(group.TotalAmount, used),
		ReferencedBy:    refs,
		FundingUsages:   draws,
		FundingPath:     path,
	}, nil
}

type availableRow struct {
	ID              string
	GroupNumber     int64
	Description     string
	TotalAmount     ledger.Amount
	Status          ledger.Status
	TransactionDate time.Time
	Used            ledger.Amount
}

// GetAvailableSources lists confirmed groups with a positive available amount,
// newest first.
func (s *fundingService) GetAvailableSources(ctx context.Context, actor Actor, page pagination.PageRequest) (*pagination.PageResponse[AvailableSource], error) {
	page.Defaults()
	db := s.db.WithContext(ctx)

	base := db.Table("transaction_groups AS g").
		Joins("LEFT JOIN (?) AS u ON u.source_group_id = g.id", s.usageTotals(db)).
		Where("g.organization_id = ? AND g.status = ? AND g.deleted_at IS NULL", actor.OrganizationID, ledger.StatusConfirmed).
		Where("g.total_amount - COALESCE(u.used, 0) > 0").
		Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rows []availableRow
	if err := base.
		Select("g.id, g.group_number, g.description, g.total_amount, g.status, g.transaction_date, COALESCE(u.used, 0) AS used").
		Order("g.transaction_date DESC, g.group_number DESC").
		Scopes(pagination.Paginate(page)).
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sources := make([]AvailableSource, len(rows))
	for i, r := range rows {
		sources[i] = AvailableSource{
			GroupSummary: GroupSummary{
				ID:          r.ID,
				GroupNumber: r.GroupNumber,
				Description: r.Description,
				TotalAmount: r.TotalAmount,
				Status:      r.Status,
			},
			TransactionDate: r.TransactionDate,
			UsedAmount:      r.Used,
			AvailableAmount: ledger.Available(r.TotalAmount, r.Used),
		}
	}

	result := pagination.NewPageResponse(sources, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// usageTotals is a subquery of live draw totals per source group.
func (s *fundingService) usageTotals(db *gorm.DB) *gorm.DB {
	return db.Table("funding_usages AS fu").
		Select("fu.source_group_id, SUM(fu.amount) AS used").
		Joins("JOIN transaction_groups d ON d.id = fu.drawing_group_id").
		Where("fu.deleted_at IS NULL AND d.deleted_at IS NULL AND d.status <> ?", ledger.StatusCancelled).
		Group("fu.source_group_id")
}

func (s *fundingService) usedAmount(tx *gorm.DB, sourceID, excludeDrawingID string) (ledger.Amount, error) {
	q := tx.Table("funding_usages AS fu").
		Select("COALESCE(SUM(fu.amount), 0)").
		Joins("JOIN transaction_groups d ON d.id = fu.drawing_group_id").
		Where("fu.source_group_id = ? AND fu.deleted_at IS NULL", sourceID).
		Where("d.deleted_at IS NULL AND d.status <> ?", ledger.StatusCancelled)
	if excludeDrawingID != "" {
		q = q.Where("fu.drawing_group_id <> ?", excludeDrawingID)
	}
	var used int64
	if err := q.Row().Scan(&used); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ledger.Amount(used), nil
}

// reaches reports whether target is among the groups from draws on, directly
// or through intermediate sources.
func (s *fundingService) reaches(tx *gorm.DB, from, target string) (bool, error) {
	seen := map[string]bool{from: true}
	frontier := []string{from}
	for depth := 0; depth < maxFundingDepth && len(frontier) > 0; depth++ {
		var next []string
		if err := tx.Model(&models.FundingUsage{}).
			Distinct("source_group_id").
			Where("drawing_group_id IN ?", frontier).
			Pluck("source_group_id", &next).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		var primaries []string
		if err := tx.Model(&models.TransactionGroup{}).
			Where("id IN ? AND source_transaction_id IS NOT NULL", frontier).
			Pluck("source_transaction_id", &primaries).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		frontier = frontier[:0]
		for _, id := range append(next, primaries...) {
			if id == target {
				return true, nil
			}
			if !seen[id] {
				seen[id] = true
				frontier = append(frontier, id)
			}
		}
	}
	return false, nil
}

func summarize(groups []models.TransactionGroup) []GroupSummary {
	out := make([]GroupSummary, len(groups))
	for i, g := range groups {
		out[i] = GroupSummary{
			ID:          g.ID,
			GroupNumber: g.GroupNumber,
			Description: g.Description,
			TotalAmount: g.TotalAmount,
			Status:      g.Status,
		}
	}
	return out
}
