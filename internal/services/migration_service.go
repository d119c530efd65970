package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/metrics"
	"ledgerd/internal/migration"
	"ledgerd/internal/models"
)

const (
	defaultMigrationBatchSize  = 100
	defaultMigrationSampleSize = 20
)

// errGroupChanged marks a group whose version moved after its batch was read.
var errGroupChanged = errors.New("group changed during migration")

// migrationService copies normalized entry rows into the entries column of
// their transaction group and records the draws those entries declare.
type migrationService struct {
	db        *gorm.DB
	funding   FundingServicer
	validator ledger.Validator
	compat    migration.CompatibilityValidator
	log       *zap.SugaredLogger
}

// NewMigrationService creates a new MigrationServicer.
func NewMigrationService(db *gorm.DB, funding FundingServicer, tolerance ledger.TolerancePolicy, log *zap.SugaredLogger) MigrationServicer {
	return &migrationService{
		db:        db,
		funding:   funding,
		validator: ledger.NewValidator(tolerance),
		compat:    migration.NewCompatibilityValidator(tolerance),
		log:       log,
	}
}

// EmbedEntries migrates every legacy group in batches ordered by id. Groups
// without entries are skipped; groups whose entries do not validate or do not
// survive the compatibility round trip are reported and left untouched. A
// random sample of migrated groups is re-read and compared afterwards. Each
// group is written together with its funding usages in one database
// transaction, so a failure never leaves a group half-migrated. Embedded
// groups that declare draws but have no usage rows get them backfilled.
func (s *migrationService) EmbedEntries(ctx context.Context, opts EmbedOptions) (*models.MigrationReport, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultMigrationBatchSize
	}
	if opts.SampleSize < 0 {
		opts.SampleSize = 0
	}

	db := s.db.WithContext(ctx)
	report := &models.MigrationReport{StartedAt: time.Now().UTC(), DryRun: opts.DryRun}
	log := s.log.With("dry_run", opts.DryRun, "batch_size", opts.BatchSize)
	log.Infow("entry migration started")

	groupIDs := db.Unscoped().Model(&models.TransactionGroup{}).Select("id")
	if err := db.Model(&models.LegacyEntry{}).
		Where("transaction_group_id NOT IN (?)", groupIDs).
		Count(&report.OrphanedEntries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if report.OrphanedEntries > 0 {
		log.Warnw("entry rows reference missing groups", "count", report.OrphanedEntries)
	}

	var migrated []string
	lastID := ""
	for batchNo := 1; ; batchNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var batch []models.TransactionGroup
		if err := db.Where("schema_version = ?", models.SchemaVersionLegacy).
			Scopes(afterID(lastID)).
			Order("id ASC").
			Limit(opts.BatchSize).
			Find(&batch).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(batch) == 0 {
			break
		}
		lastID = batch[len(batch)-1].ID

		rows, err := s.legacyRows(db, batch)
		if err != nil {
			return nil, err
		}

		for _, g := range batch {
			ok, err := s.migrateGroup(db, g, rows[g.ID], opts.DryRun, report)
			if err != nil {
				return nil, err
			}
			if ok {
				migrated = append(migrated, g.ID)
			}
		}
		log.Infow("entry migration batch done", "batch", batchNo, "groups", len(batch), "migrated", report.Migrated, "failed", report.Failed)
	}

	if err := s.backfillUsages(db, opts, report); err != nil {
		return nil, err
	}

	if !opts.DryRun {
		if err := s.verifySample(db, migrated, opts.SampleSize, report); err != nil {
			return nil, err
		}
	}

	report.FinishedAt = time.Now().UTC()
	if err := db.Create(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	metrics.AddMigrated("migrated", report.Migrated)
	metrics.AddMigrated("failed", report.Failed)
	metrics.AddMigrated("skipped", report.Skipped)

	log.Infow("entry migration finished",
		"migrated", report.Migrated,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"groups_without_entries", report.GroupsWithoutEntries,
		"orphaned_entries", report.OrphanedEntries,
		"usages_backfilled", report.UsagesBackfilled,
		"sampled", report.Sampled,
		"sample_mismatches", report.SampleMismatches,
		"elapsed", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// LatestReport returns the most recent migration report.
func (s *migrationService) LatestReport(ctx context.Context) (*models.MigrationReport, error) {
	var report models.MigrationReport
	if err := s.db.WithContext(ctx).Order("started_at DESC").First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrNotFound, "no migration has been run")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &report, nil
}

// migrateGroup checks and writes one group. It reports whether the group was
// written; problems with the group itself are recorded in report rather than
// returned.
func (s *migrationService) migrateGroup(db *gorm.DB, g models.TransactionGroup, rows []models.LegacyEntry, dryRun bool, report *models.MigrationReport) (bool, error) {
	if len(rows) == 0 {
		report.GroupsWithoutEntries++
		report.Skipped++
		return false, nil
	}

	entries := migration.EntriesFromLegacy(rows)
	result := s.validator.Validate(entries)
	if !result.IsValid {
		issue := models.MigrationIssue{
			GroupID:     g.ID,
			GroupNumber: g.GroupNumber,
			Reason:      result.First().Message,
			TotalDebit:  result.TotalDebit,
			TotalCredit: result.TotalCredit,
		}
		// A difference only guides repair when balance is the sole problem.
		if !result.Structural() {
			issue.Difference = result.Difference
		}
		report.Failed++
		report.Errors = append(report.Errors, issue)
		return false, nil
	}

	mismatches, err := s.compat.RoundTripGroup(migration.LegacyView(g, rows))
	if err == nil && len(mismatches) > 0 {
		err = fmt.Errorf("compatibility check failed on %s", mismatches[0])
	}
	if err != nil {
		report.Failed++
		report.Errors = append(report.Errors, models.MigrationIssue{
			GroupID:     g.ID,
			GroupNumber: g.GroupNumber,
			Reason:      err.Error(),
			TotalDebit:  result.TotalDebit,
			TotalCredit: result.TotalCredit,
		})
		return false, nil
	}

	draws := ledger.Draws(g.SourceID(), entries)
	sources, err := s.drawSources(db, g, draws, report)
	if err != nil || sources == nil {
		return false, err
	}

	if dryRun {
		report.Migrated++
		return false, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TransactionGroup{}).
			Where("id = ? AND schema_version = ? AND version = ?", g.ID, models.SchemaVersionLegacy, g.Version).
			Select("entries", "total_amount", "funding_type", "schema_version").
			Updates(&models.TransactionGroup{
				Entries:       entries,
				TotalAmount:   ledger.TotalAmount(entries),
				FundingType:   ledger.ClassifyFunding(draws),
				SchemaVersion: models.SchemaVersionEmbedded,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return errGroupChanged
		}
		return s.recordDraws(tx, g.ID, draws, sources)
	})
	if errors.Is(err, errGroupChanged) {
		// The next run picks it up if still legacy.
		report.Skipped++
		return false, nil
	}
	if err != nil {
		return false, err
	}
	report.Migrated++
	return true, nil
}

// backfillUsages records the draws of embedded groups that have no usage rows
// yet, such as groups embedded before their draws were tracked.
func (s *migrationService) backfillUsages(db *gorm.DB, opts EmbedOptions, report *models.MigrationReport) error {
	recorded := db.Unscoped().Model(&models.FundingUsage{}).Select("drawing_group_id")
	lastID := ""
	for {
		var batch []models.TransactionGroup
		if err := db.Where("schema_version = ? AND id NOT IN (?)", models.SchemaVersionEmbedded, recorded).
			Scopes(afterID(lastID)).
			Order("id ASC").
			Limit(opts.BatchSize).
			Find(&batch).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(batch) == 0 {
			return nil
		}
		lastID = batch[len(batch)-1].ID

		for _, g := range batch {
			draws := ledger.Draws(g.SourceID(), g.Entries)
			if len(draws) == 0 {
				continue
			}
			sources, err := s.drawSources(db, g, draws, report)
			if err != nil {
				return err
			}
			if sources == nil {
				continue
			}
			if !opts.DryRun {
				if err := db.Transaction(func(tx *gorm.DB) error {
					return s.recordDraws(tx, g.ID, draws, sources)
				}); err != nil {
					return err
				}
			}
			report.UsagesBackfilled++
		}
	}
}

// drawSources loads the totals of the groups draws take from. A missing source
// is recorded in report and yields a nil map.
func (s *migrationService) drawSources(db *gorm.DB, g models.TransactionGroup, draws []ledger.Draw, report *models.MigrationReport) (map[string]ledger.Amount, error) {
	totals := make(map[string]ledger.Amount)
	if len(draws) == 0 {
		return totals, nil
	}
	ids := ledger.SourceIDs(draws)
	var found []models.TransactionGroup
	if err := db.Unscoped().Select("id", "total_amount").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, src := range found {
		totals[src.ID] = src.TotalAmount
	}
	for _, id := range ids {
		if _, ok := totals[id]; !ok {
			report.Failed++
			report.Errors = append(report.Errors, models.MigrationIssue{
				GroupID:     g.ID,
				GroupNumber: g.GroupNumber,
				Reason:      "funding source " + id + " not found",
			})
			return nil, nil
		}
	}
	return totals, nil
}

// recordDraws replaces the usage rows of a group with draws. Historical draws
// are kept even when they overdraw a source; the overdraw is logged.
func (s *migrationService) recordDraws(tx *gorm.DB, groupID string, draws []ledger.Draw, sources map[string]ledger.Amount) error {
	if err := s.funding.ReleaseDraws(tx, groupID); err != nil {
		return err
	}
	for _, d := range draws {
		if err := s.funding.RecordUsage(tx, groupID, d); err != nil {
			return err
		}
	}
	for _, id := range ledger.SourceIDs(draws) {
		used, err := s.funding.UsedAmount(tx, id)
		if err != nil {
			return err
		}
		if available := ledger.Available(sources[id], used); available < 0 {
			s.log.Warnw("migrated draws exceed their source", "group_id", groupID, "source_id", id, "available", available.String())
		}
	}
	return nil
}

// verifySample re-reads a random subset of migrated groups and compares them
// with their entry rows.
func (s *migrationService) verifySample(db *gorm.DB, migrated []string, size int, report *models.MigrationReport) error {
	if size == 0 || len(migrated) == 0 {
		return nil
	}
	sample := append([]string(nil), migrated...)
	rand.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	if len(sample) > size {
		sample = sample[:size]
	}

	var groups []models.TransactionGroup
	if err := db.Where("id IN ?", sample).Find(&groups).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	rows, err := s.legacyRows(db, groups)
	if err != nil {
		return err
	}

	report.Sampled = len(groups)
	for _, g := range groups {
		mismatches := s.compat.CompareGroups(migration.LegacyView(g, rows[g.ID]), g)
		if len(mismatches) == 0 {
			continue
		}
		report.SampleMismatches++
		report.Errors = append(report.Errors, models.MigrationIssue{
			GroupID:     g.ID,
			GroupNumber: g.GroupNumber,
			Reason:      "sample verification: " + mismatches[0].String(),
		})
	}
	if report.SampleMismatches > 0 {
		s.log.Errorw("migrated groups differ from their entry rows", "mismatches", report.SampleMismatches, "sampled", report.Sampled)
	}
	return nil
}

func (s *migrationService) legacyRows(db *gorm.DB, groups []models.TransactionGroup) (map[string][]models.LegacyEntry, error) {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	var rows []models.LegacyEntry
	if err := db.Where("transaction_group_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byGroup := make(map[string][]models.LegacyEntry, len(groups))
	for _, r := range rows {
		byGroup[r.TransactionGroupID] = append(byGroup[r.TransactionGroupID], r)
	}
	return byGroup, nil
}

// afterID continues an id-ordered scan past lastID.
func afterID(lastID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if lastID == "" {
			return db
		}
		return db.Where("id > ?", lastID)
	}
}
