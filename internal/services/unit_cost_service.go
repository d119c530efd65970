package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/models"
)

// unitCostStore reads unit costs published to the unit_costs table.
type unitCostStore struct {
	db *gorm.DB
}

// NewUnitCostStore creates a UnitCostProvider backed by the database.
func NewUnitCostStore(db *gorm.DB) UnitCostProvider {
	return &unitCostStore{db: db}
}

// UnitCost returns the most recently computed cost of one unit of productID.
func (s *unitCostStore) UnitCost(ctx context.Context, organizationID, productID string) (decimal.Decimal, error) {
	var uc models.UnitCost
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND product_id = ?", organizationID, productID).
		Order("computed_at DESC").
		First(&uc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, apperrors.WithMessage(apperrors.ErrNotFound, "no unit cost recorded for product "+productID)
		}
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return uc.UnitCost, nil
}
