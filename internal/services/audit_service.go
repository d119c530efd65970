package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ledgerd/internal/models"
)

// auditService handles audit log recording.
type auditService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB, log *zap.SugaredLogger) AuditServicer {
	return &auditService{db: db, log: log}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(actor Actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			s.log.Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		OrganizationID: actor.OrganizationID,
		UserID:         actor.UserID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		IPAddress:      ipAddress,
		Changes:        changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		s.log.Errorw("failed to create audit log entry",
			"error", err,
			"user_id", actor.UserID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
