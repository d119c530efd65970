package services

import (
	"testing"

	"go.uber.org/zap"

	"ledgerd/internal/models"
	"ledgerd/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db, zap.NewNop().Sugar())
	actor := testActor(testutil.NewOrganizationID())

	svc.Log(actor, "CONFIRM_TRANSACTION", "transaction_group", "g-1", "127.0.0.1", map[string]interface{}{"status": "confirmed"})

	var entry models.AuditLog
	if err := db.Where("organization_id = ?", actor.OrganizationID).First(&entry).Error; err != nil {
		t.Fatalf("expected audit entry: %v", err)
	}
	if entry.Action != "CONFIRM_TRANSACTION" || entry.ResourceID != "g-1" {
		t.Errorf("unexpected audit entry %+v", entry)
	}
	if entry.Changes != `{"status":"confirmed"}` {
		t.Errorf("unexpected changes %s", entry.Changes)
	}
}
