package services

import (
	"testing"

	"moneta/internal/models"
	"moneta/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	user := testutil.CreateTestUser(t, db)
	svc := NewAuditService(db)

	svc.Log(user.ID, "CREATE_TRANSFER", "transfer", "group-1", "10.0.0.1", map[string]interface{}{"amount": "75"})
	svc.Log(user.ID, "COPY_BUDGETS", "budget", "", "10.0.0.1", nil)

	var entries []models.AuditLog
	if err := db.Where("user_id = ?", user.ID).Order("created_at ASC, action DESC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load audit entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byAction := map[string]models.AuditLog{}
	for _, e := range entries {
		byAction[e.Action] = e
	}
	if got := byAction["CREATE_TRANSFER"]; got.Changes != `{"amount":"75"}` || got.ResourceID != "group-1" || got.IPAddress != "10.0.0.1" {
		t.Errorf("unexpected transfer entry: %+v", got)
	}
	if got := byAction["COPY_BUDGETS"]; got.Changes != "{}" || got.ResourceType != "budget" {
		t.Errorf("unexpected copy entry: %+v", got)
	}
}
