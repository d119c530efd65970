package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/models"
	"ledgerd/internal/services"
)

// --- mock migration service ---

type mockMigrationService struct {
	embedFn  func(ctx context.Context, opts services.EmbedOptions) (*models.MigrationReport, error)
	latestFn func(ctx context.Context) (*models.MigrationReport, error)
}

func (m *mockMigrationService) EmbedEntries(ctx context.Context, opts services.EmbedOptions) (*models.MigrationReport, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, opts)
	}
	return &models.MigrationReport{}, nil
}

func (m *mockMigrationService) LatestReport(ctx context.Context) (*models.MigrationReport, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	return &models.MigrationReport{}, nil
}

var _ services.MigrationServicer = (*mockMigrationService)(nil)

func setupMigrationRouter(svc services.MigrationServicer) *gin.Engine {
	handler := NewMigrationHandler(svc)
	r := gin.New()
	r.POST("/admin/migrations/embed-entries", handler.EmbedEntries)
	r.GET("/admin/migrations/reports/latest", handler.GetLatestReport)
	return r
}

func sampleReport() *models.MigrationReport {
	return &models.MigrationReport{
		Base:                 models.Base{ID: "report-1"},
		StartedAt:            time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:           time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC),
		Migrated:             1,
		Failed:               1,
		GroupsWithoutEntries: 2,
		UsagesBackfilled:     3,
		Errors: []models.MigrationIssue{
			{GroupID: "g2", GroupNumber: 2, Reason: "unbalanced", TotalDebit: 50000, TotalCredit: 40000, Difference: 10000},
		},
	}
}

func TestMigrationHandler_EmbedEntries(t *testing.T) {
	t.Run("passes options and returns the report", func(t *testing.T) {
		var got services.EmbedOptions
		svc := &mockMigrationService{
			embedFn: func(_ context.Context, opts services.EmbedOptions) (*models.MigrationReport, error) {
				got = opts
				return sampleReport(), nil
			},
		}
		rec := doRequest(setupMigrationRouter(svc), http.MethodPost, "/admin/migrations/embed-entries", `{"batchSize":50,"sampleSize":5,"dryRun":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got != (services.EmbedOptions{BatchSize: 50, SampleSize: 5, DryRun: true}) {
			t.Errorf("unexpected options %+v", got)
		}
		data := dataOf(t, rec)
		if data["migrated"] != float64(1) || data["failed"] != float64(1) || data["groupsWithoutEntries"] != float64(2) || data["usagesBackfilled"] != float64(3) {
			t.Errorf("unexpected counts: %v", data)
		}
		issues := data["errors"].([]interface{})
		if len(issues) != 1 || issues[0].(map[string]interface{})["difference"] != "100" {
			t.Errorf("expected difference 100 in error list, got %v", issues)
		}
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		var called bool
		svc := &mockMigrationService{
			embedFn: func(_ context.Context, opts services.EmbedOptions) (*models.MigrationReport, error) {
				called = true
				if opts != (services.EmbedOptions{}) {
					t.Errorf("expected zero options, got %+v", opts)
				}
				return sampleReport(), nil
			},
		}
		rec := doRequest(setupMigrationRouter(svc), http.MethodPost, "/admin/migrations/embed-entries", "")
		if rec.Code != http.StatusOK || !called {
			t.Fatalf("expected 200 and a run, got %d", rec.Code)
		}
	})

	t.Run("rejects a bad batch size", func(t *testing.T) {
		rec := doRequest(setupMigrationRouter(&mockMigrationService{}), http.MethodPost, "/admin/migrations/embed-entries", `{"batchSize":-1}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestMigrationHandler_GetLatestReport(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		svc := &mockMigrationService{
			latestFn: func(context.Context) (*models.MigrationReport, error) { return sampleReport(), nil },
		}
		rec := doRequest(setupMigrationRouter(svc), http.MethodGet, "/admin/migrations/reports/latest", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if dataOf(t, rec)["id"] != "report-1" {
			t.Error("expected report id")
		}
	})

	t.Run("returns 404 before the first run", func(t *testing.T) {
		svc := &mockMigrationService{
			latestFn: func(context.Context) (*models.MigrationReport, error) {
				return nil, apperrors.WithMessage(apperrors.ErrNotFound, "No migration report yet")
			},
		}
		rec := doRequest(setupMigrationRouter(svc), http.MethodGet, "/admin/migrations/reports/latest", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_FOUND")
	})
}
