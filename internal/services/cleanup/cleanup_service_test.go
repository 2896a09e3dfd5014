package cleanup

import (
	"context"
	"testing"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/core/models"
	"azure-face-go/internal/db/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *repository.SQLiteRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.ServiceEvent{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return repository.NewSQLiteRepository(db)
}

func saveEventAt(t *testing.T, repo *repository.SQLiteRepository, eventID string, createdAt time.Time) {
	t.Helper()
	event := &models.ServiceEvent{
		EventID: eventID,
		Action:  models.ActionRecognizeFace,
		Status:  models.StatusOK,
	}
	event.CreatedAt = createdAt
	if err := repo.SaveEvent(event); err != nil {
		t.Fatalf("failed to save event: %v", err)
	}
}

func TestRunCleanupRemovesOldRows(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()
	saveEventAt(t, repo, "evt-old", now.AddDate(0, 0, -45))
	saveEventAt(t, repo, "evt-new", now)

	service := NewCleanupService(repo, config.CleanupConfig{RetentionDays: 30})
	if err := service.RunCleanup(context.Background()); err != nil {
		t.Fatalf("RunCleanup failed: %v", err)
	}

	_, total, err := repo.GetEvents(10, 0)
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 remaining row, got %d", total)
	}
}

func TestRunCleanupDisabledKeepsRows(t *testing.T) {
	repo := newTestRepo(t)
	saveEventAt(t, repo, "evt-old", time.Now().AddDate(0, 0, -400))

	service := NewCleanupService(repo, config.CleanupConfig{RetentionDays: 0})
	if err := service.RunCleanup(context.Background()); err != nil {
		t.Fatalf("RunCleanup failed: %v", err)
	}

	_, total, err := repo.GetEvents(10, 0)
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	if total != 1 {
		t.Errorf("retention 0 must keep all rows, got %d", total)
	}
}
