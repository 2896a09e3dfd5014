package cleanup

import (
	"context"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/db/repository"

	log "github.com/sirupsen/logrus"
)

// CleanupService prunes old journal rows in the background
type CleanupService struct {
	repo          repository.EventRepository
	config        config.CleanupConfig
	checkInterval time.Duration
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(repo repository.EventRepository, cfg config.CleanupConfig) *CleanupService {
	return &CleanupService{
		repo:          repo,
		config:        cfg,
		checkInterval: 24 * time.Hour, // check once a day
	}
}

// Start runs the cleanup loop until the context is cancelled
func (s *CleanupService) Start(ctx context.Context) {
	log.Info("Cleanup service started")

	// Run one cleanup right away
	if err := s.RunCleanup(ctx); err != nil {
		log.Errorf("Initial cleanup failed: %v", err)
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Info("Running scheduled cleanup")
			if err := s.RunCleanup(ctx); err != nil {
				log.Errorf("Scheduled cleanup failed: %v", err)
			}
		case <-ctx.Done():
			log.Info("Cleanup service stopped")
			return
		}
	}
}

// RunCleanup deletes journal rows older than the retention window
func (s *CleanupService) RunCleanup(ctx context.Context) error {
	if s.config.RetentionDays <= 0 {
		log.Info("Cleanup disabled (retention days <= 0)")
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	log.Infof("Cleaning up journal rows older than %s", cutoff.Format("2006-01-02"))

	deleted, err := s.repo.DeleteEventsBefore(cutoff)
	if err != nil {
		return err
	}

	log.Infof("Cleanup completed: deleted %d journal rows", deleted)
	return nil
}
