package repository

import (
	"errors"
	"fmt"
	"time"

	"azure-face-go/internal/core/models"

	"gorm.io/gorm"
)

// EventRepository defines the interface for journal persistence
type EventRepository interface {
	SaveEvent(event *models.ServiceEvent) error
	GetEventByID(eventID string) (*models.ServiceEvent, error)
	GetEvents(limit, offset int) ([]models.ServiceEvent, int64, error)
	GetEventsByAction(action string, limit, offset int) ([]models.ServiceEvent, int64, error)
	DeleteEventsBefore(cutoff time.Time) (int64, error)
	GetStats() (models.JournalStats, error)
}

// SQLiteRepository implements EventRepository using GORM
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new repository instance
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveEvent persists a journal row
func (r *SQLiteRepository) SaveEvent(event *models.ServiceEvent) error {
	if err := r.db.Save(event).Error; err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// GetEventByID retrieves a single event by its event ID
func (r *SQLiteRepository) GetEventByID(eventID string) (*models.ServiceEvent, error) {
	var event models.ServiceEvent
	err := r.db.Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// GetEvents retrieves events newest first, with pagination
func (r *SQLiteRepository) GetEvents(limit, offset int) ([]models.ServiceEvent, int64, error) {
	var events []models.ServiceEvent
	var total int64

	if err := r.db.Model(&models.ServiceEvent{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get events: %w", err)
	}

	return events, total, nil
}

// GetEventsByAction retrieves events for one action, newest first
func (r *SQLiteRepository) GetEventsByAction(action string, limit, offset int) ([]models.ServiceEvent, int64, error) {
	var events []models.ServiceEvent
	var total int64

	query := r.db.Model(&models.ServiceEvent{}).Where("action = ?", action)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	err := r.db.Where("action = ?", action).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get events: %w", err)
	}

	return events, total, nil
}

// DeleteEventsBefore removes journal rows older than the cutoff.
// Rows are deleted permanently, not soft-deleted.
func (r *SQLiteRepository) DeleteEventsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.ServiceEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetStats returns aggregate journal statistics
func (r *SQLiteRepository) GetStats() (models.JournalStats, error) {
	var stats models.JournalStats

	if err := r.db.Model(&models.ServiceEvent{}).Count(&stats.TotalEvents).Error; err != nil {
		return stats, fmt.Errorf("failed to count events: %w", err)
	}

	err := r.db.Model(&models.ServiceEvent{}).
		Where("status = ?", models.StatusError).
		Count(&stats.ErrorEvents).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count error events: %w", err)
	}

	var latest models.ServiceEvent
	err = r.db.Order("created_at DESC").First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return stats, nil
		}
		return stats, fmt.Errorf("failed to get latest event: %w", err)
	}
	stats.LastEventAt = &latest.CreatedAt

	return stats, nil
}
