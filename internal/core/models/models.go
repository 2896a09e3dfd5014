package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action names journaled by the command layer.
const (
	ActionRecognizeFace     = "recognize_face"
	ActionTrainPerson       = "train_person"
	ActionCreatePersonGroup = "create_person_group"
	ActionTrainGroup        = "train_group"
	ActionCreatePerson      = "create_person"
	ActionUploadPersonImage = "upload_person_image"
	ActionTrainingStatus    = "get_training_status"
	ActionListPersons       = "list_persons"
)

// Outcome states of a journaled command.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ServiceEvent is one journaled command outcome. The journal exists for
// observability only; face, person and group data lives in the remote
// service and is never answered from these rows.
type ServiceEvent struct {
	gorm.Model
	EventID    string         `gorm:"uniqueIndex;size:36" json:"event_id"` // shared with the published event
	Action     string         `gorm:"index" json:"action"`
	ProfileID  string         `gorm:"index" json:"profile_id"`
	GroupID    string         `gorm:"index" json:"group_id,omitempty"`
	Camera     string         `json:"camera,omitempty"`
	Status     string         `gorm:"index" json:"status"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	Message    string         `json:"message,omitempty"`
	Payload    datatypes.JSON `json:"payload,omitempty"` // the published event payload
	DurationMs int64          `json:"duration_ms"`
}

// JournalStats summarizes the journal for the status endpoint.
type JournalStats struct {
	TotalEvents int64      `json:"total_events"`
	ErrorEvents int64      `json:"error_events"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}
