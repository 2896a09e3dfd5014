package events

import (
	"time"

	"azure-face-go/internal/core/processor"
	"azure-face-go/internal/integrations/azureface"
	"azure-face-go/internal/util/timezone"

	"github.com/google/uuid"
)

// Event types published over MQTT and SSE.
const (
	TypeRecognitionResult = "recognition_result"
	TypeTrainingResult    = "training_result"
	TypeGroupManagement   = "group_management"
	TypePersonManagement  = "person_management"
	TypeTrainingStatus    = "training_status"
	TypePersonsList       = "persons_list"
)

// Actions carried inside management and training payloads.
const (
	ActionFaceAdded     = "face_added"
	ActionGroupTrained  = "group_trained"
	ActionGroupCreated  = "group_created"
	ActionPersonCreated = "person_created"
	ActionImageUploaded = "image_uploaded"
)

// Envelope wraps every published event. Field names are a compatibility
// contract with downstream automations; do not rename them.
type Envelope struct {
	EventID   string      `json:"event_id"`
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	ProfileID string      `json:"profile_id"`
	Payload   interface{} `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh event ID and the current
// timestamp in the configured timezone.
func NewEnvelope(eventType, profileID string, payload interface{}) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Timestamp: timezone.ISO8601(timezone.Now()),
		ProfileID: profileID,
		Payload:   payload,
	}
}

// RecognitionResult reports the outcome of one recognition run. Zero and
// multiple detected faces are reported here as normal results, not errors.
type RecognitionResult struct {
	CameraEntity    string                     `json:"camera_entity,omitempty"`
	FacesDetected   int                        `json:"faces_detected"`
	Identifications []processor.Identification `json:"identifications"`
	Error           string                     `json:"error,omitempty"`
}

// TrainingResult reports a completed face upload or group training run.
type TrainingResult struct {
	PersonID        string `json:"person_id,omitempty"`
	PersistedFaceID string `json:"persisted_face_id,omitempty"`
	PersonGroupID   string `json:"person_group_id,omitempty"`
	Action          string `json:"action"`
	Status          string `json:"status,omitempty"`
	Error           string `json:"error,omitempty"`
}

// GroupManagement reports person group lifecycle changes.
type GroupManagement struct {
	PersonGroupID string `json:"person_group_id"`
	Action        string `json:"action"`
	Name          string `json:"name,omitempty"`
	Error         string `json:"error,omitempty"`
}

// PersonManagement reports person lifecycle changes.
type PersonManagement struct {
	PersonGroupID   string `json:"person_group_id,omitempty"`
	PersonID        string `json:"person_id,omitempty"`
	Name            string `json:"name,omitempty"`
	PersistedFaceID string `json:"persisted_face_id,omitempty"`
	Action          string `json:"action"`
	Error           string `json:"error,omitempty"`
}

// TrainingStatus reports the training state of a person group.
type TrainingStatus struct {
	PersonGroupID              string     `json:"person_group_id"`
	Status                     string     `json:"status"`
	CreatedTime                time.Time  `json:"created_time"`
	LastActionTime             *time.Time `json:"last_action_time,omitempty"`
	LastSuccessfulTrainingTime *time.Time `json:"last_successful_training_time,omitempty"`
	Message                    string     `json:"message,omitempty"`
	Error                      string     `json:"error,omitempty"`
}

// PersonsList carries the persons of a group as returned by the service.
type PersonsList struct {
	PersonGroupID string             `json:"person_group_id"`
	Persons       []azureface.Person `json:"persons"`
	Error         string             `json:"error,omitempty"`
}
