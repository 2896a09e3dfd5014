package services

import (
	"azure-face-go/internal/core/events"
	"azure-face-go/internal/integrations/homeassistant"
	"azure-face-go/internal/server/sse"

	log "github.com/sirupsen/logrus"
)

// Notifier fans service events out to the configured channels. Publishing is
// best effort; command outcomes never depend on a delivery succeeding.
type Notifier interface {
	NotifyEvent(envelope events.Envelope)
	NotifyRecognition(camera, outcome string, envelope events.Envelope, result events.RecognitionResult)
}

// NotifierService delivers events to the SSE stream and, when MQTT is
// enabled, to Home Assistant.
type NotifierService struct {
	hub       *sse.Hub
	publisher *homeassistant.Publisher // nil when MQTT is disabled
}

// NewNotifierService creates a new notifier. The publisher may be nil.
func NewNotifierService(hub *sse.Hub, publisher *homeassistant.Publisher) *NotifierService {
	return &NotifierService{
		hub:       hub,
		publisher: publisher,
	}
}

// NotifyEvent delivers one event envelope to all channels
func (s *NotifierService) NotifyEvent(envelope events.Envelope) {
	if s.hub != nil {
		s.hub.BroadcastEvent(envelope)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishEvent(envelope); err != nil {
			log.Errorf("Failed to publish %s event via MQTT: %v", envelope.Type, err)
		}
	}
}

// NotifyRecognition delivers a recognition event and updates the camera sensor
func (s *NotifierService) NotifyRecognition(camera, outcome string, envelope events.Envelope, result events.RecognitionResult) {
	s.NotifyEvent(envelope)

	if s.publisher != nil {
		if err := s.publisher.PublishRecognition(camera, outcome, result); err != nil {
			log.Errorf("Failed to publish camera state for %s: %v", camera, err)
		}
	}
}
