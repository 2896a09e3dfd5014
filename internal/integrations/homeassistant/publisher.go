package homeassistant

import (
	"fmt"
	"sync"
	"time"

	"azure-face-go/config"
	"azure-face-go/internal/core/events"
	"azure-face-go/internal/integrations/mqtt"

	log "github.com/sirupsen/logrus"
)

// StateClear is published for a camera after no recognition ran for a while,
// so Home Assistant automations can trigger on state transitions.
const StateClear = "clear"

// StateUnknown is published when a face was found but nobody matched.
const StateUnknown = "unknown"

// Publisher pushes recognition outcomes and service events over MQTT
type Publisher struct {
	mqttClient       *mqtt.Client
	cfg              *config.Config
	cameraLastUpdate map[string]time.Time // last recognition per camera
	mu               sync.Mutex
}

// NewPublisher creates a new MQTT publisher for Home Assistant
func NewPublisher(mqttClient *mqtt.Client, cfg *config.Config) *Publisher {
	return &Publisher{
		mqttClient:       mqttClient,
		cfg:              cfg,
		cameraLastUpdate: make(map[string]time.Time),
	}
}

// StartResetTimers starts the loop clearing stale camera states
func (p *Publisher) StartResetTimers() {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			p.checkAndResetStates()
		}
	}()
}

// checkAndResetStates clears camera states that have not updated recently
func (p *Publisher) checkAndResetStates() {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for camera, lastUpdate := range p.cameraLastUpdate {
		// Clear the state after 30 seconds without a new recognition
		if now.Sub(lastUpdate) > 30*time.Second {
			topic := p.cameraTopic(camera)
			if err := p.mqttClient.Publish(topic, StateClear); err != nil {
				log.Errorf("Failed to publish state reset for camera %s: %v", camera, err)
			} else {
				log.Debugf("Cleared state for camera %s", camera)
			}

			delete(p.cameraLastUpdate, camera)
		}
	}
}

// PublishEvent publishes a service event to its type topic
func (p *Publisher) PublishEvent(envelope events.Envelope) error {
	topic := fmt.Sprintf("%s/events/%s", p.cfg.MQTT.TopicPrefix, envelope.Type)
	if err := p.mqttClient.Publish(topic, envelope); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", envelope.Type, err)
	}
	return nil
}

// PublishRecognition updates the per-camera sensor with a recognition outcome.
// The state is the best candidate's person id, or the outcome tag when no
// single face was identified.
func (p *Publisher) PublishRecognition(camera, outcome string, result events.RecognitionResult) error {
	if camera == "" {
		return nil
	}

	state := cameraState(outcome, result)
	topic := p.cameraTopic(camera)

	if err := p.mqttClient.Publish(topic, state); err != nil {
		return fmt.Errorf("failed to publish camera state: %w", err)
	}
	if err := p.mqttClient.Publish(topic+"/attributes", result); err != nil {
		return fmt.Errorf("failed to publish camera attributes: %w", err)
	}

	p.mu.Lock()
	p.cameraLastUpdate[camera] = time.Now()
	p.mu.Unlock()

	return nil
}

// cameraTopic returns the state topic for one camera
func (p *Publisher) cameraTopic(camera string) string {
	return fmt.Sprintf("%s/cameras/%s", p.cfg.MQTT.TopicPrefix, camera)
}

// cameraState derives the sensor state from a recognition result
func cameraState(outcome string, result events.RecognitionResult) string {
	if outcome != "" {
		return outcome
	}

	best := ""
	bestConfidence := 0.0
	for _, identification := range result.Identifications {
		for _, candidate := range identification.Candidates {
			if candidate.Confidence > bestConfidence {
				bestConfidence = candidate.Confidence
				best = candidate.PersonID
			}
		}
	}
	if best == "" {
		return StateUnknown
	}
	return best
}
