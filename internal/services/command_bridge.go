package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"azure-face-go/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// commandTimeout bounds one MQTT-triggered recognition end to end.
const commandTimeout = 60 * time.Second

// CommandBridge turns inbound MQTT command messages into recognition jobs.
// It implements mqtt.MessageHandler.
type CommandBridge struct {
	pool *processor.WorkerPool
}

// NewCommandBridge creates a bridge dispatching into the given pool.
func NewCommandBridge(pool *processor.WorkerPool) *CommandBridge {
	return &CommandBridge{pool: pool}
}

// recognizeCommand is the payload expected on the recognize command topic.
type recognizeCommand struct {
	Camera              string  `json:"camera"`
	ProfileID           string  `json:"profile_id"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// HandleMessage dispatches one command message. Unknown commands are logged
// and dropped.
func (b *CommandBridge) HandleMessage(topic string, payload []byte) {
	command := topic[strings.LastIndex(topic, "/")+1:]

	switch command {
	case "recognize":
		b.handleRecognize(payload)
	default:
		log.Warnf("Ignoring unknown MQTT command: %s", command)
	}
}

func (b *CommandBridge) handleRecognize(payload []byte) {
	var cmd recognizeCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Errorf("Failed to parse recognize command: %v", err)
		return
	}
	if cmd.Camera == "" {
		log.Error("Recognize command without camera, dropping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := b.pool.Process(ctx, processor.RecognitionJob{
		ProfileID:           cmd.ProfileID,
		Camera:              cmd.Camera,
		ConfidenceThreshold: cmd.ConfidenceThreshold,
	})
	if err != nil {
		// The service already published and journaled the failure
		log.Errorf("Recognition for camera %s failed: %v", cmd.Camera, err)
		return
	}

	log.Debugf("Recognition for camera %s finished (%d faces)", cmd.Camera, result.FacesDetected)
}
