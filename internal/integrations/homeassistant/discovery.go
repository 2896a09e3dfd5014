package homeassistant

import (
	"fmt"
	"strings"

	"azure-face-go/config"
	"azure-face-go/internal/integrations/mqtt"

	log "github.com/sirupsen/logrus"
)

// Constants for Home Assistant MQTT Discovery
const (
	// Default discovery prefix when none is configured
	DefaultDiscoveryPrefix = "homeassistant"

	// Component type for sensors
	ComponentSensor = "sensor"

	// Node ID under which all sensors are registered
	NodeID = "azure_face"
)

// SensorConfig is the MQTT discovery configuration for one Home Assistant sensor
type SensorConfig struct {
	Name                string  `json:"name"`
	UniqueID            string  `json:"unique_id"`
	StateTopic          string  `json:"state_topic"`
	Icon                string  `json:"icon,omitempty"`
	JSONAttributesTopic string  `json:"json_attributes_topic,omitempty"`
	ValueTemplate       string  `json:"value_template,omitempty"`
	AvailabilityTopic   string  `json:"availability_topic,omitempty"`
	PayloadAvailable    string  `json:"payload_available,omitempty"`
	PayloadNotAvailable string  `json:"payload_not_available,omitempty"`
	Device              *Device `json:"device,omitempty"`
}

// Device carries the device information shown in Home Assistant
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// DiscoveryManager manages Home Assistant MQTT discovery
type DiscoveryManager struct {
	mqttClient *mqtt.Client
	cfg        *config.Config
}

// NewDiscoveryManager creates a new discovery manager
func NewDiscoveryManager(mqttClient *mqtt.Client, cfg *config.Config) *DiscoveryManager {
	return &DiscoveryManager{
		mqttClient: mqttClient,
		cfg:        cfg,
	}
}

// discoveryPrefix returns the configured discovery prefix or the default
func (dm *DiscoveryManager) discoveryPrefix() string {
	if dm.cfg.MQTT.HomeAssistant.DiscoveryPrefix != "" {
		return dm.cfg.MQTT.HomeAssistant.DiscoveryPrefix
	}
	return DefaultDiscoveryPrefix
}

// RegisterCameras publishes discovery configurations for all configured cameras
func (dm *DiscoveryManager) RegisterCameras() error {
	if !dm.cfg.MQTT.HomeAssistant.Enabled {
		log.Debug("Home Assistant discovery is disabled, skipping sensor registration")
		return nil
	}

	device := &Device{
		Identifiers:  []string{"azure_face_go"},
		Name:         "Azure Face Go",
		Manufacturer: "Azure Face Go Project",
		Model:        "Go Edition",
		SWVersion:    "1.0.0",
	}

	for camera := range dm.cfg.Cameras {
		if err := dm.registerCameraSensor(camera, device); err != nil {
			log.Errorf("Failed to register sensor for camera %s: %v", camera, err)
		}
	}

	return nil
}

// registerCameraSensor publishes the discovery configuration for one camera
func (dm *DiscoveryManager) registerCameraSensor(camera string, device *Device) error {
	// Normalize the name for use in topics and unique ids
	normalizedName := strings.ToLower(strings.ReplaceAll(camera, " ", "_"))

	sensorConfig := SensorConfig{
		Name:                fmt.Sprintf("Azure Face %s", camera),
		UniqueID:            fmt.Sprintf("azure_face_%s", normalizedName),
		StateTopic:          fmt.Sprintf("%s/cameras/%s", dm.cfg.MQTT.TopicPrefix, camera),
		JSONAttributesTopic: fmt.Sprintf("%s/cameras/%s/attributes", dm.cfg.MQTT.TopicPrefix, camera),
		Icon:                "mdi:face-recognition",
		AvailabilityTopic:   fmt.Sprintf("%s/status", dm.cfg.MQTT.TopicPrefix),
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
		Device:              device,
	}

	topic := fmt.Sprintf("%s/%s/%s/%s/config",
		dm.discoveryPrefix(),
		ComponentSensor,
		NodeID,
		normalizedName)

	log.Infof("Registering Home Assistant sensor for camera: %s", camera)
	if err := dm.mqttClient.PublishRetain(topic, sensorConfig); err != nil {
		return fmt.Errorf("failed to publish discovery configuration: %w", err)
	}

	return nil
}

// PublishAvailability publishes the service's online state
func (dm *DiscoveryManager) PublishAvailability(online bool) error {
	status := "offline"
	if online {
		status = "online"
	}

	return dm.mqttClient.PublishRetain(fmt.Sprintf("%s/status", dm.cfg.MQTT.TopicPrefix), status)
}
