package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the main application configuration
type Config struct {
	Server  ServerConfig            `mapstructure:"server"`
	Log     LogConfig               `mapstructure:"log"`
	DB      DBConfig                `mapstructure:"db"`
	Azure   AzureConfig             `mapstructure:"azure"`
	Cameras map[string]CameraConfig `mapstructure:"cameras"`
	MQTT    MQTTConfig              `mapstructure:"mqtt"`
	Cleanup CleanupConfig           `mapstructure:"cleanup"`
}

// ServerConfig contains server-related settings
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DataDir  string `mapstructure:"data_dir"`
	Timezone string `mapstructure:"timezone"`
}

// LogConfig contains log settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig contains database settings
type DBConfig struct {
	File string `mapstructure:"file"` // SQLite database file
}

// AzureConfig contains settings shared by all Azure Face API profiles
type AzureConfig struct {
	TimeoutSeconds         int            `mapstructure:"timeout_seconds"`          // per-request HTTP timeout
	DetectionModel         string         `mapstructure:"detection_model"`          // e.g. detection_03
	RecognitionModel       string         `mapstructure:"recognition_model"`        // e.g. recognition_04
	ConfidenceThreshold    float64        `mapstructure:"confidence_threshold"`     // identify confidence cutoff
	MaxCandidates          int            `mapstructure:"max_candidates"`           // candidates returned per face
	PollIntervalSeconds    int            `mapstructure:"poll_interval_seconds"`    // training status poll interval
	TrainingTimeoutSeconds int            `mapstructure:"training_timeout_seconds"` // 0 disables the training deadline
	Profiles               []AzureProfile `mapstructure:"profiles"`
}

// AzureProfile describes one Azure Face API account and its default person group.
// Either endpoint or region must be set; region is resolved to the regional
// endpoint at startup. The first profile acts as the default.
type AzureProfile struct {
	ID            string `mapstructure:"id"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	APIKey        string `mapstructure:"api_key"` // never logged
	PersonGroupID string `mapstructure:"person_group_id"`
}

// CameraConfig describes a camera whose snapshot can be recognized by name
type CameraConfig struct {
	SnapshotURL string `mapstructure:"snapshot_url"`
}

// MQTTConfig contains the configuration for the MQTT client
type MQTTConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	Broker        string              `mapstructure:"broker"`
	Port          int                 `mapstructure:"port"`
	Username      string              `mapstructure:"username"`
	Password      string              `mapstructure:"password"`
	ClientID      string              `mapstructure:"client_id"`
	TopicPrefix   string              `mapstructure:"topic_prefix"`  // base topic for published events
	CommandTopic  string              `mapstructure:"command_topic"` // subscription for inbound commands
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
}

// HomeAssistantConfig contains the configuration for the Home Assistant integration
type HomeAssistantConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
}

// CleanupConfig contains retention settings for the event journal
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// Load reads the configuration from file, environment variables and defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables overlay the file values
	v.AutomaticEnv()
	v.SetEnvPrefix("AZURE_FACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// validate checks the structural constraints the loader can verify without
// talking to the remote API
func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, p := range c.Azure.Profiles {
		if p.ID == "" {
			return fmt.Errorf("azure profile %d has no id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate azure profile id %q", p.ID)
		}
		seen[p.ID] = true
		if p.APIKey == "" {
			return fmt.Errorf("azure profile %q has no api_key", p.ID)
		}
		if p.Endpoint == "" && p.Region == "" {
			return fmt.Errorf("azure profile %q needs either endpoint or region", p.ID)
		}
	}
	if c.Azure.ConfidenceThreshold < 0 || c.Azure.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1")
	}
	if c.Azure.MaxCandidates < 1 {
		return fmt.Errorf("max_candidates must be at least 1")
	}
	for name, cam := range c.Cameras {
		if cam.SnapshotURL == "" {
			return fmt.Errorf("camera %q has no snapshot_url", name)
		}
	}
	return nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "/data")
	v.SetDefault("server.timezone", "UTC")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "/data/logs/azure-face.log")

	// DB defaults
	v.SetDefault("db.file", "/data/azure-face.db")

	// Azure defaults
	v.SetDefault("azure.timeout_seconds", 10)
	v.SetDefault("azure.detection_model", "detection_03")
	v.SetDefault("azure.recognition_model", "recognition_04")
	v.SetDefault("azure.confidence_threshold", 0.7)
	v.SetDefault("azure.max_candidates", 1)
	v.SetDefault("azure.poll_interval_seconds", 1)
	v.SetDefault("azure.training_timeout_seconds", 600)

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "azure-face-go")
	v.SetDefault("mqtt.topic_prefix", "azure-face")
	v.SetDefault("mqtt.command_topic", "azure-face/command/#")
	v.SetDefault("mqtt.homeassistant.enabled", false)
	v.SetDefault("mqtt.homeassistant.discovery_prefix", "homeassistant")

	// Cleanup defaults
	v.SetDefault("cleanup.retention_days", 30)
}

// ensureDirectories makes sure all required directories exist
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	logDir := filepath.Dir(cfg.Log.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
