package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FOODVISION_SERVER_PORT.
const EnvPrefix = "FOODVISION"

// Config holds all configuration for the service
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ModelConfig holds model loading and inference configuration
type ModelConfig struct {
	Path           string `mapstructure:"path"`
	MetadataPath   string `mapstructure:"metadata_path"`
	LabelsPath     string `mapstructure:"labels_path"`
	RuntimeLibrary string `mapstructure:"runtime_library"`
	LoadOnStart    bool   `mapstructure:"load_on_start"`
	TopK           int    `mapstructure:"top_k"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	MaxImageBytes  int64  `mapstructure:"max_image_bytes"`
}

// StorageConfig holds the S3-compatible endpoint used for s3:// model paths
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseTLS    bool   `mapstructure:"use_tls"`
}

// UIConfig holds presentation options for the upload page
type UIConfig struct {
	Title string `mapstructure:"title"`
	Theme string `mapstructure:"theme"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Service string `mapstructure:"service"`
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
}

// Load reads config.yaml (if present) and environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("model.path", "./models/food101_resnet50.onnx")
	v.SetDefault("model.metadata_path", "./models/model_metadata.json")
	v.SetDefault("model.labels_path", "./models/label_map_food101.json")
	v.SetDefault("model.runtime_library", "")
	v.SetDefault("model.load_on_start", true)
	v.SetDefault("model.top_k", 5)
	v.SetDefault("model.max_upload_bytes", 256<<20)
	v.SetDefault("model.max_image_bytes", 10<<20)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.use_tls", true)

	v.SetDefault("ui.title", "Food Vision")
	v.SetDefault("ui.theme", "light")

	v.SetDefault("log.service", "food-vision")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode %q, expected debug, release or test", c.Server.Mode)
	}
	if c.Model.TopK <= 0 {
		return fmt.Errorf("model.top_k must be positive, got %d", c.Model.TopK)
	}
	if c.Model.MaxUploadBytes <= 0 || c.Model.MaxImageBytes <= 0 {
		return errors.New("upload limits must be positive")
	}
	return nil
}
