package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Storage struct {
		Root string `yaml:"root"` // Base directory for all tenant namespaces
	} `yaml:"storage"`

	Media struct {
		CanonicalFormat  string `yaml:"canonical_format"`  // "jpeg" or "png"
		OriginalQuality  int    `yaml:"original_quality"`  // JPEG quality for the original variant (1-100)
		ThumbnailQuality int    `yaml:"thumbnail_quality"` // JPEG quality for the thumb variant (1-100)
		ThumbnailMaxDim  int    `yaml:"thumbnail_max_dim"` // Longest side of the thumb variant in pixels
		MaxUploadSize    int64  `yaml:"max_upload_size"`   // Max accepted upload size in bytes
	} `yaml:"media"`

	Jobs struct {
		OptimizationInterval   Duration `yaml:"optimization_interval"`
		OptimizationBatchSize  int      `yaml:"optimization_batch_size"`
		ReconciliationInterval Duration `yaml:"reconciliation_interval"`
		TokenSweepInterval     Duration `yaml:"token_sweep_interval"`
	} `yaml:"jobs"`
}

// Duration accepts human-readable values like "1h" or "30m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

var AppConfig *Config

// LoadConfig reads config/config.yaml, or falls back to environment
// variables when DATABASE_URL is set (test/deployment mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))

	cfg.Storage.Root = os.Getenv("STORAGE_ROOT")
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "./data"
	}

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Media.CanonicalFormat == "" {
		cfg.Media.CanonicalFormat = "jpeg"
	}
	if cfg.Media.OriginalQuality <= 0 || cfg.Media.OriginalQuality > 100 {
		cfg.Media.OriginalQuality = 90
	}
	if cfg.Media.ThumbnailQuality <= 0 || cfg.Media.ThumbnailQuality > 100 {
		cfg.Media.ThumbnailQuality = 80
	}
	if cfg.Media.ThumbnailMaxDim <= 0 {
		cfg.Media.ThumbnailMaxDim = 800
	}
	if cfg.Media.MaxUploadSize <= 0 {
		cfg.Media.MaxUploadSize = 25 * 1024 * 1024 // 25MB
	}

	if cfg.Jobs.OptimizationInterval <= 0 {
		cfg.Jobs.OptimizationInterval = Duration(time.Hour)
	}
	if cfg.Jobs.OptimizationBatchSize <= 0 {
		cfg.Jobs.OptimizationBatchSize = 50
	}
	if cfg.Jobs.ReconciliationInterval <= 0 {
		cfg.Jobs.ReconciliationInterval = Duration(24 * time.Hour)
	}
	if cfg.Jobs.TokenSweepInterval <= 0 {
		cfg.Jobs.TokenSweepInterval = Duration(12 * time.Hour)
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
