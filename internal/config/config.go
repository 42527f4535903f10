package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultStatuses are the ticket statuses shown on the report when none are
// configured.
var DefaultStatuses = []string{"In Queue", "Analysis in Progress", "Updated by Customer"}

// Config aggregates credentials from the environment and report/server
// defaults from queueview.yml.
type Config struct {
	Genesys GenesysConfig `yaml:"-"`
	MTA     MTAConfig     `yaml:"-"`
	Report  ReportConfig  `yaml:"report"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"-"`
}

// GenesysConfig holds presence cloud OAuth credentials.
type GenesysConfig struct {
	ClientID     string
	ClientSecret string
	Region       string
}

// MTAConfig holds ticket backend access values.
type MTAConfig struct {
	TicketURL   string
	BearerToken string
}

// ReportConfig holds report defaults.
type ReportConfig struct {
	Queue    string   `yaml:"queue"`
	Statuses []string `yaml:"statuses"`
}

// ServerConfig configures the serve mode.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	BasePath  string `yaml:"base_path"`
	JWTSecret string `yaml:"-"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level string
}

// Load reads credentials from the environment (a .env file is honored when
// present) and merges report/server defaults from queueview.yml if the
// workspace has one.
func Load(workspace string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Genesys: GenesysConfig{
			ClientID:     os.Getenv("GENESYS_CLOUD_CLIENT_ID"),
			ClientSecret: os.Getenv("GENESYS_CLOUD_CLIENT_SECRET"),
			Region:       os.Getenv("GENESYS_CLOUD_REGION"),
		},
		MTA: MTAConfig{
			TicketURL:   os.Getenv("MTA_QUEUE_TICKET_URL"),
			BearerToken: os.Getenv("MTA_BEARER_TOKEN"),
		},
		Report: ReportConfig{
			Queue:    os.Getenv("TARGET_QUEUE_NAME"),
			Statuses: append([]string(nil), DefaultStatuses...),
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			BasePath:  "/v0",
			JWTSecret: os.Getenv("QUEUEVIEW_JWT_SECRET"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := cfg.mergeYAML(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "queueview.yml")
}

func (c *Config) mergeYAML(data []byte) error {
	var file struct {
		Report ReportConfig `yaml:"report"`
		Server ServerConfig `yaml:"server"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("invalid config yaml: %w", err)
	}
	if file.Report.Queue != "" {
		c.Report.Queue = file.Report.Queue
	}
	if len(file.Report.Statuses) > 0 {
		c.Report.Statuses = file.Report.Statuses
	}
	if file.Server.Addr != "" {
		c.Server.Addr = file.Server.Addr
	}
	if file.Server.BasePath != "" {
		c.Server.BasePath = file.Server.BasePath
	}
	return nil
}

// ValidateGenesys ensures presence credentials are present. Missing required
// credentials are fatal at startup, before any fetch is attempted.
func (c *Config) ValidateGenesys() error {
	if c.Genesys.ClientID == "" {
		return fmt.Errorf("GENESYS_CLOUD_CLIENT_ID is required")
	}
	if c.Genesys.ClientSecret == "" {
		return fmt.Errorf("GENESYS_CLOUD_CLIENT_SECRET is required")
	}
	if c.Genesys.Region == "" {
		return fmt.Errorf("GENESYS_CLOUD_REGION is required")
	}
	return nil
}

// ValidateMTA ensures ticket backend access values are present.
func (c *Config) ValidateMTA() error {
	if c.MTA.TicketURL == "" {
		return fmt.Errorf("MTA_QUEUE_TICKET_URL is required")
	}
	if c.MTA.BearerToken == "" {
		return fmt.Errorf("MTA_BEARER_TOKEN is required")
	}
	return nil
}

// ValidateQueue ensures a target queue is configured.
func (c *Config) ValidateQueue() error {
	if c.Report.Queue == "" {
		return fmt.Errorf("no target queue; set TARGET_QUEUE_NAME or report.queue in %s", "queueview.yml")
	}
	return nil
}

// ValidateServer ensures serve-mode settings are usable.
func (c *Config) ValidateServer() error {
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("QUEUEVIEW_JWT_SECRET is required for bearer auth")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
