// Package config loads the build request and engine policy from YAML, with
// environment variable expansion and optional .env layering.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
	"git.home.luguber.info/inful/fwbuilder/internal/events"
	"git.home.luguber.info/inful/fwbuilder/internal/expand"
)

// Request describes one batch build: where the project lives, which tool
// builds it and the raw per-setting values to expand into combinations.
type Request struct {
	ProjectPath   string `yaml:"project_path"`
	BuildDir      string `yaml:"build_dir"`
	IDEPath       string `yaml:"ide_path"`
	WorkspacePath string `yaml:"workspace_path"`
	ProjectName   string `yaml:"project_name,omitempty"` // defaults to the .project name
	ConfigName    string `yaml:"config_name,omitempty"`  // defaults to Debug
	CleanBuild    bool   `yaml:"clean_build"`
	CustomArgs    string `yaml:"custom_args,omitempty"`
	SchemaPath    string `yaml:"schema_path,omitempty"`

	// Settings maps setting id to its raw value: a range string, a select
	// value or a list of checkbox selections.
	Settings map[string]expand.RawValue `yaml:"settings"`
}

// Policy holds the engine knobs that are deliberately not part of the build
// request: ceilings, grace periods and observability endpoints.
type Policy struct {
	MaxCombinations        int           `yaml:"max_combinations"`
	CancelGracePeriod      time.Duration `yaml:"cancel_grace_period"`
	BuildTimeout           time.Duration `yaml:"build_timeout"` // 0 = no timeout
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"` // 0 = unlimited
	TailLimit              int           `yaml:"tail_limit"`
	EventStorePath         string        `yaml:"event_store_path,omitempty"`
	MetricsListen          string        `yaml:"metrics_listen,omitempty"`

	NATS events.ForwarderConfig `yaml:"nats"`
}

// DaemonConfig configures scheduled unattended builds.
type DaemonConfig struct {
	Schedule string `yaml:"schedule"` // cron expression
}

// Config is the top-level configuration document.
type Config struct {
	Request Request      `yaml:"request"`
	Policy  Policy       `yaml:"policy"`
	Daemon  DaemonConfig `yaml:"daemon"`
}

// Load reads the configuration file, expanding environment variables in the
// YAML content. A .env or .env.local file next to the working directory is
// loaded first without overriding the existing process environment.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// loadEnvFiles loads .env then .env.local, stopping at the first file that
// parses. Existing process environment variables are never overridden.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxCombinations == 0 {
		c.Policy.MaxCombinations = combo.DefaultCeiling
	}
	if c.Policy.CancelGracePeriod == 0 {
		c.Policy.CancelGracePeriod = 5 * time.Second
	}
	if c.Policy.TailLimit == 0 {
		c.Policy.TailLimit = 200
	}
	if c.Request.ConfigName == "" {
		c.Request.ConfigName = "Debug"
	}
	if c.Request.SchemaPath == "" {
		c.Request.SchemaPath = "build_settings.yaml"
	}
	if c.Daemon.Schedule == "" {
		c.Daemon.Schedule = "0 2 * * *" // nightly
	}
}

// Validate checks that the request names everything a session needs.
func (c *Config) Validate() error {
	var missing []string
	if c.Request.ProjectPath == "" {
		missing = append(missing, "project_path")
	}
	if c.Request.BuildDir == "" {
		missing = append(missing, "build_dir")
	}
	if c.Request.IDEPath == "" {
		missing = append(missing, "ide_path")
	}
	if c.Request.WorkspacePath == "" {
		missing = append(missing, "workspace_path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required configuration fields are empty: %v", missing)
	}
	if c.Policy.MaxCombinations < 1 {
		return fmt.Errorf("max_combinations must be positive, got %d", c.Policy.MaxCombinations)
	}
	if c.Policy.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max_consecutive_failures must not be negative, got %d", c.Policy.MaxConsecutiveFailures)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Request: Request{
			ProjectPath:   "/path/to/firmware-project",
			BuildDir:      "./builds",
			IDEPath:       "/opt/st/stm32cubeide/stm32cubeide",
			WorkspacePath: "/path/to/headless-workspace",
			ConfigName:    "Debug",
			CleanBuild:    true,
			SchemaPath:    "build_settings.yaml",
			Settings: map[string]expand.RawValue{
				"device_type": expand.ScalarValue("4,8-10"),
				"device_mode": expand.ScalarValue("GPIO"),
				"languages":   expand.ListValue("en", "kz"),
			},
		},
		Policy: Policy{
			MaxCombinations:   combo.DefaultCeiling,
			CancelGracePeriod: 5 * time.Second,
			TailLimit:         200,
		},
		Daemon: DaemonConfig{Schedule: "0 2 * * *"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
