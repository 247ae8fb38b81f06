package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"horizon-boot/logging"
)

const (
	defaultWorkspace = "/workspace"
	configSubdir     = ".horizon"
	manifestName     = "bootstrap.yml"

	// The access token arrives under the horizon name and is re-exported
	// under the name the tool reads. Only its presence is ever logged.
	tokenEnv       = "HORIZON_ACCESS_TOKEN"
	tokenExportEnv = "OPENCODE_API_KEY"
)

// ToolConfig is the optional workspace manifest (.horizon/bootstrap.yml)
// describing the tool this container fronts. A missing manifest means pure
// defaults; a malformed one blocks startup.
type ToolConfig struct {
	Command        string        `yaml:"command" default:"opencode"`
	Args           []string      `yaml:"args"`
	ConfigFile     string        `yaml:"config_file" default:".opencode/config.json"`
	ConfigOptional bool          `yaml:"config_optional"`
	PrintLogsFlag  string        `yaml:"print_logs_flag" default:"--print-logs"`
	Runtimes       []string      `yaml:"runtimes" default:"[\"node\"]"`
	RequireDocker  bool          `yaml:"require_docker"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" default:"10s"`
}

// Config is assembled once in main and passed to every stage; no stage
// reads the environment behind its back.
type Config struct {
	Workspace string
	Logging   logging.Config
	Tool      ToolConfig
	Token     string
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		Workspace: envOr("WORKSPACE_DIR", defaultWorkspace),
		Logging:   logging.ConfigFromEnv(),
		Token:     os.Getenv(tokenEnv),
	}

	manifest := filepath.Join(cfg.Workspace, configSubdir, manifestName)
	if err := loadManifest(manifest, &cfg.Tool); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadManifest(path string, tool *ToolConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults.Set(tool)
		}
		return fmt.Errorf("reading manifest %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, tool); err != nil {
		return fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return defaults.Set(tool)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// configDir is the optional workspace state directory, created during
// validation when absent.
func (c *Config) configDir() string {
	return filepath.Join(c.Workspace, configSubdir)
}

// toolConfigPath resolves the tool's config file relative to the workspace.
func (c *Config) toolConfigPath() string {
	if filepath.IsAbs(c.Tool.ConfigFile) {
		return c.Tool.ConfigFile
	}
	return filepath.Join(c.Workspace, c.Tool.ConfigFile)
}
