package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/client"
	"github.com/valyala/fastjson"
	"gopkg.in/yaml.v3"

	"horizon-boot/logging"
)

// HealthReport carries the versions resolved during the health check for
// the startup banner.
type HealthReport struct {
	ToolPath        string
	ToolVersion     string
	RuntimeVersions map[string]string
	DockerVersion   string
}

// checkHealth verifies every runtime dependency the tool needs. It is
// all-or-nothing: the first missing or invalid dependency fails startup.
// Every external probe runs under cfg.Tool.ProbeTimeout so a hung
// dependency cannot stall container startup.
func checkHealth(cfg *Config, log *logging.Logger) (*HealthReport, error) {
	report := &HealthReport{RuntimeVersions: make(map[string]string)}
	timeout := cfg.Tool.ProbeTimeout

	path, err := exec.LookPath(cfg.Tool.Command)
	if err != nil {
		return nil, fmt.Errorf("required executable %s not found: %w", cfg.Tool.Command, err)
	}
	report.ToolPath = path

	version, err := probeVersion(path, timeout)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", cfg.Tool.Command, err)
	}
	report.ToolVersion = version
	log.Debug("health_check", "%s resolved to %s (%s)", cfg.Tool.Command, path, version)

	if err := checkToolConfig(cfg); err != nil {
		return nil, err
	}

	for _, rt := range cfg.Tool.Runtimes {
		rtPath, err := exec.LookPath(rt)
		if err != nil {
			return nil, fmt.Errorf("required runtime %s not found: %w", rt, err)
		}
		version, err := probeVersion(rtPath, timeout)
		if err != nil {
			return nil, fmt.Errorf("probing runtime %s: %w", rt, err)
		}
		report.RuntimeVersions[rt] = version
	}

	if cfg.Tool.RequireDocker {
		version, err := probeDocker(timeout)
		if err != nil {
			return nil, fmt.Errorf("docker daemon not reachable: %w", err)
		}
		report.DockerVersion = version
	}

	log.Info("health_check", "all health checks passed")
	return report, nil
}

// probeVersion runs "<bin> --version" under a bounded deadline and returns
// the first output line.
func probeVersion(path string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%s --version timed out after %v", path, timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", path, err)
	}

	version := strings.TrimSpace(string(out))
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = strings.TrimSpace(version[:i])
	}
	if version == "" {
		return "", fmt.Errorf("%s --version produced no output", path)
	}
	return version, nil
}

// checkToolConfig requires the tool's configuration file to exist and parse
// as well-formed structured data. YAML files are unmarshalled, everything
// else is validated as JSON.
func checkToolConfig(cfg *Config) error {
	path := cfg.toolConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && cfg.Tool.ConfigOptional {
			return nil
		}
		return fmt.Errorf("tool config %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("tool config %s is not valid YAML: %w", path, err)
		}
	default:
		if err := fastjson.ValidateBytes(data); err != nil {
			return fmt.Errorf("tool config %s is not valid JSON: %w", path, err)
		}
	}
	return nil
}

// probeDocker pings the daemon over the mounted socket and reports its
// version. Only runs when the manifest sets require_docker.
func probeDocker(timeout time.Duration) (string, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		return "", err
	}
	version, err := cli.ServerVersion(ctx)
	if err != nil {
		return "", err
	}
	return version.Version, nil
}
