package main

import (
	"os"

	"github.com/docker/go-units"
	"github.com/klauspost/cpuid/v2"
	"github.com/mackerelio/go-osstat/memory"
	"golang.org/x/sys/unix"

	"horizon-boot/logging"
)

// displayStartupInfo summarizes the resolved environment before handoff.
// Credentials are reported as present or absent, never by value.
func displayStartupInfo(cfg *Config, report *HealthReport, log *logging.Logger) {
	log.Info("startup", "%s %s (%s)", cfg.Tool.Command, report.ToolVersion, report.ToolPath)
	for _, rt := range cfg.Tool.Runtimes {
		log.Info("startup", "runtime %s: %s", rt, report.RuntimeVersions[rt])
	}
	if report.DockerVersion != "" {
		log.Info("startup", "docker daemon %s", report.DockerVersion)
	}

	log.Info("startup", "workspace %s (%s free)", cfg.Workspace, freeSpace(cfg.Workspace))

	if mem, err := memory.Get(); err == nil {
		log.Info("startup", "memory: %s total, %s free",
			units.BytesSize(float64(mem.Total)), units.BytesSize(float64(mem.Free)))
	}
	log.Info("startup", "cpu: %s (%d logical cores)", cpuid.CPU.BrandName, cpuid.CPU.LogicalCores)

	exportToken(cfg, log)

	log.Info("startup", "json log at %s", log.Path())
}

// exportToken re-exports the access token under the name the tool expects.
func exportToken(cfg *Config, log *logging.Logger) {
	if cfg.Token == "" {
		log.Warn("startup", "access token absent (%s not set)", tokenEnv)
		return
	}
	os.Setenv(tokenExportEnv, cfg.Token)
	log.Info("startup", "access token present, exported as %s", tokenExportEnv)
}

// freeSpace reports the space available on the filesystem holding path.
func freeSpace(path string) string {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return "unknown"
	}
	return units.BytesSize(float64(fs.Bavail) * float64(fs.Bsize))
}
