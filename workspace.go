package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"horizon-boot/logging"
)

// validateWorkspace enforces the mandatory workspace preconditions and
// self-heals optional state. The workspace must exist, be a directory and
// be writable; the config subdirectory is created when absent.
func validateWorkspace(cfg *Config, log *logging.Logger) error {
	info, err := os.Stat(cfg.Workspace)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workspace %s does not exist", cfg.Workspace)
		}
		return fmt.Errorf("checking workspace %s: %w", cfg.Workspace, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", cfg.Workspace)
	}
	if err := unix.Access(cfg.Workspace, unix.W_OK); err != nil {
		return fmt.Errorf("workspace %s is not writable: %w", cfg.Workspace, err)
	}

	if _, err := os.Stat(cfg.configDir()); os.IsNotExist(err) {
		log.Info("validation", "creating config directory %s", cfg.configDir())
		if err := os.MkdirAll(cfg.configDir(), 0755); err != nil {
			return fmt.Errorf("creating config directory %s: %w", cfg.configDir(), err)
		}
	}

	log.Info("validation", "workspace %s validated", cfg.Workspace)
	return nil
}
