package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"horizon-boot/logging"
)

// buildTargetArgv decides what dispatch execs:
//   - no arguments: the default tool command
//   - --print-logs: the default command in its verbose console mode, any
//     remaining arguments forwarded as-is
//   - anything else: a literal command to run instead
func buildTargetArgv(cfg *Config, args []string) []string {
	if len(args) == 0 {
		return append([]string{cfg.Tool.Command}, cfg.Tool.Args...)
	}
	if args[0] == "--print-logs" {
		argv := append([]string{cfg.Tool.Command}, cfg.Tool.Args...)
		argv = append(argv, cfg.Tool.PrintLogsFlag)
		return append(argv, args[1:]...)
	}
	return args
}

// dispatch replaces the entrypoint's process image so the target inherits
// its PID and direct signal delivery. It only returns on failure.
func dispatch(cfg *Config, log *logging.Logger, args []string) error {
	argv := buildTargetArgv(cfg, args)

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", argv[0], err)
	}

	log.Info("dispatch", "handing off to: %s", strings.Join(argv, " "))

	// The log file is opened close-on-exec: a successful handoff leaves the
	// session without an end marker. The session stays open here so an exec
	// failure still reaches the JSON log.
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// debugShell drops into an interactive shell for troubleshooting, skipping
// every startup stage.
func debugShell() error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}

	path, err := exec.LookPath(shell)
	if err != nil {
		return fmt.Errorf("resolving shell %s: %w", shell, err)
	}

	if err := unix.Exec(path, []string{path, "-i"}, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
