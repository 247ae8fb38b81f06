package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horizon-boot/logging"
)

const (
	harnessModeEnv  = "HORIZON_BOOT_HARNESS"
	harnessReadyEnv = "HORIZON_BOOT_HARNESS_READY"
)

// TestMain re-executes the test binary as the entrypoint when the harness
// variable is set, so process-level behavior (exec handoff, debug shell,
// signal shutdown) can be observed from outside the process.
func TestMain(m *testing.M) {
	switch os.Getenv(harnessModeEnv) {
	case "main":
		main()
		return
	case "signal":
		runSignalHarness()
		return
	}
	os.Exit(m.Run())
}

// runSignalHarness performs startup through the signal-handler stage, marks
// readiness, then parks waiting for a termination signal.
func runSignalHarness() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	log.Setup("entrypoint")
	installSignalHandlers(log)

	if ready := os.Getenv(harnessReadyEnv); ready != "" {
		os.WriteFile(ready, []byte("ok"), 0644)
	}
	select {}
}

type harness struct {
	ws     string
	bin    string
	logDir string
	pidOut string
}

// newHarness builds a workspace and a private PATH holding a fake default
// tool. The tool answers --version for the health probe; dispatched without
// arguments it records its own PID so the parent can verify the handoff
// replaced the process image.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ws:     t.TempDir(),
		bin:    t.TempDir(),
		logDir: filepath.Join(t.TempDir(), "logs"),
	}
	h.pidOut = filepath.Join(h.ws, "tool.pid")

	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo faketool 1.0.0; exit 0; fi\n" +
		"echo $$ > \"" + h.pidOut + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.bin, "faketool"), []byte(script), 0755))

	require.NoError(t, os.MkdirAll(filepath.Join(h.ws, configSubdir), 0755))
	manifest := "command: faketool\nconfig_file: tool.json\nruntimes: []\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.ws, configSubdir, manifestName), []byte(manifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.ws, "tool.json"), []byte("{}"), 0644))
	return h
}

func (h *harness) command(mode string, args ...string) *exec.Cmd {
	cmd := exec.Command(os.Args[0], args...)
	cmd.Env = append(os.Environ(),
		harnessModeEnv+"="+mode,
		"PATH="+h.bin,
		"WORKSPACE_DIR="+h.ws,
		"LOG_DIR="+h.logDir,
		"LOG_FILE=harness.log",
		"LOG_LEVEL=DEBUG",
		"ENABLE_CONSOLE_LOGGING=false",
	)
	return cmd
}

func (h *harness) logContents(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.logDir, "harness.log"))
	require.NoError(t, err)
	return string(data)
}

// waitTimeout waits for a started subprocess, failing the test if it hangs.
func waitTimeout(t *testing.T, cmd *exec.Cmd, d time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		cmd.Process.Kill()
		t.Fatal("subprocess did not exit in time")
		return nil
	}
}

func TestEntrypointExecsDefaultProcess(t *testing.T) {
	h := newHarness(t)
	cmd := h.command("main")
	require.NoError(t, cmd.Start())
	require.NoError(t, waitTimeout(t, cmd, 10*time.Second),
		"healthy startup must exit 0 through the exec'd tool")

	data, err := os.ReadFile(h.pidOut)
	require.NoError(t, err, "default tool never ran")
	pid := strings.TrimSpace(string(data))
	assert.Equal(t, fmt.Sprint(cmd.Process.Pid), pid,
		"tool must replace the entrypoint image, not run as a child")

	content := h.logContents(t)
	assert.Contains(t, content, "session_start")
	assert.Contains(t, content, `"operation":"validation"`)
	assert.Contains(t, content, `"operation":"health_check"`)
	assert.Contains(t, content, "handing off")
}

func TestEntrypointDebugShortCircuit(t *testing.T) {
	h := newHarness(t)
	marker := filepath.Join(h.ws, "shell.ran")
	shell := filepath.Join(h.bin, "fakeshell")
	script := "#!/bin/sh\necho ran > \"" + marker + "\"\n"
	require.NoError(t, os.WriteFile(shell, []byte(script), 0755))

	cmd := h.command("main", "--debug")
	cmd.Env = append(cmd.Env, "SHELL="+shell)
	require.NoError(t, cmd.Start())
	require.NoError(t, waitTimeout(t, cmd, 10*time.Second))

	_, err := os.Stat(marker)
	assert.NoError(t, err, "interactive shell should have run")
	_, err = os.Stat(h.pidOut)
	assert.True(t, os.IsNotExist(err), "default tool must never be reached")
	_, err = os.Stat(filepath.Join(h.logDir, "harness.log"))
	assert.True(t, os.IsNotExist(err), "--debug skips every startup stage")
}

func TestEntrypointGracefulShutdownOnSIGTERM(t *testing.T) {
	h := newHarness(t)
	ready := filepath.Join(h.ws, "ready")

	cmd := h.command("signal")
	cmd.Env = append(cmd.Env, harnessReadyEnv+"="+ready)
	require.NoError(t, cmd.Start())

	require.Eventually(t, func() bool {
		_, err := os.Stat(ready)
		return err == nil
	}, 10*time.Second, 10*time.Millisecond, "signal handlers never became ready")

	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))
	require.NoError(t, waitTimeout(t, cmd, 10*time.Second),
		"signal-triggered shutdown must exit 0")

	content := h.logContents(t)
	assert.Contains(t, content, `"operation":"shutdown"`)
	assert.Contains(t, content, `"level":"INFO"`)
	assert.Contains(t, content, "before dispatch")
	assert.Contains(t, content, "session_end")
}
