package main

import (
	"fmt"
	"os"

	"horizon-boot/logging"
)

func main() {
	args := os.Args[1:]

	// Troubleshooting shell: skip every startup stage
	if len(args) > 0 && (args[0] == "--debug" || args[0] == "bash") {
		if err := debugShell(); err != nil {
			fmt.Fprintf(os.Stderr, "debug shell: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	log.Setup("entrypoint") // a degraded JSON channel is tolerated

	if err := run(cfg, log, args); err != nil {
		log.Cleanup("entrypoint")
		os.Exit(1)
	}
}

// run executes the startup sequence. On success it does not return: the
// process image is replaced at dispatch.
func run(cfg *Config, log *logging.Logger, args []string) error {
	log.Info("startup", "horizon entrypoint starting")

	if err := validateWorkspace(cfg, log); err != nil {
		log.Error("validation", "%v", err)
		return err
	}

	report, err := checkHealth(cfg, log)
	if err != nil {
		log.Error("health_check", "%v", err)
		return err
	}

	displayStartupInfo(cfg, report, log)

	installSignalHandlers(log)

	if err := dispatch(cfg, log, args); err != nil {
		log.Error("dispatch", "%v", err)
		return err
	}
	return nil
}
