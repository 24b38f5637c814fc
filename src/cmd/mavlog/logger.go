// FILE: mavlog/src/cmd/mavlog/logger.go
package main

import (
	"fmt"
	"strings"
	"time"

	"mavlog/src/internal/config"

	"github.com/lixenwraith/log"
)

// initializeLogger sets up the process logger from the logging section of
// the loaded configuration.
func initializeLogger(cfg *config.LogConfig) error {
	logger = log.NewLogger()

	levelValue, err := parseLogLevel(cfg.Level)
	if err != nil {
		return err
	}
	configArgs := []string{fmt.Sprintf("level=%d", levelValue)}

	switch cfg.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_console=false")
	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=true",
			"console_target=stdout")
	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=true",
			"console_target=stderr")
	case "file":
		configArgs = append(configArgs,
			"enable_console=false",
			fmt.Sprintf("directory=%s", cfg.Directory),
			fmt.Sprintf("name=%s", cfg.Name))
	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	if err := logger.ApplyConfigString(configArgs...); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	return logger.Start()
}

// initializeConsoleLogger is used by the inspection commands, which have
// no config file. Diagnostics go to stderr so stdout stays clean for data.
func initializeConsoleLogger(level string) error {
	logger = log.NewLogger()

	levelValue, err := parseLogLevel(level)
	if err != nil {
		return err
	}
	if err := logger.ApplyConfigString(
		fmt.Sprintf("level=%d", levelValue),
		"disable_file=true",
		"enable_console=true",
		"console_target=stderr"); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	return logger.Start()
}

func shutdownLogger() {
	if logger != nil {
		logger.Shutdown(2 * time.Second)
	}
}

func parseLogLevel(level string) (int64, error) {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
