// FILE: mavlog/src/cmd/mavlog/record.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mavlog/src/internal/config"
	"mavlog/src/internal/mavlog"
	"mavlog/src/internal/record"
	"mavlog/src/internal/rotation"
	"mavlog/src/internal/status"
	"mavlog/src/internal/tlog"
	"mavlog/src/internal/version"
)

// logWriter is the subset of the rotating writers the record command needs.
type logWriter interface {
	record.Sink
	Close() error
}

func runRecord(args []string) error {
	cfg, err := config.LoadWithCLI(args)
	if err != nil {
		return err
	}

	if err := initializeLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "mavlog starting",
		"version", version.String(),
		"format", cfg.Output.Format,
		"path", cfg.Output.Path)

	d, err := dialectByName(cfg.Output.Dialect)
	if err != nil {
		return err
	}

	basePath := cfg.Output.Path
	if cfg.Output.TimestampName {
		basePath = rotation.TimestampedPath(basePath, time.Now())
	}
	maxBytes := cfg.Output.MaxSizeKB * 1024

	var writer logWriter
	var writerStats func() map[string]any

	switch cfg.Output.Format {
	case "tlog":
		w, err := tlog.NewRotatingWriter(basePath, maxBytes, cfg.Output.MaxFiles, d, logger)
		if err != nil {
			return err
		}
		writer = w
		writerStats = func() map[string]any {
			s := w.GetStats()
			return map[string]any{
				"path":        basePath,
				"format":      "tlog",
				"entries":     s.TotalEntries,
				"bytes":       s.TotalBytes,
				"rotations":   s.Rotations,
				"active_size": s.ActiveSize,
			}
		}
	default:
		w, err := mavlog.NewRotatingWriter(mavlog.WriterOptions{
			BasePath: basePath,
			MaxBytes: maxBytes,
			MaxFiles: cfg.Output.MaxFiles,
			Flags: mavlog.FormatFlags{
				MavlinkOnly: cfg.Output.MavlinkOnly,
				NoTimestamp: cfg.Output.NoTimestamp,
			},
			Dialect: d,
		}, logger)
		if err != nil {
			return err
		}
		writer = w
		writerStats = func() map[string]any {
			s := w.GetStats()
			return map[string]any{
				"path":        basePath,
				"format":      "mavlog",
				"entries":     s.TotalEntries,
				"bytes":       s.TotalBytes,
				"rotations":   s.Rotations,
				"active_size": s.ActiveSize,
			}
		}
	}
	defer writer.Close()

	src, closeSrc, err := openSource(cfg.Input.Source)
	if err != nil {
		return err
	}
	defer closeSrc()

	rec, err := record.NewRecorderFromReader(src, d, writer, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Status.Enabled {
		srv := status.NewServer(cfg.Status.Host, cfg.Status.Port, func() status.Snapshot {
			rs := rec.GetStats()
			return status.Snapshot{
				Output: writerStats(),
				Recorder: map[string]any{
					"frames_recorded": rs.FramesRecorded,
					"frames_dropped":  rs.FramesDropped,
					"bytes_scanned":   rs.BytesScanned,
					"bytes_discarded": rs.BytesDiscarded,
				},
			}
		}, logger)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(2 * time.Second)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("msg", "Shutdown signal received", "signal", sig.String())
		cancel()
		// Unblock a recorder waiting in Read.
		closeSrc()
	}()

	err = rec.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stats := rec.GetStats()
	logger.Info("msg", "Recording finished",
		"frames", stats.FramesRecorded,
		"dropped", stats.FramesDropped,
		"bytes", stats.BytesScanned)
	return err
}

func openSource(source string) (io.Reader, func() error, error) {
	if source == "stdin" || source == "-" {
		return os.Stdin, os.Stdin.Close, nil
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, nil, fmt.Errorf("open input %s: %w", source, err)
	}
	return f, f.Close, nil
}
