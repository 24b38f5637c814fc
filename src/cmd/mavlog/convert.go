// FILE: mavlog/src/cmd/mavlog/convert.go
package main

import (
	"errors"
	"flag"
	"fmt"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavlog"
	"mavlog/src/internal/tlog"
)

// runConvert rewrites a legacy log as a modern one. Legacy entries are all
// timestamped protocol frames, so the output uses the mavlink-only layout
// and keeps per-entry timestamps.
func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	out := fs.String("o", "", "output path (default: input with .mavlog extension)")
	maxSizeKB := fs.Int64("max-size-kb", 0, "rotate output above this size (0 = single file)")
	maxFilesFlag := fs.Int("max-files", 10, "file count bound when rotation is enabled")
	dialectName := fs.String("dialect", "common", "message dialect")
	skipMalformed := fs.Bool("skip-malformed", false, "continue past undecodable entries")
	logLevel := fs.String("log-level", "info", "diagnostic log level")
	fs.Usage = func() {
		fmt.Println("Usage: mavlog convert [options] <file.tlog>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("convert requires exactly one input file")
	}
	if err := initializeConsoleLogger(*logLevel); err != nil {
		return err
	}
	defer shutdownLogger()

	d, err := dialectByName(*dialectName)
	if err != nil {
		return err
	}

	input := fs.Arg(0)
	output := *out
	if output == "" {
		output = input + ".mavlog"
	}

	p, err := tlog.NewParser(input, d, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	maxBytes := *maxSizeKB * 1024
	maxFiles := *maxFilesFlag
	if maxBytes == 0 {
		maxBytes = 1 << 40 // effectively unbounded single file
		maxFiles = 1
	}

	// Legacy timestamps are absolute; the modern format stores offsets from
	// the header timestamp. The first entry's timestamp becomes the output
	// header's timestamp, so both the absolute times and the inter-entry
	// deltas survive the conversion. The writer is therefore created only
	// once that first entry is known.
	var w *mavlog.RotatingWriter
	defer func() {
		if w != nil {
			w.Close()
		}
	}()

	var converted, skipped uint64
	var epochUS uint64
	for {
		entry, err := p.ParseNextEntry()
		if err != nil {
			if errors.Is(err, core.ErrEndOfStream) {
				break
			}
			var malformed *core.MalformedEntryError
			if errors.As(err, &malformed) && *skipMalformed {
				skipped++
				logger.Warn("msg", "Skipping malformed entry",
					"offset", malformed.Offset,
					"error", malformed.Err)
				continue
			}
			return err
		}
		mp, ok := entry.Payload.(core.MavlinkPayload)
		if !ok {
			continue
		}
		if w == nil {
			epochUS = entry.Timestamp
			w, err = mavlog.NewRotatingWriter(mavlog.WriterOptions{
				BasePath:          output,
				MaxBytes:          maxBytes,
				MaxFiles:          maxFiles,
				Flags:             mavlog.FormatFlags{MavlinkOnly: true},
				Dialect:           d,
				HeaderTimestampUS: epochUS,
			}, logger)
			if err != nil {
				return err
			}
		}
		var ts uint64
		if entry.Timestamp > epochUS {
			ts = entry.Timestamp - epochUS
		}
		if err := w.WriteMavlinkAt(mp.Frame, ts); err != nil {
			return err
		}
		converted++
	}

	if w == nil {
		return fmt.Errorf("no entries to convert in %s", input)
	}

	fmt.Printf("Converted %d entries to %s", converted, output)
	if skipped > 0 {
		fmt.Printf(" (%d skipped)", skipped)
	}
	fmt.Println()
	return nil
}
