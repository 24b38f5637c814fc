// FILE: mavlog/src/cmd/mavlog/replay.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mavlog/src/internal/replay"
)

// runReplay re-emits the wire bytes of a log to stdout or a file,
// reproducing the recorded cadence.
func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	out := fs.String("o", "-", "output path, or - for stdout")
	format := fs.String("format", "auto", "input format: mavlog, tlog or auto")
	dialectName := fs.String("dialect", "common", "message dialect")
	speed := fs.Float64("speed", 1.0, "playback speed multiplier (0 = no delay)")
	maxRate := fs.Float64("max-rate", 0, "cap on entries per second (0 = uncapped)")
	skipMalformed := fs.Bool("skip-malformed", false, "continue past undecodable entries")
	logLevel := fs.String("log-level", "info", "diagnostic log level")
	fs.Usage = func() {
		fmt.Println("Usage: mavlog replay [options] <file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("replay requires exactly one file argument")
	}
	if err := initializeConsoleLogger(*logLevel); err != nil {
		return err
	}
	defer shutdownLogger()

	d, err := dialectByName(*dialectName)
	if err != nil {
		return err
	}

	p, _, err := openParser(fs.Arg(0), *format, d)
	if err != nil {
		return err
	}
	defer p.Close()

	var w *bufio.Writer
	if *out == "-" {
		w = bufio.NewWriter(os.Stdout)
	} else {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output %s: %w", *out, err)
		}
		defer f.Close()
		w = bufio.NewWriter(f)
	}
	defer w.Flush()

	r, err := replay.NewReplayer(p, w, d, replay.Options{
		Speed:            *speed,
		MaxEntriesPerSec: *maxRate,
		SkipMalformed:    *skipMalformed,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return r.Run(ctx)
}
