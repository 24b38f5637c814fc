// FILE: mavlog/src/cmd/mavlog/inspect.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavlog"
)

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	logLevel := fs.String("log-level", "warn", "diagnostic log level")
	fs.Usage = func() {
		fmt.Println("Usage: mavlog info [options] <file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("info requires exactly one file argument")
	}
	if err := initializeConsoleLogger(*logLevel); err != nil {
		return err
	}
	defer shutdownLogger()

	h, err := mavlog.ReadFileHeaderAt(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("File:              %s\n", fs.Arg(0))
	fmt.Printf("UUID:              %s\n", h.UUID)
	fmt.Printf("Created:           %s\n", time.UnixMicro(int64(h.TimestampUS)).UTC().Format(time.RFC3339))
	fmt.Printf("Source app:        %s\n", h.SrcApplicationID)
	fmt.Printf("Format version:    %d\n", h.FormatVersion)
	fmt.Printf("Mavlink only:      %v\n", h.Flags.MavlinkOnly)
	fmt.Printf("No timestamp:      %v\n", h.Flags.NoTimestamp)
	fmt.Printf("Dialect:           %s %d.%d\n", h.Definition.Dialect, h.Definition.VersionMajor, h.Definition.VersionMinor)
	fmt.Printf("Definition:        %s (%d bytes)\n", h.Definition.PayloadType, len(h.Definition.Payload))
	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	format := fs.String("format", "auto", "input format: mavlog, tlog or auto")
	dialectName := fs.String("dialect", "common", "message dialect")
	skipMalformed := fs.Bool("skip-malformed", false, "continue past undecodable entries")
	logLevel := fs.String("log-level", "warn", "diagnostic log level")
	fs.Usage = func() {
		fmt.Println("Usage: mavlog dump [options] <file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("dump requires exactly one file argument")
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

	var index uint64
	for {
		before := p.Offset()
		entry, err := p.ParseNextEntry()
		if err != nil {
			if errors.Is(err, core.ErrEndOfStream) {
				fmt.Printf("-- %d entries --\n", index)
				return nil
			}
			var malformed *core.MalformedEntryError
			if errors.As(err, &malformed) && *skipMalformed {
				// A failure that moved the cursor can be stepped over; one
				// that consumed nothing would repeat forever.
				if p.Offset() == before {
					return err
				}
				fmt.Printf("%8d  !  malformed entry at offset %d: %v\n", index, malformed.Offset, malformed.Err)
				index++
				continue
			}
			return err
		}
		printEntry(index, entry)
		index++
	}
}

func printEntry(index uint64, e core.Entry) {
	ts := "            -"
	if e.Timestamped {
		ts = fmt.Sprintf("%13d", e.Timestamp)
	}
	switch p := e.Payload.(type) {
	case core.MavlinkPayload:
		fmt.Printf("%8d  %s  mavlink  %T\n", index, ts, p.Frame.GetMessage())
	case core.TextPayload:
		fmt.Printf("%8d  %s  text     %q\n", index, ts, p.Body)
	case core.RawPayload:
		fmt.Printf("%8d  %s  raw      %d bytes\n", index, ts, len(p.Bytes))
	}
}
