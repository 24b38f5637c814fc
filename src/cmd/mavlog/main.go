// FILE: mavlog/src/cmd/mavlog/main.go
package main

import (
	"fmt"
	"os"

	"mavlog/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "record":
		err = runRecord(args)
	case "info":
		err = runInfo(args)
	case "dump":
		err = runDump(args)
	case "convert":
		err = runConvert(args)
	case "replay":
		err = runReplay(args)
	case "version", "--version", "-v":
		fmt.Println(version.String())
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`mavlog %s - telemetry log recorder

Usage: mavlog <command> [options]

Commands:
  record    Capture frames from a byte stream into a rotating log
  info      Print the header of a modern log file
  dump      Print the entries of a log file
  convert   Convert a legacy log to the modern format
  replay    Re-emit a log's wire bytes with recorded timing
  version   Print version information

Run 'mavlog <command> -h' for command options.

Configuration (record):
  File:        %s
  Environment: MAVLOG_* variables (e.g. MAVLOG_OUTPUT_PATH)
  CLI:         --output.path=... style overrides
`, version.Short(), defaultConfigHint())
}
