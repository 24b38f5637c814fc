// FILE: mavlog/src/cmd/mavlog/open.go
package main

import (
	"fmt"
	"strings"

	"mavlog/src/internal/config"
	"mavlog/src/internal/core"
	"mavlog/src/internal/mavlog"
	"mavlog/src/internal/tlog"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

func defaultConfigHint() string {
	return config.GetConfigPath()
}

func dialectByName(name string) (*dialect.Dialect, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "common":
		return common.Dialect, nil
	default:
		return nil, fmt.Errorf("unknown dialect: %q", name)
	}
}

// detectFormat resolves an explicit format name, falling back to the file
// extension when the name is "auto".
func detectFormat(format, path string) (string, error) {
	switch strings.ToLower(format) {
	case "mavlog", "tlog":
		return strings.ToLower(format), nil
	case "auto", "":
		if strings.HasSuffix(path, ".tlog") {
			return "tlog", nil
		}
		return "mavlog", nil
	default:
		return "", fmt.Errorf("unknown format: %q (expected \"mavlog\", \"tlog\" or \"auto\")", format)
	}
}

type parser interface {
	core.Parser
	Offset() int64
	Close() error
}

func openParser(path, format string, d *dialect.Dialect) (parser, string, error) {
	resolved, err := detectFormat(format, path)
	if err != nil {
		return nil, "", err
	}
	switch resolved {
	case "tlog":
		p, err := tlog.NewParser(path, d, logger)
		return p, resolved, err
	default:
		p, err := mavlog.NewParser(path, d, logger)
		return p, resolved, err
	}
}
