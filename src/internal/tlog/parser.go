// FILE: mavlog/src/internal/tlog/parser.go
package tlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/lixenwraith/log"
)

var _ core.Parser = (*Parser)(nil)

// Parser reads entries sequentially from one legacy-format file. The
// format has no header, so construction cannot validate anything beyond
// opening the file; every entry is expected to be a timestamp and a frame.
type Parser struct {
	f         *os.File
	br        *bufio.Reader
	sc        *mavio.FrameScanner
	offset    int64
	exhausted bool
	logger    *log.Logger
}

// NewParser opens path for sequential reading.
func NewParser(path string, d *dialect.Dialect, logger *log.Logger) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	rw, err := mavio.NewDialectRW(d)
	if err != nil {
		f.Close()
		return nil, err
	}

	br := bufio.NewReader(f)

	logger.Debug("msg", "Telemetry log parser opened",
		"component", "tlog_parser",
		"path", path)

	return &Parser{
		f:      f,
		br:     br,
		sc:     mavio.NewFrameScanner(br, rw),
		logger: logger,
	}, nil
}

// Offset reports the cursor position in bytes from the start of the file.
func (p *Parser) Offset() int64 {
	return p.offset
}

// ParseNextEntry returns the next timestamped frame, core.ErrEndOfStream
// once the file is exhausted (terminal, idempotent), or a
// *core.MalformedEntryError at the offset where a frame failed to decode.
// The cursor rests after the bytes the failed attempt consumed; the parser
// never scans forward for the next plausible frame.
func (p *Parser) ParseNextEntry() (core.Entry, error) {
	if p.exhausted {
		return core.Entry{}, core.ErrEndOfStream
	}

	var ts [timestampLen]byte
	n, err := io.ReadFull(p.br, ts[:])
	p.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			p.exhausted = true
			return core.Entry{}, core.ErrEndOfStream
		}
		return core.Entry{}, fmt.Errorf("read timestamp: %w", err)
	}

	frameStart := p.offset
	fr, n, err := p.sc.Next()
	p.offset += int64(n)
	if err != nil {
		if errors.Is(err, mavio.ErrShort) {
			p.exhausted = true
			return core.Entry{}, core.ErrEndOfStream
		}
		var fe *mavio.FrameError
		if errors.As(err, &fe) {
			return core.Entry{}, &core.MalformedEntryError{Offset: frameStart, Err: err}
		}
		return core.Entry{}, err
	}

	return core.Entry{
		Timestamp:   binary.BigEndian.Uint64(ts[:]),
		Timestamped: true,
		Payload:     core.MavlinkPayload{Frame: fr},
	}, nil
}

// Close releases the underlying file. The parser cannot be reused.
func (p *Parser) Close() error {
	return p.f.Close()
}
