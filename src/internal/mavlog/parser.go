// FILE: mavlog/src/internal/mavlog/parser.go
package mavlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/lixenwraith/log"
)

var _ core.Parser = (*Parser)(nil)

// Parser reads entries sequentially from one modern-format file. It is
// bound to that file for its lifetime; replaying a rotated sequence means
// constructing one parser per file, oldest to newest. A parser never
// mutates the file, so completed files can be read by several parsers at
// once.
type Parser struct {
	f         *os.File
	br        *bufio.Reader
	sc        *mavio.FrameScanner
	codec     entryCodec
	header    FileHeader
	offset    int64
	exhausted bool
	logger    *log.Logger
}

// NewParser opens path and reads its header; construction fails if the
// header is absent or malformed. The dialect may be nil to decode every
// message as a raw payload.
func NewParser(path string, d *dialect.Dialect, logger *log.Logger) (*Parser, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	header, n, err := ReadFileHeader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read file header of %s: %w", path, err)
	}

	rw, err := mavio.NewDialectRW(d)
	if err != nil {
		f.Close()
		return nil, err
	}

	logger.Debug("msg", "Log parser opened",
		"component", "mavlog_parser",
		"path", path,
		"uuid", header.UUID.String(),
		"mavlink_only", header.Flags.MavlinkOnly,
		"no_timestamp", header.Flags.NoTimestamp)

	return &Parser{
		f:      f,
		br:     br,
		sc:     mavio.NewFrameScanner(br, rw),
		codec:  entryCodec{flags: header.Flags},
		header: header,
		offset: int64(n),
		logger: logger,
	}, nil
}

// Header returns the file header read at construction.
func (p *Parser) Header() FileHeader {
	return p.header
}

// Offset reports the cursor position in bytes from the start of the file.
func (p *Parser) Offset() int64 {
	return p.offset
}

// ParseNextEntry returns the next entry, core.ErrEndOfStream once the file
// is exhausted (terminal, repeated on every further call), or a
// *core.MalformedEntryError when an entry fails to decode. On a malformed
// entry the cursor rests exactly after the bytes the failed attempt
// consumed: calling again retries from there, closing aborts; the parser
// never scans ahead on its own.
func (p *Parser) ParseNextEntry() (core.Entry, error) {
	if p.exhausted {
		return core.Entry{}, core.ErrEndOfStream
	}

	e, n, err := p.codec.decodeEntry(p.br, p.sc, p.offset)
	p.offset += int64(n)
	if err != nil {
		if errors.Is(err, core.ErrTruncated) {
			p.exhausted = true
			return core.Entry{}, core.ErrEndOfStream
		}
		return core.Entry{}, err
	}
	return e, nil
}

// Close releases the underlying file. The parser cannot be reused.
func (p *Parser) Close() error {
	return p.f.Close()
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
