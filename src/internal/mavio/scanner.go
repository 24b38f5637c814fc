// FILE: mavlog/src/internal/mavio/scanner.go
package mavio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
)

// Wire-level constants of the protocol framing. Only the fields needed to
// compute a frame's extent are interpreted here; everything else is left to
// the external codec.
const (
	magicV1 = 0xFE
	magicV2 = 0xFD

	headerLenV1 = 6
	headerLenV2 = 10

	checksumLen  = 2
	signatureLen = 13

	// incompatibility flag bit marking a signed V2 frame
	flagSigned = 0x01
)

// ErrShort reports that the byte source ran out before a complete frame
// could be read. It signals end of stream, not corruption.
var ErrShort = errors.New("short read: incomplete frame")

// FrameError reports a frame that could not be decoded: bad magic byte,
// failed checksum, or a framing defect.
type FrameError struct {
	Reason string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid frame: %s", e.Reason)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// FrameScanner reads self-delimited protocol frames from a byte stream.
//
// The generic stream reader of the external codec resynchronizes on decode
// failures by scanning forward for the next magic byte, which can silently
// discard bytes and produce false frame matches. The scanner rejects that
// behavior structurally: it computes a frame's exact extent from the fixed
// header, reads exactly those bytes, and decodes them in isolation. A
// failure therefore never consumes anything beyond the failed frame, and
// the caller always knows how many bytes each attempt took.
type FrameScanner struct {
	br *bufio.Reader
	rw *dialect.ReadWriter
}

// NewFrameScanner creates a scanner over r. The dialect read-writer may be
// nil, in which case every message decodes as a raw payload.
func NewFrameScanner(r io.Reader, rw *dialect.ReadWriter) *FrameScanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameScanner{br: br, rw: rw}
}

// Next reads one frame and reports the number of bytes consumed from the
// stream. On ErrShort the stream ended mid-frame or at a frame boundary;
// on *FrameError the reported count is 0 for an unrecognized magic byte
// (nothing was consumed) or the full frame extent for a checksum or
// decoding failure.
func (s *FrameScanner) Next() (frame.Frame, int, error) {
	first, err := s.br.Peek(1)
	if err != nil {
		if err == io.EOF {
			return nil, 0, ErrShort
		}
		return nil, 0, err
	}

	var headerLen int
	switch first[0] {
	case magicV1:
		headerLen = headerLenV1
	case magicV2:
		headerLen = headerLenV2
	default:
		return nil, 0, &FrameError{Reason: fmt.Sprintf("unexpected magic byte 0x%02x", first[0])}
	}

	hdr, err := s.br.Peek(headerLen)
	if err != nil {
		if err == io.EOF {
			return nil, 0, ErrShort
		}
		return nil, 0, err
	}

	total := headerLen + int(hdr[1]) + checksumLen
	if first[0] == magicV2 && hdr[2]&flagSigned != 0 {
		total += signatureLen
	}

	buf := make([]byte, total)
	n, err := io.ReadFull(s.br, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, n, ErrShort
		}
		return nil, n, err
	}

	fr, err := decodeFrame(buf, s.rw)
	if err != nil {
		return nil, n, &FrameError{Reason: "frame decode failed", Err: err}
	}
	return fr, n, nil
}

// Discard drops exactly n bytes from the stream. It exists for ingest-side
// callers that capture from a live byte source and choose to step over
// garbage one byte at a time; file parsers never call it.
func (s *FrameScanner) Discard(n int) (int, error) {
	return s.br.Discard(n)
}

// decodeFrame runs the external codec over an isolated, fully-read buffer,
// so the codec has no surrounding bytes to resynchronize into.
func decodeFrame(buf []byte, rw *dialect.ReadWriter) (frame.Frame, error) {
	r := &frame.Reader{
		ByteReader: bytes.NewReader(buf),
		DialectRW:  rw,
	}
	if err := r.Initialize(); err != nil {
		return nil, err
	}
	return r.Read()
}
