// FILE: mavlog/src/internal/mavio/encoder.go
package mavio

import (
	"bytes"
	"fmt"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// NewDialectRW initializes a dialect read-writer for d. A nil dialect
// yields a nil read-writer, which the codec treats as raw-only decoding.
func NewDialectRW(d *dialect.Dialect) (*dialect.ReadWriter, error) {
	if d == nil {
		return nil, nil
	}
	rw := &dialect.ReadWriter{Dialect: d}
	if err := rw.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize dialect: %w", err)
	}
	return rw, nil
}

// Encoder serializes frames and messages to their wire representation
// through the external codec. Not safe for concurrent use; each writer
// owns one.
type Encoder struct {
	buf bytes.Buffer
	fw  *frame.Writer
}

// NewEncoder creates an encoder. systemID and componentID are used only
// when encoding bare messages; frames carry their own addressing.
func NewEncoder(rw *dialect.ReadWriter, systemID byte, componentID byte) (*Encoder, error) {
	e := &Encoder{}
	e.fw = &frame.Writer{
		ByteWriter:     &e.buf,
		DialectRW:      rw,
		OutVersion:     frame.V2,
		OutSystemID:    systemID,
		OutComponentID: componentID,
	}
	if err := e.fw.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize frame writer: %w", err)
	}
	return e, nil
}

// EncodeFrame returns the wire bytes of fr. The frame is written as-is,
// preserving its sequence number, addressing and protocol version.
func (e *Encoder) EncodeFrame(fr frame.Frame) ([]byte, error) {
	e.buf.Reset()
	if err := e.fw.WriteFrame(fr); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}

// EncodeMessage frames msg with the encoder's addressing and a running
// sequence number, and returns the wire bytes.
func (e *Encoder) EncodeMessage(msg message.Message) ([]byte, error) {
	e.buf.Reset()
	if err := e.fw.WriteMessage(msg); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}
