// FILE: mavlog/src/internal/mavlog/codec.go
package mavlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"
)

// maxPayloadLen is the largest text or raw payload the 16-bit length
// prefix can carry. Protocol frames are self-delimiting and unaffected.
const maxPayloadLen = 0xFFFF

// entryCodec serializes and deserializes one entry under a fixed set of
// format flags. The decode side fails fast: it consumes exactly the bytes
// of the attempted entry and reports core.ErrTruncated when the stream
// ends inside fixed-width fields, or *core.MalformedEntryError when the
// payload cannot be decoded.
type entryCodec struct {
	flags FormatFlags
}

// appendEntry appends the encoded form of one entry to dst. payload is the
// already-encoded protocol frame for mavlink entries, or the body bytes
// for text and raw entries.
func (c entryCodec) appendEntry(dst []byte, typ core.EntryType, timestampUS uint64, payload []byte) ([]byte, error) {
	if !c.flags.NoTimestamp {
		dst = binary.LittleEndian.AppendUint64(dst, timestampUS)
	}
	if !c.flags.MavlinkOnly {
		dst = append(dst, byte(typ))
	}
	if typ != core.EntryMavlink {
		if len(payload) > maxPayloadLen {
			return nil, fmt.Errorf("%w: %d bytes", core.ErrPayloadTooLarge, len(payload))
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	}
	return append(dst, payload...), nil
}

// decodeEntry reads one entry starting at offset, returning it along with
// the number of bytes actually consumed, including on failure, so the
// caller's cursor stays exact.
func (c entryCodec) decodeEntry(br *bufio.Reader, sc *mavio.FrameScanner, offset int64) (core.Entry, int, error) {
	var e core.Entry
	consumed := 0

	if !c.flags.NoTimestamp {
		var ts [8]byte
		n, err := io.ReadFull(br, ts[:])
		consumed += n
		if err != nil {
			return core.Entry{}, consumed, mapReadErr(err)
		}
		e.Timestamp = binary.LittleEndian.Uint64(ts[:])
		e.Timestamped = true
	}

	typ := core.EntryMavlink
	if !c.flags.MavlinkOnly {
		b, err := br.ReadByte()
		if err != nil {
			return core.Entry{}, consumed, mapReadErr(err)
		}
		consumed++
		typ = core.EntryType(b)
		if !typ.Valid() {
			return core.Entry{}, consumed, &core.MalformedEntryError{
				Offset: offset + int64(consumed) - 1,
				Err:    fmt.Errorf("unknown entry type tag 0x%02x", b),
			}
		}
	}

	switch typ {
	case core.EntryMavlink:
		frameStart := offset + int64(consumed)
		fr, n, err := sc.Next()
		consumed += n
		if err != nil {
			if errors.Is(err, mavio.ErrShort) {
				return core.Entry{}, consumed, core.ErrTruncated
			}
			var fe *mavio.FrameError
			if errors.As(err, &fe) {
				return core.Entry{}, consumed, &core.MalformedEntryError{Offset: frameStart, Err: err}
			}
			return core.Entry{}, consumed, err
		}
		e.Payload = core.MavlinkPayload{Frame: fr}

	default:
		var lb [2]byte
		n, err := io.ReadFull(br, lb[:])
		consumed += n
		if err != nil {
			return core.Entry{}, consumed, mapReadErr(err)
		}
		length := int(binary.LittleEndian.Uint16(lb[:]))

		bodyStart := offset + int64(consumed)
		body := make([]byte, length)
		n, err = io.ReadFull(br, body)
		consumed += n
		if err != nil {
			return core.Entry{}, consumed, mapReadErr(err)
		}

		if typ == core.EntryText {
			if !utf8.Valid(body) {
				return core.Entry{}, consumed, &core.MalformedEntryError{
					Offset: bodyStart,
					Err:    errors.New("text entry is not valid UTF-8"),
				}
			}
			e.Payload = core.TextPayload{Body: string(body)}
		} else {
			e.Payload = core.RawPayload{Bytes: body}
		}
	}

	return e, consumed, nil
}

// mapReadErr folds stream exhaustion into the truncation sentinel and lets
// real I/O failures through untouched.
func mapReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return core.ErrTruncated
	}
	return err
}
