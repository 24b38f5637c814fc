// FILE: mavlog/src/internal/core/entry.go
package core

import (
	"fmt"

	"github.com/bluenviron/gomavlib/v3/pkg/frame"
)

// EntryType is the on-disk tag identifying the payload kind of an entry.
type EntryType uint8

const (
	EntryRaw     EntryType = 0
	EntryMavlink EntryType = 1
	EntryText    EntryType = 2
)

func (t EntryType) Valid() bool {
	return t <= EntryText
}

func (t EntryType) String() string {
	switch t {
	case EntryRaw:
		return "raw"
	case EntryMavlink:
		return "mavlink"
	case EntryText:
		return "text"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// Entry represents a single decoded log record.
//
// Timestamp is in microseconds. Its presence is a property of the file
// format and flags, never of the individual entry; Timestamped reports it.
type Entry struct {
	Timestamp   uint64
	Timestamped bool
	Payload     Payload
}

// Payload is the entry content. It is a closed union: exactly one of
// MavlinkPayload, TextPayload or RawPayload, enforced structurally rather
// than by convention.
type Payload interface {
	Type() EntryType
}

// MavlinkPayload holds one decoded protocol frame (header and message).
type MavlinkPayload struct {
	Frame frame.Frame
}

func (MavlinkPayload) Type() EntryType { return EntryMavlink }

// TextPayload holds a UTF-8 text note.
type TextPayload struct {
	Body string
}

func (TextPayload) Type() EntryType { return EntryText }

// RawPayload holds an opaque byte blob.
type RawPayload struct {
	Bytes []byte
}

func (RawPayload) Type() EntryType { return EntryRaw }

// Parser reads entries sequentially from a single log file.
//
// ParseNextEntry returns the next entry in write order, ErrEndOfStream once
// the file is exhausted (terminal and idempotent), or a typed error. A
// *MalformedEntryError leaves the cursor exactly after the bytes the failed
// attempt consumed; the caller decides whether to retry from there or stop.
type Parser interface {
	ParseNextEntry() (Entry, error)
}
