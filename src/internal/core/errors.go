// FILE: mavlog/src/internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream signals normal termination of a parser. It is not a
	// defect; every call after exhaustion returns it again.
	ErrEndOfStream = errors.New("end of stream")

	// ErrTruncated is returned by entry codecs when fewer bytes remain than
	// the entry's fixed-width fields require. Parsers translate it to
	// ErrEndOfStream; it never reaches consumers directly.
	ErrTruncated = errors.New("truncated entry")

	// ErrUnsupportedByFormat rejects a write the active format or its flags
	// cannot represent (text or raw entries under mavlink-only or the
	// legacy format).
	ErrUnsupportedByFormat = errors.New("entry type not supported by log format")

	// ErrPayloadTooLarge rejects a text or raw payload that does not fit
	// the format's 16-bit length prefix.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum entry size")
)

// ConfigError reports invalid construction parameters. It is fatal to the
// operation and never retried.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// MalformedEntryError reports an entry that failed to decode at a known
// byte offset. The codec stops at the point of failure instead of scanning
// forward for the next plausible frame boundary, so the caller keeps the
// choice between skipping the consumed bytes, retrying, or aborting.
type MalformedEntryError struct {
	Offset int64
	Err    error
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed entry at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedEntryError) Unwrap() error {
	return e.Err
}
