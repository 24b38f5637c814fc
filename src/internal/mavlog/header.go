// FILE: mavlog/src/internal/mavlog/header.go

// Package mavlog implements the extensible binary log format: a packed
// file header followed by self-delimiting entries carrying protocol
// frames, text notes or raw byte blobs.
//
// On-disk layout (all multi-byte fields little-endian):
//
//	header:  uuid[16] | timestamp_us u64 | src_application_id [32] |
//	         format_version u32 | format_flags u16 |
//	         message_definition[46] | definition payload[size]
//	entry:   [timestamp_us u64]? [type u8]? payload
//
// The per-entry timestamp is relative to the writer's construction time;
// the header records that absolute time. The type tag is omitted when the
// mavlink-only flag is set, and the timestamp when no-timestamp is set.
package mavlog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	// HeaderMinSize is the packed header size without a definition payload.
	HeaderMinSize = 108

	// FormatVersion is the file format version this package reads and writes.
	FormatVersion = 1

	// DefaultSrcApplicationID identifies this recorder in file headers.
	DefaultSrcApplicationID = "mavlog"

	// DefaultDialect is the message-definition dialect recorded when the
	// caller does not name one.
	DefaultDialect = "common"

	definitionSize = 46
	maxFieldStr    = 32
)

// Format flag bits, packed into the header's u16 flags field.
const (
	flagMavlinkOnly = 0x01
	flagNoTimestamp = 0x02
)

// FormatFlags selects optional format changes. Flags are a property of the
// writer, fixed for the lifetime of every file it produces; a parser must
// read them from the header before decoding any entry.
type FormatFlags struct {
	// MavlinkOnly drops the per-entry type tag; only protocol messages may
	// be written.
	MavlinkOnly bool
	// NoTimestamp drops the per-entry timestamp field.
	NoTimestamp bool
}

func (f FormatFlags) pack() uint16 {
	var v uint16
	if f.MavlinkOnly {
		v |= flagMavlinkOnly
	}
	if f.NoTimestamp {
		v |= flagNoTimestamp
	}
	return v
}

func unpackFlags(v uint16) FormatFlags {
	return FormatFlags{
		MavlinkOnly: v&flagMavlinkOnly != 0,
		NoTimestamp: v&flagNoTimestamp != 0,
	}
}

// DefinitionPayloadType identifies how message definitions are carried in
// the header.
type DefinitionPayloadType uint16

const (
	// DefinitionNone defers to the protocol's main XML definition.
	DefinitionNone DefinitionPayloadType = 0
	// DefinitionXMLURLs is a UTF-8, space-delimited list of XML file URLs.
	DefinitionXMLURLs DefinitionPayloadType = 1
	// DefinitionXML is a UTF-8 XML document.
	DefinitionXML DefinitionPayloadType = 2
)

func (t DefinitionPayloadType) valid() bool {
	return t <= DefinitionXML
}

func (t DefinitionPayloadType) String() string {
	switch t {
	case DefinitionNone:
		return "none"
	case DefinitionXMLURLs:
		return "xml-urls"
	case DefinitionXML:
		return "xml"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(t))
	}
}

// MessageDefinition records which protocol message definitions apply to a
// log file.
type MessageDefinition struct {
	VersionMajor uint32
	VersionMinor uint32
	Dialect      string
	PayloadType  DefinitionPayloadType
	Payload      []byte
}

// DefaultMessageDefinition is protocol version 2.0 with the common dialect
// and no embedded payload.
func DefaultMessageDefinition() MessageDefinition {
	return MessageDefinition{
		VersionMajor: 2,
		VersionMinor: 0,
		Dialect:      DefaultDialect,
	}
}

func (d *MessageDefinition) pack() ([]byte, error) {
	if len(d.Dialect) > maxFieldStr {
		return nil, fmt.Errorf("dialect %q longer than %d bytes", d.Dialect, maxFieldStr)
	}
	if !d.PayloadType.valid() {
		return nil, fmt.Errorf("unknown definition payload type %d", d.PayloadType)
	}

	out := make([]byte, definitionSize, definitionSize+len(d.Payload))
	binary.LittleEndian.PutUint32(out[0:4], d.VersionMajor)
	binary.LittleEndian.PutUint32(out[4:8], d.VersionMinor)
	copy(out[8:40], d.Dialect)
	binary.LittleEndian.PutUint16(out[40:42], uint16(d.PayloadType))
	if d.PayloadType != DefinitionNone {
		binary.LittleEndian.PutUint32(out[42:46], uint32(len(d.Payload)))
		out = append(out, d.Payload...)
	}
	return out, nil
}

func unpackDefinition(b []byte) (MessageDefinition, uint32, error) {
	d := MessageDefinition{
		VersionMajor: binary.LittleEndian.Uint32(b[0:4]),
		VersionMinor: binary.LittleEndian.Uint32(b[4:8]),
		Dialect:      nulTerminated(b[8:40]),
		PayloadType:  DefinitionPayloadType(binary.LittleEndian.Uint16(b[40:42])),
	}
	if !d.PayloadType.valid() {
		return MessageDefinition{}, 0, fmt.Errorf("unknown definition payload type %d", d.PayloadType)
	}
	size := binary.LittleEndian.Uint32(b[42:46])
	if d.PayloadType == DefinitionNone {
		size = 0
	}
	return d, size, nil
}

// FileHeader is the metadata block opening every modern-format file.
type FileHeader struct {
	UUID             uuid.UUID
	TimestampUS      uint64
	SrcApplicationID string
	FormatVersion    uint32
	Flags            FormatFlags
	Definition       MessageDefinition
}

// NewFileHeader stamps a header with a fresh UUID and the current time.
func NewFileHeader(flags FormatFlags, def MessageDefinition) FileHeader {
	return FileHeader{
		UUID:             uuid.New(),
		TimestampUS:      uint64(time.Now().UnixMicro()),
		SrcApplicationID: DefaultSrcApplicationID,
		FormatVersion:    FormatVersion,
		Flags:            flags,
		Definition:       def,
	}
}

// Pack serializes the header, including any definition payload.
func (h *FileHeader) Pack() ([]byte, error) {
	if len(h.SrcApplicationID) > maxFieldStr {
		return nil, fmt.Errorf("src application id %q longer than %d bytes", h.SrcApplicationID, maxFieldStr)
	}
	def, err := h.Definition.pack()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 62, 62+len(def))
	copy(out[0:16], h.UUID[:])
	binary.LittleEndian.PutUint64(out[16:24], h.TimestampUS)
	copy(out[24:56], h.SrcApplicationID)
	binary.LittleEndian.PutUint32(out[56:60], h.FormatVersion)
	binary.LittleEndian.PutUint16(out[60:62], h.Flags.pack())
	out = append(out, def...)
	return out, nil
}

// ReadFileHeader consumes and validates one header from r, returning it
// together with the number of bytes read. Construction of a parser fails
// through here when the header is absent, short, or malformed.
func ReadFileHeader(r io.Reader) (FileHeader, int, error) {
	var fixed [HeaderMinSize]byte
	n, err := io.ReadFull(r, fixed[:])
	if err != nil {
		return FileHeader{}, n, fmt.Errorf("file header too short: %w", err)
	}

	var h FileHeader
	copy(h.UUID[:], fixed[0:16])
	h.TimestampUS = binary.LittleEndian.Uint64(fixed[16:24])
	h.SrcApplicationID = nulTerminated(fixed[24:56])
	h.FormatVersion = binary.LittleEndian.Uint32(fixed[56:60])
	if h.FormatVersion != FormatVersion {
		return FileHeader{}, n, fmt.Errorf("unsupported format version %d", h.FormatVersion)
	}
	h.Flags = unpackFlags(binary.LittleEndian.Uint16(fixed[60:62]))

	def, size, err := unpackDefinition(fixed[62:HeaderMinSize])
	if err != nil {
		return FileHeader{}, n, err
	}
	if size > 0 {
		def.Payload = make([]byte, size)
		pn, err := io.ReadFull(r, def.Payload)
		n += pn
		if err != nil {
			return FileHeader{}, n, fmt.Errorf("definition payload too short: %w", err)
		}
	}
	h.Definition = def
	return h, n, nil
}

// ReadFileHeaderAt reads the header of the file at path without touching
// the rest of the file.
func ReadFileHeaderAt(path string) (FileHeader, error) {
	f, err := openFile(path)
	if err != nil {
		return FileHeader{}, err
	}
	defer f.Close()

	h, _, err := ReadFileHeader(bufio.NewReader(f))
	return h, err
}

func nulTerminated(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
