// FILE: mavlog/src/internal/mavlog/writer.go
package mavlog

import (
	"fmt"
	"sync/atomic"
	"time"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"
	"mavlog/src/internal/rotation"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/lixenwraith/log"
)

// WriterOptions configures a RotatingWriter.
type WriterOptions struct {
	// BasePath is the unsuffixed active file path; .mav is conventional.
	// Parent directories must already exist.
	BasePath string
	// MaxBytes bounds the active file size, header included. Must be >= 1.
	MaxBytes int64
	// MaxFiles bounds the total file count, active file included. Must be >= 1.
	MaxFiles int
	// Flags are recorded in the header of every file this writer produces.
	Flags FormatFlags
	// Definition overrides the default message definition when non-nil.
	Definition *MessageDefinition
	// Dialect is used to re-encode decoded frames. Nil restricts the
	// writer to raw (already-encoded) frames.
	Dialect *dialect.Dialect
	// HeaderTimestampUS overrides the header timestamp and the epoch that
	// entry timestamps count from, in microseconds since the Unix epoch.
	// Zero means the current time. Used when rewriting a log that already
	// carries absolute timing.
	HeaderTimestampUS uint64
}

// RotatingWriter appends log entries to a size-bounded rotating file set.
// Every write flushes to stable storage before returning, so a committed
// entry survives a crash. Single-writer: concurrent use of one base path
// by multiple writers is not supported.
type RotatingWriter struct {
	header  FileHeader
	codec   entryCodec
	enc     *mavio.Encoder
	handler *rotation.Handler
	epoch   time.Time
	logger  *log.Logger

	// Statistics
	totalEntries atomic.Uint64
	totalBytes   atomic.Uint64
}

// NewRotatingWriter opens or creates the active file for opts.BasePath,
// writing a fresh header when the file is new. Invalid limits fail with a
// *core.ConfigError.
func NewRotatingWriter(opts WriterOptions, logger *log.Logger) (*RotatingWriter, error) {
	def := DefaultMessageDefinition()
	if opts.Definition != nil {
		def = *opts.Definition
	}
	header := NewFileHeader(opts.Flags, def)
	epoch := time.Now()
	if opts.HeaderTimestampUS != 0 {
		header.TimestampUS = opts.HeaderTimestampUS
		epoch = time.UnixMicro(int64(opts.HeaderTimestampUS))
	}
	headerBytes, err := header.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack file header: %w", err)
	}

	rw, err := mavio.NewDialectRW(opts.Dialect)
	if err != nil {
		return nil, err
	}
	enc, err := mavio.NewEncoder(rw, 1, 1)
	if err != nil {
		return nil, err
	}

	handler, err := rotation.NewHandler(opts.BasePath, opts.MaxBytes, opts.MaxFiles, headerBytes, logger)
	if err != nil {
		return nil, err
	}

	w := &RotatingWriter{
		header:  header,
		codec:   entryCodec{flags: opts.Flags},
		enc:     enc,
		handler: handler,
		epoch:   epoch,
		logger:  logger,
	}

	logger.Info("msg", "Log writer opened",
		"component", "mavlog_writer",
		"base_path", opts.BasePath,
		"max_bytes", opts.MaxBytes,
		"max_files", opts.MaxFiles,
		"mavlink_only", opts.Flags.MavlinkOnly,
		"no_timestamp", opts.Flags.NoTimestamp)

	return w, nil
}

// Header returns the header stamped into every file of this writer.
func (w *RotatingWriter) Header() FileHeader {
	return w.header
}

// WriteMavlink appends one protocol frame. Permitted under every flag
// combination.
func (w *RotatingWriter) WriteMavlink(fr frame.Frame) error {
	payload, err := w.enc.EncodeFrame(fr)
	if err != nil {
		return err
	}
	return w.append(core.EntryMavlink, payload)
}

// WriteMavlinkAt appends one protocol frame with an explicit timestamp in
// microseconds past the header timestamp. It exists for converting logs
// that already carry timing; live capture uses WriteMavlink.
func (w *RotatingWriter) WriteMavlinkAt(fr frame.Frame, timestampUS uint64) error {
	payload, err := w.enc.EncodeFrame(fr)
	if err != nil {
		return err
	}
	return w.appendAt(core.EntryMavlink, timestampUS, payload)
}

// WriteText appends a UTF-8 text note. Rejected under mavlink-only.
func (w *RotatingWriter) WriteText(text string) error {
	if w.codec.flags.MavlinkOnly {
		return core.ErrUnsupportedByFormat
	}
	return w.append(core.EntryText, []byte(text))
}

// WriteRaw appends an opaque byte blob. Rejected under mavlink-only.
func (w *RotatingWriter) WriteRaw(data []byte) error {
	if w.codec.flags.MavlinkOnly {
		return core.ErrUnsupportedByFormat
	}
	return w.append(core.EntryRaw, data)
}

func (w *RotatingWriter) append(typ core.EntryType, payload []byte) error {
	return w.appendAt(typ, w.timestampUS(), payload)
}

func (w *RotatingWriter) appendAt(typ core.EntryType, timestampUS uint64, payload []byte) error {
	record, err := w.codec.appendEntry(nil, typ, timestampUS, payload)
	if err != nil {
		return err
	}
	if err := w.handler.Emit(record); err != nil {
		return err
	}
	w.totalEntries.Add(1)
	w.totalBytes.Add(uint64(len(record)))
	return nil
}

// timestampUS is microseconds since writer construction. The absolute
// construction time lives in the header.
func (w *RotatingWriter) timestampUS() uint64 {
	return uint64(time.Since(w.epoch).Microseconds())
}

// WriterStats is a snapshot of writer activity.
type WriterStats struct {
	TotalEntries uint64
	TotalBytes   uint64
	Rotations    uint64
	ActiveSize   int64
}

func (w *RotatingWriter) GetStats() WriterStats {
	return WriterStats{
		TotalEntries: w.totalEntries.Load(),
		TotalBytes:   w.totalBytes.Load(),
		Rotations:    w.handler.Rotations(),
		ActiveSize:   w.handler.Size(),
	}
}

// Close flushes and closes the active file.
func (w *RotatingWriter) Close() error {
	return w.handler.Close()
}
