// FILE: mavlog/src/internal/tlog/writer.go

// Package tlog implements the legacy telemetry log format: no header, no
// flags, each entry a fixed 8-byte big-endian microsecond Unix timestamp
// followed by one self-delimiting protocol frame. Only protocol messages
// can be represented.
package tlog

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"
	"mavlog/src/internal/rotation"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/lixenwraith/log"
)

const timestampLen = 8

// RotatingWriter appends timestamped protocol frames to a size-bounded
// rotating file set. Same durability and single-writer contract as the
// modern-format writer.
type RotatingWriter struct {
	enc     *mavio.Encoder
	handler *rotation.Handler
	logger  *log.Logger

	// Statistics
	totalEntries atomic.Uint64
	totalBytes   atomic.Uint64
}

// NewRotatingWriter opens or creates the active file for basePath; .tlog
// is conventional. Invalid limits fail with a *core.ConfigError.
func NewRotatingWriter(basePath string, maxBytes int64, maxFiles int, d *dialect.Dialect, logger *log.Logger) (*RotatingWriter, error) {
	rw, err := mavio.NewDialectRW(d)
	if err != nil {
		return nil, err
	}
	enc, err := mavio.NewEncoder(rw, 1, 1)
	if err != nil {
		return nil, err
	}

	handler, err := rotation.NewHandler(basePath, maxBytes, maxFiles, nil, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("msg", "Telemetry log writer opened",
		"component", "tlog_writer",
		"base_path", basePath,
		"max_bytes", maxBytes,
		"max_files", maxFiles)

	return &RotatingWriter{
		enc:     enc,
		handler: handler,
		logger:  logger,
	}, nil
}

// WriteMavlink appends one frame stamped with the current wall-clock time.
func (w *RotatingWriter) WriteMavlink(fr frame.Frame) error {
	payload, err := w.enc.EncodeFrame(fr)
	if err != nil {
		return err
	}

	record := make([]byte, timestampLen, timestampLen+len(payload))
	binary.BigEndian.PutUint64(record, uint64(time.Now().UnixMicro()))
	record = append(record, payload...)

	if err := w.handler.Emit(record); err != nil {
		return err
	}
	w.totalEntries.Add(1)
	w.totalBytes.Add(uint64(len(record)))
	return nil
}

// WriteText is not representable in the legacy format.
func (w *RotatingWriter) WriteText(string) error {
	return core.ErrUnsupportedByFormat
}

// WriteRaw is not representable in the legacy format.
func (w *RotatingWriter) WriteRaw([]byte) error {
	return core.ErrUnsupportedByFormat
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
