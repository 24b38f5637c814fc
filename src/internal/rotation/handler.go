// FILE: mavlog/src/internal/rotation/handler.go
package rotation

import (
	"errors"
	"fmt"
	"os"

	"mavlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// ErrClosed reports use of a handler after Close.
var ErrClosed = errors.New("rotation handler is closed")

// ErrRecordTooLarge rejects a record that could never fit within the size
// limit, even alone in a fresh file.
var ErrRecordTooLarge = errors.New("record larger than the file size limit")

// Handler owns the active file of a rotating file set and appends whole
// records to it. When a record would push the file past the size limit, the
// handler rotates first: retired files are renumbered so suffix k becomes
// k+1, the oldest is dropped, the closed active file becomes suffix 0, and
// a fresh active file is opened (replaying the header, if any).
//
// The active file's size and the retired set are tracked in memory and
// updated with each successful write, so rotation never rescans the file
// system. Exactly one handler may own a base path at a time.
type Handler struct {
	basePath string
	maxBytes int64
	maxFiles int
	header   []byte
	logger   *log.Logger

	file      *os.File
	size      int64
	rotations uint64
}

// NewHandler opens or creates the active file for basePath. maxBytes and
// maxFiles must both be at least 1; maxFiles counts the active file, so
// maxFiles-1 retired suffixes are kept. A non-nil header is written to
// every freshly created file before any record.
func NewHandler(basePath string, maxBytes int64, maxFiles int, header []byte, logger *log.Logger) (*Handler, error) {
	if basePath == "" {
		return nil, &core.ConfigError{Param: "base_path", Reason: "must not be empty"}
	}
	if maxBytes < 1 {
		return nil, &core.ConfigError{Param: "max_bytes", Reason: fmt.Sprintf("must be at least 1, got %d", maxBytes)}
	}
	if maxFiles < 1 {
		return nil, &core.ConfigError{Param: "max_files", Reason: fmt.Sprintf("must be at least 1, got %d", maxFiles)}
	}
	if int64(len(header)) > maxBytes {
		return nil, &core.ConfigError{Param: "max_bytes", Reason: "smaller than the file header"}
	}

	h := &Handler{
		basePath: basePath,
		maxBytes: maxBytes,
		maxFiles: maxFiles,
		header:   header,
		logger:   logger,
	}
	if err := h.open(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) open() error {
	f, err := os.OpenFile(h.basePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", h.basePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", h.basePath, err)
	}

	h.file = f
	h.size = info.Size()

	// A fresh file starts with the header; a reopened one already has it.
	if h.size == 0 && len(h.header) > 0 {
		if _, err := f.Write(h.header); err != nil {
			f.Close()
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("sync header: %w", err)
		}
		h.size = int64(len(h.header))
	}
	return nil
}

// Emit appends one whole record and flushes it to stable storage before
// returning. The record is never split across files; if it would not fit,
// the handler rotates first. A failed write leaves no partial record
// visible.
func (h *Handler) Emit(record []byte) error {
	if h.file == nil {
		return ErrClosed
	}
	if int64(len(h.header))+int64(len(record)) > h.maxBytes {
		return ErrRecordTooLarge
	}

	if h.size+int64(len(record)) > h.maxBytes {
		if err := h.Rotate(); err != nil {
			return err
		}
	}

	prev := h.size
	n, err := h.file.Write(record)
	if err != nil {
		// Roll back any partial bytes so no half record looks committed.
		if n > 0 {
			return rollbackPartial(h.file, prev, err)
		}
		return fmt.Errorf("append record: %w", err)
	}
	if err := h.file.Sync(); err != nil {
		return fmt.Errorf("sync record: %w", err)
	}
	h.size += int64(n)
	return nil
}

// rollbackPartial truncates away the partial bytes of a failed write. The
// write error is always returned; a failed truncate is reported with it,
// because the file then still ends in a half record.
func rollbackPartial(f *os.File, prev int64, writeErr error) error {
	if terr := f.Truncate(prev); terr != nil {
		return fmt.Errorf("append record: %w (rollback truncate failed: %v)", writeErr, terr)
	}
	return fmt.Errorf("append record: %w", writeErr)
}

// Rotate closes the active file, renumbers the retired set and opens a
// fresh active file. With maxFiles == 1 there are no retired slots; the
// closed file is simply dropped.
func (h *Handler) Rotate() error {
	if h.file == nil {
		return ErrClosed
	}
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("close active file: %w", err)
	}
	h.file = nil

	if h.maxFiles == 1 {
		if err := os.Remove(h.basePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("drop active file: %w", err)
		}
	} else {
		oldest := h.suffixPath(h.maxFiles - 2)
		if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("drop %s: %w", oldest, err)
		}
		for i := h.maxFiles - 3; i >= 0; i-- {
			from := h.suffixPath(i)
			if _, err := os.Stat(from); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return fmt.Errorf("stat %s: %w", from, err)
			}
			if err := os.Rename(from, h.suffixPath(i+1)); err != nil {
				return fmt.Errorf("renumber %s: %w", from, err)
			}
		}
		if err := os.Rename(h.basePath, h.suffixPath(0)); err != nil {
			return fmt.Errorf("retire active file: %w", err)
		}
	}

	h.rotations++
	if h.logger != nil {
		h.logger.Debug("msg", "Rotated log file",
			"component", "rotation",
			"base_path", h.basePath,
			"rotations", h.rotations)
	}
	return h.open()
}

// Size reports the current byte size of the active file.
func (h *Handler) Size() int64 {
	return h.size
}

// Rotations reports how many rotations have occurred since construction.
func (h *Handler) Rotations() uint64 {
	return h.rotations
}

// Close flushes and closes the active file. The handler cannot be reused.
func (h *Handler) Close() error {
	if h.file == nil {
		return nil
	}
	f := h.file
	h.file = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync on close: %w", err)
	}
	return f.Close()
}

func (h *Handler) suffixPath(i int) string {
	return fmt.Sprintf("%s.%d", h.basePath, i)
}
