// FILE: mavlog/src/internal/record/record.go
// Package record captures protocol frames from a live byte stream and
// appends them to a log writer.
package record

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"mavlog/src/internal/mavio"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/lixenwraith/log"
)

// Sink receives decoded frames. Both log formats implement it through
// their rotating writers.
type Sink interface {
	WriteMavlink(fr frame.Frame) error
}

// Recorder scans a byte source for frames and forwards them to a sink.
//
// Unlike the file parsers, the recorder faces an unframed live stream
// where line noise and partial frames are expected. On an undecodable
// byte run it steps forward one byte at a time until framing is regained,
// counting everything it had to throw away.
type Recorder struct {
	sc     *mavio.FrameScanner
	sink   Sink
	logger *log.Logger

	framesRecorded atomic.Uint64
	framesDropped  atomic.Uint64
	bytesScanned   atomic.Uint64
	bytesDiscarded atomic.Uint64
}

// NewRecorder creates a recorder reading from src. The dialect may be nil
// to record frames without message decoding.
func NewRecorder(src *mavio.FrameScanner, sink Sink, logger *log.Logger) *Recorder {
	return &Recorder{
		sc:     src,
		sink:   sink,
		logger: logger,
	}
}

// NewRecorderFromReader wraps an io.Reader in a frame scanner first.
func NewRecorderFromReader(r io.Reader, d *dialect.Dialect, sink Sink, logger *log.Logger) (*Recorder, error) {
	rw, err := mavio.NewDialectRW(d)
	if err != nil {
		return nil, err
	}
	return NewRecorder(mavio.NewFrameScanner(r, rw), sink, logger), nil
}

// Run consumes the stream until it ends or the context is cancelled.
// A clean end of stream returns nil. Sink errors abort the run.
//
// Cancellation is checked between frames; a source that blocks in Read
// must be closed by the caller to unblock a cancelled run.
func (rec *Recorder) Run(ctx context.Context) error {
	rec.logger.Info("msg", "Recorder started", "component", "record")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fr, n, err := rec.sc.Next()
		rec.bytesScanned.Add(uint64(n))
		if err != nil {
			if errors.Is(err, mavio.ErrShort) {
				rec.logger.Info("msg", "Source stream ended",
					"component", "record",
					"frames", rec.framesRecorded.Load(),
					"dropped", rec.framesDropped.Load())
				return nil
			}
			var frameErr *mavio.FrameError
			if errors.As(err, &frameErr) {
				rec.framesDropped.Add(1)
				if n == 0 {
					// Unrecognized magic byte: step over it and retry.
					if _, derr := rec.sc.Discard(1); derr != nil {
						return nil
					}
					rec.bytesDiscarded.Add(1)
				} else {
					rec.bytesDiscarded.Add(uint64(n))
				}
				rec.logger.Warn("msg", "Dropped undecodable frame",
					"component", "record",
					"bytes", n,
					"error", frameErr)
				continue
			}
			return err
		}

		if err := rec.sink.WriteMavlink(fr); err != nil {
			return err
		}
		rec.framesRecorded.Add(1)
	}
}

// Stats is a snapshot of recorder activity.
type Stats struct {
	FramesRecorded uint64
	FramesDropped  uint64
	BytesScanned   uint64
	BytesDiscarded uint64
}

func (rec *Recorder) GetStats() Stats {
	return Stats{
		FramesRecorded: rec.framesRecorded.Load(),
		FramesDropped:  rec.framesDropped.Load(),
		BytesScanned:   rec.bytesScanned.Load(),
		BytesDiscarded: rec.bytesDiscarded.Load(),
	}
}
