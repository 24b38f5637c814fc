// FILE: mavlog/src/internal/replay/replay.go
// Package replay plays recorded entries back onto a byte stream, honoring
// the inter-entry timing captured at record time.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Options controls playback pacing.
type Options struct {
	// Speed scales recorded inter-entry delays. 1.0 replays in real time,
	// 2.0 at double speed. Zero or negative means no delay at all.
	Speed float64

	// MaxEntriesPerSec caps the output rate regardless of recorded timing.
	// Zero means uncapped.
	MaxEntriesPerSec float64

	// SkipMalformed steps past undecodable entries instead of aborting.
	SkipMalformed bool
}

// Replayer drains a parser and writes each entry's wire bytes to an output
// stream, sleeping between entries to reproduce the recorded cadence.
type Replayer struct {
	parser core.Parser
	out    io.Writer
	enc    *mavio.Encoder
	opts   Options
	logger *log.Logger

	entriesReplayed atomic.Uint64
	entriesSkipped  atomic.Uint64
	bytesWritten    atomic.Uint64
}

// NewReplayer creates a replayer that re-encodes protocol frames with the
// given dialect. The dialect may be nil for raw passthrough of unknown
// messages.
func NewReplayer(parser core.Parser, out io.Writer, d *dialect.Dialect, opts Options, logger *log.Logger) (*Replayer, error) {
	rw, err := mavio.NewDialectRW(d)
	if err != nil {
		return nil, err
	}
	enc, err := mavio.NewEncoder(rw, 1, 1)
	if err != nil {
		return nil, err
	}
	return &Replayer{
		parser: parser,
		out:    out,
		enc:    enc,
		opts:   opts,
		logger: logger,
	}, nil
}

// Run replays entries until the stream is exhausted or the context is
// cancelled. Malformed entries abort the run unless SkipMalformed is set.
func (r *Replayer) Run(ctx context.Context) error {
	var limiter *rate.Limiter
	if r.opts.MaxEntriesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.MaxEntriesPerSec), 1)
	}

	var havePrev bool
	var prevTS uint64

	// Both file parsers report their cursor; a failed decode that did not
	// move it can never succeed on retry, so skipping would spin forever.
	cursor, _ := r.parser.(interface{ Offset() int64 })

	for {
		var before int64
		if cursor != nil {
			before = cursor.Offset()
		}
		entry, err := r.parser.ParseNextEntry()
		if err != nil {
			if errors.Is(err, core.ErrEndOfStream) {
				r.logger.Info("msg", "Replay finished",
					"component", "replay",
					"entries", r.entriesReplayed.Load(),
					"skipped", r.entriesSkipped.Load())
				return nil
			}
			var malformed *core.MalformedEntryError
			if errors.As(err, &malformed) && r.opts.SkipMalformed {
				if cursor != nil && cursor.Offset() == before {
					return fmt.Errorf("cannot skip entry that consumed no bytes: %w", err)
				}
				r.entriesSkipped.Add(1)
				r.logger.Warn("msg", "Skipping malformed entry",
					"component", "replay",
					"offset", malformed.Offset,
					"error", malformed.Err)
				continue
			}
			return err
		}

		if entry.Timestamped {
			if havePrev && entry.Timestamp > prevTS {
				if err := r.pace(ctx, entry.Timestamp-prevTS); err != nil {
					return err
				}
			}
			havePrev = true
			prevTS = entry.Timestamp
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		data, err := r.encode(entry.Payload)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		n, err := r.out.Write(data)
		r.bytesWritten.Add(uint64(n))
		if err != nil {
			return fmt.Errorf("replay write: %w", err)
		}
		r.entriesReplayed.Add(1)
	}
}

// pace sleeps for the recorded delay scaled by Speed, waking early on
// context cancellation.
func (r *Replayer) pace(ctx context.Context, deltaUS uint64) error {
	if r.opts.Speed <= 0 {
		return nil
	}
	d := time.Duration(float64(deltaUS)/r.opts.Speed) * time.Microsecond
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Replayer) encode(p core.Payload) ([]byte, error) {
	switch v := p.(type) {
	case core.MavlinkPayload:
		return r.enc.EncodeFrame(v.Frame)
	case core.RawPayload:
		return v.Bytes, nil
	case core.TextPayload:
		// Text annotations have no wire form; they are replay metadata only.
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}
}

// Stats is a snapshot of replay activity.
type Stats struct {
	EntriesReplayed uint64
	EntriesSkipped  uint64
	BytesWritten    uint64
}

func (r *Replayer) GetStats() Stats {
	return Stats{
		EntriesReplayed: r.entriesReplayed.Load(),
		EntriesSkipped:  r.entriesSkipped.Load(),
		BytesWritten:    r.bytesWritten.Load(),
	}
}
