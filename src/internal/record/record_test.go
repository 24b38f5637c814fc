// FILE: mavlog/src/internal/record/record_test.go
package record

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"
	"mavlog/src/internal/mavlog"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func heartbeatBytes(t *testing.T) []byte {
	t.Helper()

	rw, err := mavio.NewDialectRW(common.Dialect)
	require.NoError(t, err)
	enc, err := mavio.NewEncoder(rw, 1, 1)
	require.NoError(t, err)

	raw, err := enc.EncodeMessage(&common.MessageHeartbeat{
		Type:           common.MAV_TYPE_QUADROTOR,
		Autopilot:      common.MAV_AUTOPILOT_PX4,
		SystemStatus:   common.MAV_STATE_ACTIVE,
		MavlinkVersion: 3,
	})
	require.NoError(t, err)
	return raw
}

// memorySink collects frames without touching disk.
type memorySink struct {
	frames []frame.Frame
	err    error
}

func (s *memorySink) WriteMavlink(fr frame.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, fr)
	return nil
}

func TestRecordCleanStream(t *testing.T) {
	raw := heartbeatBytes(t)
	stream := bytes.Repeat(raw, 4)

	sink := &memorySink{}
	rec, err := NewRecorderFromReader(bytes.NewReader(stream), common.Dialect, sink, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, rec.Run(context.Background()))

	assert.Len(t, sink.frames, 4)
	stats := rec.GetStats()
	assert.Equal(t, uint64(4), stats.FramesRecorded)
	assert.Equal(t, uint64(0), stats.FramesDropped)
	assert.Equal(t, uint64(len(stream)), stats.BytesScanned)
	assert.Equal(t, uint64(0), stats.BytesDiscarded)
}

func TestRecordStepsOverGarbage(t *testing.T) {
	raw := heartbeatBytes(t)

	var stream bytes.Buffer
	stream.Write(raw)
	stream.Write([]byte{0x00, 0x13, 0x37}) // line noise between frames
	stream.Write(raw)

	sink := &memorySink{}
	rec, err := NewRecorderFromReader(&stream, common.Dialect, sink, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, rec.Run(context.Background()))

	assert.Len(t, sink.frames, 2)
	stats := rec.GetStats()
	assert.Equal(t, uint64(2), stats.FramesRecorded)
	assert.Equal(t, uint64(3), stats.FramesDropped)
	assert.Equal(t, uint64(3), stats.BytesDiscarded)
}

func TestRecordDropsCorruptFrame(t *testing.T) {
	raw := heartbeatBytes(t)

	bad := append([]byte(nil), raw...)
	bad[len(bad)-1] ^= 0xFF

	var stream bytes.Buffer
	stream.Write(raw)
	stream.Write(bad)
	stream.Write(raw)

	sink := &memorySink{}
	rec, err := NewRecorderFromReader(&stream, common.Dialect, sink, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, rec.Run(context.Background()))

	// The corrupt frame is dropped whole; framing is regained on the next
	// magic byte without re-entering the bad bytes.
	assert.Len(t, sink.frames, 2)
	stats := rec.GetStats()
	assert.Equal(t, uint64(1), stats.FramesDropped)
	assert.Equal(t, uint64(len(raw)), stats.BytesDiscarded)
}

func TestRecordSinkErrorAborts(t *testing.T) {
	raw := heartbeatBytes(t)

	sinkErr := core.ErrPayloadTooLarge
	sink := &memorySink{err: sinkErr}
	rec, err := NewRecorderFromReader(bytes.NewReader(raw), common.Dialect, sink, newTestLogger())
	require.NoError(t, err)

	err = rec.Run(context.Background())
	assert.ErrorIs(t, err, sinkErr)
}

func TestRecordCancelledContext(t *testing.T) {
	raw := heartbeatBytes(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memorySink{}
	rec, err := NewRecorderFromReader(bytes.NewReader(raw), common.Dialect, sink, newTestLogger())
	require.NoError(t, err)

	err = rec.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.frames)
}

func TestRecordIntoLogFile(t *testing.T) {
	raw := heartbeatBytes(t)
	stream := bytes.Repeat(raw, 3)

	base := filepath.Join(t.TempDir(), "capture.mavlog")
	w, err := mavlog.NewRotatingWriter(mavlog.WriterOptions{
		BasePath: base,
		MaxBytes: 1 << 20,
		MaxFiles: 3,
		Flags:    mavlog.FormatFlags{MavlinkOnly: true},
		Dialect:  common.Dialect,
	}, newTestLogger())
	require.NoError(t, err)

	rec, err := NewRecorderFromReader(bytes.NewReader(stream), common.Dialect, w, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, rec.Run(context.Background()))
	require.NoError(t, w.Close())

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 3; i++ {
		e, err := p.ParseNextEntry()
		require.NoError(t, err)
		_, ok := e.Payload.(core.MavlinkPayload)
		require.True(t, ok)
	}
	_, err = p.ParseNextEntry()
	assert.ErrorIs(t, err, core.ErrEndOfStream)
}
