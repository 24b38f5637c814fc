// FILE: mavlog/src/internal/replay/replay_test.go
package replay

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

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

func heartbeatFrame(t *testing.T) frame.Frame {
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

	fr, _, err := mavio.NewFrameScanner(bytes.NewReader(raw), rw).Next()
	require.NoError(t, err)
	return fr
}

func recordLog(t *testing.T, frames int, texts int) string {
	t.Helper()

	base := filepath.Join(t.TempDir(), "flight.mavlog")
	w, err := mavlog.NewRotatingWriter(mavlog.WriterOptions{
		BasePath: base,
		MaxBytes: 1 << 20,
		MaxFiles: 3,
		Dialect:  common.Dialect,
	}, newTestLogger())
	require.NoError(t, err)

	fr := heartbeatFrame(t)
	for i := 0; i < frames; i++ {
		require.NoError(t, w.WriteMavlink(fr))
	}
	for i := 0; i < texts; i++ {
		require.NoError(t, w.WriteText("annotation"))
	}
	require.NoError(t, w.Close())
	return base
}

func TestReplayEmitsWireFrames(t *testing.T) {
	base := recordLog(t, 5, 0)

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	var out bytes.Buffer
	r, err := NewReplayer(p, &out, common.Dialect, Options{}, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	stats := r.GetStats()
	assert.Equal(t, uint64(5), stats.EntriesReplayed)
	assert.Equal(t, uint64(out.Len()), stats.BytesWritten)

	// The output must be a clean stream of decodable frames.
	rw, err := mavio.NewDialectRW(common.Dialect)
	require.NoError(t, err)
	sc := mavio.NewFrameScanner(bytes.NewReader(out.Bytes()), rw)
	for i := 0; i < 5; i++ {
		fr, _, err := sc.Next()
		require.NoError(t, err)
		_, ok := fr.GetMessage().(*common.MessageHeartbeat)
		require.True(t, ok)
	}
	_, _, err = sc.Next()
	assert.ErrorIs(t, err, mavio.ErrShort)
}

func TestTextEntriesProduceNoOutput(t *testing.T) {
	base := recordLog(t, 2, 3)

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	var out bytes.Buffer
	r, err := NewReplayer(p, &out, common.Dialect, Options{}, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	stats := r.GetStats()
	assert.Equal(t, uint64(2), stats.EntriesReplayed)
	assert.Equal(t, uint64(0), stats.EntriesSkipped)
}

func TestMalformedAbortsByDefault(t *testing.T) {
	base := recordLog(t, 3, 0)

	// Flip a checksum byte of the second frame on disk.
	content, err := os.ReadFile(base)
	require.NoError(t, err)
	entryLen := (len(content) - mavlog.HeaderMinSize) / 3
	content[mavlog.HeaderMinSize+2*entryLen-1] ^= 0xFF
	require.NoError(t, os.WriteFile(base, content, 0644))

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	var out bytes.Buffer
	r, err := NewReplayer(p, &out, common.Dialect, Options{}, newTestLogger())
	require.NoError(t, err)

	err = r.Run(context.Background())
	var malformed *core.MalformedEntryError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, uint64(1), r.GetStats().EntriesReplayed)
}

func TestMalformedSkippedWhenRequested(t *testing.T) {
	base := recordLog(t, 3, 0)

	content, err := os.ReadFile(base)
	require.NoError(t, err)
	entryLen := (len(content) - mavlog.HeaderMinSize) / 3
	content[mavlog.HeaderMinSize+2*entryLen-1] ^= 0xFF
	require.NoError(t, os.WriteFile(base, content, 0644))

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	var out bytes.Buffer
	r, err := NewReplayer(p, &out, common.Dialect, Options{SkipMalformed: true}, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	stats := r.GetStats()
	assert.Equal(t, uint64(2), stats.EntriesReplayed)
	assert.Equal(t, uint64(1), stats.EntriesSkipped)
}

func TestSkipCannotStepOverZeroConsumptionFailure(t *testing.T) {
	// In a mavlink-only, timestamp-free file a bad magic byte fails without
	// consuming anything, so the cursor cannot move past it. Skipping must
	// abort instead of retrying the same offset forever.
	base := filepath.Join(t.TempDir(), "flight.mavlog")
	w, err := mavlog.NewRotatingWriter(mavlog.WriterOptions{
		BasePath: base,
		MaxBytes: 1 << 20,
		MaxFiles: 3,
		Flags:    mavlog.FormatFlags{MavlinkOnly: true, NoTimestamp: true},
		Dialect:  common.Dialect,
	}, newTestLogger())
	require.NoError(t, err)

	fr := heartbeatFrame(t)
	require.NoError(t, w.WriteMavlink(fr))
	require.NoError(t, w.WriteMavlink(fr))
	require.NoError(t, w.Close())

	content, err := os.ReadFile(base)
	require.NoError(t, err)
	frameLen := (len(content) - mavlog.HeaderMinSize) / 2
	spliced := append([]byte(nil), content[:mavlog.HeaderMinSize+frameLen]...)
	spliced = append(spliced, 0x42) // not a frame magic byte
	spliced = append(spliced, content[mavlog.HeaderMinSize+frameLen:]...)
	require.NoError(t, os.WriteFile(base, spliced, 0644))

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	var out bytes.Buffer
	r, err := NewReplayer(p, &out, common.Dialect, Options{SkipMalformed: true}, newTestLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		var malformed *core.MalformedEntryError
		assert.ErrorAs(t, err, &malformed)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return on an unskippable entry")
	}

	stats := r.GetStats()
	assert.Equal(t, uint64(1), stats.EntriesReplayed)
	assert.Equal(t, uint64(0), stats.EntriesSkipped)
}

func TestCancelledContextStopsRun(t *testing.T) {
	base := recordLog(t, 10, 0)

	p, err := mavlog.NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	r, err := NewReplayer(p, &out, common.Dialect, Options{MaxEntriesPerSec: 1000}, newTestLogger())
	require.NoError(t, err)

	err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
