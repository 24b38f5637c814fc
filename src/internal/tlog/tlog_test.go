// FILE: mavlog/src/internal/tlog/tlog_test.go
package tlog

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mavlog/src/internal/core"
	"mavlog/src/internal/mavio"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func heartbeatFrame(t *testing.T) (frame.Frame, []byte) {
	t.Helper()

	rw, err := mavio.NewDialectRW(common.Dialect)
	require.NoError(t, err)

	enc, err := mavio.NewEncoder(rw, 1, 1)
	require.NoError(t, err)

	raw, err := enc.EncodeMessage(&common.MessageHeartbeat{
		Type:           common.MAV_TYPE_FIXED_WING,
		Autopilot:      common.MAV_AUTOPILOT_ARDUPILOTMEGA,
		SystemStatus:   common.MAV_STATE_STANDBY,
		MavlinkVersion: 3,
	})
	require.NoError(t, err)

	fr, _, err := mavio.NewFrameScanner(bytes.NewReader(raw), rw).Next()
	require.NoError(t, err)
	return fr, raw
}

func TestRotatingWriter_Validation(t *testing.T) {
	base := filepath.Join(t.TempDir(), "flight.tlog")

	_, err := NewRotatingWriter(base, 0, 3, common.Dialect, newTestLogger())
	var cfgErr *core.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewRotatingWriter(base, 1024, 0, common.Dialect, newTestLogger())
	require.ErrorAs(t, err, &cfgErr)
}

func TestRotatingWriter_RejectsTextAndRaw(t *testing.T) {
	base := filepath.Join(t.TempDir(), "flight.tlog")
	w, err := NewRotatingWriter(base, 1<<20, 3, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer w.Close()

	assert.ErrorIs(t, w.WriteText("note"), core.ErrUnsupportedByFormat)
	assert.ErrorIs(t, w.WriteRaw([]byte{1}), core.ErrUnsupportedByFormat)
}

func TestHeartbeatRoundTrip(t *testing.T) {
	// One heartbeat written, one timestamped entry read back, then end of
	// stream on every further call.
	base := filepath.Join(t.TempDir(), "flight.tlog")
	w, err := NewRotatingWriter(base, 1<<20, 3, common.Dialect, newTestLogger())
	require.NoError(t, err)

	fr, raw := heartbeatFrame(t)
	before := uint64(time.Now().UnixMicro())
	require.NoError(t, w.WriteMavlink(fr))
	after := uint64(time.Now().UnixMicro())
	require.NoError(t, w.Close())

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.Equal(t, int64(timestampLen+len(raw)), info.Size(),
		"a legacy entry is exactly a timestamp and a frame")

	p, err := NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	e, err := p.ParseNextEntry()
	require.NoError(t, err)
	require.True(t, e.Timestamped, "legacy entries always carry a timestamp")
	assert.GreaterOrEqual(t, e.Timestamp, before)
	assert.LessOrEqual(t, e.Timestamp, after)

	hb, ok := e.Payload.(core.MavlinkPayload).Frame.GetMessage().(*common.MessageHeartbeat)
	require.True(t, ok)
	assert.Equal(t, common.MAV_TYPE_FIXED_WING, hb.Type)

	_, err = p.ParseNextEntry()
	assert.ErrorIs(t, err, core.ErrEndOfStream)
	_, err = p.ParseNextEntry()
	assert.ErrorIs(t, err, core.ErrEndOfStream)
}

func TestTimestampIsBigEndian(t *testing.T) {
	base := filepath.Join(t.TempDir(), "flight.tlog")
	w, err := NewRotatingWriter(base, 1<<20, 3, common.Dialect, newTestLogger())
	require.NoError(t, err)

	fr, _ := heartbeatFrame(t)
	require.NoError(t, w.WriteMavlink(fr))
	require.NoError(t, w.Close())

	content, err := os.ReadFile(base)
	require.NoError(t, err)

	ts := binary.BigEndian.Uint64(content[:8])
	now := uint64(time.Now().UnixMicro())
	assert.InDelta(t, float64(now), float64(ts), float64(time.Minute.Microseconds()))
}

func TestParser_FailFastOnCorruptFrame(t *testing.T) {
	base := filepath.Join(t.TempDir(), "flight.tlog")
	w, err := NewRotatingWriter(base, 1<<20, 3, common.Dialect, newTestLogger())
	require.NoError(t, err)

	fr, raw := heartbeatFrame(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteMavlink(fr))
	}
	require.NoError(t, w.Close())

	entryLen := timestampLen + len(raw)
	content, err := os.ReadFile(base)
	require.NoError(t, err)
	content[entryLen+entryLen-1] ^= 0xFF // checksum of the second frame
	require.NoError(t, os.WriteFile(base, content, 0644))

	p, err := NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ParseNextEntry()
	require.NoError(t, err)

	_, err = p.ParseNextEntry()
	var malformed *core.MalformedEntryError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, int64(entryLen+timestampLen), malformed.Offset)

	// Resuming after the consumed bytes still yields the third entry.
	_, err = p.ParseNextEntry()
	require.NoError(t, err)

	_, err = p.ParseNextEntry()
	assert.ErrorIs(t, err, core.ErrEndOfStream)
}

func TestParser_TruncatedTimestampEndsStream(t *testing.T) {
	base := filepath.Join(t.TempDir(), "flight.tlog")
	w, err := NewRotatingWriter(base, 1<<20, 3, common.Dialect, newTestLogger())
	require.NoError(t, err)

	fr, _ := heartbeatFrame(t)
	require.NoError(t, w.WriteMavlink(fr))
	require.NoError(t, w.Close())

	content, err := os.ReadFile(base)
	require.NoError(t, err)
	// Whole first entry plus half a timestamp of a second one.
	require.NoError(t, os.WriteFile(base, append(content, 1, 2, 3), 0644))

	p, err := NewParser(base, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ParseNextEntry()
	require.NoError(t, err)
	_, err = p.ParseNextEntry()
	assert.ErrorIs(t, err, core.ErrEndOfStream)
}

func TestRotation(t *testing.T) {
	base := filepath.Join(t.TempDir(), "flight.tlog")
	w, err := NewRotatingWriter(base, 128, 2, common.Dialect, newTestLogger())
	require.NoError(t, err)
	defer w.Close()

	fr, _ := heartbeatFrame(t)
	for i := 0; i < 30; i++ {
		require.NoError(t, w.WriteMavlink(fr))
	}

	files, err := filepath.Glob(base + "*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	stats := w.GetStats()
	assert.Equal(t, uint64(30), stats.TotalEntries)
	assert.Greater(t, stats.Rotations, uint64(0))
	assert.LessOrEqual(t, stats.ActiveSize, int64(128))
}
