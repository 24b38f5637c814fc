// FILE: mavlog/src/cmd/mavlog/convert_test.go
package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"mavlog/src/internal/mavio"
	"mavlog/src/internal/mavlog"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawHeartbeat returns wire bytes for a heartbeat with a valid checksum.
func rawHeartbeat(t *testing.T) []byte {
	t.Helper()

	rw, err := mavio.NewDialectRW(common.Dialect)
	require.NoError(t, err)

	enc, err := mavio.NewEncoder(rw, 7, 1)
	require.NoError(t, err)

	raw, err := enc.EncodeMessage(&common.MessageHeartbeat{
		Type:           common.MAV_TYPE_QUADROTOR,
		Autopilot:      common.MAV_AUTOPILOT_GENERIC,
		SystemStatus:   common.MAV_STATE_ACTIVE,
		MavlinkVersion: 3,
	})
	require.NoError(t, err)
	return raw
}

// writeLegacyLog lays out entries as big-endian microsecond timestamps
// followed by wire frames, the legacy on-disk layout.
func writeLegacyLog(t *testing.T, path string, raw []byte, timestamps ...uint64) {
	t.Helper()

	var buf bytes.Buffer
	for _, ts := range timestamps {
		var stamp [8]byte
		binary.BigEndian.PutUint64(stamp[:], ts)
		buf.Write(stamp[:])
		buf.Write(raw)
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestConvertAnchorsHeaderToFirstEntry(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "flight.tlog")
	output := filepath.Join(dir, "flight.mavlog")

	const epochUS = uint64(1_700_000_000_000_000)
	raw := rawHeartbeat(t)
	writeLegacyLog(t, input, raw, epochUS, epochUS+2500)

	require.NoError(t, runConvert([]string{"-o", output, input}))

	h, err := mavlog.ReadFileHeaderAt(output)
	require.NoError(t, err)
	assert.Equal(t, epochUS, h.TimestampUS,
		"header must carry the first legacy timestamp, not the conversion time")
	assert.True(t, h.Flags.MavlinkOnly)

	p, err := mavlog.NewParser(output, common.Dialect, log.NewLogger())
	require.NoError(t, err)
	defer p.Close()

	// Entry timestamps are offsets from the header, so header plus offset
	// reconstructs the original absolute times.
	entry, err := p.ParseNextEntry()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), entry.Timestamp)

	entry, err = p.ParseNextEntry()
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), entry.Timestamp)
}

func TestConvertEmptyInputFails(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.tlog")
	output := filepath.Join(dir, "empty.mavlog")
	require.NoError(t, os.WriteFile(input, nil, 0644))

	err := runConvert([]string{"-o", output, input})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entries to convert")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output file should be created")
}
