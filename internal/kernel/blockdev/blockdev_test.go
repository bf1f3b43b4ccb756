package blockdev

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWriteSectorRoundTrip(t *testing.T) {
	d := NewMemory(4)
	want := bytes.Repeat([]byte{0xAB}, SectorSize)

	require.NoError(t, d.WriteSector(2, want))

	got := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(2, got))
	assert.Equal(t, want, got)

	other := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(0, other))
	assert.NotEqual(t, want, other)
}

func TestMemoryModifyLeavesRestOfSectorIntact(t *testing.T) {
	d := NewMemory(1)
	full := bytes.Repeat([]byte{0x11}, SectorSize)
	require.NoError(t, d.WriteSector(0, full))

	patch := []byte{0xAA, 0xBB, 0xCC}
	require.NoError(t, d.Modify(0, 10, patch, len(patch)))

	got := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(0, got))

	assert.Equal(t, byte(0x11), got[9])
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, got[10:13])
	assert.Equal(t, byte(0x11), got[13])
}

func TestMemoryOutOfRangeSector(t *testing.T) {
	d := NewMemory(1)
	buf := make([]byte, SectorSize)
	assert.Error(t, d.ReadSector(5, buf))
}

func TestMemoryPartOutOfBounds(t *testing.T) {
	d := NewMemory(1)
	buf := make([]byte, SectorSize)
	assert.Error(t, d.ReadPart(0, 500, 100, buf))
}

func TestFileReadWriteSectorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	require.NoError(t, os.WriteFile(path, make([]byte, 4*SectorSize), 0o644))

	d, err := OpenFile(path)
	require.NoError(t, err)
	defer d.Close()

	want := bytes.Repeat([]byte{0x7E}, SectorSize)
	require.NoError(t, d.WriteSector(1, want))

	got := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(1, got))
	assert.Equal(t, want, got)
}
