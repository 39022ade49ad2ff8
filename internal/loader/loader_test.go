package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "pid": 7, "name": "worker",
  "quantum": 4, "priority": 2, "burst_estimate": 50,
  "mem_weights": { "cache": 2, "primary": 6 },
  "program": {
    "data": [10, 20, 30],
    "code": [1, 2, 3, 4],
    "labels": { "loop": 1 },
    "data_symbols": { "counter": 0 }
  }
}`

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_ParsesFieldsAndDerivesLengths(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "p7.json", sampleJSON)

	p, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7, p.PID)
	assert.Equal(t, "worker", p.Name)
	assert.Equal(t, 4, p.Quantum)
	assert.Equal(t, 2, p.Priority)
	assert.Equal(t, uint64(50), p.BurstEstimate)
	assert.Equal(t, uint64(2), p.MemWeights.Cache)
	assert.Equal(t, uint64(6), p.MemWeights.Primary)
	assert.Equal(t, uint64(10), p.MemWeights.Secondary, "unset weight keeps its default")

	assert.Equal(t, []uint32{10, 20, 30}, p.DataSegment)
	assert.Equal(t, []uint32{1, 2, 3, 4}, p.CodeSegment)
	assert.Equal(t, uint32(4), p.JobLength)
	assert.Equal(t, uint32(3), p.Regs.PC, "initial pc is the word index after data")
	assert.Equal(t, uint32(1), p.Labels["loop"])
	assert.Equal(t, uint32(0), p.DataSymbols["counter"])
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFile_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "bad.json", "{not json")
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestResolveProcessFiles_ExplicitListWins(t *testing.T) {
	files, err := ResolveProcessFiles([]string{"a.json", "b.json"}, "./processes")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, files)
}

func TestResolveProcessFiles_GlobsFirstExistingDir(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "one.json", sampleJSON)
	writeTemp(t, dir, "two.json", sampleJSON)

	files, err := ResolveProcessFiles(nil, filepath.Join(dir, "nope"), dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestResolveProcessFiles_NoDirsReturnsEmpty(t *testing.T) {
	files, err := ResolveProcessFiles(nil, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
