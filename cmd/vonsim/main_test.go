package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ehrlich-b/vonsim/internal/scheduler"
)

func TestParsePositional_AllDefaults(t *testing.T) {
	policy, ncores, files := parsePositional(nil)
	assert.Equal(t, scheduler.FCFS, policy)
	assert.Equal(t, 4, ncores)
	assert.Empty(t, files)
}

func TestParsePositional_PolicyAndCoresAndFiles(t *testing.T) {
	policy, ncores, files := parsePositional([]string{"rr", "6", "a.json", "b.json"})
	assert.Equal(t, scheduler.RR, policy)
	assert.Equal(t, 6, ncores)
	assert.Equal(t, []string{"a.json", "b.json"}, files)
}

func TestParsePositional_UnrecognizedFirstArgTreatedAsFile(t *testing.T) {
	policy, ncores, files := parsePositional([]string{"proc1.json"})
	assert.Equal(t, scheduler.FCFS, policy)
	assert.Equal(t, 4, ncores)
	assert.Equal(t, []string{"proc1.json"}, files)
}

func TestClampCores_BoundsToRange(t *testing.T) {
	assert.Equal(t, 1, clampCores(0))
	assert.Equal(t, 8, clampCores(99))
	assert.Equal(t, 3, clampCores(3))
}
