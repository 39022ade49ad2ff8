// Package loader reads process-file JSON into PCBs. The on-disk schema
// and the word-index (not byte) convention for pc/labels/symbols mirror
// the original pcb_loader.cpp exactly.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ehrlich-b/vonsim/internal/constants"
	"github.com/ehrlich-b/vonsim/internal/pcb"
)

// memWeightsFile mirrors the optional mem_weights object; absent fields
// mean "use the compiled-in default" (an explicit 0 is kept as 0).
type memWeightsFile struct {
	Cache     *uint64 `json:"cache"`
	Primary   *uint64 `json:"primary"`
	Secondary *uint64 `json:"secondary"`
}

type programFile struct {
	Data         []uint32          `json:"data"`
	Code         []uint32          `json:"code"`
	Labels       map[string]uint32 `json:"labels"`
	DataSymbols  map[string]uint32 `json:"data_symbols"`
}

type processFile struct {
	PID           int             `json:"pid"`
	Name          string          `json:"name"`
	Quantum       int             `json:"quantum"`
	Priority      int             `json:"priority"`
	BurstEstimate uint64          `json:"burst_estimate"`
	MemWeights    *memWeightsFile `json:"mem_weights"`
	Program       programFile     `json:"program"`
}

// LoadFile parses one process-file JSON document into a PCB. After
// loading, PC is set to len(data) (the word index the code segment
// starts at) and JobLength to len(code), matching the original's
// data_bytes/code_bytes/initial_pc/job_length derivation.
func LoadFile(path string) (*pcb.PCB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: cannot open %s: %w", path, err)
	}

	var pf processFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("loader: malformed JSON in %s: %w", path, err)
	}

	p := pcb.New(pf.PID, pf.Name)
	p.Quantum = pf.Quantum
	p.Priority = pf.Priority
	p.BurstEstimate = pf.BurstEstimate

	p.MemWeights = pcb.MemWeights{
		Cache:     constants.DefaultCacheWeight,
		Primary:   constants.DefaultPrimaryWeight,
		Secondary: constants.DefaultSecondaryWeight,
	}
	if pf.MemWeights != nil {
		p.MemWeights.Cache = defaultU64(pf.MemWeights.Cache, p.MemWeights.Cache)
		p.MemWeights.Primary = defaultU64(pf.MemWeights.Primary, p.MemWeights.Primary)
		p.MemWeights.Secondary = defaultU64(pf.MemWeights.Secondary, p.MemWeights.Secondary)
	}

	p.DataSegment = append([]uint32(nil), pf.Program.Data...)
	p.CodeSegment = append([]uint32(nil), pf.Program.Code...)
	if pf.Program.Labels != nil {
		p.Labels = pf.Program.Labels
	}
	if pf.Program.DataSymbols != nil {
		p.DataSymbols = pf.Program.DataSymbols
	}

	p.JobLength = uint32(len(p.CodeSegment))
	p.Regs.PC = uint32(len(p.DataSegment))

	return p, nil
}

func defaultU64(v *uint64, def uint64) uint64 {
	if v == nil {
		return def
	}
	return *v
}

// ResolveProcessFiles expands an explicit file list, or, if empty, globs
// every *.json under the first of candidateDirs that exists and holds at
// least one match; directories with no *.json files are skipped.
func ResolveProcessFiles(explicit []string, candidateDirs ...string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	for _, dir := range candidateDirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("loader: glob %s: %w", dir, err)
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, nil
}
