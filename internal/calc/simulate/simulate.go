package simulate

import (
	"fmt"
	"sync"

	"Helios/internal/calc/conductor"
)

// Delta compares a simulated run against the baseline. Diffs are
// baseline minus simulated, so a positive voltage-drop diff means the
// simulated configuration performs better.
type Delta struct {
	CurrentDiff        float64 `json:"current_diff"`
	SectionDiff        float64 `json:"section_diff"`
	VoltageDropPctDiff float64 `json:"voltage_drop_pct_diff"`
	StatusChanged      bool    `json:"status_changed"`
}

// Session is a what-if sandbox over one circuit. The baseline never
// changes; edits accumulate in the working factor set until Recompute or
// Reset. Safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	input    conductor.Input
	baseline conductor.Factors
	current  conductor.Factors
	baseRun  conductor.Run
	dirty    bool
}

// NewSession evaluates the baseline once and opens a session around it.
func NewSession(in conductor.Input, f conductor.Factors) (*Session, error) {
	base, err := conductor.Compute(in, f)
	if err != nil {
		return nil, fmt.Errorf("evaluating baseline: %w", err)
	}
	return &Session{input: in, baseline: f, current: f, baseRun: base}, nil
}

// Baseline returns the frozen baseline run.
func (s *Session) Baseline() conductor.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseRun
}

// Dirty reports whether parameters changed since the last Recompute.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SetParameter updates one working factor by name. It only records the
// edit; nothing is recomputed until Recompute is called.
func (s *Session) SetParameter(key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case "isc_safety_factor":
		s.current.IscSafetyFactor = value
	case "temperature_factor":
		s.current.TemperatureFactor = value
	case "grouping_factor":
		s.current.GroupingFactor = value
	case "ambient_temp_c":
		s.current.AmbientTempC = value
	case "resistivity":
		s.current.Resistivity = value
	case "max_voltage_drop_pct":
		s.current.MaxVoltageDropPct = value
	case "parallel_strings":
		s.current.ParallelStrings = int(value)
	default:
		return fmt.Errorf("unknown simulation parameter %q", key)
	}
	s.dirty = true
	return nil
}

// Recompute evaluates the working factors and returns the simulated run
// with its delta against the baseline. A failed evaluation leaves the
// session dirty so the caller can fix the offending parameter and retry.
func (s *Session) Recompute() (conductor.Run, Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, err := conductor.Compute(s.input, s.current)
	if err != nil {
		return conductor.Run{}, Delta{}, err
	}
	s.dirty = false
	return sim, Diff(s.baseRun, sim), nil
}

// Reset discards all edits and returns the session to the baseline.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.baseline
	s.dirty = false
}

// Diff builds the baseline-minus-simulated delta between two runs.
func Diff(baseline, simulated conductor.Run) Delta {
	return Delta{
		CurrentDiff:        baseline.IAdjustedA - simulated.IAdjustedA,
		SectionDiff:        baseline.STheoreticalMM2 - simulated.STheoreticalMM2,
		VoltageDropPctDiff: baseline.VDropRealPct - simulated.VDropRealPct,
		StatusChanged:      baseline.Status != simulated.Status,
	}
}
