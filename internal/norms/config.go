package norms

import (
	"fmt"
	"log"
)

// CalcParams is the fully resolved parameter set handed to the sizing
// calculators: base normative plus any saved project overrides, with the
// material resistivity already evaluated at the design temperature.
type CalcParams struct {
	Normative         string    `json:"normative"`
	CircuitType       string    `json:"circuit_type"`
	IscSafetyFactor   float64   `json:"isc_safety_factor"`
	TemperatureFactor float64   `json:"temperature_factor"`
	GroupingFactor    float64   `json:"grouping_factor"`
	AmbientTempC      float64   `json:"ambient_temp_c"`
	CableMaterial     string    `json:"cable_material"`
	Resistivity       float64   `json:"resistivity_ohm_mm2_per_m"`
	MaxVoltageDropPct float64   `json:"max_voltage_drop_pct"`
	ReferenceVoltageV float64   `json:"reference_voltage"`
	RoundTrip         bool      `json:"round_trip"`
	Sections          []float64 `json:"standard_sections_mm2"`
	OverridesApplied  bool      `json:"overrides_applied"`
}

// BuildCalcParams resolves everything a sizing run needs. groupedCircuits
// is the number of circuits sharing the installation run, used for the
// grouping derating lookup.
func (s *Store) BuildCalcParams(projectsDir, projectName, normative, circuitType string, groupedCircuits int) (CalcParams, error) {
	n := s.Normative(normative)

	overridden := false
	if projectName != "" {
		ov, err := LoadProjectOverrides(projectsDir, projectName)
		if err != nil {
			log.Printf("norms: ignoring unreadable overrides for %s: %v", projectName, err)
		} else if ov != nil && len(ov.ModifiedParameters) > 0 {
			n = ApplyOverrides(n, ov.ModifiedParameters)
			overridden = true
		}
	}

	mat, err := s.Material(n.Cable.Material)
	if err != nil {
		return CalcParams{}, fmt.Errorf("resolving cable material: %w", err)
	}
	sections, err := n.StandardSections.For(circuitType)
	if err != nil {
		return CalcParams{}, err
	}
	if len(sections) == 0 {
		return CalcParams{}, fmt.Errorf("no commercial sections for %s/%s", normative, circuitType)
	}

	ambient := n.TemperatureCorrection.AmbientDesign
	return CalcParams{
		Normative:         normative,
		CircuitType:       circuitType,
		IscSafetyFactor:   n.CorrectionFactors.IscSafetyFactor,
		TemperatureFactor: n.TemperatureFactor(ambient),
		GroupingFactor:    n.GroupingFactor(n.Installation.Method, n.Installation.Layout, groupedCircuits),
		AmbientTempC:      ambient,
		CableMaterial:     n.Cable.Material,
		Resistivity:       mat.Resistivity(ambient),
		MaxVoltageDropPct: n.VoltageDrop.MaxPercentage,
		ReferenceVoltageV: n.VoltageDrop.ReferenceVoltage,
		RoundTrip:         n.VoltageDrop.RoundTrip,
		Sections:          sections,
		OverridesApplied:  overridden,
	}, nil
}
