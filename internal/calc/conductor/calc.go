package conductor

import (
	"fmt"
	"math"
)

// Status classifies a sizing run against the allowed voltage drop.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// warningBand: drops up to 10% past the limit are a warning, not an error.
const warningBand = 1.1

// InvalidParameterError names the parameter that made a calculation
// impossible.
type InvalidParameterError struct {
	Field string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %g", e.Field, e.Value)
}

// Input holds the electrical layout of one circuit.
type Input struct {
	NominalCurrentA      float64 `json:"nominal_current_a"`
	LengthM              float64 `json:"length_m"`
	CommercialSectionMM2 float64 `json:"commercial_section_mm2"`
	ReferenceVoltageV    float64 `json:"reference_voltage_v"`
	MaxVoltageDropV      float64 `json:"max_voltage_drop_v"`
}

// Factors carries the normative-dependent coefficients. Zero-valued
// correction factors are rejected rather than defaulted: a zero divisor
// here always means a broken configuration upstream.
type Factors struct {
	IscSafetyFactor   float64 `json:"isc_safety_factor"`
	TemperatureFactor float64 `json:"temperature_factor"`
	GroupingFactor    float64 `json:"grouping_factor"`
	AmbientTempC      float64 `json:"ambient_temp_c"`
	Resistivity       float64 `json:"resistivity_ohm_mm2_per_m"`
	MaxVoltageDropPct float64 `json:"max_voltage_drop_pct"`
	ParallelStrings   int     `json:"parallel_strings"`
	CableMaterial     string  `json:"cable_material"`
	// RoundTrip doubles the conductor length during evaluation. Set it when
	// LengthM is a one-way distance.
	RoundTrip bool `json:"round_trip"`
}

// Run is the result of sizing one circuit. Field names follow the report
// payloads consumed by the frontend.
type Run struct {
	INominalA          float64 `json:"i_nominal"`
	IAdjustedA         float64 `json:"i_adjusted"`
	STheoreticalMM2    float64 `json:"s_teorica_mm2"`
	SCommercialMM2     float64 `json:"s_comercial_mm2"`
	ResistanceTotalOhm float64 `json:"resistance_total_ohm"`
	VDropRealV         float64 `json:"v_drop_real_volts"`
	VDropRealPct       float64 `json:"v_drop_real_pct"`
	VDropMaxV          float64 `json:"v_drop_max_volts"`
	JouleLossesW       float64 `json:"joule_losses_w"`
	Resistivity        float64 `json:"resistivity_ohm_mm2_per_m"`
	ReferenceVoltageV  float64 `json:"reference_voltage"`
	CableMaterial      string  `json:"cable_material,omitempty"`
	Status             Status  `json:"status"`
}

// AdjustedCurrent derates the nominal current by the temperature and
// grouping factors.
func AdjustedCurrent(nominalA, tempFactor, groupFactor float64) (float64, error) {
	if tempFactor <= 0 {
		return 0, &InvalidParameterError{Field: "temperature_factor", Value: tempFactor}
	}
	if groupFactor <= 0 {
		return 0, &InvalidParameterError{Field: "grouping_factor", Value: groupFactor}
	}
	return nominalA / (tempFactor * groupFactor), nil
}

// TheoreticalSection computes the minimum copper/aluminum section that keeps
// the voltage drop within maxDropV. lengthM must already be the full
// conductor run unless roundTrip is set.
func TheoreticalSection(resistivity, lengthM, currentA, maxDropV float64, roundTrip bool) (float64, error) {
	if maxDropV <= 0 {
		return 0, &InvalidParameterError{Field: "max_voltage_drop_v", Value: maxDropV}
	}
	k := 1.0
	if roundTrip {
		k = 2.0
	}
	return k * resistivity * lengthM * currentA / maxDropV, nil
}

// Compute runs the full evaluation for one circuit with a known commercial
// section. It never panics on bad input; every impossible value comes back
// as an *InvalidParameterError.
func Compute(in Input, f Factors) (Run, error) {
	switch {
	case in.NominalCurrentA <= 0:
		return Run{}, &InvalidParameterError{Field: "nominal_current_a", Value: in.NominalCurrentA}
	case in.LengthM <= 0:
		return Run{}, &InvalidParameterError{Field: "length_m", Value: in.LengthM}
	case in.CommercialSectionMM2 <= 0:
		return Run{}, &InvalidParameterError{Field: "commercial_section_mm2", Value: in.CommercialSectionMM2}
	case in.ReferenceVoltageV <= 0:
		return Run{}, &InvalidParameterError{Field: "reference_voltage_v", Value: in.ReferenceVoltageV}
	case f.Resistivity <= 0:
		return Run{}, &InvalidParameterError{Field: "resistivity", Value: f.Resistivity}
	}

	maxDropV := in.MaxVoltageDropV
	if maxDropV == 0 {
		maxDropV = in.ReferenceVoltageV * f.MaxVoltageDropPct / 100
	}
	if maxDropV <= 0 {
		return Run{}, &InvalidParameterError{Field: "max_voltage_drop_v", Value: maxDropV}
	}

	adjusted, err := AdjustedCurrent(in.NominalCurrentA, f.TemperatureFactor, f.GroupingFactor)
	if err != nil {
		return Run{}, err
	}

	theoretical, err := TheoreticalSection(f.Resistivity, in.LengthM, adjusted, maxDropV, f.RoundTrip)
	if err != nil {
		return Run{}, err
	}

	length := in.LengthM
	if f.RoundTrip {
		length *= 2
	}
	resistance := f.Resistivity * length / in.CommercialSectionMM2
	vDrop := resistance * adjusted
	vDropPct := vDrop / in.ReferenceVoltageV * 100

	run := Run{
		INominalA:          in.NominalCurrentA,
		IAdjustedA:         adjusted,
		STheoreticalMM2:    theoretical,
		SCommercialMM2:     in.CommercialSectionMM2,
		ResistanceTotalOhm: resistance,
		VDropRealV:         vDrop,
		VDropRealPct:       vDropPct,
		VDropMaxV:          maxDropV,
		JouleLossesW:       adjusted * adjusted * resistance,
		Resistivity:        f.Resistivity,
		ReferenceVoltageV:  in.ReferenceVoltageV,
		CableMaterial:      f.CableMaterial,
		Status:             classify(vDropPct, maxDropV/in.ReferenceVoltageV*100),
	}
	if !finite(run) {
		return Run{}, &InvalidParameterError{Field: "result", Value: math.NaN()}
	}
	return run, nil
}

// classify compares the real drop percentage against the allowed maximum.
// Exactly at the limit is still ok.
func classify(realPct, maxPct float64) Status {
	switch {
	case realPct <= maxPct:
		return StatusOK
	case realPct <= maxPct*warningBand:
		return StatusWarning
	default:
		return StatusError
	}
}

func finite(r Run) bool {
	for _, v := range []float64{r.IAdjustedA, r.STheoreticalMM2, r.ResistanceTotalOhm, r.VDropRealV, r.VDropRealPct, r.JouleLossesW} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
