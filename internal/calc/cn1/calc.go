// Package cn1 sizes the combiner-box-to-inverter DC circuits. Unlike
// string circuits these carry the combined current of every string wired
// in parallel onto the same combiner, so the calculation first maps which
// strings feed which CN1+inverter pair.
package cn1

import (
	"fmt"
	"regexp"
	"strings"

	"Helios/internal/calc/conductor"
	pvstrings "Helios/internal/calc/strings"
	"Helios/internal/norms"
	"Helios/internal/project"
)

const calculationType = "CN1_COMBINED"

var digitsRe = regexp.MustCompile(`\d+`)

// NormalizeCircuitID canonicalizes a CN1 id and inverter id pair into the
// mapping key format: "CN1-01" + "INV-1" -> "cn1-01-inv1".
func NormalizeCircuitID(cn1ID, inverterID string) string {
	cn1Num := extractNumber(cn1ID, 2)
	invNum := extractNumber(inverterID, 0)
	return fmt.Sprintf("cn1-%s-inv%s", cn1Num, invNum)
}

// NormalizeFromCN1Table canonicalizes ids as the dc_cn1_circuits sheet
// writes them ("cn1-1", "cn1-2") to the same key format.
func NormalizeFromCN1Table(circuitID, inverterID string) string {
	return NormalizeCircuitID(circuitID, inverterID)
}

// extractNumber pulls the numeric part of an id, zero-padding to width.
// Ids without digits come back unchanged in lowercase so mismatches stay
// visible in logs instead of colliding on an empty key.
func extractNumber(id string, width int) string {
	id = strings.TrimSpace(id)
	m := digitsRe.FindString(id)
	if m == "" {
		return strings.ToLower(id)
	}
	m = strings.TrimLeft(m, "0")
	if m == "" {
		m = "0"
	}
	for len(m) < width {
		m = "0" + m
	}
	return m
}

// ParallelMapping counts, per normalized CN1+inverter pair, how many
// strings from dc_string_circuits land on it.
func ParallelMapping(rows []project.StringRow) map[string]int {
	mapping := make(map[string]int)
	for _, row := range rows {
		if row.CN1ID == "" || row.InverterID == "" {
			continue
		}
		mapping[NormalizeCircuitID(row.CN1ID, row.InverterID)]++
	}
	return mapping
}

// Result is the sizing outcome for one CN1 circuit.
type Result struct {
	CircuitID       string                  `json:"circuit_id"`
	CalculationType string                  `json:"calculation_type"`
	ParallelStrings int                     `json:"parallel_strings"`
	MappingFound    bool                    `json:"mapping_found"`
	IscBaseA        float64                 `json:"isc_base_a"`
	IscCombinedA    float64                 `json:"isc_combined_a"`
	LengthTotalM    float64                 `json:"length_total_m"`
	VoltageStatus   pvstrings.VoltageStatus `json:"voltage_status"`
	conductor.Run
	Error string `json:"error,omitempty"`
}

// Summary aggregates one CN1 sizing run.
type Summary struct {
	Total           int `json:"total_circuits"`
	Successful      int `json:"successful"`
	Failed          int `json:"failed"`
	NoSection       int `json:"no_section"`
	MappingsTotal   int `json:"total_cn1_mappings"`
	MappingsMissing int `json:"mappings_missing"`
	MinParallel     int `json:"min_parallel_strings"`
	MaxParallel     int `json:"max_parallel_strings"`
}

// Calculate sizes every CN1 circuit. Circuits whose id cannot be found in
// the parallel mapping run with a single string and are flagged, matching
// how incomplete workbooks are treated elsewhere.
func Calculate(rows []project.CN1Row, mapping map[string]int, panelIsc float64, p norms.CalcParams) ([]Result, Summary) {
	results := make([]Result, 0, len(rows))
	sum := Summary{Total: len(rows), MappingsTotal: len(mapping)}

	for _, row := range rows {
		res := calcOne(row, mapping, panelIsc, p)
		switch {
		case res.Error != "":
			sum.Failed++
		case res.VoltageStatus == pvstrings.StatusNoSection:
			sum.NoSection++
		default:
			sum.Successful++
		}
		if !res.MappingFound {
			sum.MappingsMissing++
		}
		if res.ParallelStrings > 0 {
			if sum.MinParallel == 0 || res.ParallelStrings < sum.MinParallel {
				sum.MinParallel = res.ParallelStrings
			}
			if res.ParallelStrings > sum.MaxParallel {
				sum.MaxParallel = res.ParallelStrings
			}
		}
		results = append(results, res)
	}
	return results, sum
}

func calcOne(row project.CN1Row, mapping map[string]int, panelIsc float64, p norms.CalcParams) Result {
	circuitID := NormalizeFromCN1Table(row.CircuitID, row.InverterID)
	res := Result{
		CircuitID:       circuitID,
		CalculationType: calculationType,
		IscBaseA:        panelIsc,
	}

	parallel, found := mapping[circuitID]
	if !found {
		parallel = 1
	}
	res.ParallelStrings = parallel
	res.MappingFound = found
	res.IscCombinedA = panelIsc * float64(parallel)

	if !row.LengthPosM.Valid || !row.LengthNegM.Valid {
		res.Error = fmt.Sprintf("longitudes no numéricas: pos=%q, neg=%q", row.LengthPosM.Raw, row.LengthNegM.Raw)
		return res
	}
	if row.LengthPosM.Value <= 0 || row.LengthNegM.Value <= 0 {
		res.Error = fmt.Sprintf("longitudes inválidas: pos=%gm, neg=%gm", row.LengthPosM.Value, row.LengthNegM.Value)
		return res
	}
	lengthTotal := row.LengthPosM.Value + row.LengthNegM.Value
	res.LengthTotalM = lengthTotal

	iNominal := res.IscCombinedA * p.IscSafetyFactor
	iAdjusted, err := conductor.AdjustedCurrent(iNominal, p.TemperatureFactor, p.GroupingFactor)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	maxDropV := p.ReferenceVoltageV * p.MaxVoltageDropPct / 100
	theoretical, err := conductor.TheoreticalSection(p.Resistivity, lengthTotal, iAdjusted, maxDropV, p.RoundTrip)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	commercial, covered := conductor.CommercialSection(p.Sections, theoretical)

	run, err := conductor.Compute(
		conductor.Input{
			NominalCurrentA:      iNominal,
			LengthM:              lengthTotal,
			CommercialSectionMM2: commercial,
			ReferenceVoltageV:    p.ReferenceVoltageV,
			MaxVoltageDropV:      maxDropV,
		},
		conductor.Factors{
			IscSafetyFactor:   p.IscSafetyFactor,
			TemperatureFactor: p.TemperatureFactor,
			GroupingFactor:    p.GroupingFactor,
			AmbientTempC:      p.AmbientTempC,
			Resistivity:       p.Resistivity,
			MaxVoltageDropPct: p.MaxVoltageDropPct,
			CableMaterial:     p.CableMaterial,
			ParallelStrings:   parallel,
			RoundTrip:         p.RoundTrip,
		},
	)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Run = run
	switch run.Status {
	case conductor.StatusOK:
		res.VoltageStatus = pvstrings.StatusOK
	case conductor.StatusWarning:
		res.VoltageStatus = pvstrings.StatusWarning
	default:
		res.VoltageStatus = pvstrings.StatusCritical
	}
	if !covered {
		res.VoltageStatus = pvstrings.StatusNoSection
	}
	return res
}
