// Package strings sizes the panel-to-combiner DC circuits of a PV plant.
package strings

import (
	"fmt"

	"Helios/internal/calc/conductor"
	"Helios/internal/norms"
	"Helios/internal/project"
)

// VoltageStatus classifies one sized circuit for reporting.
type VoltageStatus string

const (
	StatusOK        VoltageStatus = "OK"
	StatusWarning   VoltageStatus = "WARNING"
	StatusCritical  VoltageStatus = "CRITICAL"
	StatusNoSection VoltageStatus = "NO_SECTION"
)

// statusFromRun maps the evaluator verdict onto the reporting scale.
func statusFromRun(s conductor.Status) VoltageStatus {
	switch s {
	case conductor.StatusOK:
		return StatusOK
	case conductor.StatusWarning:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// Result is the sizing outcome for one string circuit.
type Result struct {
	StringID      string        `json:"string_id"`
	LengthTotalM  float64       `json:"length_total_m"`
	VoltageStatus VoltageStatus `json:"voltage_status"`
	conductor.Run
	Error string `json:"error,omitempty"`
}

// Summary aggregates one sizing run over all strings.
type Summary struct {
	Total      int     `json:"total_circuits"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Critical   int     `json:"critical"`
	NoSection  int     `json:"no_section"`
	MaxDropPct float64 `json:"max_v_drop_pct"`
}

// Calculate sizes every string circuit. Row-level failures become error
// results instead of aborting the batch; one bad row must not sink a
// 2000-string plant.
func Calculate(rows []project.StringRow, panelIsc float64, p norms.CalcParams) ([]Result, Summary) {
	results := make([]Result, 0, len(rows))
	var sum Summary
	sum.Total = len(rows)

	for _, row := range rows {
		res := calcOne(row, panelIsc, p)
		switch {
		case res.Error != "":
			sum.Failed++
		case res.VoltageStatus == StatusNoSection:
			sum.NoSection++
		case res.VoltageStatus == StatusCritical:
			sum.Critical++
		default:
			sum.Successful++
		}
		if res.VDropRealPct > sum.MaxDropPct {
			sum.MaxDropPct = res.VDropRealPct
		}
		results = append(results, res)
	}
	return results, sum
}

func calcOne(row project.StringRow, panelIsc float64, p norms.CalcParams) Result {
	res := Result{StringID: row.StringID}

	if !row.LengthPosM.Valid || !row.LengthNegM.Valid {
		res.Error = fmt.Sprintf("longitudes no numéricas: pos=%q, neg=%q", row.LengthPosM.Raw, row.LengthNegM.Raw)
		return res
	}
	if row.LengthPosM.Value <= 0 || row.LengthNegM.Value <= 0 {
		res.Error = fmt.Sprintf("longitudes inválidas: pos=%gm, neg=%gm", row.LengthPosM.Value, row.LengthNegM.Value)
		return res
	}
	// Positive and negative runs are stored separately; their sum is the
	// full conductor loop.
	lengthTotal := row.LengthPosM.Value + row.LengthNegM.Value
	res.LengthTotalM = lengthTotal

	iNominal := panelIsc * p.IscSafetyFactor
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
			RoundTrip:         p.RoundTrip,
		},
	)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Run = run
	res.VoltageStatus = statusFromRun(run.Status)
	if !covered {
		res.VoltageStatus = StatusNoSection
	}
	return res
}
