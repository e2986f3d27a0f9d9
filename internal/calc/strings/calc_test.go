package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Helios/internal/norms"
	"Helios/internal/project"
)

func iecParams() norms.CalcParams {
	return norms.CalcParams{
		Normative:         "IEC",
		CircuitType:       norms.CircuitDCStrings,
		IscSafetyFactor:   1.25,
		TemperatureFactor: 0.91,
		GroupingFactor:    0.8,
		AmbientTempC:      40,
		CableMaterial:     "copper",
		Resistivity:       0.018596,
		MaxVoltageDropPct: 1.5,
		ReferenceVoltageV: 1500,
		Sections:          []float64{4, 6, 10},
	}
}

func num(v float64) project.FloatCell {
	return project.FloatCell{Value: v, Valid: true}
}

func row(id string, pos, neg float64) project.StringRow {
	return project.StringRow{
		StringID:   id,
		CN1ID:      "CN1-01",
		InverterID: "INV-1",
		LengthPosM: num(pos),
		LengthNegM: num(neg),
	}
}

const jinkoIsc = 13.93

func TestCalculateTypicalString(t *testing.T) {
	results, summary := Calculate([]project.StringRow{row("ST-001", 45.5, 44.8)}, jinkoIsc, iecParams())
	require.Len(t, results, 1)
	res := results[0]

	require.Empty(t, res.Error)
	assert.InDelta(t, 13.93*1.25, res.INominalA, 1e-9)
	assert.InDelta(t, res.INominalA/(0.91*0.8), res.IAdjustedA, 1e-9)
	assert.InDelta(t, 90.3, res.LengthTotalM, 1e-9)
	assert.Contains(t, []float64{4.0, 6.0, 10.0}, res.SCommercialMM2)
	assert.GreaterOrEqual(t, res.SCommercialMM2, res.STheoreticalMM2)
	assert.Equal(t, StatusOK, res.VoltageStatus)
	assert.Equal(t, 1, summary.Successful)
	assert.Zero(t, summary.Failed)
}

func TestCalculateBadRowDoesNotAbortBatch(t *testing.T) {
	rows := []project.StringRow{
		row("ST-001", 45, 44),
		{StringID: "ST-002", LengthPosM: project.FloatCell{Raw: "n/a"}, LengthNegM: num(40)},
		row("ST-003", 50, 49),
	}
	results, summary := Calculate(rows, jinkoIsc, iecParams())
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
}

func TestCalculateNegativeLength(t *testing.T) {
	results, _ := Calculate([]project.StringRow{row("ST-001", -10, 44)}, jinkoIsc, iecParams())
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "inválidas")
}

func TestCalculateNoSection(t *testing.T) {
	// A very long run whose theoretical section exceeds every configured size.
	results, summary := Calculate([]project.StringRow{row("ST-001", 900, 900)}, jinkoIsc, iecParams())
	require.Len(t, results, 1)
	res := results[0]
	require.Empty(t, res.Error)
	assert.Equal(t, StatusNoSection, res.VoltageStatus)
	// The largest section is still used to quantify how bad the drop is.
	assert.InDelta(t, 10.0, res.SCommercialMM2, 1e-9)
	assert.Equal(t, 1, summary.NoSection)
}

func TestSummaryMaxDrop(t *testing.T) {
	rows := []project.StringRow{row("ST-001", 20, 20), row("ST-002", 120, 120)}
	results, summary := Calculate(rows, jinkoIsc, iecParams())
	require.Len(t, results, 2)
	assert.InDelta(t, results[1].VDropRealPct, summary.MaxDropPct, 1e-9)
	assert.Greater(t, results[1].VDropRealPct, results[0].VDropRealPct)
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, StatusOK, statusFromRun("ok"))
	assert.Equal(t, StatusWarning, statusFromRun("warning"))
	assert.Equal(t, StatusCritical, statusFromRun("error"))
}
