package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Helios/internal/calc/conductor"
	"Helios/internal/calc/rules"
	"Helios/internal/calc/strings"
	"Helios/internal/norms"
)

func sampleInput() Input {
	return Input{
		Project:   "Planta Demo",
		Author:    "Equipo FV",
		Normative: "IEC",
		Params: norms.CalcParams{
			IscSafetyFactor:   1.25,
			TemperatureFactor: 0.91,
			GroupingFactor:    0.8,
			AmbientTempC:      40,
			CableMaterial:     "copper",
			Resistivity:       0.018596,
			MaxVoltageDropPct: 1.5,
			ReferenceVoltageV: 1500,
		},
		Results: []strings.Result{
			{
				StringID:      "ST-001",
				LengthTotalM:  90.3,
				VoltageStatus: strings.StatusOK,
				Run: conductor.Run{
					IAdjustedA:      23.92,
					STheoreticalMM2: 1.79,
					SCommercialMM2:  4,
					VDropRealPct:    0.67,
					Status:          conductor.StatusOK,
				},
			},
			{StringID: "ST-002", Error: "longitudes inválidas: pos=-1m, neg=40m"},
		},
		Summary: strings.Summary{Total: 2, Successful: 1, Failed: 1, MaxDropPct: 0.67},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(sampleInput(), &buf))
	require.Greater(t, buf.Len(), 500)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderWithValidation(t *testing.T) {
	in := sampleInput()
	in.Validation = &rules.Report{
		Score: 85,
		Results: []rules.Result{
			{Severity: rules.SeveritySuccess, Standard: rules.StandardIEC, Category: "Caída de Tensión", Message: "ok", Score: 100},
			{Severity: rules.SeverityWarning, Standard: rules.StandardIEC, Category: "Temperatura", Message: "elevada", Recommendation: "revisar", Score: 70},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(in, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderEmptyResults(t *testing.T) {
	in := Input{Project: "Vacio", Normative: "NEC"}
	var buf bytes.Buffer
	require.NoError(t, Render(in, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
