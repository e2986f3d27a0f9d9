package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Helios/internal/project"
)

func num(v float64) project.FloatCell {
	return project.FloatCell{Value: v, Valid: true}
}

func goodStringRow(id string) project.StringRow {
	return project.StringRow{
		StringID:   id,
		CN1ID:      "CN1-01",
		InverterID: "INV-1",
		LengthPosM: num(45),
		LengthNegM: num(44),
	}
}

func TestDCStringsClean(t *testing.T) {
	rep := DCStrings([]project.StringRow{goodStringRow("str-01-01-CN1-01-01"), goodStringRow("str-01-02-CN1-01-01")})
	assert.True(t, rep.Valid())
	assert.Empty(t, rep.Errors)
	assert.Empty(t, rep.Warnings)
}

func TestDCStringsEmptySheet(t *testing.T) {
	rep := DCStrings(nil)
	assert.False(t, rep.Valid())
}

func TestDCStringsDuplicateID(t *testing.T) {
	rep := DCStrings([]project.StringRow{goodStringRow("str-01-01-CN1-01-01"), goodStringRow("str-01-01-CN1-01-01")})
	require.False(t, rep.Valid())
	assert.Contains(t, rep.Errors[0], "duplicado")
}

func TestDCStringsLengthBounds(t *testing.T) {
	tooShort := goodStringRow("str-01-01-CN1-01-01")
	tooShort.LengthPosM = num(0.2)
	rep := DCStrings([]project.StringRow{tooShort})
	assert.False(t, rep.Valid())

	tooLong := goodStringRow("str-01-02-CN1-01-01")
	tooLong.LengthNegM = num(2500)
	rep = DCStrings([]project.StringRow{tooLong})
	assert.False(t, rep.Valid())

	atypical := goodStringRow("str-01-03-CN1-01-01")
	atypical.LengthPosM = num(700)
	atypical.LengthNegM = num(700)
	rep = DCStrings([]project.StringRow{atypical})
	assert.True(t, rep.Valid(), "atypical lengths warn but do not block")
	assert.NotEmpty(t, rep.Warnings)
}

func TestDCStringsNonNumericLength(t *testing.T) {
	bad := goodStringRow("str-01-01-CN1-01-01")
	bad.LengthPosM = project.FloatCell{Raw: "n/a"}
	rep := DCStrings([]project.StringRow{bad})
	require.False(t, rep.Valid())
	assert.Contains(t, rep.Errors[0], "n/a")
}

func TestDCStringsAsymmetry(t *testing.T) {
	skewed := goodStringRow("str-01-01-CN1-01-01")
	skewed.LengthPosM = num(100)
	skewed.LengthNegM = num(60)
	rep := DCStrings([]project.StringRow{skewed})
	assert.True(t, rep.Valid())
	require.NotEmpty(t, rep.Warnings)
	assert.Contains(t, rep.Warnings[0], "diferencia")
}

func TestDCStringsIDFormats(t *testing.T) {
	bad := project.StringRow{
		StringID:   "totally wrong format!!",
		CN1ID:      "not-a-cn1",
		InverterID: "whatever",
		LengthPosM: num(45),
		LengthNegM: num(44),
	}
	rep := DCStrings([]project.StringRow{bad})
	require.False(t, rep.Valid())
	require.Len(t, rep.Errors, 3)
	assert.Contains(t, rep.Errors[0], "string_id formato inválido")
	assert.Contains(t, rep.Errors[1], "cn1_id formato inválido")
	assert.Contains(t, rep.Errors[2], "inverter_id formato inválido")
}

func TestDCStringsDistribution(t *testing.T) {
	rows := make([]project.StringRow, 0, 60)
	for i := 0; i < 60; i++ {
		r := goodStringRow(fmt.Sprintf("str-01-%02d-CN1-01-01", i+1))
		r.CN1ID = "CN1-01"
		r.InverterID = "INV-1"
		rows = append(rows, r)
	}
	rep := DCStrings(rows)
	assert.True(t, rep.Valid(), "overloaded combiner warns but does not block")
	require.NotEmpty(t, rep.Warnings)
	assert.Contains(t, rep.Warnings[0], `CN1 "CN1-01" tiene 60 strings`)

	// 60 per inverter is still within the recommended maximum.
	for _, w := range rep.Warnings {
		assert.NotContains(t, w, "Inversor")
	}

	big := make([]project.StringRow, 0, 201)
	for i := 0; i < 201; i++ {
		r := goodStringRow(fmt.Sprintf("str-%02d-%02d-CN1-01-01", i/50+1, i%50+1))
		r.CN1ID = fmt.Sprintf("CN1-%02d", i/50+1)
		big = append(big, r)
	}
	rep = DCStrings(big)
	assert.True(t, rep.Valid())
	found := false
	for _, w := range rep.Warnings {
		if w == `Inversor "INV-1" tiene 201 strings (máximo recomendado: 200)` {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCN1CircuitsMissingInverter(t *testing.T) {
	rep := CN1Circuits([]project.CN1Row{{
		CircuitID:  "cn1-1",
		LengthPosM: num(120),
		LengthNegM: num(118),
	}})
	require.False(t, rep.Valid())
	assert.Contains(t, rep.Errors[0], "inverter_id")
}

func TestMVCircuits(t *testing.T) {
	rep := MVCircuits([]project.MVRow{{
		CircuitID: "MV-01",
		LengthM:   num(850),
		CurrentA:  num(120),
		VoltageKV: num(30),
	}})
	assert.True(t, rep.Valid())

	rep = MVCircuits([]project.MVRow{{CircuitID: "MV-02", LengthM: num(-5)}})
	assert.False(t, rep.Valid())

	// Empty MV sheet is allowed; MV circuits are a later project stage.
	rep = MVCircuits(nil)
	assert.True(t, rep.Valid())
	assert.NotEmpty(t, rep.Warnings)
}

func TestProjectInfo(t *testing.T) {
	rep := ProjectInfo(map[string]string{
		"project_name":   "Planta Demo",
		"panel_model":    "JKM545M-72HL4",
		"system_voltage": "1500",
	})
	assert.True(t, rep.Valid())

	rep = ProjectInfo(map[string]string{"project_name": "x"})
	assert.False(t, rep.Valid())
	assert.Len(t, rep.Errors, 2)

	rep = ProjectInfo(map[string]string{
		"project_name":   "x",
		"panel_model":    "y",
		"system_voltage": "quince",
	})
	assert.False(t, rep.Valid())
}
