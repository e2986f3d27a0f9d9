package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openTestWorkbook(t *testing.T) *Workbook {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, buildTestWorkbook(t).SaveAs(path))
	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestOpenWorkbookMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "project_info"))
	require.NoError(t, f.SaveAs(path))

	_, err := OpenWorkbook(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dc_string_circuits")
}

func TestProjectInfoVertical(t *testing.T) {
	wb := openTestWorkbook(t)
	info, err := wb.ProjectInfo()
	require.NoError(t, err)
	assert.Equal(t, "Planta Demo", info["project_name"])
	assert.Equal(t, "JKM545M-72HL4", info["panel_model"])
	assert.Equal(t, "1500", info["system_voltage"])
}

func TestProjectInfoHorizontalFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "horizontal.xlsx")
	f := buildTestWorkbook(t)
	// Rewrite project_info in the legacy horizontal layout.
	require.NoError(t, f.DeleteSheet("project_info"))
	writeSheet(t, f, "project_info", [][]any{
		{"project_name", "panel_model"},
		{"Planta Legacy", "TSM-DE21-660"},
	})
	require.NoError(t, f.SaveAs(path))

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()

	info, err := wb.ProjectInfo()
	require.NoError(t, err)
	assert.Equal(t, "Planta Legacy", info["project_name"])
	assert.Equal(t, "TSM-DE21-660", info["panel_model"])
}

func TestStringRows(t *testing.T) {
	wb := openTestWorkbook(t)
	rows, err := wb.StringRows()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "ST-001", first.StringID)
	assert.Equal(t, "CN1-01", first.CN1ID)
	assert.Equal(t, "INV-1", first.InverterID)
	require.True(t, first.LengthPosM.Valid)
	assert.InDelta(t, 45.5, first.LengthPosM.Value, 1e-9)
	require.True(t, first.LengthNegM.Valid)
	assert.InDelta(t, 44.8, first.LengthNegM.Value, 1e-9)
}

func TestCN1Rows(t *testing.T) {
	wb := openTestWorkbook(t)
	rows, err := wb.CN1Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cn1-1", rows[0].CircuitID)
	assert.InDelta(t, 120.0, rows[0].LengthPosM.Value, 1e-9)
}

func TestMVRows(t *testing.T) {
	wb := openTestWorkbook(t)
	rows, err := wb.MVRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MV-01", rows[0].CircuitID)
	assert.InDelta(t, 30.0, rows[0].VoltageKV.Value, 1e-9)
}

func TestFloatCellDecimalComma(t *testing.T) {
	c := parseFloatCell("45,5")
	assert.True(t, c.Valid)
	assert.InDelta(t, 45.5, c.Value, 1e-9)

	c = parseFloatCell("abc")
	assert.False(t, c.Valid)
	assert.Equal(t, "abc", c.Raw)

	c = parseFloatCell("")
	assert.False(t, c.Valid)
}

func TestInfo(t *testing.T) {
	wb := openTestWorkbook(t)
	info := wb.Info()
	require.Contains(t, info, "dc_string_circuits")
	sheet := info["dc_string_circuits"]
	assert.True(t, sheet.Required)
	assert.Equal(t, 3, sheet.Rows)
	assert.Contains(t, sheet.ColumnName, "length_pos_m")
}
