package norms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNormativas = `
normativas:
  IEC:
    name: "IEC 60364-7-712"
    description: "Instalaciones fotovoltaicas"
    country: "Internacional"
    cable:
      material: "copper"
      insulation: "XLPE"
      max_temp: 90
    installation:
      method: "buried"
      layout: "single_layer"
      depth_cm: 70
    correction_factors:
      isc_safety_factor: 1.25
      parallel_strings: 1
    safety_factors:
      current_safety: 1.25
      voltage_safety: 1.15
    temperature_correction:
      ambient_design: 40
      values:
        "30": 1.07
        "40": 0.91
        "50": 0.71
    grouping_factors:
      buried:
        layouts:
          single_layer:
            values:
              "1": 1.0
              "2": 0.9
              "3": 0.85
              "4+": 0.8
    voltage_drop:
      max_percentage: 1.5
      reference_voltage: 1500
      round_trip: false
    standard_sections:
      dc_strings:
        mm2: [4, 6, 10]
      level_1_dc:
        mm2: [35, 50, 70, 95]
      ac_circuits:
        mm2: [16, 25, 35]
      mv_circuits:
        mm2: [50, 95, 150]
  LEGACY:
    name: "Legacy"
    cable:
      material: "copper"
    correction_factors:
      isc_safety_factor: 1.56
    temperature_correction:
      ambient_design: 30
      values:
        "30": 1.0
    grouping_factors:
      conduit:
        values:
          "1": 1.0
          "10+": 0.5
    voltage_drop:
      max_percentage: 3.0
      reference_voltage: 1000
    standard_sections:
      mm2: [10, 6, 4]
metadata:
  version: "2.1"
  valid_values:
    material: ["copper", "aluminum"]
`

const testMaterials = `
materials:
  copper:
    name: "Cobre"
    resistivity_20c: 0.017241
    temp_coefficient: 0.00393
  aluminum:
    name: "Aluminio"
    resistivity_20c: 0.028264
    temp_coefficient: 0.00403
`

const testPanels = `
panels:
  JKM545M-72HL4:
    manufacturer: "JinkoSolar"
    model: "JKM545M-72HL4"
    power_stc: 545
    electrical_stc:
      isc: 13.93
      voc: 49.52
  Panel Personalizado:
    manufacturer: "Generico"
    model: "Panel Personalizado"
    power_stc: 400
    electrical_stc:
      isc: 12.0
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "normativas.yaml"), []byte(testNormativas), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "materials.yaml"), []byte(testMaterials), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "panels.yaml"), []byte(testPanels), 0o644))
	s, err := Load(dir)
	require.NoError(t, err)
	return s
}

func TestLoadShippedConfigs(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", "configs"))
	require.NoError(t, err)
	assert.True(t, s.Has("IEC"))
	assert.True(t, s.Has("NEC"))
	sections, err := s.SectionsFor("IEC", CircuitDCStrings)
	require.NoError(t, err)
	assert.NotEmpty(t, sections)
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNormativeFallback(t *testing.T) {
	s := newTestStore(t)
	n := s.Normative("DOES_NOT_EXIST")
	require.NotNil(t, n)
	assert.Equal(t, "IEC 60364-7-712", n.Name)
}

func TestTemperatureFactor(t *testing.T) {
	s := newTestStore(t)
	n := s.Normative("IEC")
	assert.InDelta(t, 0.91, n.TemperatureFactor(40), 1e-9)
	assert.InDelta(t, 1.07, n.TemperatureFactor(30), 1e-9)
	// Unknown temperature falls back to no derating.
	assert.InDelta(t, 1.0, n.TemperatureFactor(45), 1e-9)
}

func TestGroupingFactorLayouts(t *testing.T) {
	s := newTestStore(t)
	n := s.Normative("IEC")
	assert.InDelta(t, 1.0, n.GroupingFactor("buried", "single_layer", 1), 1e-9)
	assert.InDelta(t, 0.9, n.GroupingFactor("buried", "single_layer", 2), 1e-9)
	// Counts past the table end hit the bucket key.
	assert.InDelta(t, 0.8, n.GroupingFactor("buried", "single_layer", 4), 1e-9)
	assert.InDelta(t, 0.8, n.GroupingFactor("buried", "single_layer", 25), 1e-9)
	// Unknown method or layout means no derating.
	assert.InDelta(t, 1.0, n.GroupingFactor("tray", "single_layer", 3), 1e-9)
	assert.InDelta(t, 1.0, n.GroupingFactor("buried", "two_layers", 3), 1e-9)
}

func TestGroupingFactorFlatValues(t *testing.T) {
	s := newTestStore(t)
	n := s.Normative("LEGACY")
	assert.InDelta(t, 1.0, n.GroupingFactor("conduit", "", 1), 1e-9)
	assert.InDelta(t, 0.5, n.GroupingFactor("conduit", "", 15), 1e-9)
}

func TestSectionsLegacyFlatList(t *testing.T) {
	s := newTestStore(t)
	sections, err := s.SectionsFor("LEGACY", CircuitDCStrings)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6, 10}, sections, "legacy lists are sorted ascending")
}

func TestCN1UsesLevel1DCSections(t *testing.T) {
	s := newTestStore(t)
	cn1, err := s.SectionsFor("IEC", CircuitCN1)
	require.NoError(t, err)
	level1, err := s.SectionsFor("IEC", CircuitLevel1DC)
	require.NoError(t, err)
	assert.Equal(t, level1, cn1)
}

func TestCommercialSection(t *testing.T) {
	s := newTestStore(t)

	sec, ok, err := s.CommercialSection("IEC", CircuitDCStrings, 5.2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 6.0, sec, 1e-9)

	// Exact match picks that section.
	sec, ok, err = s.CommercialSection("IEC", CircuitDCStrings, 6.0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 6.0, sec, 1e-9)

	// Nothing covers it: largest with ok=false.
	sec, ok, err = s.CommercialSection("IEC", CircuitDCStrings, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 10.0, sec, 1e-9)
}

func TestMaterialResistivity(t *testing.T) {
	s := newTestStore(t)
	cu, err := s.Material("copper")
	require.NoError(t, err)
	assert.InDelta(t, 0.017241, cu.Resistivity(20), 1e-9)
	assert.InDelta(t, 0.017241*(1+0.00393*20), cu.Resistivity(40), 1e-9)

	_, err = s.Material("gold")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copper")
}

func TestPanelFallback(t *testing.T) {
	s := newTestStore(t)
	p, catalog, err := s.Panel("JKM545M-72HL4")
	require.NoError(t, err)
	assert.True(t, catalog)
	assert.InDelta(t, 13.93, p.ElectricalSTC.Isc, 1e-9)

	p, catalog, err = s.Panel("UNKNOWN-PANEL")
	require.NoError(t, err)
	assert.False(t, catalog)
	assert.Equal(t, "Panel Personalizado", p.Model)
}

func TestApplyOverrides(t *testing.T) {
	s := newTestStore(t)
	base := s.Normative("IEC")

	out := ApplyOverrides(base, map[string]any{
		"voltage_drop.max_percentage":           2.5,
		"cable.material":                        "aluminum",
		"correction_factors.parallel_strings":   3,
		"temperature_correction.ambient_design": 50.0,
		"nonsense.path":                         1.0,
	})

	assert.InDelta(t, 2.5, out.VoltageDrop.MaxPercentage, 1e-9)
	assert.Equal(t, "aluminum", out.Cable.Material)
	assert.Equal(t, 3, out.CorrectionFactors.ParallelStrings)
	assert.InDelta(t, 50.0, out.TemperatureCorrection.AmbientDesign, 1e-9)

	// The base normative must stay untouched.
	assert.InDelta(t, 1.5, base.VoltageDrop.MaxPercentage, 1e-9)
	assert.Equal(t, "copper", base.Cable.Material)
}

func TestApplyOverridesUIPaths(t *testing.T) {
	s := newTestStore(t)
	out := ApplyOverrides(s.Normative("IEC"), map[string]any{
		"editable_sections.voltage.parameters.max_percentage.value": 2.0,
	})
	assert.InDelta(t, 2.0, out.VoltageDrop.MaxPercentage, 1e-9)
}

func TestProjectOverridesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "demo"), 0o755))

	ov, err := LoadProjectOverrides(dir, "demo")
	require.NoError(t, err)
	assert.Nil(t, ov, "missing file is not an error")

	params := map[string]any{"voltage_drop.max_percentage": 2.0}
	require.NoError(t, SaveProjectOverrides(dir, "demo", "IEC", params))
	assert.True(t, HasProjectOverrides(dir, "demo"))

	ov, err = LoadProjectOverrides(dir, "demo")
	require.NoError(t, err)
	require.NotNil(t, ov)
	assert.Equal(t, "IEC", ov.BaseNorm)
	assert.NotEmpty(t, ov.LastModified)

	require.NoError(t, DeleteProjectOverrides(dir, "demo"))
	assert.False(t, HasProjectOverrides(dir, "demo"))
	// Deleting twice stays quiet.
	require.NoError(t, DeleteProjectOverrides(dir, "demo"))
}

func TestStageOverrideRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "demo"), 0o755))

	assert.False(t, StageOverrideExists(dir, "demo", CircuitDCStrings))
	params := map[string]any{"voltage_drop": map[string]any{"max_percentage": 2.0}}
	require.NoError(t, SaveStageOverride(dir, "demo", CircuitDCStrings, "IEC", "user_edit", params))
	assert.True(t, StageOverrideExists(dir, "demo", CircuitDCStrings))

	loaded, err := LoadStageOverride(dir, "demo", CircuitDCStrings)
	require.NoError(t, err)
	assert.Contains(t, loaded, "_metadata")
	assert.Contains(t, loaded, "voltage_drop")

	require.NoError(t, DeleteStageOverride(dir, "demo", CircuitDCStrings))
	assert.Error(t, DeleteStageOverride(dir, "demo", CircuitDCStrings))
}

func TestCopyBaseToStages(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "demo"), 0o755))

	written, err := s.CopyBaseToStages(dir, "demo", "IEC")
	require.NoError(t, err)
	assert.Len(t, written, len(Stages))
	for _, stage := range Stages {
		assert.True(t, StageOverrideExists(dir, "demo", stage), stage)
	}
}

func TestBuildCalcParams(t *testing.T) {
	s := newTestStore(t)
	projects := t.TempDir()

	p, err := s.BuildCalcParams(projects, "", "IEC", CircuitDCStrings, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, p.IscSafetyFactor, 1e-9)
	assert.InDelta(t, 0.91, p.TemperatureFactor, 1e-9)
	assert.InDelta(t, 0.9, p.GroupingFactor, 1e-9)
	assert.InDelta(t, 40.0, p.AmbientTempC, 1e-9)
	// Copper at the 40C design temperature.
	assert.InDelta(t, 0.017241*(1+0.00393*20), p.Resistivity, 1e-9)
	assert.Equal(t, []float64{4, 6, 10}, p.Sections)
	assert.False(t, p.OverridesApplied)
}

func TestBuildCalcParamsWithOverrides(t *testing.T) {
	s := newTestStore(t)
	projects := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projects, "demo"), 0o755))
	require.NoError(t, SaveProjectOverrides(projects, "demo", "IEC", map[string]any{
		"voltage_drop.max_percentage": 2.0,
		"cable.material":              "aluminum",
	}))

	p, err := s.BuildCalcParams(projects, "demo", "IEC", CircuitDCStrings, 1)
	require.NoError(t, err)
	assert.True(t, p.OverridesApplied)
	assert.InDelta(t, 2.0, p.MaxVoltageDropPct, 1e-9)
	assert.Equal(t, "aluminum", p.CableMaterial)
	assert.InDelta(t, 0.028264*(1+0.00403*20), p.Resistivity, 1e-9)
}
