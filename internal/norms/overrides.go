package norms

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectOverrides is the norm_overrides.json payload stored inside a
// project folder. Parameters are keyed by config path ("cable.material",
// "voltage_drop.max_percentage", ...).
type ProjectOverrides struct {
	ProjectName        string         `json:"project_name"`
	BaseNorm           string         `json:"base_norm"`
	ModifiedParameters map[string]any `json:"modified_parameters"`
	LastModified       string         `json:"last_modified"`
	Version            string         `json:"version"`
}

func overridesPath(projectsDir, project string) string {
	return filepath.Join(projectsDir, project, "norm_overrides.json")
}

// HasProjectOverrides reports whether the project carries a saved override
// file.
func HasProjectOverrides(projectsDir, project string) bool {
	_, err := os.Stat(overridesPath(projectsDir, project))
	return err == nil
}

// LoadProjectOverrides reads a project override file. A missing file is not
// an error; it returns nil.
func LoadProjectOverrides(projectsDir, project string) (*ProjectOverrides, error) {
	data, err := os.ReadFile(overridesPath(projectsDir, project))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var o ProjectOverrides
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing overrides for %s: %w", project, err)
	}
	return &o, nil
}

// SaveProjectOverrides writes the override file, stamping the modification
// time.
func SaveProjectOverrides(projectsDir, project, baseNorm string, params map[string]any) error {
	if len(params) == 0 {
		return fmt.Errorf("no parameters to save")
	}
	dir := filepath.Join(projectsDir, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	o := ProjectOverrides{
		ProjectName:        project,
		BaseNorm:           baseNorm,
		ModifiedParameters: params,
		LastModified:       time.Now().Format(time.RFC3339),
		Version:            "1.0",
	}
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(overridesPath(projectsDir, project), data, 0o644)
}

// DeleteProjectOverrides removes the override file, returning the project to
// base normative values. Deleting a project without overrides is a no-op.
func DeleteProjectOverrides(projectsDir, project string) error {
	err := os.Remove(overridesPath(projectsDir, project))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// uiPathMapping translates parameter paths as the configuration UI sends
// them into config paths. Unknown paths pass through unchanged so plain
// config paths also work.
var uiPathMapping = map[string]string{
	"editable_sections.basic.parameters.isc_safety_factor.value":    "correction_factors.isc_safety_factor",
	"editable_sections.basic.parameters.parallel_strings.value":     "correction_factors.parallel_strings",
	"editable_sections.cable.parameters.material.value":             "cable.material",
	"editable_sections.cable.parameters.insulation.value":           "cable.insulation",
	"editable_sections.cable.parameters.max_temp.value":             "cable.max_temp",
	"editable_sections.installation.parameters.method.value":        "installation.method",
	"editable_sections.installation.parameters.depth_cm.value":      "installation.depth_cm",
	"editable_sections.installation.parameters.layout.value":        "installation.layout",
	"editable_sections.temperature.parameters.ambient_design.value": "temperature_correction.ambient_design",
	"editable_sections.voltage.parameters.max_percentage.value":     "voltage_drop.max_percentage",
	"editable_sections.voltage.parameters.reference_voltage.value":  "voltage_drop.reference_voltage",
	"editable_sections.safety.parameters.current_safety.value":      "safety_factors.current_safety",
	"editable_sections.safety.parameters.voltage_safety.value":      "safety_factors.voltage_safety",
}

// ApplyOverrides returns a copy of the normative with the override
// parameters applied. Overrides that do not map onto a known parameter are
// logged and skipped; a stale saved override must not poison a calculation.
func ApplyOverrides(n *Normative, params map[string]any) *Normative {
	out := *n
	// The temperature table is shared; copy before any write.
	values := make(map[string]float64, len(n.TemperatureCorrection.Values))
	for k, v := range n.TemperatureCorrection.Values {
		values[k] = v
	}
	out.TemperatureCorrection.Values = values

	for path, value := range params {
		if mapped, ok := uiPathMapping[path]; ok {
			path = mapped
		}
		if err := setParameter(&out, path, value); err != nil {
			log.Printf("norms: skipping override %s: %v", path, err)
		}
	}
	return &out
}

func setParameter(n *Normative, path string, value any) error {
	switch path {
	case "correction_factors.isc_safety_factor":
		return setFloat(&n.CorrectionFactors.IscSafetyFactor, value)
	case "correction_factors.parallel_strings":
		return setInt(&n.CorrectionFactors.ParallelStrings, value)
	case "cable.material":
		return setString(&n.Cable.Material, value)
	case "cable.insulation":
		return setString(&n.Cable.Insulation, value)
	case "cable.max_temp":
		return setFloat(&n.Cable.MaxTemp, value)
	case "installation.method":
		return setString(&n.Installation.Method, value)
	case "installation.layout":
		return setString(&n.Installation.Layout, value)
	case "installation.depth_cm":
		return setFloat(&n.Installation.DepthCM, value)
	case "temperature_correction.ambient_design":
		return setFloat(&n.TemperatureCorrection.AmbientDesign, value)
	case "voltage_drop.max_percentage":
		return setFloat(&n.VoltageDrop.MaxPercentage, value)
	case "voltage_drop.reference_voltage":
		return setFloat(&n.VoltageDrop.ReferenceVoltage, value)
	case "safety_factors.current_safety":
		return setFloat(&n.SafetyFactors.CurrentSafety, value)
	case "safety_factors.voltage_safety":
		return setFloat(&n.SafetyFactors.VoltageSafety, value)
	}
	return fmt.Errorf("unknown parameter path %q", path)
}

func setFloat(dst *float64, value any) error {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return err
		}
		*dst = f
	default:
		return fmt.Errorf("expected number, got %T", value)
	}
	return nil
}

func setInt(dst *int, value any) error {
	switch v := value.(type) {
	case float64:
		*dst = int(v)
	case int:
		*dst = v
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return err
		}
		*dst = int(i)
	default:
		return fmt.Errorf("expected integer, got %T", value)
	}
	return nil
}

func setString(dst *string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	*dst = s
	return nil
}

// ----------------------------------------------------------------------------
// Per-stage override files (projects/<name>/normativas/<stage>.yaml)
// ----------------------------------------------------------------------------

// StageMetadata is embedded under _metadata in every stage override file.
type StageMetadata struct {
	CircuitType   string `yaml:"circuit_type" json:"circuit_type"`
	BaseNormative string `yaml:"base_normative" json:"base_normative"`
	UpdatedAt     string `yaml:"updated_at" json:"updated_at"`
	StageSpecific bool   `yaml:"stage_specific" json:"stage_specific"`
	Source        string `yaml:"source" json:"source"`
}

func stagePath(projectsDir, project, stage string) string {
	return filepath.Join(projectsDir, project, "normativas", stage+".yaml")
}

// StageOverrideExists reports whether a stage override file is present.
func StageOverrideExists(projectsDir, project, stage string) bool {
	_, err := os.Stat(stagePath(projectsDir, project, stage))
	return err == nil
}

// LoadStageOverride reads one stage override file as free-form parameters.
func LoadStageOverride(projectsDir, project, stage string) (map[string]any, error) {
	data, err := os.ReadFile(stagePath(projectsDir, project, stage))
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing stage override %s/%s: %w", project, stage, err)
	}
	return out, nil
}

// SaveStageOverride writes a stage override file, stamping _metadata.
func SaveStageOverride(projectsDir, project, stage, baseNorm, source string, params map[string]any) error {
	if len(params) == 0 {
		return fmt.Errorf("no parameters to save")
	}
	dir := filepath.Join(projectsDir, project, "normativas")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	params["_metadata"] = StageMetadata{
		CircuitType:   stage,
		BaseNormative: baseNorm,
		UpdatedAt:     time.Now().Format(time.RFC3339),
		StageSpecific: true,
		Source:        source,
	}
	data, err := yaml.Marshal(params)
	if err != nil {
		return err
	}
	return os.WriteFile(stagePath(projectsDir, project, stage), data, 0o644)
}

// DeleteStageOverride removes one stage override file.
func DeleteStageOverride(projectsDir, project, stage string) error {
	err := os.Remove(stagePath(projectsDir, project, stage))
	if os.IsNotExist(err) {
		return fmt.Errorf("no override for stage %q in project %q", stage, project)
	}
	return err
}

// CopyBaseToStages materializes the base normative as editable stage files
// for every known stage, returning the files written.
func (s *Store) CopyBaseToStages(projectsDir, project, normative string) ([]string, error) {
	n := s.Normative(normative)
	var written []string
	for _, stage := range Stages {
		sections, err := n.StandardSections.For(stage)
		if err != nil {
			return written, err
		}
		params := map[string]any{
			"cable":        n.Cable,
			"installation": n.Installation,
			"correction_factors": map[string]any{
				"isc_safety_factor": n.CorrectionFactors.IscSafetyFactor,
				"parallel_strings":  n.CorrectionFactors.ParallelStrings,
			},
			"voltage_drop": n.VoltageDrop,
			"standard_sections": map[string]any{
				"mm2": sections,
			},
		}
		if err := SaveStageOverride(projectsDir, project, stage, normative, "auto_base_copy", params); err != nil {
			return written, err
		}
		written = append(written, stagePath(projectsDir, project, stage))
	}
	return written, nil
}
