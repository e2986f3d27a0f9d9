package norms

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Circuit types keyed in standard_sections.
const (
	CircuitDCStrings  = "dc_strings"
	CircuitCN1        = "cn1_inverter"
	CircuitLevel1DC   = "level_1_dc"
	CircuitACCircuits = "ac_circuits"
	CircuitMVCircuits = "mv_circuits"
)

// Stages for which a project may carry a normative override file.
var Stages = []string{CircuitDCStrings, CircuitCN1, CircuitLevel1DC, CircuitACCircuits, CircuitMVCircuits}

const DefaultNormative = "IEC"

type Cable struct {
	Material   string  `yaml:"material" json:"material"`
	Insulation string  `yaml:"insulation" json:"insulation"`
	MaxTemp    float64 `yaml:"max_temp" json:"max_temp"`
}

type Installation struct {
	Method     string  `yaml:"method" json:"method"`
	Layout     string  `yaml:"layout" json:"layout"`
	DepthCM    float64 `yaml:"depth_cm" json:"depth_cm"`
	Separation float64 `yaml:"separation" json:"separation"`
}

type CorrectionFactors struct {
	IscSafetyFactor float64 `yaml:"isc_safety_factor" json:"isc_safety_factor"`
	ParallelStrings int     `yaml:"parallel_strings" json:"parallel_strings"`
}

type SafetyFactors struct {
	CurrentSafety float64 `yaml:"current_safety" json:"current_safety"`
	VoltageSafety float64 `yaml:"voltage_safety" json:"voltage_safety"`
}

type TemperatureCorrection struct {
	AmbientDesign float64            `yaml:"ambient_design" json:"ambient_design"`
	Values        map[string]float64 `yaml:"values" json:"values"`
}

type GroupingLayout struct {
	Values map[string]float64 `yaml:"values" json:"values"`
}

type GroupingMethod struct {
	Values  map[string]float64        `yaml:"values" json:"values"`
	Layouts map[string]GroupingLayout `yaml:"layouts" json:"layouts"`
}

type VoltageDrop struct {
	MaxPercentage    float64 `yaml:"max_percentage" json:"max_percentage"`
	ReferenceVoltage float64 `yaml:"reference_voltage" json:"reference_voltage"`
	// RoundTrip marks whether circuit lengths in this normative's data are
	// one-way distances. The workbook stores positive and negative runs
	// separately, so their sum is already the full loop.
	RoundTrip bool `yaml:"round_trip" json:"round_trip"`
}

type SectionSet struct {
	MM2                 []float64 `yaml:"mm2" json:"mm2"`
	Description         string    `yaml:"description" json:"description"`
	TypicalCurrentRange string    `yaml:"typical_current_range" json:"typical_current_range"`
	MaxRecommendedLen   string    `yaml:"max_recommended_length" json:"max_recommended_length"`
}

// StandardSections supports both the per-circuit layout and the legacy
// flat mm2 list used by older normativas.yaml files.
type StandardSections struct {
	DCStrings  SectionSet `yaml:"dc_strings" json:"dc_strings"`
	Level1DC   SectionSet `yaml:"level_1_dc" json:"level_1_dc"`
	ACCircuits SectionSet `yaml:"ac_circuits" json:"ac_circuits"`
	MVCircuits SectionSet `yaml:"mv_circuits" json:"mv_circuits"`
	MM2        []float64  `yaml:"mm2" json:"mm2"`
}

func (s StandardSections) legacy() bool { return len(s.MM2) > 0 }

// For returns the ascending section list for a circuit type. CN1 circuits
// use the level_1_dc table.
func (s StandardSections) For(circuitType string) ([]float64, error) {
	if s.legacy() {
		return ascending(s.MM2), nil
	}
	switch circuitType {
	case CircuitDCStrings:
		return ascending(s.DCStrings.MM2), nil
	case CircuitCN1, CircuitLevel1DC:
		return ascending(s.Level1DC.MM2), nil
	case CircuitACCircuits:
		return ascending(s.ACCircuits.MM2), nil
	case CircuitMVCircuits:
		return ascending(s.MVCircuits.MM2), nil
	}
	return nil, fmt.Errorf("unknown circuit type %q", circuitType)
}

func ascending(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	sort.Float64s(out)
	return out
}

type StandardsReference map[string]string

type Normative struct {
	Name                  string                    `yaml:"name" json:"name"`
	Description           string                    `yaml:"description" json:"description"`
	Country               string                    `yaml:"country" json:"country"`
	StandardsReference    StandardsReference        `yaml:"standards_reference" json:"standards_reference"`
	Cable                 Cable                     `yaml:"cable" json:"cable"`
	Installation          Installation              `yaml:"installation" json:"installation"`
	CorrectionFactors     CorrectionFactors         `yaml:"correction_factors" json:"correction_factors"`
	SafetyFactors         SafetyFactors             `yaml:"safety_factors" json:"safety_factors"`
	TemperatureCorrection TemperatureCorrection     `yaml:"temperature_correction" json:"temperature_correction"`
	GroupingFactors       map[string]GroupingMethod `yaml:"grouping_factors" json:"grouping_factors"`
	VoltageDrop           VoltageDrop               `yaml:"voltage_drop" json:"voltage_drop"`
	StandardSections      StandardSections          `yaml:"standard_sections" json:"standard_sections"`
}

// TemperatureFactor looks up the derating factor for an ambient temperature.
// Unknown temperatures fall back to 1.0, matching how incomplete tables are
// treated during sizing.
func (n *Normative) TemperatureFactor(ambientC float64) float64 {
	key := strconv.FormatFloat(ambientC, 'f', -1, 64)
	if f, ok := n.TemperatureCorrection.Values[key]; ok {
		return f
	}
	return 1.0
}

// GroupingFactor resolves the grouping derating for a number of parallel
// circuits under the configured installation method and layout. Bucketed
// keys ("4+", "6+", "10+") cover counts past the end of the table.
func (n *Normative) GroupingFactor(method, layout string, circuits int) float64 {
	var table map[string]float64
	m, ok := n.GroupingFactors[method]
	if !ok {
		log.Printf("norms: method %q not in grouping tables, using factor 1.0", method)
		return 1.0
	}
	if len(m.Layouts) > 0 {
		l, ok := m.Layouts[layout]
		if !ok {
			log.Printf("norms: layout %q not in grouping tables for %q, using factor 1.0", layout, method)
			return 1.0
		}
		table = l.Values
	} else {
		table = m.Values
	}

	if f, ok := table[strconv.Itoa(circuits)]; ok {
		return f
	}
	for _, bucket := range []struct {
		key string
		min int
	}{{"10+", 10}, {"6+", 6}, {"4+", 4}} {
		if f, ok := table[bucket.key]; ok && circuits >= bucket.min {
			return f
		}
	}
	return 1.0
}

type Material struct {
	Name            string  `yaml:"name" json:"name"`
	Resistivity20C  float64 `yaml:"resistivity_20c" json:"resistivity_20c"`
	TempCoefficient float64 `yaml:"temp_coefficient" json:"temp_coefficient"`
	DensityKgM3     float64 `yaml:"density_kg_m3" json:"density_kg_m3"`
}

// Resistivity returns the material resistivity in ohm*mm2/m at an operating
// temperature.
func (m Material) Resistivity(tempC float64) float64 {
	return m.Resistivity20C * (1 + m.TempCoefficient*(tempC-20))
}

type PanelElectrical struct {
	Isc float64 `yaml:"isc" json:"isc"`
	Voc float64 `yaml:"voc" json:"voc"`
	Imp float64 `yaml:"imp" json:"imp"`
	Vmp float64 `yaml:"vmp" json:"vmp"`
}

type Panel struct {
	Manufacturer  string          `yaml:"manufacturer" json:"manufacturer"`
	Model         string          `yaml:"model" json:"model"`
	Technology    string          `yaml:"technology" json:"technology"`
	PowerSTC      float64         `yaml:"power_stc" json:"power_stc"`
	ElectricalSTC PanelElectrical `yaml:"electrical_stc" json:"electrical_stc"`
}

type Metadata struct {
	Version         string               `yaml:"version" json:"version"`
	LastUpdated     string               `yaml:"last_updated" json:"last_updated"`
	ValidValues     map[string][]string  `yaml:"valid_values" json:"valid_values"`
	ParameterRanges map[string][]float64 `yaml:"parameter_ranges" json:"parameter_ranges"`
}

type normativasFile struct {
	Normativas map[string]*Normative `yaml:"normativas" json:"normativas"`
	Metadata   Metadata              `yaml:"metadata" json:"metadata"`
}

type materialsFile struct {
	Materials map[string]Material `yaml:"materials" json:"materials"`
}

type panelsFile struct {
	Panels map[string]Panel `yaml:"panels" json:"panels"`
}

// Store holds the parsed configuration files. Safe for concurrent readers.
type Store struct {
	mu         sync.RWMutex
	normatives map[string]*Normative
	materials  map[string]Material
	panels     map[string]Panel
	metadata   Metadata
}

// Load reads normativas.yaml, materials.yaml and panels.yaml from dir.
// A store with no valid normatives is an error: sizing cannot run without
// commercial section tables.
func Load(dir string) (*Store, error) {
	var nf normativasFile
	if err := readYAML(filepath.Join(dir, "normativas.yaml"), &nf); err != nil {
		return nil, fmt.Errorf("loading normativas: %w", err)
	}
	if len(nf.Normativas) == 0 {
		return nil, fmt.Errorf("normativas.yaml defines no normatives")
	}
	for name, n := range nf.Normativas {
		if _, err := n.StandardSections.For(CircuitDCStrings); err != nil {
			return nil, fmt.Errorf("normative %q: %w", name, err)
		}
	}

	var mf materialsFile
	if err := readYAML(filepath.Join(dir, "materials.yaml"), &mf); err != nil {
		return nil, fmt.Errorf("loading materials: %w", err)
	}
	if len(mf.Materials) == 0 {
		return nil, fmt.Errorf("materials.yaml defines no materials")
	}

	var pf panelsFile
	if err := readYAML(filepath.Join(dir, "panels.yaml"), &pf); err != nil {
		return nil, fmt.Errorf("loading panels: %w", err)
	}

	return &Store{
		normatives: nf.Normativas,
		materials:  mf.Materials,
		panels:     pf.Panels,
		metadata:   nf.Metadata,
	}, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

type NormativeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Country     string `json:"country"`
}

// Available lists the configured normatives keyed by identifier.
func (s *Store) Available() map[string]NormativeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]NormativeInfo, len(s.normatives))
	for key, n := range s.normatives {
		out[key] = NormativeInfo{Name: n.Name, Description: n.Description, Country: n.Country}
	}
	return out
}

// Normative returns the configuration for a named normative. Unknown names
// fall back to IEC with a logged warning, mirroring how the product treats
// stale normative references in saved projects.
func (s *Store) Normative(name string) *Normative {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.normatives[name]; ok {
		return n
	}
	log.Printf("norms: normative %q not found, falling back to %s", name, DefaultNormative)
	return s.normatives[DefaultNormative]
}

// Has reports whether a normative is configured under that exact name.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.normatives[name]
	return ok
}

func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// SectionsFor returns the commercial section table for a normative and
// circuit type.
func (s *Store) SectionsFor(normative, circuitType string) ([]float64, error) {
	return s.Normative(normative).StandardSections.For(circuitType)
}

// CommercialSection picks the smallest standard section that covers the
// theoretical one. When the theoretical section exceeds every configured
// size the largest is returned with ok=false so callers can flag the run.
func (s *Store) CommercialSection(normative, circuitType string, theoreticalMM2 float64) (float64, bool, error) {
	sections, err := s.SectionsFor(normative, circuitType)
	if err != nil {
		return 0, false, err
	}
	if len(sections) == 0 {
		return 0, false, fmt.Errorf("no commercial sections configured for %s/%s", normative, circuitType)
	}
	for _, sec := range sections {
		if sec >= theoreticalMM2 {
			return sec, true, nil
		}
	}
	log.Printf("norms: theoretical section %.3f mm2 exceeds largest available %.1f mm2 (%s/%s)",
		theoreticalMM2, sections[len(sections)-1], normative, circuitType)
	return sections[len(sections)-1], false, nil
}

// Material returns a conductor material by name.
func (s *Store) Material(name string) (Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.materials[name]
	if !ok {
		names := make([]string, 0, len(s.materials))
		for k := range s.materials {
			names = append(names, k)
		}
		sort.Strings(names)
		return Material{}, fmt.Errorf("material %q not found (available: %v)", name, names)
	}
	return m, nil
}

// Panel returns panel data by model, falling back to "Panel Personalizado"
// when the model is unknown.
func (s *Store) Panel(model string) (Panel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.panels[model]; ok {
		return p, true, nil
	}
	if p, ok := s.panels["Panel Personalizado"]; ok {
		log.Printf("norms: panel %q not in database, using Panel Personalizado", model)
		return p, false, nil
	}
	return Panel{}, false, fmt.Errorf("panel %q not found and no fallback panel configured", model)
}

// Panels lists the panel database with summary fields.
func (s *Store) Panels() map[string]Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Panel, len(s.panels))
	for k, v := range s.panels {
		out[k] = v
	}
	return out
}
