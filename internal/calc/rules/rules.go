package rules

import (
	"fmt"
	"log"
)

// Severity of one rule outcome.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Params is the snapshot of a sized circuit that the rule set inspects.
type Params struct {
	VoltageDropPct  float64 `json:"voltage_drop_pct"`
	OperatingTempC  float64 `json:"operating_temp_c"`
	ShortCircuitA   float64 `json:"short_circuit_a"`
	NominalCurrentA float64 `json:"nominal_current_a"`
	CableAmpacityA  float64 `json:"cable_ampacity_a"`
	SectionMM2      float64 `json:"section_mm2"`
	SystemVoltageV  float64 `json:"system_voltage_v"`
	InsulationClass string  `json:"insulation_class"`
}

// Result is the outcome of one rule.
type Result struct {
	IsValid        bool     `json:"is_valid"`
	Score          float64  `json:"score"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
	Reference      string   `json:"reference"`
	Standard       string   `json:"standard"`
}

// Report aggregates every evaluated rule with the overall compliance score.
type Report struct {
	Results []Result `json:"results"`
	Score   float64  `json:"score"`
}

type rule struct {
	name string
	eval func(Params) Result
}

// Standard identifiers accepted by Evaluate.
const (
	StandardIEC = "IEC 60364-7-712"
	StandardNEC = "NEC 690"
	StandardUL  = "UL 1741"
)

var groups = map[string][]rule{
	StandardIEC: {
		{"voltage_drop", checkVoltageDrop},
		{"operating_temperature", checkOperatingTemp},
		{"insulation_class", checkInsulation},
	},
	StandardNEC: {
		{"short_circuit_margin", checkShortCircuit},
		{"ampacity_margin", checkAmpacity},
	},
	StandardUL: {
		{"max_system_voltage", checkMaxSystemVoltage},
	},
}

// groupOrder fixes concatenation order regardless of how callers list the
// active standards in their request.
var groupOrder = []string{StandardIEC, StandardNEC, StandardUL}

// Evaluate runs every rule of every active standard, in group order, and
// averages the scores. No active standards means an empty report with score
// zero. A panicking rule is converted into an error result instead of
// taking the whole evaluation down.
func Evaluate(p Params, active []string) Report {
	enabled := make(map[string]bool, len(active))
	for _, s := range active {
		enabled[s] = true
	}

	var results []Result
	for _, std := range groupOrder {
		if !enabled[std] {
			continue
		}
		for _, r := range groups[std] {
			results = append(results, runRule(std, r, p))
		}
	}

	var total float64
	for _, r := range results {
		total += r.Score
	}
	score := 0.0
	if len(results) > 0 {
		score = total / float64(len(results))
	}
	return Report{Results: results, Score: score}
}

// Standards lists the known rule groups in evaluation order.
func Standards() []string {
	out := make([]string, len(groupOrder))
	copy(out, groupOrder)
	return out
}

func runRule(standard string, r rule, p Params) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("rules: %s/%s panicked: %v", standard, r.name, rec)
			res = Result{
				IsValid:  false,
				Score:    0,
				Severity: SeverityError,
				Category: "Evaluación",
				Message:  fmt.Sprintf("La regla %s no pudo evaluarse", r.name),
				Standard: standard,
			}
		}
	}()
	return r.eval(p)
}

func checkVoltageDrop(p Params) Result {
	base := Result{
		Category:  "Caída de Tensión",
		Reference: "IEC 60364-7-712 §712.5",
		Standard:  StandardIEC,
	}
	switch {
	case p.VoltageDropPct > 3.0:
		base.Severity = SeverityError
		base.Score = 0
		base.Message = fmt.Sprintf("Caída de tensión %.2f%% supera el límite del 3%%", p.VoltageDropPct)
		base.Recommendation = "Aumentar la sección del conductor o reducir la longitud del circuito"
	case p.VoltageDropPct > 2.0:
		base.IsValid = true
		base.Severity = SeverityWarning
		base.Score = 70
		base.Message = fmt.Sprintf("Caída de tensión %.2f%% por encima del 2%% recomendado", p.VoltageDropPct)
		base.Recommendation = "Considerar una sección mayor para reducir pérdidas"
	default:
		base.IsValid = true
		base.Severity = SeveritySuccess
		base.Score = 100
		base.Message = fmt.Sprintf("Caída de tensión %.2f%% dentro de límites", p.VoltageDropPct)
	}
	return base
}

func checkOperatingTemp(p Params) Result {
	base := Result{
		Category:  "Temperatura",
		Reference: "IEC 60364-7-712 §712.52",
		Standard:  StandardIEC,
	}
	switch {
	case p.OperatingTempC > 85:
		base.Severity = SeverityError
		base.Score = 0
		base.Message = fmt.Sprintf("Temperatura de operación %.1f°C supera los 85°C admisibles", p.OperatingTempC)
		base.Recommendation = "Revisar el método de instalación y la ventilación del tendido"
	case p.OperatingTempC > 70:
		base.IsValid = true
		base.Severity = SeverityWarning
		base.Score = 80
		base.Message = fmt.Sprintf("Temperatura de operación %.1f°C elevada", p.OperatingTempC)
		base.Recommendation = "Verificar los factores de corrección por temperatura"
	default:
		base.IsValid = true
		base.Severity = SeveritySuccess
		base.Score = 100
		base.Message = fmt.Sprintf("Temperatura de operación %.1f°C dentro de límites", p.OperatingTempC)
	}
	return base
}

func checkInsulation(p Params) Result {
	base := Result{
		Category:  "Aislamiento",
		Reference: "IEC 60364-7-712 §712.412",
		Standard:  StandardIEC,
	}
	if p.SystemVoltageV > 600 && p.InsulationClass != "II" {
		base.Severity = SeverityError
		base.Score = 0
		base.Message = fmt.Sprintf("Sistemas sobre 600 V requieren aislamiento clase II (actual: %q)", p.InsulationClass)
		base.Recommendation = "Utilizar cable con doble aislamiento clase II"
		return base
	}
	base.IsValid = true
	base.Severity = SeveritySuccess
	base.Score = 100
	base.Message = "Clase de aislamiento adecuada para la tensión del sistema"
	return base
}

func checkShortCircuit(p Params) Result {
	base := Result{
		Category:  "Cortocircuito",
		Reference: "NEC 690.8(A)(1)",
		Standard:  StandardNEC,
	}
	required := p.NominalCurrentA * 1.25
	if p.ShortCircuitA < required {
		base.Severity = SeverityError
		base.Score = 0
		base.Message = fmt.Sprintf("Corriente de cortocircuito %.2f A por debajo del mínimo %.2f A (125%% de la nominal)", p.ShortCircuitA, required)
		base.Recommendation = "Revisar los datos del panel; Isc debe superar el 125% de la corriente nominal"
		return base
	}
	base.IsValid = true
	base.Severity = SeveritySuccess
	base.Score = 100
	base.Message = fmt.Sprintf("Margen de cortocircuito adecuado (%.2f A ≥ %.2f A)", p.ShortCircuitA, required)
	return base
}

func checkAmpacity(p Params) Result {
	base := Result{
		Category:  "Ampacidad",
		Reference: "NEC 690.8(B)",
		Standard:  StandardNEC,
	}
	required := p.NominalCurrentA * 1.25
	if p.CableAmpacityA < required {
		base.Severity = SeverityError
		base.Score = 0
		base.Message = fmt.Sprintf("Ampacidad del cable %.2f A insuficiente; se requieren %.2f A", p.CableAmpacityA, required)
		base.Recommendation = "Seleccionar un conductor de mayor sección o mejor ampacidad"
		return base
	}
	base.IsValid = true
	base.Severity = SeveritySuccess
	base.Score = 100
	base.Message = fmt.Sprintf("Ampacidad del cable suficiente (%.2f A ≥ %.2f A)", p.CableAmpacityA, required)
	return base
}

func checkMaxSystemVoltage(p Params) Result {
	base := Result{
		Category:  "Compatibilidad",
		Reference: "UL 1741 §31",
		Standard:  StandardUL,
	}
	if p.SystemVoltageV > 1000 {
		base.Severity = SeverityError
		base.Score = 0
		base.Message = fmt.Sprintf("Tensión del sistema %.0f V supera el máximo de 1000 V certificado", p.SystemVoltageV)
		base.Recommendation = "Reducir el número de paneles en serie o certificar el equipo para 1500 V"
		return base
	}
	base.IsValid = true
	base.Severity = SeveritySuccess
	base.Score = 100
	base.Message = fmt.Sprintf("Tensión del sistema %.0f V dentro del rango certificado", p.SystemVoltageV)
	return base
}
