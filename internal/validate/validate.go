// Package validate runs content checks over parsed project workbooks.
// Structure checks (sheet presence) live in the project package; here we
// validate what the rows actually say.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"Helios/internal/project"
)

// Cable length bounds in meters. Lengths outside the typical range are
// flagged as warnings, outside the hard bounds as errors.
const (
	minLengthM        = 0.5
	maxLengthM        = 2000.0
	typicalMinLengthM = 5.0
	typicalMaxLengthM = 500.0

	// Positive and negative runs of the same circuit should be near-equal.
	maxLengthDiffPct = 15.0

	// Distribution limits. Exceeding them is unusual, not fatal.
	maxStringsPerCN1      = 50
	maxStringsPerInverter = 200
)

// Identifier formats of the dc_string_circuits sheet.
var (
	stringIDRe   = regexp.MustCompile(`^str-\d+-\d+-CN1-\d+-\d+$`)
	cn1IDRe      = regexp.MustCompile(`^CN1-\d+$`)
	inverterIDRe = regexp.MustCompile(`^INV-\d+$`)
)

// Report collects validation findings for one sheet. Errors block
// calculations; warnings do not.
type Report struct {
	Sheet    string   `json:"sheet"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Report) Valid() bool { return len(r.Errors) == 0 }

func (r *Report) errf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// DCStrings validates the dc_string_circuits sheet.
func DCStrings(rows []project.StringRow) Report {
	rep := Report{Sheet: "dc_string_circuits"}
	if len(rows) == 0 {
		rep.errf("La hoja dc_string_circuits no contiene circuitos")
		return rep
	}
	seen := make(map[string]int)
	perCN1 := make(map[string]int)
	perInverter := make(map[string]int)
	var cn1Order, inverterOrder []string
	for i, row := range rows {
		n := i + 2 // spreadsheet row, counting the header
		if row.StringID == "" {
			rep.errf("Fila %d: string_id vacío", n)
		} else {
			if !stringIDRe.MatchString(row.StringID) {
				rep.errf("Fila %d: string_id formato inválido %q (esperado: str-XX-XX-CN1-XX-XX)", n, row.StringID)
			}
			if prev, dup := seen[row.StringID]; dup {
				rep.errf("Fila %d: string_id %q duplicado (ya usado en fila %d)", n, row.StringID, prev)
			} else {
				seen[row.StringID] = n
			}
		}
		if row.CN1ID == "" {
			rep.warnf("Fila %d: cn1_id vacío, el circuito no participará en el cálculo CN1", n)
		} else {
			if !cn1IDRe.MatchString(row.CN1ID) {
				rep.errf("Fila %d: cn1_id formato inválido %q (esperado: CN1-XX)", n, row.CN1ID)
			}
			if perCN1[row.CN1ID] == 0 {
				cn1Order = append(cn1Order, row.CN1ID)
			}
			perCN1[row.CN1ID]++
		}
		if row.InverterID == "" {
			rep.warnf("Fila %d: inverter_id vacío", n)
		} else {
			if !inverterIDRe.MatchString(row.InverterID) {
				rep.errf("Fila %d: inverter_id formato inválido %q (esperado: INV-XX)", n, row.InverterID)
			}
			if perInverter[row.InverterID] == 0 {
				inverterOrder = append(inverterOrder, row.InverterID)
			}
			perInverter[row.InverterID]++
		}
		checkLength(&rep, n, "length_pos_m", row.LengthPosM)
		checkLength(&rep, n, "length_neg_m", row.LengthNegM)
		checkSymmetry(&rep, n, row.LengthPosM, row.LengthNegM)
	}
	for _, id := range cn1Order {
		if c := perCN1[id]; c > maxStringsPerCN1 {
			rep.warnf("CN1 %q tiene %d strings (máximo recomendado: %d)", id, c, maxStringsPerCN1)
		}
	}
	for _, id := range inverterOrder {
		if c := perInverter[id]; c > maxStringsPerInverter {
			rep.warnf("Inversor %q tiene %d strings (máximo recomendado: %d)", id, c, maxStringsPerInverter)
		}
	}
	return rep
}

// CN1Circuits validates the dc_cn1_circuits sheet.
func CN1Circuits(rows []project.CN1Row) Report {
	rep := Report{Sheet: "dc_cn1_circuits"}
	if len(rows) == 0 {
		rep.errf("La hoja dc_cn1_circuits no contiene circuitos")
		return rep
	}
	seen := make(map[string]int)
	for i, row := range rows {
		n := i + 2
		if row.CircuitID == "" {
			rep.errf("Fila %d: circuit_id vacío", n)
		} else if prev, dup := seen[row.CircuitID]; dup {
			rep.errf("Fila %d: circuit_id %q duplicado (ya usado en fila %d)", n, row.CircuitID, prev)
		} else {
			seen[row.CircuitID] = n
		}
		if row.InverterID == "" {
			rep.errf("Fila %d: inverter_id vacío", n)
		}
		checkLength(&rep, n, "length_pos_m", row.LengthPosM)
		checkLength(&rep, n, "length_neg_m", row.LengthNegM)
		checkSymmetry(&rep, n, row.LengthPosM, row.LengthNegM)
	}
	return rep
}

// MVCircuits validates the mv_circuits sheet.
func MVCircuits(rows []project.MVRow) Report {
	rep := Report{Sheet: "mv_circuits"}
	if len(rows) == 0 {
		rep.warnf("La hoja mv_circuits no contiene circuitos")
		return rep
	}
	for i, row := range rows {
		n := i + 2
		if row.CircuitID == "" {
			rep.errf("Fila %d: circuit_id vacío", n)
		}
		if !row.LengthM.Valid {
			rep.errf("Fila %d: length_m no numérico -> %q", n, row.LengthM.Raw)
		} else if row.LengthM.Value <= 0 {
			rep.errf("Fila %d: length_m debe ser positivo -> %gm", n, row.LengthM.Value)
		}
		if row.CurrentA.Valid && row.CurrentA.Value <= 0 {
			rep.errf("Fila %d: current_a debe ser positivo -> %g A", n, row.CurrentA.Value)
		}
		if row.VoltageKV.Valid && (row.VoltageKV.Value < 1 || row.VoltageKV.Value > 45) {
			rep.warnf("Fila %d: voltage_kv fuera del rango habitual (1-45 kV) -> %g kV", n, row.VoltageKV.Value)
		}
	}
	return rep
}

// Required fields of the project_info sheet.
var requiredInfoFields = []string{"project_name", "panel_model", "system_voltage"}

// ProjectInfo validates the parsed project_info field map.
func ProjectInfo(info map[string]string) Report {
	rep := Report{Sheet: "project_info"}
	for _, field := range requiredInfoFields {
		if strings.TrimSpace(info[field]) == "" {
			rep.errf("Campo requerido ausente o vacío: %s", field)
		}
	}
	if raw := info["system_voltage"]; raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			rep.errf("system_voltage no numérico -> %q", raw)
		case v <= 0:
			rep.errf("system_voltage debe ser positivo -> %g", v)
		case v > 1500:
			rep.warnf("system_voltage %g V supera los 1500 V habituales en plantas FV", v)
		}
	}
	return rep
}

func checkLength(rep *Report, row int, field string, c project.FloatCell) {
	if !c.Valid {
		rep.errf("Fila %d: %s no numérico -> %q", row, field, c.Raw)
		return
	}
	switch {
	case c.Value < minLengthM:
		rep.errf("Fila %d: %s debe ser ≥ %gm -> %gm", row, field, minLengthM, c.Value)
	case c.Value > maxLengthM:
		rep.errf("Fila %d: %s debe ser ≤ %gm -> %gm", row, field, maxLengthM, c.Value)
	case c.Value < typicalMinLengthM || c.Value > typicalMaxLengthM:
		rep.warnf("Fila %d: %s fuera del rango típico (%g-%gm) -> %gm", row, field, typicalMinLengthM, typicalMaxLengthM, c.Value)
	}
}

func checkSymmetry(rep *Report, row int, pos, neg project.FloatCell) {
	if !pos.Valid || !neg.Valid || pos.Value <= 0 || neg.Value <= 0 {
		return
	}
	avg := (pos.Value + neg.Value) / 2
	diffPct := math.Abs(pos.Value-neg.Value) / avg * 100
	if diffPct > maxLengthDiffPct {
		rep.warnf("Fila %d: diferencia del %.1f%% entre longitudes positiva y negativa (máximo recomendado %.0f%%)", row, diffPct, maxLengthDiffPct)
	}
}
