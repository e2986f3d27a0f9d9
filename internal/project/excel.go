package project

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheets every project workbook must carry. ac_circuits is optional.
var (
	RequiredSheets = []string{"project_info", "dc_string_circuits", "dc_cn1_circuits", "mv_circuits"}
	OptionalSheets = []string{"ac_circuits"}
)

// FloatCell keeps the raw spreadsheet text next to the parsed value so
// validators can report what the user actually typed.
type FloatCell struct {
	Raw   string  `json:"raw"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

func parseFloatCell(raw string) FloatCell {
	raw = strings.TrimSpace(raw)
	// Spreadsheets exported with Spanish locales use a decimal comma.
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	return FloatCell{Raw: raw, Value: v, Valid: err == nil && raw != ""}
}

// StringRow is one circuit of the dc_string_circuits sheet.
type StringRow struct {
	StringID   string    `json:"string_id"`
	CN1ID      string    `json:"cn1_id"`
	InverterID string    `json:"inverter_id"`
	LengthPosM FloatCell `json:"length_pos_m"`
	LengthNegM FloatCell `json:"length_neg_m"`
	PanelModel string    `json:"panel_model,omitempty"`
}

// CN1Row is one combiner-to-inverter circuit of the dc_cn1_circuits sheet.
type CN1Row struct {
	CircuitID  string    `json:"circuit_id"`
	InverterID string    `json:"inverter_id"`
	LengthPosM FloatCell `json:"length_pos_m"`
	LengthNegM FloatCell `json:"length_neg_m"`
}

// MVRow is one medium-voltage circuit of the mv_circuits sheet.
type MVRow struct {
	CircuitID string    `json:"circuit_id"`
	LengthM   FloatCell `json:"length_m"`
	CurrentA  FloatCell `json:"current_a"`
	VoltageKV FloatCell `json:"voltage_kv"`
}

// SheetInfo summarizes one sheet for the structure endpoint.
type SheetInfo struct {
	Rows       int      `json:"rows"`
	Columns    int      `json:"columns"`
	ColumnName []string `json:"column_names"`
	Required   bool     `json:"is_required"`
	Optional   bool     `json:"is_optional"`
}

// Workbook wraps an opened project spreadsheet.
type Workbook struct {
	f *excelize.File
}

// OpenWorkbook opens and structure-checks a project spreadsheet. Content
// validation is left to the validate package.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	wb := &Workbook{f: f}
	if missing := wb.missingSheets(); len(missing) > 0 {
		f.Close()
		return nil, fmt.Errorf("missing required sheets: %s", strings.Join(missing, ", "))
	}
	return wb, nil
}

func (wb *Workbook) Close() error { return wb.f.Close() }

func (wb *Workbook) missingSheets() []string {
	have := make(map[string]bool)
	for _, name := range wb.f.GetSheetList() {
		have[name] = true
	}
	var missing []string
	for _, name := range RequiredSheets {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// HasSheet reports whether a sheet exists by name.
func (wb *Workbook) HasSheet(name string) bool {
	for _, s := range wb.f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// ProjectInfo extracts the project_info sheet as a field map. It handles
// the vertical layout (Campo | Valor | Prioridad) and falls back to a
// horizontal header row with values beneath it.
func (wb *Workbook) ProjectInfo() (map[string]string, error) {
	rows, err := wb.f.GetRows("project_info")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("project_info sheet is empty")
	}
	header := rows[0]
	if len(header) >= 2 && strings.EqualFold(cell(header, 0), "Campo") && strings.EqualFold(cell(header, 1), "Valor") {
		out := make(map[string]string)
		for _, row := range rows[1:] {
			key := strings.TrimSpace(cell(row, 0))
			if key == "" {
				continue
			}
			out[key] = strings.TrimSpace(cell(row, 1))
		}
		return out, nil
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("project_info sheet has headers but no values")
	}
	out := make(map[string]string, len(header))
	for i, key := range header {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(cell(rows[1], i))
	}
	return out, nil
}

// StringRows parses the dc_string_circuits sheet.
func (wb *Workbook) StringRows() ([]StringRow, error) {
	rows, cols, err := wb.table("dc_string_circuits")
	if err != nil {
		return nil, err
	}
	out := make([]StringRow, 0, len(rows))
	for _, row := range rows {
		sr := StringRow{
			StringID:   cell(row, cols.lookup("string_id")),
			CN1ID:      cell(row, cols.lookup("cn1_id")),
			InverterID: cell(row, cols.lookup("inverter_id")),
			LengthPosM: parseFloatCell(cell(row, cols.lookup("length_pos_m"))),
			LengthNegM: parseFloatCell(cell(row, cols.lookup("length_neg_m"))),
			PanelModel: cell(row, cols.lookup("panel_model")),
		}
		if sr.StringID == "" && !sr.LengthPosM.Valid && !sr.LengthNegM.Valid {
			continue
		}
		out = append(out, sr)
	}
	return out, nil
}

// CN1Rows parses the dc_cn1_circuits sheet.
func (wb *Workbook) CN1Rows() ([]CN1Row, error) {
	rows, cols, err := wb.table("dc_cn1_circuits")
	if err != nil {
		return nil, err
	}
	out := make([]CN1Row, 0, len(rows))
	for _, row := range rows {
		cr := CN1Row{
			CircuitID:  cell(row, cols.lookup("circuit_id")),
			InverterID: cell(row, cols.lookup("inverter_id")),
			LengthPosM: parseFloatCell(cell(row, cols.lookup("length_pos_m"))),
			LengthNegM: parseFloatCell(cell(row, cols.lookup("length_neg_m"))),
		}
		if cr.CircuitID == "" && !cr.LengthPosM.Valid && !cr.LengthNegM.Valid {
			continue
		}
		out = append(out, cr)
	}
	return out, nil
}

// MVRows parses the mv_circuits sheet.
func (wb *Workbook) MVRows() ([]MVRow, error) {
	rows, cols, err := wb.table("mv_circuits")
	if err != nil {
		return nil, err
	}
	out := make([]MVRow, 0, len(rows))
	for _, row := range rows {
		mr := MVRow{
			CircuitID: cell(row, cols.lookup("circuit_id")),
			LengthM:   parseFloatCell(cell(row, cols.lookup("length_m"))),
			CurrentA:  parseFloatCell(cell(row, cols.lookup("current_a"))),
			VoltageKV: parseFloatCell(cell(row, cols.lookup("voltage_kv"))),
		}
		if mr.CircuitID == "" && !mr.LengthM.Valid {
			continue
		}
		out = append(out, mr)
	}
	return out, nil
}

// Info summarizes every sheet in the workbook.
func (wb *Workbook) Info() map[string]SheetInfo {
	required := make(map[string]bool, len(RequiredSheets))
	for _, s := range RequiredSheets {
		required[s] = true
	}
	optional := make(map[string]bool, len(OptionalSheets))
	for _, s := range OptionalSheets {
		optional[s] = true
	}
	out := make(map[string]SheetInfo)
	for _, name := range wb.f.GetSheetList() {
		rows, err := wb.f.GetRows(name)
		if err != nil {
			continue
		}
		info := SheetInfo{Required: required[name], Optional: optional[name]}
		if len(rows) > 0 {
			info.ColumnName = rows[0]
			info.Columns = len(rows[0])
			info.Rows = len(rows) - 1
		}
		out[name] = info
	}
	return out
}

// table reads a sheet into data rows plus a header-name index. Column
// lookups are case-insensitive; missing columns map to -1 so cell() yields
// an empty string.
func (wb *Workbook) table(sheet string) ([][]string, colIndex, error) {
	rows, err := wb.f.GetRows(sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	cols := make(colIndex)
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return rows[1:], cols, nil
}

type colIndex map[string]int

func (c colIndex) lookup(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
