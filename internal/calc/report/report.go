// Package report renders sizing results as PDF documents for handover to
// the plant engineering team.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"

	"Helios/internal/calc/rules"
	"Helios/internal/calc/strings"
	"Helios/internal/norms"
)

// Input assembles everything one report covers.
type Input struct {
	Project    string           `json:"project"`
	Author     string           `json:"author"`
	Title      string           `json:"title"`
	Notes      string           `json:"notes"`
	Normative  string           `json:"normative"`
	Params     norms.CalcParams `json:"calculation_params"`
	Results    []strings.Result `json:"results"`
	Summary    strings.Summary  `json:"summary"`
	Validation *rules.Report    `json:"validation,omitempty"`
}

// Render writes the PDF to w.
func Render(in Input, w io.Writer) error {
	if in.Title == "" {
		in.Title = "Informe de dimensionado DC"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, in.Title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Proyecto: %s", in.Project))
	pdf.Ln(6)
	if in.Author != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Autor: %s", in.Author))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Normativa: %s", in.Normative))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Fecha: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(10)

	writeParams(pdf, in.Params)
	writeResults(pdf, in.Results)
	writeSummary(pdf, in.Summary)
	if in.Validation != nil {
		writeValidation(pdf, in.Validation)
	}

	if in.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Notas")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, in.Notes, "", "L", false)
	}

	return pdf.Output(w)
}

func writeParams(pdf *gofpdf.Fpdf, p norms.CalcParams) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Parametros de calculo")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Factor de seguridad Isc: %.2f", p.IscSafetyFactor),
		fmt.Sprintf("Factor de temperatura: %.2f (ambiente %.0f C)", p.TemperatureFactor, p.AmbientTempC),
		fmt.Sprintf("Factor de agrupamiento: %.2f", p.GroupingFactor),
		fmt.Sprintf("Material: %s (resistividad %.6f ohm mm2/m)", p.CableMaterial, p.Resistivity),
		fmt.Sprintf("Caida maxima: %.1f%% sobre %.0f V", p.MaxVoltageDropPct, p.ReferenceVoltageV),
	}
	if p.OverridesApplied {
		lines = append(lines, "Parametros modificados por configuracion de proyecto")
	}
	for _, line := range lines {
		pdf.Cell(0, 5, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)
}

func writeResults(pdf *gofpdf.Fpdf, results []strings.Result) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Resultados por circuito")
	pdf.Ln(8)

	headers := []string{"Circuito", "L total (m)", "I ajustada (A)", "S teorica", "S comercial", "Caida (%)", "Estado"}
	widths := []float64{32, 24, 28, 24, 26, 22, 28}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, res := range results {
		if res.Error != "" {
			pdf.CellFormat(widths[0], 6, res.StringID, "1", 0, "L", false, 0, "")
			pdf.CellFormat(sum(widths[1:]), 6, "ERROR: "+res.Error, "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
			continue
		}
		cells := []string{
			res.StringID,
			fmt.Sprintf("%.1f", res.LengthTotalM),
			fmt.Sprintf("%.2f", res.IAdjustedA),
			fmt.Sprintf("%.2f", res.STheoreticalMM2),
			fmt.Sprintf("%.1f", res.SCommercialMM2),
			fmt.Sprintf("%.2f", res.VDropRealPct),
			string(res.VoltageStatus),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func writeSummary(pdf *gofpdf.Fpdf, s strings.Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Resumen")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Circuitos: %d  correctos: %d  criticos: %d  sin seccion: %d  fallidos: %d",
		s.Total, s.Successful, s.Critical, s.NoSection, s.Failed))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Caida maxima registrada: %.2f%%", s.MaxDropPct))
	pdf.Ln(8)
}

func writeValidation(pdf *gofpdf.Fpdf, rep *rules.Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Validacion normativa (puntuacion %.0f/100)", rep.Score))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rep.Results {
		pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s - %s: %s", r.Severity, r.Standard, r.Category, r.Message), "", "L", false)
		if r.Recommendation != "" {
			pdf.MultiCell(0, 5, "    "+r.Recommendation, "", "L", false)
		}
	}
}

func sum(widths []float64) float64 {
	var total float64
	for _, w := range widths {
		total += w
	}
	return total
}
