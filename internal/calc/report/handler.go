package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"Helios/internal/project"
)

type Handler struct {
	Projects *project.Store
}

// Generate renders a report, archives a copy under the project's reports/
// directory and streams the PDF back.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := Render(input, &buf); err != nil {
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}

	if input.Project != "" && h.Projects != nil && h.Projects.Exists(input.Project) {
		dir := h.Projects.ReportsDir(input.Project)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			name := fmt.Sprintf("report_%s.pdf", time.Now().Format("20060102_150405"))
			if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
				log.Printf("report: archiving copy for %s: %v", input.Project, err)
			} else {
				_ = h.Projects.AppendLog(input.Project, "report", name)
			}
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"report.pdf\"")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("report: streaming: %v", err)
	}
}
