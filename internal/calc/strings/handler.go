package strings

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"Helios/internal/norms"
	"Helios/internal/project"
	"Helios/internal/repo"
)

type Handler struct {
	Projects *project.Store
	Norms    *norms.Store
	Repo     repo.Repository
}

type response struct {
	RunID       uuid.UUID        `json:"run_id"`
	ProjectName string           `json:"project_name"`
	Normative   string           `json:"normative"`
	PanelInfo   panelInfo        `json:"panel_info"`
	Params      norms.CalcParams `json:"calculation_params"`
	Results     []Result         `json:"results"`
	Summary     Summary          `json:"summary"`
}

type panelInfo struct {
	Model       string  `json:"model"`
	IscA        float64 `json:"isc_a"`
	FromCatalog bool    `json:"from_catalog"`
}

// Calc sizes every string circuit of a project under the requested
// normative.
func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	normative := vars["normative"]
	if !h.Norms.Has(normative) {
		http.Error(w, "Unknown normative", http.StatusBadRequest)
		return
	}

	wb, err := h.Projects.OpenWorkbook(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer wb.Close()

	info, err := wb.ProjectInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	rows, err := wb.StringRows()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	panel, fromCatalog, err := h.Norms.Panel(info["panel_model"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	params, err := h.Norms.BuildCalcParams(h.Projects.Root, name, normative, norms.CircuitDCStrings, len(rows))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	results, summary := Calculate(rows, panel.ElectricalSTC.Isc, params)

	resp := response{
		RunID:       uuid.New(),
		ProjectName: name,
		Normative:   normative,
		PanelInfo: panelInfo{
			Model:       panel.Model,
			IscA:        panel.ElectricalSTC.Isc,
			FromCatalog: fromCatalog,
		},
		Params:  params,
		Results: results,
		Summary: summary,
	}

	if _, err := h.Projects.SaveCalculation(name, "dc_strings", resp); err != nil {
		log.Printf("strings: saving calculation for %s: %v", name, err)
	}
	if h.Repo != nil {
		err := h.Repo.RecordCalculationRun(r.Context(), repo.CalculationRun{
			ID:            resp.RunID,
			Project:       name,
			Normative:     normative,
			CircuitType:   norms.CircuitDCStrings,
			TotalCircuits: summary.Total,
			Successful:    summary.Successful,
			Failed:        summary.Failed,
			CreatedAt:     time.Now(),
		})
		if err != nil {
			log.Printf("strings: recording run for %s: %v", name, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
