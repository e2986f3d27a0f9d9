package cn1

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
	PanelModel  string           `json:"panel_model"`
	Params      norms.CalcParams `json:"calculation_params"`
	Results     []Result         `json:"results"`
	Summary     Summary          `json:"summary"`
}

// Calc sizes every CN1 circuit of a project under the requested normative.
// The parallel-string mapping is rebuilt from dc_string_circuits on every
// run so edits to the workbook are always reflected.
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
	stringRows, err := wb.StringRows()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	cn1Rows, err := wb.CN1Rows()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	panel, _, err := h.Norms.Panel(info["panel_model"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	params, err := h.Norms.BuildCalcParams(h.Projects.Root, name, normative, norms.CircuitCN1, len(cn1Rows))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mapping := ParallelMapping(stringRows)
	if len(mapping) == 0 {
		log.Printf("cn1: project %s has no usable cn1_id/inverter_id pairs, every circuit runs as a single string", name)
	}

	results, summary := Calculate(cn1Rows, mapping, panel.ElectricalSTC.Isc, params)

	resp := response{
		RunID:       uuid.New(),
		ProjectName: name,
		Normative:   normative,
		PanelModel:  panel.Model,
		Params:      params,
		Results:     results,
		Summary:     summary,
	}

	if _, err := h.Projects.SaveCalculation(name, "cn1_inverter", resp); err != nil {
		log.Printf("cn1: saving calculation for %s: %v", name, err)
	}
	if h.Repo != nil {
		err := h.Repo.RecordCalculationRun(r.Context(), repo.CalculationRun{
			ID:            resp.RunID,
			Project:       name,
			Normative:     normative,
			CircuitType:   norms.CircuitCN1,
			TotalCircuits: summary.Total,
			Successful:    summary.Successful,
			Failed:        summary.Failed,
			CreatedAt:     time.Now(),
		})
		if err != nil {
			log.Printf("cn1: recording run for %s: %v", name, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
