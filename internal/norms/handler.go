package norms

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type Handler struct {
	Store *Store
	// ProjectsDir is the root of the project filesystem; override files
	// live inside each project folder.
	ProjectsDir string
}

// Available lists the configured normatives with the system default.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"normatives": h.Store.Available(),
		"default":    DefaultNormative,
	})
}

// Parameters returns the full base parameter set of one normative.
func (h *Handler) Parameters(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["normative"]
	if !h.Store.Has(name) {
		http.Error(w, "Unknown normative", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"normative":  name,
		"parameters": h.Store.Normative(name),
		"metadata":   h.Store.Metadata(),
	})
}

// ProjectOverrides returns the saved project-level overrides, if any.
func (h *Handler) ProjectOverrides(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	ov, err := LoadProjectOverrides(h.ProjectsDir, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if ov == nil {
		json.NewEncoder(w).Encode(map[string]any{"project_name": name, "has_overrides": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"project_name": name, "has_overrides": true, "overrides": ov})
}

type saveOverridesRequest struct {
	BaseNorm   string         `json:"base_norm"`
	Parameters map[string]any `json:"parameters"`
}

// SaveProjectOverrides replaces the project's override file.
func (h *Handler) SaveProjectOverrides(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req saveOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.BaseNorm == "" {
		req.BaseNorm = DefaultNormative
	}
	if !h.Store.Has(req.BaseNorm) {
		http.Error(w, "Unknown base normative", http.StatusBadRequest)
		return
	}
	if err := SaveProjectOverrides(h.ProjectsDir, name, req.BaseNorm, req.Parameters); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProjectOverrides returns the project to base normative values.
func (h *Handler) DeleteProjectOverrides(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := DeleteProjectOverrides(h.ProjectsDir, name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status reports, per stage, whether the project carries an override file.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	stages := make(map[string]any, len(Stages))
	found := false
	for _, stage := range Stages {
		exists := StageOverrideExists(h.ProjectsDir, name, stage)
		stages[stage] = map[string]any{"override_exists": exists}
		if exists {
			found = true
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"project_name":      name,
		"has_custom_config": found || HasProjectOverrides(h.ProjectsDir, name),
		"stages":            stages,
	})
}

func validStage(stage string) bool {
	for _, s := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// StageParameters returns the stage override file, falling back to the base
// normative when none has been saved.
func (h *Handler) StageParameters(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, stage := vars["name"], vars["stage"]
	if !validStage(stage) {
		http.Error(w, "Unknown stage", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if StageOverrideExists(h.ProjectsDir, name, stage) {
		params, err := LoadStageOverride(h.ProjectsDir, name, stage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"project_name": name,
			"stage":        stage,
			"source":       "project_override",
			"parameters":   params,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"project_name": name,
		"stage":        stage,
		"source":       "base_normative",
		"parameters":   h.Store.Normative(DefaultNormative),
	})
}

type saveStageRequest struct {
	BaseNorm   string         `json:"base_norm"`
	Parameters map[string]any `json:"parameters"`
}

// SaveStageParameters writes one stage override file.
func (h *Handler) SaveStageParameters(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, stage := vars["name"], vars["stage"]
	if !validStage(stage) {
		http.Error(w, "Unknown stage", http.StatusNotFound)
		return
	}
	var req saveStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.BaseNorm == "" {
		req.BaseNorm = DefaultNormative
	}
	if err := SaveStageOverride(h.ProjectsDir, name, stage, req.BaseNorm, "user_edit", req.Parameters); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteStageParameters removes one stage override file.
func (h *Handler) DeleteStageParameters(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, stage := vars["name"], vars["stage"]
	if !validStage(stage) {
		http.Error(w, "Unknown stage", http.StatusNotFound)
		return
	}
	if err := DeleteStageOverride(h.ProjectsDir, name, stage); err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "no override") {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CopyBase materializes a base normative as editable stage files.
func (h *Handler) CopyBase(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, normative := vars["name"], vars["normative"]
	if !h.Store.Has(normative) {
		http.Error(w, "Unknown normative", http.StatusBadRequest)
		return
	}
	written, err := h.Store.CopyBaseToStages(h.ProjectsDir, name, normative)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"project_name": name,
		"normative":    normative,
		"files":        written,
	})
}

// Panels exposes the panel catalog.
func (h *Handler) Panels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"panels": h.Store.Panels()})
}
