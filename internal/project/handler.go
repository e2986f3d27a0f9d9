package project

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	Store *Store
}

const MaxUploadSize = 10 << 20 // 10MB

type createRequest struct {
	Name        string `json:"name"`
	Normative   string `json:"normative"`
	Description string `json:"description"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Normative == "" {
		req.Normative = "IEC"
	}
	if err := h.Store.Create(req.Name, req.Normative, req.Description); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"name": req.Name, "normative": req.Normative})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.List()
	if err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []Summary{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"projects": projects, "count": len(projects)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.Store.Delete(name, confirm); err != nil {
		status := http.StatusBadRequest
		if !confirm {
			status = http.StatusPreconditionRequired
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload receives the project spreadsheet as multipart form data under the
// "file" field and structure-checks it before accepting.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !h.Store.Exists(name) {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		http.Error(w, "File too big", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := h.Store.SaveWorkbook(name, file); err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	wb, err := h.Store.OpenWorkbook(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer wb.Close()

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"name": name, "sheets": wb.Info()})
}

// Sheets reports the workbook structure without running any calculation.
func (h *Handler) Sheets(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	wb, err := h.Store.OpenWorkbook(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer wb.Close()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wb.Info())
}

// Info returns the parsed project_info sheet merged with the stored config.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cfg, err := h.Store.LoadConfig(name)
	if err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	resp := map[string]any{"name": name, "config": cfg}
	if wb, err := h.Store.OpenWorkbook(name); err == nil {
		defer wb.Close()
		if info, err := wb.ProjectInfo(); err == nil {
			resp["project_info"] = info
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpdateConfig changes the project's base normative or description.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !h.Store.Exists(name) {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	cfg, err := h.Store.LoadConfig(name)
	if err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	if req.Normative != "" {
		cfg.Normative = req.Normative
	}
	if req.Description != "" {
		cfg.Description = req.Description
	}
	if err := h.Store.SaveConfig(name, cfg); err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	_ = h.Store.AppendLog(name, "config", "configuration updated")
	w.WriteHeader(http.StatusNoContent)
}
