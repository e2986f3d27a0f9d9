package validate

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"Helios/internal/project"
)

type Handler struct {
	Store *project.Store
}

type response struct {
	Project string   `json:"project"`
	Valid   bool     `json:"valid"`
	Reports []Report `json:"reports"`
}

// Project validates every sheet of a project workbook in one pass.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	wb, err := h.Store.OpenWorkbook(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer wb.Close()

	var reports []Report

	if info, err := wb.ProjectInfo(); err != nil {
		reports = append(reports, Report{Sheet: "project_info", Errors: []string{err.Error()}})
	} else {
		reports = append(reports, ProjectInfo(info))
	}

	if rows, err := wb.StringRows(); err != nil {
		reports = append(reports, Report{Sheet: "dc_string_circuits", Errors: []string{err.Error()}})
	} else {
		reports = append(reports, DCStrings(rows))
	}

	if rows, err := wb.CN1Rows(); err != nil {
		reports = append(reports, Report{Sheet: "dc_cn1_circuits", Errors: []string{err.Error()}})
	} else {
		reports = append(reports, CN1Circuits(rows))
	}

	if rows, err := wb.MVRows(); err != nil {
		reports = append(reports, Report{Sheet: "mv_circuits", Errors: []string{err.Error()}})
	} else {
		reports = append(reports, MVCircuits(rows))
	}

	valid := true
	for i := range reports {
		if !reports[i].Valid() {
			valid = false
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{Project: name, Valid: valid, Reports: reports})
}
