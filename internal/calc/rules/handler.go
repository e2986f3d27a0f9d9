package rules

import (
	"encoding/json"
	"net/http"
)

type Handler struct{}

type request struct {
	Params    Params   `json:"params"`
	Standards []string `json:"standards"`
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	report := Evaluate(req.Params, req.Standards)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// Standards lists the supported rule groups.
func (h *Handler) Standards(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"standards": Standards()})
}
