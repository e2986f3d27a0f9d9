package conductor

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Handler struct{}

type request struct {
	Input   Input   `json:"input"`
	Factors Factors `json:"factors"`
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := Compute(req.Input, req.Factors)
	if err != nil {
		var pe *InvalidParameterError
		if errors.As(err, &pe) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"error": pe.Error(),
				"field": pe.Field,
			})
			return
		}
		http.Error(w, "Calculation error", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
