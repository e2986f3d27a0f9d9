package simulate

import (
	"encoding/json"
	"errors"
	"net/http"

	"Helios/internal/calc/conductor"
)

type Handler struct{}

type request struct {
	Input     conductor.Input    `json:"input"`
	Factors   conductor.Factors  `json:"factors"`
	Overrides map[string]float64 `json:"overrides"`
}

type response struct {
	Baseline  conductor.Run `json:"baseline"`
	Simulated conductor.Run `json:"simulated"`
	Delta     Delta         `json:"delta"`
}

// Simulate runs one what-if pass: baseline factors plus the requested
// overrides, both evaluated server-side so the client never recomputes.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	sess, err := NewSession(req.Input, req.Factors)
	if err != nil {
		writeCalcError(w, err)
		return
	}
	for key, value := range req.Overrides {
		if err := sess.SetParameter(key, value); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	sim, delta, err := sess.Recompute()
	if err != nil {
		writeCalcError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{Baseline: sess.Baseline(), Simulated: sim, Delta: delta})
}

func writeCalcError(w http.ResponseWriter, err error) {
	var pe *conductor.InvalidParameterError
	if errors.As(err, &pe) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"error": pe.Error(), "field": pe.Field})
		return
	}
	http.Error(w, "Calculation error", http.StatusBadRequest)
}
