// Package handler implements the gateway's HTTP surface: the
// salience-evaluation endpoint, the administrative cache endpoints,
// and health reporting.
package handler

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// writeJSON encodes v as the JSON response body using goccy/go-json —
// the gateway's hot path (evaluate_salience) is high enough volume
// that encoding/json's reflection overhead is worth avoiding.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
