package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	contentJSON    = "application/json"
	contentProblem = "application/problem+json"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// writeJSON encodes v before touching the response; a value that cannot be
// encoded is answered with a 500 problem.
func writeJSON(w http.ResponseWriter, status int, v any) {
	writeBody(w, status, contentJSON, v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeBody(w, status, contentProblem, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

func writeBody(w http.ResponseWriter, status int, contentType string, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Default().Error("response encode failed", "status", status, "error", err)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(Problem{
			Type:   "about:blank",
			Title:  "Response encoding failed",
			Status: http.StatusInternalServerError,
			Detail: err.Error(),
		})
		status, contentType = http.StatusInternalServerError, contentProblem
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Default().Debug("response write failed", "error", err)
	}
}
