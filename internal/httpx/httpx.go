package httpx

import (
	"encoding/json"
	"net/http"
)

// StatusEnvelope is the fixed error/success shape consumed by the cron
// caller and the dashboard. Every response from the sync surface is one of
// exactly two forms: {"status":"success",...} or {"status":"error",
// "message":...}.
type StatusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SyncSuccess is the 200 body of a completed sync run.
type SyncSuccess struct {
	Status        string `json:"status"`
	RowsProcessed int    `json:"rows_processed"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError emits the error envelope with the given HTTP status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, StatusEnvelope{Status: "error", Message: message})
}
