package envelope

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape every API endpoint returns.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func Write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// The status line is already gone; nothing useful can be sent.
		return
	}
}

func OK(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func Fail(w http.ResponseWriter, status int, errText, message string) {
	Write(w, status, Envelope{Success: false, Error: errText, Message: message})
}
