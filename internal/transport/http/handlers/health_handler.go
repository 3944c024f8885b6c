package handlers

import (
	"net/http"
	"time"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/dto"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	envelope.OK(w, dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}
