package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/pkg/validate"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	verifsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/verification"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/dto"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

type VerificationHandler struct {
	service *verifsvc.Service
}

func NewVerificationHandler(service *verifsvc.Service) *VerificationHandler {
	return &VerificationHandler{service: service}
}

func (h *VerificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req dto.VerificationRequestCreate
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	request, err := h.service.CreateRequest(r.Context(), caller.Address, req.Subject, req.ProofKind, req.Proof)
	if err != nil {
		handleVerificationError(w, err)
		return
	}

	envelope.Created(w, verificationResponse(request))
}

func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	request, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleVerificationError(w, err)
		return
	}

	envelope.OK(w, verificationResponse(request))
}

func (h *VerificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeInternal(w)
		return
	}

	envelope.OK(w, dto.VerificationStatsResponse{
		Total:    stats.Total,
		ByStatus: stats.ByStatus,
	})
}

func handleVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verifsvc.ErrInvalidInput):
		writeBadRequest(w, "request validation failed")
	case errors.Is(err, verifsvc.ErrNotFound):
		writeNotFound(w, "Verification request not found")
	default:
		writeChainError(w, err)
	}
}

func verificationResponse(request verifsvc.Request) dto.VerificationResponse {
	return dto.VerificationResponse{
		ID:        request.ID,
		Requester: request.Requester,
		Subject:   request.Subject,
		ProofKind: request.ProofKind,
		Status:    request.Status,
		Proof:     request.Proof,
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
	}
}
