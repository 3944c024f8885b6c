package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/pkg/validate"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	repsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/reputation"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/dto"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

type ReputationHandler struct {
	service *repsvc.Service
}

func NewReputationHandler(service *repsvc.Service) *ReputationHandler {
	return &ReputationHandler{service: service}
}

func (h *ReputationHandler) Score(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !validate.EthAddress(address) {
		writeBadRequest(w, "invalid address")
		return
	}

	score, err := h.service.Score(r.Context(), address)
	if err != nil {
		handleReputationError(w, err)
		return
	}

	envelope.OK(w, scoreResponse(score))
}

func (h *ReputationHandler) IssueEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req dto.ReputationEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	txHash, err := h.service.IssueEvent(r.Context(), caller.Address, req.Subject, req.Kind, req.Weight)
	if err != nil {
		handleReputationError(w, err)
		return
	}

	envelope.Created(w, dto.ReputationEventResponse{TxHash: txHash})
}

func (h *ReputationHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req dto.AddressBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := h.service.Batch(r.Context(), req.Addresses)
	if err != nil {
		handleReputationError(w, err)
		return
	}

	results := make([]dto.ReputationBatchEntry, 0, len(entries))
	for _, entry := range entries {
		result := dto.ReputationBatchEntry{
			Address: entry.Address,
			Error:   entry.Error,
		}
		if entry.Score != nil {
			response := scoreResponse(*entry.Score)
			result.Score = &response
		}
		results = append(results, result)
	}

	envelope.OK(w, dto.ReputationBatchResponse{Results: results})
}

func handleReputationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repsvc.ErrInvalidInput):
		writeBadRequest(w, "request validation failed")
	case errors.Is(err, repsvc.ErrNotFound):
		writeNotFound(w, "Reputation score not found")
	default:
		writeChainError(w, err)
	}
}

func scoreResponse(score repsvc.Score) dto.ReputationScoreResponse {
	return dto.ReputationScoreResponse{
		Address:    score.Address,
		Score:      score.Score,
		EventCount: score.EventCount,
		UpdatedAt:  score.UpdatedAt,
	}
}
