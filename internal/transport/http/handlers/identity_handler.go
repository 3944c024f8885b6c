package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/pkg/validate"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	identitysvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/identity"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/dto"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

type IdentityHandler struct {
	service *identitysvc.Service
}

func NewIdentityHandler(service *identitysvc.Service) *IdentityHandler {
	return &IdentityHandler{service: service}
}

func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !validate.EthAddress(address) {
		writeBadRequest(w, "invalid address")
		return
	}

	identity, err := h.service.Get(r.Context(), address)
	if err != nil {
		handleIdentityError(w, err)
		return
	}

	envelope.OK(w, identityResponse(identity))
}

func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req dto.RegisterIdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	identity, txHash, err := h.service.Register(r.Context(), caller.Address, req.DID, req.PublicKey)
	if err != nil {
		handleIdentityError(w, err)
		return
	}

	envelope.Created(w, dto.RegisterIdentityResponse{
		Identity: identityResponse(identity),
		TxHash:   txHash,
	})
}

func (h *IdentityHandler) Batch(w http.ResponseWriter, r *http.Request) {
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
		handleIdentityError(w, err)
		return
	}

	results := make([]dto.IdentityBatchEntry, 0, len(entries))
	for _, entry := range entries {
		result := dto.IdentityBatchEntry{
			Address: entry.Address,
			Error:   entry.Error,
		}
		if entry.Identity != nil {
			response := identityResponse(*entry.Identity)
			result.Identity = &response
		}
		results = append(results, result)
	}

	envelope.OK(w, dto.IdentityBatchResponse{Results: results})
}

func (h *IdentityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeInternal(w)
		return
	}

	envelope.OK(w, dto.IdentityStatsResponse{
		Total:           stats.Total,
		RegisteredToday: stats.RegisteredLast,
	})
}

func handleIdentityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identitysvc.ErrInvalidInput):
		writeBadRequest(w, "request validation failed")
	case errors.Is(err, identitysvc.ErrBatchTooBig):
		writeBadRequest(w, "too many addresses in one batch")
	case errors.Is(err, identitysvc.ErrNotFound):
		writeNotFound(w, "Identity not found")
	default:
		writeChainError(w, err)
	}
}

func identityResponse(identity identitysvc.Identity) dto.IdentityResponse {
	return dto.IdentityResponse{
		Address:      identity.Address,
		DID:          identity.DID,
		PublicKey:    identity.PublicKey,
		RegisteredAt: identity.RegisteredAt,
	}
}
