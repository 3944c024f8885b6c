package handlers

import (
	"errors"
	"net/http"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/pkg/validate"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	credsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/credential"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/dto"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

type CredentialHandler struct {
	service *credsvc.Service
}

func NewCredentialHandler(service *credsvc.Service) *CredentialHandler {
	return &CredentialHandler{service: service}
}

func (h *CredentialHandler) Generate(w http.ResponseWriter, r *http.Request) {
	caller, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req dto.GenerateCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	credential, err := h.service.Generate(r.Context(), caller.Address, req.Subject, req.Kind, req.Claims)
	if err != nil {
		handleCredentialError(w, err)
		return
	}

	envelope.Created(w, credentialResponse(credential))
}

func (h *CredentialHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.Credential) == 0 {
		writeBadRequest(w, "credential is required")
		return
	}

	result, err := h.service.Verify(r.Context(), req.Credential)
	if err != nil {
		handleCredentialError(w, err)
		return
	}

	envelope.OK(w, dto.VerifyCredentialResponse{
		Valid:  result.Valid,
		Reason: result.Reason,
	})
}

func (h *CredentialHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req dto.RevokeCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	txHash, err := h.service.Revoke(r.Context(), caller.Address, req.CredentialID)
	if err != nil {
		handleCredentialError(w, err)
		return
	}

	envelope.OK(w, dto.RevokeCredentialResponse{
		CredentialID: req.CredentialID,
		TxHash:       txHash,
	})
}

func handleCredentialError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credsvc.ErrInvalidInput):
		writeBadRequest(w, "request validation failed")
	case errors.Is(err, credsvc.ErrNotFound):
		writeNotFound(w, "Credential not found")
	case errors.Is(err, credsvc.ErrNotIssuer):
		envelope.Fail(w, http.StatusForbidden, "Forbidden", "only the issuing address may revoke a credential")
	default:
		writeChainError(w, err)
	}
}

func credentialResponse(credential credsvc.Credential) dto.CredentialResponse {
	return dto.CredentialResponse{
		ID:        credential.ID,
		Issuer:    credential.Issuer,
		Subject:   credential.Subject,
		Kind:      credential.Kind,
		Status:    credential.Status,
		Claims:    credential.Claims,
		IssuedAt:  credential.IssuedAt,
		RevokedAt: credential.RevokedAt,
	}
}
