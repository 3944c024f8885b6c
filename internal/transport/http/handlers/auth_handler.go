package handlers

import (
	"errors"
	"net/http"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/pkg/validate"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	identitysvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/identity"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/dto"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

type AuthHandler struct {
	service    *authsvc.Service
	identities *identitysvc.Service
}

func NewAuthHandler(service *authsvc.Service, identities *identitysvc.Service) *AuthHandler {
	return &AuthHandler{service: service, identities: identities}
}

func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req dto.ChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	nonce, err := h.service.Challenge(r.Context(), req.Address)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	envelope.OK(w, dto.ChallengeResponse{
		Address: req.Address,
		Nonce:   nonce,
		Message: authsvc.ChallengeMessage(nonce),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.service.Login(r.Context(), req.Address, req.Nonce, req.Signature)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	envelope.OK(w, tokensResponse(res))
}

// Register bootstraps a new user: the signed challenge both proves
// wallet ownership and authorizes the chain identity registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.service.Login(r.Context(), req.Address, req.Nonce, req.Signature)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	identity, txHash, err := h.identities.Register(r.Context(), req.Address, req.DID, req.PublicKey)
	if err != nil {
		if errors.Is(err, identitysvc.ErrInvalidInput) {
			writeBadRequest(w, "invalid identity fields")
			return
		}
		writeChainError(w, err)
		return
	}

	envelope.Created(w, dto.RegisterResponse{
		AuthTokensResponse: tokensResponse(res),
		Identity:           identityResponse(identity),
		TxHash:             txHash,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	envelope.OK(w, tokensResponse(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		handleAuthError(w, err)
		return
	}

	envelope.OK(w, dto.LogoutResponse{LoggedOut: true})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.service.LogoutAll(r.Context(), identity.Address); err != nil {
		handleAuthError(w, err)
		return
	}

	envelope.OK(w, dto.LogoutResponse{LoggedOut: true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	envelope.OK(w, dto.UserResponse{
		Address: identity.Address,
		Role:    identity.Role,
	})
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		writeBadRequest(w, "request validation failed")
	case errors.Is(err, authsvc.ErrSignerMismatch):
		envelope.Fail(w, http.StatusUnauthorized, "Signature verification failed", "")
	case errors.Is(err, authsvc.ErrUnauthorized):
		writeUnauthorized(w)
	default:
		writeInternal(w)
	}
}

func tokensResponse(res authsvc.AuthResult) dto.AuthTokensResponse {
	return dto.AuthTokensResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    expiresIn(res.AccessExpires),
		User: dto.UserResponse{
			Address: res.User.Address,
			Role:    res.User.Role,
		},
	}
}
