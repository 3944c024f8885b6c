package dto

import (
	"encoding/json"
	"time"
)

type GenerateCredentialRequest struct {
	Subject string         `json:"subject" validate:"required,eth_address"`
	Kind    string         `json:"kind" validate:"required"`
	Claims  map[string]any `json:"claims"`
}

type CredentialResponse struct {
	ID        string         `json:"id"`
	Issuer    string         `json:"issuer"`
	Subject   string         `json:"subject"`
	Kind      string         `json:"kind"`
	Status    string         `json:"status"`
	Claims    map[string]any `json:"claims,omitempty"`
	IssuedAt  time.Time      `json:"issuedAt"`
	RevokedAt *time.Time     `json:"revokedAt,omitempty"`
}

type VerifyCredentialRequest struct {
	Credential json.RawMessage `json:"credential" validate:"required"`
}

type VerifyCredentialResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type RevokeCredentialRequest struct {
	CredentialID string `json:"credentialId" validate:"required"`
}

type RevokeCredentialResponse struct {
	CredentialID string `json:"credentialId"`
	TxHash       string `json:"txHash"`
}
