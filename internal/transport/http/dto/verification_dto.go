package dto

import "time"

type VerificationRequestCreate struct {
	Subject   string         `json:"subject" validate:"required,eth_address"`
	ProofKind string         `json:"proofKind" validate:"required"`
	Proof     map[string]any `json:"proof" validate:"required"`
}

type VerificationResponse struct {
	ID        string         `json:"id"`
	Requester string         `json:"requester"`
	Subject   string         `json:"subject"`
	ProofKind string         `json:"proofKind"`
	Status    string         `json:"status"`
	Proof     map[string]any `json:"proof,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type VerificationStatsResponse struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}
