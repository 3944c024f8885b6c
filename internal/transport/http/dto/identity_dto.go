package dto

import "time"

type RegisterIdentityRequest struct {
	DID       string `json:"did" validate:"required"`
	PublicKey string `json:"publicKey" validate:"required"`
}

type IdentityResponse struct {
	Address      string    `json:"address"`
	DID          string    `json:"did"`
	PublicKey    string    `json:"publicKey"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type RegisterIdentityResponse struct {
	Identity IdentityResponse `json:"identity"`
	TxHash   string           `json:"txHash"`
}

type AddressBatchRequest struct {
	Addresses []string `json:"addresses" validate:"required,min=1,max=100,dive,eth_address"`
}

type IdentityBatchEntry struct {
	Address  string            `json:"address"`
	Identity *IdentityResponse `json:"identity,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type IdentityBatchResponse struct {
	Results []IdentityBatchEntry `json:"results"`
}

type IdentityStatsResponse struct {
	Total           int64 `json:"total"`
	RegisteredToday int64 `json:"registeredToday"`
}
