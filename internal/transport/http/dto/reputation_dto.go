package dto

import "time"

type ReputationScoreResponse struct {
	Address    string    `json:"address"`
	Score      int64     `json:"score"`
	EventCount int64     `json:"eventCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ReputationEventRequest struct {
	Subject string `json:"subject" validate:"required,eth_address"`
	Kind    string `json:"kind" validate:"required"`
	Weight  int64  `json:"weight" validate:"min=-100,max=100"`
}

type ReputationEventResponse struct {
	TxHash string `json:"txHash"`
}

type ReputationBatchEntry struct {
	Address string                   `json:"address"`
	Score   *ReputationScoreResponse `json:"score,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

type ReputationBatchResponse struct {
	Results []ReputationBatchEntry `json:"results"`
}
