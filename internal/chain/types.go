package chain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotRegistered = errors.New("identity not registered")

// CallError classifies a failed chain call. Retryable marks transport
// failures and 5xx-style node errors; contract reverts are never
// retryable.
type CallError struct {
	Op        string
	Code      int
	Retryable bool
	Err       error
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.Code != 0:
		return fmt.Sprintf("%s: code=%d: %v", e.Op, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("%s: code=%d", e.Op, e.Code)
	default:
		return e.Op
	}
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsRetryable(err error) bool {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Retryable
	}
	return false
}

type Identity struct {
	Address      string    `json:"address"`
	DID          string    `json:"did"`
	PublicKey    string    `json:"publicKey"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type ReputationScore struct {
	Address    string    `json:"address"`
	Score      int64     `json:"score"`
	EventCount int64     `json:"eventCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type TxReceipt struct {
	TxHash string `json:"txHash"`
}
