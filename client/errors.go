package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrAuthRequired means the request needs an access token and the store
// has none. No network call is made in that case.
var ErrAuthRequired = errors.New("authentication required")

// APIError is a terminal server answer: the request reached the API and
// was refused. It is never retried.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("api error: status=%d: %s: %s", e.Status, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("api error: status=%d: %s", e.Status, e.Code)
	default:
		return fmt.Sprintf("api error: status=%d", e.Status)
	}
}

// RequestError is a transport-level failure before a server answer
// arrived. Retryable failures may be attempted again.
type RequestError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsRetryable(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retryable
	}
	return false
}

func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
