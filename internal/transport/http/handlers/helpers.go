package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/chain"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	envelope.Fail(w, http.StatusBadRequest, "Validation failed", message)
}

func writeUnauthorized(w http.ResponseWriter) {
	envelope.Fail(w, http.StatusUnauthorized, "Authentication required", "")
}

func writeNotFound(w http.ResponseWriter, errText string) {
	envelope.Fail(w, http.StatusNotFound, errText, "")
}

func writeInternal(w http.ResponseWriter) {
	envelope.Fail(w, http.StatusInternalServerError, "Internal server error", "")
}

// writeChainError maps chain boundary failures to 502. Revert details
// stay server-side; clients only learn the call was rejected upstream.
func writeChainError(w http.ResponseWriter, err error) {
	var callErr *chain.CallError
	if errors.As(err, &callErr) {
		if chain.IsRevert(err) {
			envelope.Fail(w, http.StatusBadGateway, "Chain call rejected", "the chain layer rejected the operation")
			return
		}
		envelope.Fail(w, http.StatusBadGateway, "Chain unavailable", "the chain layer did not answer")
		return
	}
	writeInternal(w)
}

func expiresIn(expiresAt time.Time) int64 {
	seconds := int64(time.Until(expiresAt).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
