package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/arcade/internal/backend"
	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/pkg/logger"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code,omitempty"` // upstream status, when there was one
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondUpstreamError maps backend failures onto gateway statuses
func respondUpstreamError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		te *backend.TransportError
		se *backend.SchemaError
		pe *backend.ParseError
	)

	switch {
	case errors.Is(err, contracts.ErrInvalidQuery):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "upstream timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nobody is listening
		log.Debug("Request canceled")
	case errors.As(err, &te):
		log.WithError(err).Warn("Upstream request failed")
		if te.StatusCode == http.StatusNotFound {
			respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found", StatusCode: te.StatusCode})
			return
		}
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), StatusCode: te.StatusCode})
	case errors.As(err, &se), errors.As(err, &pe):
		log.WithError(err).Warn("Upstream response rejected")
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		log.WithError(err).Error("Unexpected upstream error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody reads an optional JSON body; an empty body leaves v untouched
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
