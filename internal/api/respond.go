package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/pagewright/internal/element"
	"github.com/dgallion1/pagewright/internal/oracle"
	"github.com/dgallion1/pagewright/internal/pipeline"
)

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps an engine or oracle error to a status and a stable code
// clients can branch on.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest), errors.Is(err, oracle.ErrUnknownModel):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, element.ErrInvalidTarget):
		return http.StatusBadRequest, "invalid_target"
	case errors.Is(err, element.ErrTargetNotFound):
		return http.StatusNotFound, "target_not_found"
	case errors.Is(err, element.ErrTargetAmbiguous):
		return http.StatusConflict, "target_ambiguous"
	case errors.Is(err, element.ErrParse):
		return http.StatusUnprocessableEntity, "parse_failed"
	case errors.Is(err, pipeline.ErrUnusableOutput), errors.Is(err, element.ErrEmptyReplacement):
		return http.StatusBadGateway, "unusable_output"
	case errors.Is(err, oracle.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "oracle_timeout"
	case oracle.IsRetryable(err):
		return http.StatusServiceUnavailable, "oracle_busy"
	}
	return http.StatusBadGateway, "oracle_error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

// decodeJSON reads a JSON body no larger than the configured limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
