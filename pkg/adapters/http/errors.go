package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Report any    `json:"report,omitempty"`
}

var badRequest = []error{
	domain.ErrBrokenReference,
	domain.ErrMissingRoot,
	domain.ErrUnknownNodeType,
	domain.ErrInvalidPortalNode,
	domain.ErrCyclicPortalReference,
	domain.ErrNodeCollision,
	domain.ErrIdentifierCollision,
	domain.ErrUnsanitisableReplacement,
	domain.ErrEmptySearch,
	domain.ErrEmptySuffix,
	domain.ErrNotTemplated,
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrFlowNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrNothingToPublish):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, report any) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Report: report})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
