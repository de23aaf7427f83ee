package api

import (
	"errors"
	"net/http"

	"github.com/opsfloor/sophub/pkg/access"
	"github.com/opsfloor/sophub/pkg/ai"
	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/runs"
	"github.com/opsfloor/sophub/pkg/sops"
	"github.com/opsfloor/sophub/pkg/suggestions"
	"github.com/opsfloor/sophub/pkg/teams"
)

// writeDomainError maps domain sentinel errors to HTTP responses. Anything
// unrecognized is a 500; backend failures are never masked as access denials.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrForbidden):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, sops.ErrSopNotFound),
		errors.Is(err, runs.ErrRunNotFound),
		errors.Is(err, suggestions.ErrSuggestionNotFound),
		errors.Is(err, teams.ErrTeamNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, sops.ErrSopKeyExists),
		errors.Is(err, teams.ErrTeamExists),
		errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, runs.ErrRunCompleted):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, suggestions.ErrInvalidStatus):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ai.ErrNotConfigured), errors.Is(err, ai.ErrEmptyInput):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ai.ErrUpstream):
		httputil.WriteErrorMessage(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		httputil.WriteInternalError(w, err)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	httputil.WriteJSON(w, status, data)
}
