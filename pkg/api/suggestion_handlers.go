package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/middleware"
)

func (s *Server) registerSuggestionRoutes(router *mux.Router) {
	router.HandleFunc("/suggestions", s.listSuggestions).Methods("GET")
	router.HandleFunc("/suggestions", s.createSuggestion).Methods("POST")
	router.Handle("/suggestions/{id}/status",
		middleware.RequireOperation(auth.OpSuggestionReview)(
			http.HandlerFunc(s.updateSuggestionStatus))).Methods("PATCH")
}

// listSuggestions handles GET /suggestions
func (s *Server) listSuggestions(w http.ResponseWriter, r *http.Request) {
	list, err := s.suggestions.List(r.Context(), currentIdentity(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// createSuggestion handles POST /suggestions
func (s *Server) createSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SopKey  string `json:"sop_key"`
		RawText string `json:"raw_text"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SopKey, "sop_key") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RawText, "raw_text") {
		return
	}

	suggestion, err := s.suggestions.Create(r.Context(), currentIdentity(r), req.SopKey, req.RawText)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Summarize in the background; the sweep picks it up if this fails.
	s.worker.Kick(suggestion.ID)

	httputil.WriteCreated(w, suggestion)
}

// updateSuggestionStatus handles PATCH /suggestions/{id}/status
func (s *Server) updateSuggestionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Status, "status") {
		return
	}

	suggestion, err := s.suggestions.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, suggestion)
}
