package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/ai"
	"github.com/opsfloor/sophub/pkg/httputil"
)

func (s *Server) registerAIRoutes(router *mux.Router) {
	assist := router.PathPrefix("/ai").Subrouter()
	assist.Use(s.assistLimiter.Handler)

	assist.HandleFunc("/draft", s.aiDraft).Methods("POST")
	assist.HandleFunc("/clean", s.aiClean).Methods("POST")
}

// aiDraft handles POST /ai/draft
func (s *Server) aiDraft(w http.ResponseWriter, r *http.Request) {
	var req ai.DraftInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	draft, err := s.aiClient.Draft(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"title":      req.Title,
		"department": req.Department,
		"draft_md":   draft,
	})
}

// aiClean handles POST /ai/clean
func (s *Server) aiClean(w http.ResponseWriter, r *http.Request) {
	var req ai.CleanInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	cleaned, err := s.aiClient.Clean(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"clean_md": cleaned})
}
