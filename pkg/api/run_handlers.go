package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/httputil"
)

func (s *Server) registerRunRoutes(router *mux.Router) {
	router.HandleFunc("/runs", s.listRuns).Methods("GET")
	router.HandleFunc("/runs", s.startRun).Methods("POST")
	router.HandleFunc("/runs/{id}", s.getRun).Methods("GET")
	router.HandleFunc("/runs/{id}/check", s.checkRunStep).Methods("PATCH")
	router.HandleFunc("/runs/{id}/complete", s.completeRun).Methods("POST")
}

// listRuns handles GET /runs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	list, err := s.runs.List(r.Context(), currentIdentity(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// startRun handles POST /runs
func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SopKey string `json:"sop_key"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SopKey, "sop_key") {
		return
	}

	run, err := s.runs.Start(r.Context(), currentIdentity(r), req.SopKey)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, run)
}

// getRun handles GET /runs/{id}
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	run, err := s.runs.Get(r.Context(), currentIdentity(r), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, run)
}

// checkRunStep handles PATCH /runs/{id}/check
func (s *Server) checkRunStep(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		StepNo int `json:"step_no"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.StepNo <= 0 {
		httputil.WriteBadRequest(w, "step_no must be positive")
		return
	}

	step, err := s.runs.CheckStep(r.Context(), currentIdentity(r), id, req.StepNo)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, step)
}

// completeRun handles POST /runs/{id}/complete
func (s *Server) completeRun(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Passed        bool   `json:"passed"`
		ExceptionNote string `json:"exception_note"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	run, err := s.runs.Complete(r.Context(), currentIdentity(r), id, req.Passed, req.ExceptionNote)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, run)
}
