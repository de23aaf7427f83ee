package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/middleware"
	"github.com/opsfloor/sophub/pkg/sops"
)

func (s *Server) registerSopRoutes(router *mux.Router) {
	router.HandleFunc("/sops", s.listSops).Methods("GET")
	router.HandleFunc("/sops/{key}", s.getSop).Methods("GET")
	router.Handle("/sops",
		middleware.RequireOperation(auth.OpSopCreate)(http.HandlerFunc(s.createSop))).Methods("POST")
	router.Handle("/sops/{key}",
		middleware.RequireOperation(auth.OpSopUpdate)(http.HandlerFunc(s.updateSop))).Methods("PUT")
	router.Handle("/sops/{key}/publish",
		middleware.RequireOperation(auth.OpSopPublish)(http.HandlerFunc(s.publishSop))).Methods("POST")
	router.Handle("/sops/{key}",
		middleware.RequireOperation(auth.OpSopDelete)(http.HandlerFunc(s.deleteSop))).Methods("DELETE")
}

// listSops handles GET /sops
func (s *Server) listSops(w http.ResponseWriter, r *http.Request) {
	list, err := s.sops.List(r.Context(), currentIdentity(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getSop handles GET /sops/{key}
func (s *Server) getSop(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	sop, err := s.sops.Get(r.Context(), currentIdentity(r), key)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, sop)
}

// createSop handles POST /sops
func (s *Server) createSop(w http.ResponseWriter, r *http.Request) {
	var req sops.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SopKey, "sop_key") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	sop, err := s.sops.Create(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.WithField("sop_key", sop.SopKey).Info("SOP created")
	httputil.WriteCreated(w, sop)
}

// updateSop handles PUT /sops/{key}
func (s *Server) updateSop(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	var req sops.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	sop, err := s.sops.Update(r.Context(), currentIdentity(r), key, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, sop)
}

// publishSop handles POST /sops/{key}/publish
func (s *Server) publishSop(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	sop, err := s.sops.Publish(r.Context(), currentIdentity(r), key)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.WithField("sop_key", sop.SopKey).Info("SOP published")
	httputil.WriteSuccess(w, sop)
}

// deleteSop handles DELETE /sops/{key}
func (s *Server) deleteSop(w http.ResponseWriter, r *http.Request) {
	key, ok := httputil.ParsePathStringOrError(w, r, "key")
	if !ok {
		return
	}

	if err := s.sops.Delete(r.Context(), currentIdentity(r), key); err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
