package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/middleware"
)

func (s *Server) registerAdminRoutes(router *mux.Router) {
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin())

	admin.HandleFunc("/users/{id}/role", s.assignRole).Methods("POST")
	admin.HandleFunc("/users/{id}/teams", s.assignUserTeam).Methods("POST")
	admin.HandleFunc("/sops/{id}/teams", s.assignSopTeam).Methods("POST")
}

// assignRole handles POST /admin/users/{id}/role
func (s *Server) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role := auth.Role(req.Role)
	if !role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}

	if err := s.users.SetUserRole(r.Context(), userID, role); err != nil {
		s.writeDomainError(w, err)
		return
	}

	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"role":    role,
	}).Info("role assigned")
	httputil.WriteSuccess(w, user)
}

// assignUserTeam handles POST /admin/users/{id}/teams. Assigning an existing
// membership is a no-op success.
func (s *Server) assignUserTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		TeamID int64 `json:"team_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	// Existence first, so a bad reference reads as not-found
	if _, err := s.users.GetUser(r.Context(), userID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if _, err := s.teams.GetTeam(r.Context(), req.TeamID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	if err := s.engine.Store().AddMembership(r.Context(), userID, req.TeamID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]int64{
		"user_id": userID,
		"team_id": req.TeamID,
	})
}

// assignSopTeam handles POST /admin/sops/{id}/teams. The first edge switches
// the SOP from open to restricted; duplicates are no-op successes.
func (s *Server) assignSopTeam(w http.ResponseWriter, r *http.Request) {
	sopID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		TeamID int64 `json:"team_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.sops.Store().GetByID(r.Context(), sopID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if _, err := s.teams.GetTeam(r.Context(), req.TeamID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	if err := s.engine.Store().AddRestriction(r.Context(), sopID, req.TeamID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]int64{
		"sop_id":  sopID,
		"team_id": req.TeamID,
	})
}
