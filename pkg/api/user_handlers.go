package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/middleware"
)

func (s *Server) registerUserRoutes(router *mux.Router) {
	router.Handle("/users",
		middleware.RequireAdmin()(http.HandlerFunc(s.listUsers))).Methods("GET")
	router.Handle("/users",
		middleware.RequireAdmin()(http.HandlerFunc(s.createUser))).Methods("POST")
}

// listUsers handles GET /users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.ListUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// createUser handles POST /users, for pre-provisioning accounts ahead of
// first login
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string    `json:"name"`
		Email string    `json:"email"`
		Role  auth.Role `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleContributor
	}
	if !req.Role.Valid() {
		httputil.WriteBadRequest(w, "unknown role")
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.WithField("user_id", user.ID).Info("user created")
	httputil.WriteCreated(w, user)
}
