package api

import (
	"net/http"

	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/middleware"
)

// login handles POST /auth/login. Unknown emails are provisioned on the spot
// as contributors.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	user, err := s.users.ProvisionUser(r.Context(), req.Email, req.Name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")
	httputil.WriteSuccess(w, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// me handles GET /auth/me, echoing the verified token claims
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	httputil.WriteSuccess(w, identity)
}

// currentIdentity returns the authenticated identity for a request on the
// authed subrouter
func currentIdentity(r *http.Request) auth.Identity {
	if identity := middleware.GetIdentity(r); identity != nil {
		return *identity
	}
	return auth.Identity{}
}
