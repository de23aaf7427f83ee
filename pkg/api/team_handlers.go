package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/opsfloor/sophub/pkg/httputil"
	"github.com/opsfloor/sophub/pkg/middleware"
)

func (s *Server) registerTeamRoutes(router *mux.Router) {
	router.HandleFunc("/teams", s.listTeams).Methods("GET")
	router.Handle("/teams",
		middleware.RequireAdmin()(http.HandlerFunc(s.createTeam))).Methods("POST")
}

// listTeams handles GET /teams
func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	list, err := s.teams.ListTeams(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// createTeam handles POST /teams
func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Department string `json:"department"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	team, err := s.teams.CreateTeam(r.Context(), req.Name, req.Department)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.WithField("team", team.Name).Info("team created")
	httputil.WriteCreated(w, team)
}
