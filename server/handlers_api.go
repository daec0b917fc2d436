package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/rs/zerolog/log"
)

// SessionResponse is the session snapshot without the credential
type SessionResponse struct {
	Resolved   bool              `json:"resolved"`
	LoggedIn   bool              `json:"loggedIn"`
	UserInfo   *session.UserInfo `json:"userInfo"`
	FetchError string            `json:"fetchError,omitempty"`
}

func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.session.Snapshot()
		resp := SessionResponse{
			Resolved: snapshot.Resolved,
			LoggedIn: snapshot.LoggedIn,
			UserInfo: snapshot.UserInfo,
		}
		if snapshot.FetchErr != nil {
			resp.FetchError = describeError(snapshot.FetchErr)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Err(err).Msg("Failed to write session response")
		}
	}
}
