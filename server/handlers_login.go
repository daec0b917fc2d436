package server

import (
	"net/http"

	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/internal/utils"
	"github.com/rs/zerolog/log"
)

// LoginHandler ends any current session, then sends the browser to the provider.
// A session that is already gone still has its stale mirror entries removed.
func (s *Server) LoginHandler() http.HandlerFunc {
	return s.beginLogin("", "Log in", true)
}

// RegisterHandler sends the browser to the provider's own registration page
func (s *Server) RegisterHandler() http.HandlerFunc {
	return s.beginLogin(identity.ActionRegister, "Register", true)
}

// RecoveryHandler asks the provider to run its update-password action
func (s *Server) RecoveryHandler() http.HandlerFunc {
	return s.beginLogin(identity.ActionUpdatePassword, "Password recovery", false)
}

func (s *Server) beginLogin(action, title string, resetSession bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if resetSession {
			if s.session.Snapshot().LoggedIn {
				s.session.Logout(ctx)
			} else {
				s.session.ClearPersisted(ctx)
			}
		}

		authURL, err := s.login.BeginLogin(identity.LoginOptions{
			RedirectURI: s.callbackURL(),
			Action:      action,
			ReturnTo:    safeReturnTo(r.URL.Query().Get("return_to")),
		})
		if err != nil {
			log.Err(err).Str("action", action).Msg("Failed to start login")
			data := s.pageData(title)
			data.Error = "The sign in service is unavailable, please try again shortly."
			s.render(w, statusFor(err), pageMessage, data)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the authorization code flow started by beginLogin
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		data := s.pageData("Sign in")

		if providerErr := query.Get("error"); providerErr != "" {
			log.Warn().Str("error", providerErr).Str("description", query.Get("error_description")).Msg("Provider returned an error")
			data.Error = "Sign in was not completed: " + utils.FirstNonEmpty(query.Get("error_description"), providerErr)
			s.render(w, http.StatusBadRequest, pageMessage, data)
			return
		}

		state, code := query.Get("state"), query.Get("code")
		if state == "" || code == "" {
			data.Error = "Sign in was not completed: the response is missing its state or code."
			s.render(w, http.StatusBadRequest, pageMessage, data)
			return
		}

		returnTo, err := s.login.CompleteLogin(r.Context(), state, code)
		if err != nil {
			log.Err(err).Msg("Failed to complete login")
			data.Error = describeError(err)
			s.render(w, statusFor(err), pageMessage, data)
			return
		}

		redirect(w, r, safeReturnTo(returnTo))
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout(r.Context())
		redirect(w, r, RouteHome)
	}
}

// statusFor maps an error to the status of the page that reports it
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrInvalidState), errors.Is(err, errors.ErrNonceMismatch):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrSessionExpired), errors.Is(err, errors.ErrNotAuthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
