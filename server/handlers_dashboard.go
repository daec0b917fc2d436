package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/restaurant-portal/account"
	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/internal/utils"
	"github.com/jrsteele09/restaurant-portal/portal"
	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/rs/zerolog/log"
)

func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, pageHome, s.pageData("Home"))
	}
}

// OverviewHandler renders the visible part of the sitemap menu tree
func (s *Server) OverviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData("Overview")
		data.AppCode = utils.FirstNonEmpty(r.URL.Query().Get("appCode"), portal.DefaultAppCode)

		if s.portal == nil {
			data.Error = "The restaurant service is not configured."
			s.render(w, http.StatusOK, pageOverview, data)
			return
		}

		menu, err := s.portal.Sitemap(r.Context(), data.AppCode)
		if s.sessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Err(err).Str("appCode", data.AppCode).Msg("Failed to load sitemap")
			data.Error = describeError(err)
		}
		data.Menu = menu.Visible()
		s.render(w, http.StatusOK, pageOverview, data)
	}
}

func (s *Server) UserProfileGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData("User profile")
		user, err := s.currentUserInfo(r)
		if s.sessionEnded(w, r, err) {
			return
		}
		if err != nil {
			data.Error = describeError(err)
		}
		data.User = user
		if r.URL.Query().Get("updated") == "1" {
			data.Notice = "Your profile has been updated."
		}
		s.render(w, http.StatusOK, pageUserProfile, data)
	}
}

// UserProfilePostHandler sends the changed profile fields to the backend and
// refreshes the session's user info
func (s *Server) UserProfilePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData("User profile")
		if err := r.ParseForm(); err != nil {
			data.Error = "The form could not be read."
			s.render(w, http.StatusBadRequest, pageUserProfile, data)
			return
		}
		if s.portal == nil {
			data.Error = "The restaurant service is not configured."
			s.render(w, http.StatusOK, pageUserProfile, data)
			return
		}

		update := profileUpdate(data.User, r.PostForm)
		if _, err := s.portal.UpdateProfile(r.Context(), update); err != nil {
			if s.sessionEnded(w, r, err) {
				return
			}
			log.Err(err).Msg("Failed to update profile")
			data.Error = describeError(err)
			s.render(w, statusFor(err), pageUserProfile, data)
			return
		}

		if _, err := s.session.FetchUserInfo(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh user info after profile update")
		}
		redirect(w, r, RouteUserProfile+"?updated=1")
	}
}

// profileUpdate keeps only the fields that differ from the current user info
func profileUpdate(current *session.UserInfo, form url.Values) portal.ProfileUpdate {
	if current == nil {
		current = &session.UserInfo{}
	}
	changed := func(field, was string) *string {
		v := strings.TrimSpace(form.Get(field))
		if v == was {
			return nil
		}
		return utils.OptionalString(v)
	}
	return portal.ProfileUpdate{
		Email:     changed("email", current.Email),
		FirstName: changed("firstName", current.FirstName),
		LastName:  changed("lastName", current.LastName),
	}
}

func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData("Reset password")
		data.MinChars = account.MinPasswordLength
		s.render(w, http.StatusOK, pageResetPassword, data)
	}
}

func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData("Reset password")
		data.MinChars = account.MinPasswordLength
		if err := r.ParseForm(); err != nil {
			data.Error = "The form could not be read."
			s.render(w, http.StatusBadRequest, pageResetPassword, data)
			return
		}
		if s.account == nil {
			data.Error = "Account management is not configured."
			s.render(w, http.StatusOK, pageResetPassword, data)
			return
		}

		user, err := s.currentUserInfo(r)
		if err == nil {
			err = s.account.ResetPassword(r.Context(), user.ID, r.PostForm.Get("password"), r.PostForm.Get("confirm"))
		}
		if s.sessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Err(err).Msg("Failed to reset password")
			data.Error = describeError(err)
			s.render(w, statusFor(err), pageResetPassword, data)
			return
		}

		data.Notice = "Your password has been changed."
		s.render(w, http.StatusOK, pageResetPassword, data)
	}
}

// currentUserInfo prefers the session's copy and fetches when none is held yet
func (s *Server) currentUserInfo(r *http.Request) (*session.UserInfo, error) {
	if info := s.session.Snapshot().UserInfo; info != nil {
		return info, nil
	}
	return s.session.FetchUserInfo(r.Context())
}

// sessionEnded sends the browser to log in again when a request could not refresh its credential
func (s *Server) sessionEnded(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, errors.ErrSessionExpired) {
		return false
	}
	target := RouteLogin + "?return_to=" + url.QueryEscape(r.URL.Path)
	redirect(w, r, target)
	return true
}

// describeError is the message shown in a page's error region
func describeError(err error) string {
	if apiErr, ok := gateway.AsAPIError(err); ok {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, errors.ErrValidation):
		return strings.ReplaceAll(err.Error(), "\n", "; ")
	case errors.Is(err, errors.ErrInvalidState):
		return "This sign in link has expired, please try again."
	case errors.Is(err, errors.ErrNotAuthenticated):
		return "You need to sign in first."
	case errors.Is(err, errors.ErrTransport):
		return gateway.FallbackMessage
	}
	return err.Error()
}
