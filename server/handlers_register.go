package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/restaurant-portal/account"
	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

// RegisterFormHandler renders the self-service registration form. Without an
// account service the provider's registration page is used instead.
func (s *Server) RegisterFormHandler() http.HandlerFunc {
	viaProvider := s.RegisterHandler()
	return func(w http.ResponseWriter, r *http.Request) {
		if s.account == nil {
			viaProvider(w, r)
			return
		}
		data := s.pageData("Register")
		data.MinChars = account.MinPasswordLength
		s.render(w, http.StatusOK, pageRegister, data)
	}
}

// RegisterPostHandler creates the account through the admin API, then starts a login
func (s *Server) RegisterPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData("Register")
		data.MinChars = account.MinPasswordLength
		if err := r.ParseForm(); err != nil {
			data.Error = "The form could not be read."
			s.render(w, http.StatusBadRequest, pageRegister, data)
			return
		}
		data.Form = r.PostForm
		if s.account == nil {
			data.Error = "Account management is not configured."
			s.render(w, http.StatusServiceUnavailable, pageRegister, data)
			return
		}

		reg := registrationFrom(r.PostForm)
		err := confirmPassword(reg.Password, r.PostForm.Get("confirm"))
		if err == nil {
			err = s.account.Register(r.Context(), reg)
		}
		if err != nil {
			status, message := registrationFailure(err)
			log.Warn().Err(err).Int("status", status).Msg("Registration rejected")
			data.Error = message
			s.render(w, status, pageRegister, data)
			return
		}

		log.Info().Msg("Account registered")
		redirect(w, r, RouteLogin)
	}
}

func registrationFrom(form url.Values) account.Registration {
	field := func(key string) string { return strings.TrimSpace(form.Get(key)) }
	return account.Registration{
		FirstName:   field("firstName"),
		LastName:    field("lastName"),
		Email:       field("email"),
		DateOfBirth: field("dateOfBirth"),
		Gender:      field("gender"),
		Password:    form.Get("password"),
	}
}

func confirmPassword(password, confirm string) error {
	if password != confirm {
		return fmt.Errorf("%w: password confirmation does not match", errors.ErrValidation)
	}
	return nil
}

func registrationFailure(err error) (int, string) {
	if apiErr, ok := gateway.AsAPIError(err); ok && apiErr.Status == http.StatusConflict {
		return http.StatusConflict, "An account with this email address already exists."
	}
	return statusFor(err), describeError(err)
}
