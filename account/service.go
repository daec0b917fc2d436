// Package account covers self-service account operations done through the
// identity provider's admin REST API.
package account

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
)

type Requester interface {
	Post(ctx context.Context, rawURL string, data any, opts gateway.Options) (*gateway.Response, error)
	Put(ctx context.Context, rawURL string, data any, opts gateway.Options) (*gateway.Response, error)
}

type Registration struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth string
	Gender      string
	Password    string
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	FirstName   string              `json:"firstName"`
	LastName    string              `json:"lastName"`
	Enabled     bool                `json:"enabled"`
	Credentials []credential        `json:"credentials"`
	Attributes  map[string][]string `json:"attributes"`
}

type Service struct {
	api      Requester
	provider identity.Provider
}

func NewService(api Requester, provider identity.Provider) *Service {
	return &Service{api: api, provider: provider}
}

// Register creates the user in the realm. The email doubles as the username.
func (s *Service) Register(ctx context.Context, r Registration) error {
	if err := r.Validate(); err != nil {
		return err
	}

	user := userRepresentation{
		Username:  r.Email,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Enabled:   true,
		Credentials: []credential{{
			Type:  "password",
			Value: r.Password,
		}},
		Attributes: map[string][]string{
			"dateOfBirth": {r.DateOfBirth},
			"gender":      {r.Gender},
		},
	}

	usersURL := identity.AdminUsersURL(s.provider.AuthServerURL(), s.provider.Realm())
	if _, err := s.api.Post(ctx, usersURL, user, gateway.Options{}); err != nil {
		return fmt.Errorf("[account Register] %w", err)
	}
	return nil
}

// ResetPassword sets a new password for subject once it passes validation
func (s *Service) ResetPassword(ctx context.Context, subject, newPassword, confirm string) error {
	if subject == "" {
		return errors.ErrNotAuthenticated
	}
	if err := ValidateNewPassword(newPassword, confirm); err != nil {
		return err
	}

	resetURL := identity.AdminUsersURL(s.provider.AuthServerURL(), s.provider.Realm()) +
		"/" + url.PathEscape(subject) + "/reset-password"
	body := credential{Type: "password", Value: newPassword}
	if _, err := s.api.Put(ctx, resetURL, body, gateway.Options{}); err != nil {
		return fmt.Errorf("[account ResetPassword] %w", err)
	}
	return nil
}
