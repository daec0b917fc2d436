// Package server is the loopback web portal. It renders the session held by the
// session manager and drives browser logins through the identity provider.
package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/restaurant-portal/account"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/config"
	"github.com/jrsteele09/restaurant-portal/portal"
	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the portal renders and drives
type Deps struct {
	Provider identity.Provider
	Login    identity.RedirectLogin
	Session  *session.Manager
	Portal   *portal.Client
	Account  *account.Service
}

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	pages   map[string]*template.Template
	baseURL string

	provider identity.Provider
	login    identity.RedirectLogin
	session  *session.Manager
	portal   *portal.Client
	account  *account.Service
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Provider == nil || deps.Login == nil || deps.Session == nil {
		return nil, fmt.Errorf("[Server New] provider, login and session are required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		pages:    pages,
		baseURL:  cfg.GetBaseURL(),
		provider: deps.Provider,
		login:    deps.Login,
		session:  deps.Session,
		portal:   deps.Portal,
		account:  deps.Account,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func logError(method, path string, err error) {
	log.Error().Msgf("[%-19s] %s %s", colouredMethod(method), path, Red+err.Error()+ResetColor)
}

// callbackURL is where the provider sends the browser back after login
func (s *Server) callbackURL() string {
	return s.baseURL + RouteCallback
}
