package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/portal"
	"github.com/jrsteele09/restaurant-portal/session"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

// Page templates, each rendered inside the layout
const (
	pageHome          = "home.html"
	pageLoading       = "loading.html"
	pageMessage       = "message.html"
	pageOverview      = "overview.html"
	pageUserProfile   = "user_profile.html"
	pageResetPassword = "reset_password.html"
	pageRegister      = "register.html"
)

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

func parsePages() (map[string]*template.Template, error) {
	fsys := TemplateFilesFS()
	pages := map[string]*template.Template{}
	for _, name := range []string{pageHome, pageLoading, pageMessage, pageOverview, pageUserProfile, pageResetPassword, pageRegister} {
		tmpl, err := template.ParseFS(fsys, layoutTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// PageData is the model shared by every page. Error and Notice are only ever
// set by handlers.
type PageData struct {
	AppName string
	Title   string
	Session session.Snapshot
	Error   string
	Notice  string
	// Form holds submitted values to show again after a rejected submission
	Form url.Values

	User       *session.UserInfo
	Menu       portal.Menu
	AppCode    string
	MinChars   int
	AccountURL string
}

func (s *Server) pageData(title string) PageData {
	snapshot := s.session.Snapshot()
	return PageData{
		AppName: s.config.GetAppName(),
		Title:   title,
		Session: snapshot,
		User:    snapshot.UserInfo,

		AccountURL: identity.AccountURL(s.provider.AuthServerURL(), s.provider.Realm()),
	}
}

// render buffers the page so a template failure never sends a partial document
func (s *Server) render(w http.ResponseWriter, status int, page string, data PageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "500 - Unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
