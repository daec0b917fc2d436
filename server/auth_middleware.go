package server

import (
	"net/http"
	"net/url"
)

// RequireInitialized answers 503 with a self-refreshing loading page until the
// identity provider has reported its initial state
func (s *Server) RequireInitialized() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !s.session.Snapshot().Resolved {
				w.Header().Set("Retry-After", "1")
				s.render(w, http.StatusServiceUnavailable, pageLoading, s.pageData("Loading"))
				return
			}
			next(w, r)
		}
	}
}

// RequireLogin redirects to the login route, carrying the requested page as the return path
func (s *Server) RequireLogin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !s.session.Snapshot().LoggedIn {
				target := RouteLogin + "?return_to=" + url.QueryEscape(r.URL.RequestURI())
				redirect(w, r, target)
				return
			}
			next(w, r)
		}
	}
}

// redirect is htmx aware
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// safeReturnTo only accepts local absolute paths
func safeReturnTo(raw string) string {
	if raw == "" || raw[0] != '/' || (len(raw) > 1 && (raw[1] == '/' || raw[1] == '\\')) {
		return DefaultReturnTo
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return DefaultReturnTo
	}
	return raw
}
