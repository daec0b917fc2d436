package keycloak

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

type callbackResult struct {
	State string
	Code  string
	Err   error
}

type callbackServer struct {
	listener net.Listener
	server   *http.Server
	path     string
	results  chan callbackResult
}

func startCallbackServer(address, path string) (*callbackServer, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	cb := &callbackServer{
		listener: listener,
		path:     path,
		results:  make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, cb.handle)
	cb.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("url", cb.RedirectURI()).Msg("Starting OAuth callback server")
	go func() {
		if err := cb.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			cb.deliver(callbackResult{Err: err})
		}
	}()
	return cb, nil
}

func (cb *callbackServer) RedirectURI() string {
	return "http://" + cb.listener.Addr().String() + cb.path
}

func (cb *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if code := q.Get("error"); code != "" {
		cb.deliver(callbackResult{Err: &identity.OAuthError{
			StatusCode:  http.StatusBadRequest,
			Code:        code,
			Description: q.Get("error_description"),
		}})
		http.Error(w, "Login failed: "+code, http.StatusBadRequest)
		return
	}

	if q.Get("code") == "" || q.Get("state") == "" {
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	cb.deliver(callbackResult{State: q.Get("state"), Code: q.Get("code")})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><body><p>Login complete. You can close this window.</p></body></html>"))
}

// deliver keeps the first result only
func (cb *callbackServer) deliver(result callbackResult) {
	select {
	case cb.results <- result:
	default:
	}
}

func (cb *callbackServer) Wait(ctx context.Context, timeout time.Duration) (callbackResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	case <-timer.C:
		return callbackResult{}, errors.ErrLoginTimeout
	case result := <-cb.results:
		return result, result.Err
	}
}

func (cb *callbackServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = cb.server.Shutdown(ctx)
}
