// Package gateway issues backend API requests with the session's bearer
// credential attached. A 401 triggers one credential refresh and one retry.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// CredentialFunc returns the in-memory credential, or "" when there is none
type CredentialFunc func() string

type Option func(*Gateway)

// WithBaseURL is prepended to request paths that start with "/"
func WithBaseURL(baseURL string) Option {
	return func(g *Gateway) { g.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gateway) { g.httpClient = hc }
}

// WithRefreshDeduplication makes concurrent 401s wait on a single refresh
// instead of each refreshing on its own.
func WithRefreshDeduplication(enabled bool) Option {
	return func(g *Gateway) { g.dedupRefresh = enabled }
}

type Gateway struct {
	baseURL      string
	httpClient   *http.Client
	store        storage.Store
	credential   CredentialFunc
	refresher    Refresher
	dedupRefresh bool
	refreshGroup singleflight.Group
}

func New(store storage.Store, credential CredentialFunc, refresher Refresher, opts ...Option) *Gateway {
	g := &Gateway{
		httpClient: http.DefaultClient,
		store:      store,
		credential: credential,
		refresher:  refresher,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request sends one request, following the refresh-once policy on 401.
// Non-2xx outcomes are returned as *APIError.
func (g *Gateway) Request(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	target := MergeParams(g.resolve(rawURL), opts.Params)
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("[gateway Request] encode body: %w", err)
	}

	authRequired := opts.authRequired()
	token := ""
	if authRequired {
		token = g.currentToken(ctx)
	}

	requestID := uuid.NewString()
	resp, err := g.send(ctx, method, target, body, opts.Header, token, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && authRequired {
		newToken, err := g.refresh(ctx)
		if err != nil || newToken == "" {
			log.Warn().Err(err).Str("url", target).Msg("Credential refresh failed")
			return nil, sessionExpired(err)
		}

		resp, err = g.send(ctx, method, target, body, opts.Header, newToken, requestID)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

func (g *Gateway) Get(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	opts.Method = http.MethodGet
	return g.Request(ctx, rawURL, opts)
}

func (g *Gateway) Post(ctx context.Context, rawURL string, data any, opts Options) (*Response, error) {
	opts.Method = http.MethodPost
	opts.Body = data
	return g.Request(ctx, rawURL, opts)
}

func (g *Gateway) Put(ctx context.Context, rawURL string, data any, opts Options) (*Response, error) {
	opts.Method = http.MethodPut
	opts.Body = data
	return g.Request(ctx, rawURL, opts)
}

func (g *Gateway) Patch(ctx context.Context, rawURL string, data any, opts Options) (*Response, error) {
	opts.Method = http.MethodPatch
	opts.Body = data
	return g.Request(ctx, rawURL, opts)
}

func (g *Gateway) Del(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	opts.Method = http.MethodDelete
	return g.Request(ctx, rawURL, opts)
}

func (g *Gateway) resolve(rawURL string) string {
	if g.baseURL != "" && strings.HasPrefix(rawURL, "/") {
		return g.baseURL + rawURL
	}
	return rawURL
}

// currentToken prefers the stored credential, which a refresh elsewhere may have updated
func (g *Gateway) currentToken(ctx context.Context) string {
	if g.store != nil {
		token, err := g.store.Get(ctx, storage.KeyToken)
		if err != nil {
			log.Debug().Err(err).Msg("Stored credential unavailable, using in-memory credential")
		} else if token != "" {
			return token
		}
	}
	if g.credential != nil {
		return g.credential()
	}
	return ""
}

func (g *Gateway) refresh(ctx context.Context) (string, error) {
	if g.refresher == nil {
		return "", errors.ErrNoRefreshToken
	}
	if !g.dedupRefresh {
		return g.refresher.Refresh(ctx)
	}

	v, err, _ := g.refreshGroup.Do("refresh", func() (any, error) {
		return g.refresher.Refresh(context.WithoutCancel(ctx))
	})
	token, _ := v.(string)
	return token, err
}

func (g *Gateway) send(ctx context.Context, method, target string, body []byte, header http.Header, token, requestID string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("[gateway send] build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, values := range header {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", errors.ErrTransport, method, target, err)
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		return io.ReadAll(b)
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}
