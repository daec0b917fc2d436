// Package keycloaktest runs an in-process stand-in for a Keycloak realm: OIDC
// discovery, JWKS, token (authorization_code and refresh_token grants), userinfo
// and logout.
package keycloaktest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const keyID = "test-key"

type pendingCode struct {
	subject     string
	nonce       string
	challenge   string
	redirectURI string
}

type Server struct {
	*httptest.Server

	Realm    string
	ClientID string

	// AccessTTL is the lifetime of issued access tokens
	AccessTTL time.Duration

	key *rsa.PrivateKey

	mu            sync.Mutex
	subject       string
	claims        map[string]any
	codes         map[string]pendingCode
	refreshTokens map[string]string
	accessTokens  map[string]string
	failRefresh   bool
	refreshCalls  int
	logoutCalls   int
	userInfoCalls int
	lastRefresh   url.Values
}

func NewServer(t testing.TB, realm, clientID string) *Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	s := &Server{
		Realm:         realm,
		ClientID:      clientID,
		AccessTTL:     5 * time.Minute,
		key:           key,
		subject:       "user-1",
		claims:        map[string]any{"preferred_username": "jdoe", "email": "jdoe@example.com"},
		codes:         make(map[string]pendingCode),
		refreshTokens: make(map[string]string),
		accessTokens:  make(map[string]string),
	}

	mux := http.NewServeMux()
	base := "/realms/" + realm
	mux.HandleFunc("GET "+base+"/.well-known/openid-configuration", s.handleDiscovery)
	mux.HandleFunc("GET "+base+"/protocol/openid-connect/certs", s.handleJWKS)
	mux.HandleFunc("POST "+base+"/protocol/openid-connect/token", s.handleToken)
	mux.HandleFunc("GET "+base+"/protocol/openid-connect/userinfo", s.handleUserInfo)
	mux.HandleFunc("POST "+base+"/protocol/openid-connect/logout", s.handleLogout)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Issuer() string {
	return s.URL + "/realms/" + s.Realm
}

// SetUser changes the subject and claims returned for subsequent logins and userinfo calls
func (s *Server) SetUser(subject string, claims map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = subject
	s.claims = claims
}

// FailRefresh makes every refresh grant answer invalid_grant
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

func (s *Server) LogoutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutCalls
}

func (s *Server) UserInfoCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userInfoCalls
}

// LastRefreshForm is the form of the most recent refresh grant
func (s *Server) LastRefreshForm() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// Authorize plays the user approving the login at authURL. It returns the
// callback URL the realm would redirect the browser to.
func (s *Server) Authorize(authURL string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("client_id") != s.ClientID {
		return "", fmt.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("code_challenge_method") != "S256" {
		return "", fmt.Errorf("unexpected code_challenge_method %q", q.Get("code_challenge_method"))
	}

	code := uuid.NewString()
	s.mu.Lock()
	s.codes[code] = pendingCode{
		subject:     s.subject,
		nonce:       q.Get("nonce"),
		challenge:   q.Get("code_challenge"),
		redirectURI: q.Get("redirect_uri"),
	}
	s.mu.Unlock()

	callback, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		return "", err
	}
	cq := callback.Query()
	cq.Set("code", code)
	cq.Set("state", q.Get("state"))
	callback.RawQuery = cq.Encode()
	return callback.String(), nil
}

// IssueRefreshToken creates a refresh token for subject without a login
func (s *Server) IssueRefreshToken(subject string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[token] = subject
	s.mu.Unlock()
	return token
}

// IssueAccessToken creates a signed access token accepted by the userinfo endpoint
func (s *Server) IssueAccessToken(subject string) string {
	token := s.sign(jwtlib.MapClaims{
		"iss": s.Issuer(),
		"sub": subject,
		"azp": s.ClientID,
		"typ": "Bearer",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.AccessTTL).Unix(),
		"jti": uuid.NewString(),
	})
	s.mu.Lock()
	s.accessTokens[token] = subject
	s.mu.Unlock()
	return token
}

// RevokeAccessToken makes userinfo answer 401 for token
func (s *Server) RevokeAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accessTokens, token)
}

func (s *Server) sign(claims jwtlib.MapClaims) string {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(s.key)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) idToken(subject, nonce string) string {
	claims := jwtlib.MapClaims{
		"iss": s.Issuer(),
		"sub": subject,
		"aud": s.ClientID,
		"azp": s.ClientID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.AccessTTL).Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	return s.sign(claims)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func oauthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}

func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	oidcBase := s.Issuer() + "/protocol/openid-connect"
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                s.Issuer(),
		"authorization_endpoint":                oidcBase + "/auth",
		"token_endpoint":                        oidcBase + "/token",
		"userinfo_endpoint":                     oidcBase + "/userinfo",
		"end_session_endpoint":                  oidcBase + "/logout",
		"jwks_uri":                              oidcBase + "/certs",
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
	})
}

func (s *Server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	pub := s.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": keyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if r.PostForm.Get("client_id") != s.ClientID {
		oauthError(w, http.StatusUnauthorized, "unauthorized_client", "unknown client")
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.exchangeCode(w, r.PostForm)
	case "refresh_token":
		s.refreshGrant(w, r.PostForm)
	default:
		oauthError(w, http.StatusBadRequest, "unsupported_grant_type", r.PostForm.Get("grant_type"))
	}
}

func (s *Server) exchangeCode(w http.ResponseWriter, form url.Values) {
	s.mu.Lock()
	pending, ok := s.codes[form.Get("code")]
	delete(s.codes, form.Get("code"))
	s.mu.Unlock()

	if !ok {
		oauthError(w, http.StatusBadRequest, "invalid_grant", "Code not valid")
		return
	}
	sum := sha256.Sum256([]byte(form.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != pending.challenge {
		oauthError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
		return
	}
	if form.Get("redirect_uri") != pending.redirectURI {
		oauthError(w, http.StatusBadRequest, "invalid_grant", "Incorrect redirect_uri")
		return
	}

	s.writeTokens(w, pending.subject, pending.nonce)
}

func (s *Server) refreshGrant(w http.ResponseWriter, form url.Values) {
	s.mu.Lock()
	s.refreshCalls++
	s.lastRefresh = form
	subject, ok := s.refreshTokens[form.Get("refresh_token")]
	fail := s.failRefresh
	s.mu.Unlock()

	if fail || !ok {
		oauthError(w, http.StatusBadRequest, "invalid_grant", "Token is not active")
		return
	}
	s.writeTokens(w, subject, "")
}

func (s *Server) writeTokens(w http.ResponseWriter, subject, nonce string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  s.IssueAccessToken(subject),
		"refresh_token": s.IssueRefreshToken(subject),
		"id_token":      s.idToken(subject, nonce),
		"token_type":    "Bearer",
		"expires_in":    int(s.AccessTTL.Seconds()),
		"scope":         "openid profile email",
	})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	s.userInfoCalls++
	subject, ok := s.accessTokens[token]
	doc := map[string]any{}
	for k, v := range s.claims {
		doc[k] = v
	}
	s.mu.Unlock()

	if !ok {
		oauthError(w, http.StatusUnauthorized, "invalid_token", "Token verification failed")
		return
	}
	doc["sub"] = subject
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	s.mu.Lock()
	s.logoutCalls++
	delete(s.refreshTokens, r.PostForm.Get("refresh_token"))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}
