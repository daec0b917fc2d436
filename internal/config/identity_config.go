package config

import (
	"strings"
	"time"
)

type IdentityConfig interface {
	GetAuthServerURL() string
	GetRealm() string
	GetClientID() string
	GetClientSecret() string
	GetScopes() []string
	GetCallbackAddress() string
	GetCallbackPath() string
	GetCallbackTimeout() time.Duration
	GetAuthCodeTimeout() time.Duration
	GetMinTokenValidity() time.Duration
	GetTokenCheckInterval() time.Duration
}

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetAuthServerURL() string {
	return strings.TrimRight(GetEnv("AUTH_SERVER_URL", "http://localhost:8081"), "/")
}

func (Identity) GetRealm() string {
	return GetEnv("REALM", "restaurant-realm")
}

func (Identity) GetClientID() string {
	return GetEnv("CLIENT_ID", "restaurant-customer")
}

// GetClientSecret is empty for the public client; set it when the realm client is confidential
func (Identity) GetClientSecret() string {
	return GetEnv("CLIENT_SECRET", "")
}

func (Identity) GetScopes() []string {
	return strings.Fields(GetEnv("SCOPES", "openid profile email"))
}

// GetCallbackAddress is where the CLI login listens for the authorization redirect
func (Identity) GetCallbackAddress() string {
	return GetEnv("CALLBACK_ADDRESS", "127.0.0.1:8089")
}

func (Identity) GetCallbackPath() string {
	return GetEnv("CALLBACK_PATH", "/callback")
}

func (Identity) GetCallbackTimeout() time.Duration {
	return GetEnvDuration("CALLBACK_TIMEOUT", 5*time.Minute)
}

func (Identity) GetAuthCodeTimeout() time.Duration {
	return 15 * time.Minute
}

func (Identity) GetMinTokenValidity() time.Duration {
	return GetEnvDuration("MIN_TOKEN_VALIDITY", 30*time.Second)
}

func (Identity) GetTokenCheckInterval() time.Duration {
	return GetEnvDuration("TOKEN_CHECK_INTERVAL", 10*time.Second)
}
