package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetRefreshDeduplication() bool
	GetRequestTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_URL", "http://localhost:8080"), "/")
}

// GetRefreshDeduplication makes concurrent 401s share a single refresh
func (API) GetRefreshDeduplication() bool {
	return GetEnvBool("REFRESH_DEDUP", false)
}

// GetRequestTimeout of zero leaves the transport defaults in place
func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 0)
}
