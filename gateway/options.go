package gateway

import (
	"net/http"
	"net/url"
	"strings"
)

type Options struct {
	Method string
	// Body is sent as is when it is []byte, string or io.Reader, otherwise as JSON
	Body   any
	Header http.Header
	Params map[string]string
	// AuthRequired defaults to true when nil
	AuthRequired *bool
}

func (o Options) authRequired() bool {
	return o.AuthRequired == nil || *o.AuthRequired
}

// MergeParams appends params to rawURL, sorted by key, joining with "?" or "&"
// depending on whether rawURL already has a query.
func MergeParams(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	switch {
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		return rawURL + values.Encode()
	case strings.Contains(rawURL, "?"):
		return rawURL + "&" + values.Encode()
	default:
		return rawURL + "?" + values.Encode()
	}
}
