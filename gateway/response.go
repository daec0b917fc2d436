package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/jrsteele09/restaurant-portal/internal/errors"
)

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Data is the decoded body when the response is JSON
	Data any
}

func readResponse(resp *http.Response) (*Response, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errors.ErrTransport, err)
	}

	r := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	if r.IsJSON() && len(body) > 0 {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			r.Data = data
		}
	}
	return r, nil
}

func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDecode, err)
	}
	return nil
}
