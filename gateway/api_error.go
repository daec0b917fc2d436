package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/restaurant-portal/internal/errors"
)

// FallbackMessage is used when an error body is not JSON
const FallbackMessage = "an error occurred while connecting to the server"

type APIError struct {
	Status  int
	Message string
	Data    any
	cause   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// AsAPIError extracts an *APIError from err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func newAPIError(resp *Response) *APIError {
	var data any
	if err := json.Unmarshal(resp.Body, &data); err != nil || data == nil {
		data = map[string]any{"message": FallbackMessage}
	}

	message := ""
	if m, ok := data.(map[string]any); ok {
		message, _ = m["message"].(string)
	}
	if message == "" {
		message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: message,
		Data:    data,
	}
}

func sessionExpired(cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Message: errors.ErrSessionExpired.Error(),
		cause:   errors.Join(errors.ErrSessionExpired, cause),
	}
}
