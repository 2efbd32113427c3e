package flow

import (
	"fmt"
	"strings"
)

// ConfigurationError is returned when the client or the application is
// missing a required setting. It is fatal at startup.
type ConfigurationError struct {
	Field string
}

func (e ConfigurationError) Error() string {
	switch e.Field {
	case "token":
		return "configuration error: LangFlow token is required (set LANGFLOW_TOKEN)"
	case "":
		return "configuration error"
	}

	return "configuration error: " + e.Field + " is required"
}

// InvalidArgumentError is returned by Run when a required argument is empty.
type InvalidArgumentError struct {
	Fields []string
}

func (e InvalidArgumentError) Error() string {
	return strings.Join(e.Fields, ", ") + " required"
}

// ResponseFormatError is returned when a successful response is not JSON.
// The offending body is logged, never carried here.
type ResponseFormatError struct {
	ContentType string
	Err         error
}

func (e ResponseFormatError) Error() string {
	return "Response was not JSON"
}

func (e ResponseFormatError) Unwrap() error {
	return e.Err
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
}

func (e APIError) Error() string {
	return fmt.Sprintf("API Error: %d %s", e.StatusCode, e.Status)
}

// ResponseShapeError is returned when the JSON body lacks the reply text path.
type ResponseShapeError struct {
	Path string
}

func (e ResponseShapeError) Error() string {
	if e.Path == "" {
		return "Invalid response format from API"
	}

	return "Invalid response format from API: missing " + e.Path
}

// NetworkError wraps a transport failure (DNS, refused connection, abort).
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	if e.Err == nil {
		return "network error"
	}

	return "network error: " + e.Err.Error()
}

func (e NetworkError) Unwrap() error {
	return e.Err
}
