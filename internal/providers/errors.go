package providers

import (
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

// ErrEmptyResponse is returned when the endpoint answers without content.
var ErrEmptyResponse = errors.New("API returned an empty response")

// TransportError is a failed or non-success exchange with the endpoint.
type TransportError struct {
	Op         string // "chat", "stream", "models"
	StatusCode int    // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// maxErrorBody bounds how much of a response body a TransportError keeps.
const maxErrorBody = 500

func mapOpenAIError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.RawJSON()
		}
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &TransportError{Op: op, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	return &TransportError{Op: op, Message: err.Error(), Err: err}
}
