package signclient

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by New for a missing or malformed base URL.
var ErrInvalidConfig = errors.New("signclient: invalid configuration")

// APIError is a failure reported by the remote service: a non-success HTTP
// status, or an "error" field in a success response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signclient: %s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
}

// IsAPIError reports whether err (or anything it wraps) is an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// genericMessages is used when a failed response carries no error message.
var genericMessages = map[string]string{
	endpointRecognize:      "Failed to translate sign",
	endpointTranslate:      "Failed to translate text",
	endpointClearSequence:  "Failed to clear sequence",
	endpointDictionary:     "Failed to fetch dictionary",
	endpointAddSign:        "Failed to add sign",
	endpointTrainingSample: "Failed to record training data",
	endpointTrainModel:     "Failed to train model",
}

func genericMessage(endpoint string) string {
	if msg, ok := genericMessages[endpoint]; ok {
		return msg
	}
	return "Request failed"
}
