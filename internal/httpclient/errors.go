package httpclient

import (
	"encoding/json"
	"fmt"
)

// UpstreamError represents a non-2xx response from an upstream service.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// upstreamErrorBody mirrors the standard OpenAI-style error shape
// {"error": {"message": ...}} that all four upstreams speak.
type upstreamErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Message extracts the upstream's human-readable message from the raw body,
// or returns "" when the body is not parseable.
func (e *UpstreamError) Message() string {
	var parsed upstreamErrorBody
	if err := json.Unmarshal(e.Body, &parsed); err != nil {
		return ""
	}
	return parsed.Error.Message
}
