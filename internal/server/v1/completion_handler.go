package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/internal/server/validator"
	"github.com/nulzo/ai-bridge/pkg/api"
)

type CompletionHandler struct {
	service *gateway.Service
}

func NewCompletionHandler(service *gateway.Service) *CompletionHandler {
	return &CompletionHandler{service: service}
}

// Create handles POST /api/completions, buffered or streamed depending on
// the request's stream flag.
func (h *CompletionHandler) Create(c *gin.Context) {
	var req api.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseError(err)))
		return
	}

	if req.Stream {
		h.stream(c, &req)
		return
	}

	resp, err := h.service.Complete(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// stream writes the completion as server-sent events: one data event per
// chunk, failures as one enveloped error event, and a final [DONE] marker
// in every case.
func (h *CompletionHandler) stream(c *gin.Context, req *api.CompletionRequest) {
	ch, err := h.service.Stream(c.Request.Context(), req)
	if err != nil {
		// Pre-dispatch failures surface as a plain JSON error, not SSE.
		_ = c.Error(err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		result, ok := <-ch
		if !ok {
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return false
		}

		if result.Err != nil {
			writeSSE(w, errorEnvelope(result.Err))
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return false
		}

		writeSSE(w, result.Chunk)
		return true
	})
}

func writeSSE(w io.Writer, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func errorEnvelope(err error) api.ErrorEnvelope {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Envelope()
	}
	return api.NewError(http.StatusInternalServerError, api.CodeInternalError, err.Error()).Envelope()
}
