package advice

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apiError "onboarding-hub/internal/errors"
	"onboarding-hub/internal/metrics"
)

type AdviceRequest struct {
	ProgramName string `json:"programName" binding:"required"`
}

type AdviceResponse struct {
	Text string `json:"text"`
}

type Handler struct {
	generator Generator
}

// NewHandler takes a nil generator when no API key is configured; requests
// then fail with 500.
func NewHandler(generator Generator) *Handler {
	return &Handler{generator: generator}
}

func (h *Handler) CreateAdvice(c *gin.Context) {
	var req AdviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordAdviceRequest("invalid")
		if errors.Is(err, io.EOF) {
			c.Error(apiError.BadRequest("programName is required", err))
			return
		}
		c.Error(apiError.NewValidationError(err))
		return
	}

	if h.generator == nil {
		metrics.RecordAdviceRequest("unconfigured")
		c.Error(apiError.InternalWithMessage("GEMINI_API_KEY not configured on server", nil))
		return
	}

	text, err := h.generator.Generate(c.Request.Context(), req.ProgramName)
	if err != nil {
		metrics.RecordAdviceRequest("error")
		c.Error(apiError.InternalWithMessage("Gemini request failed", err).WithDetail(err.Error()))
		return
	}
	if text == "" {
		metrics.RecordAdviceRequest("empty")
		c.Error(apiError.InternalWithMessage("Empty response from Gemini", nil))
		return
	}

	metrics.RecordAdviceRequest("ok")
	c.JSON(http.StatusOK, AdviceResponse{Text: text})
}
