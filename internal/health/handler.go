package health

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"onboarding-hub/internal/errors"
)

type Handler struct {
	geminiConfigured bool
	demoFile         string
}

func NewHandler(geminiConfigured bool, demoFile string) *Handler {
	return &Handler{geminiConfigured: geminiConfigured, demoFile: demoFile}
}

// Check reports liveness and whether the advice proxy has an API key.
func (h *Handler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "gemini": h.geminiConfigured})
}

func (h *Handler) Demo(c *gin.Context) {
	info, err := os.Stat(h.demoFile)
	if err != nil || info.IsDir() {
		c.Error(errors.NotFound("Demo page not found", err))
		return
	}
	c.File(h.demoFile)
}
