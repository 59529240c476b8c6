package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/appstate"
	"github.com/kendall-kelly/nafs-essence-api/logging"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
	"github.com/kendall-kelly/nafs-essence-api/services"
)

// Handlers serves the storefront and admin views.
//
// Views read the application state only. Mutations go straight to the remote
// store and answer with its acknowledgement; the views change when the write
// comes back through the feeds.
type Handlers struct {
	state     *appstate.Store
	store     *remotestore.Client
	auth      *services.AuthService
	assistant *services.AssistantService
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandlers creates the view handlers
func NewHandlers(state *appstate.Store, store *remotestore.Client, auth *services.AuthService, assistant *services.AssistantService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{
		state:     state,
		store:     store,
		auth:      auth,
		assistant: assistant,
		logger:    logger,
		now:       time.Now,
	}
}

// currentView reads the application state, answering 503 when it is unavailable
func (h *Handlers) currentView(c *gin.Context) (appstate.View, bool) {
	view, err := h.state.View()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "CONTEXT_UNAVAILABLE", "Application state is not available")
		return appstate.View{}, false
	}
	return view, true
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondStoreError maps a failed remote store operation to the error envelope
func (h *Handlers) respondStoreError(c *gin.Context, err error, message string) {
	h.logger.Error(message, "error", err)

	if errors.Is(err, appstate.ErrContextUnavailable) {
		respondError(c, http.StatusServiceUnavailable, "CONTEXT_UNAVAILABLE", message)
		return
	}

	code := remotestore.Code(err)
	status := http.StatusServiceUnavailable
	switch code {
	case "PERMISSION_DENIED":
		status = http.StatusForbidden
	case "NOT_FOUND":
		status = http.StatusNotFound
	case "INVALID_COLLECTION":
		status = http.StatusBadRequest
	}
	respondError(c, status, code, message)
}

// respondAccepted answers a mutation with the store acknowledgement only
func respondAccepted(c *gin.Context, ack remotestore.Ack) {
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    ack,
	})
}

func respondView(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
