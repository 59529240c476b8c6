package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/appstate"
)

// streamBuffer is the number of views a slow client may fall behind before
// intermediate views are skipped
const streamBuffer = 8

// Stream handles GET /api/v1/stream - pushes the storefront part of the composite
// view as server-sent events every time the application state changes
func (h *Handlers) Stream(c *gin.Context) {
	h.streamViews(c, func(v appstate.View) any {
		return BuildStorefrontStreamView(v)
	})
}

// AdminStream handles GET /api/v1/admin/stream - pushes the full composite view,
// with the signed-in admin's settings preview
func (h *Handlers) AdminStream(c *gin.Context) {
	admin := adminID(c)
	h.streamViews(c, func(v appstate.View) any {
		return BuildAdminStreamView(v, admin)
	})
}

func (h *Handlers) streamViews(c *gin.Context, render func(appstate.View) any) {
	views := make(chan appstate.View, streamBuffer)
	unsubscribe, err := h.state.Subscribe(func(v appstate.View) {
		select {
		case views <- v:
		default:
			// Drop the oldest view so the client always ends on the latest one
			select {
			case <-views:
			default:
			}
			select {
			case views <- v:
			default:
			}
		}
	})
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "CONTEXT_UNAVAILABLE", "Application state is not available")
		return
	}
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v := <-views:
			c.SSEvent("state", render(v))
			return true
		}
	})
}
