package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/appstate"
	"github.com/kendall-kelly/nafs-essence-api/models"
)

// LoginPath is where unauthenticated visitors of guarded views are sent
const LoginPath = "/api/v1/admin/login"

// VerifyingMessage is shown while the sign-in state is still unknown
const VerifyingMessage = "Verifying Credentials..."

// AccessAction is what the guard does with a request
type AccessAction int

const (
	AccessWait AccessAction = iota
	AccessRedirect
	AccessAllow
)

// AccessDecision is the outcome of DecideAccess
type AccessDecision struct {
	Action   AccessAction
	Location string // set for AccessRedirect
}

// DecideAccess decides what a guarded view shows for the given sign-in state.
// requestURI is preserved in the login redirect so the user can come back.
func DecideAccess(auth models.AuthState, requestURI string) AccessDecision {
	switch auth.Status {
	case models.AuthStatusAuthenticated:
		return AccessDecision{Action: AccessAllow}
	case models.AuthStatusUnauthenticated:
		return AccessDecision{
			Action:   AccessRedirect,
			Location: LoginPath + "?from=" + url.QueryEscape(requestURI),
		}
	default:
		return AccessDecision{Action: AccessWait}
	}
}

// StateReader reads the composite application state
type StateReader interface {
	View() (appstate.View, error)
}

// AccessGuard protects admin views with the sign-in state held by the application state.
// While the state is unknown the request gets a waiting view; there is no timeout.
func AccessGuard(state StateReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := state.View()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONTEXT_UNAVAILABLE",
					"message": "Application state is not available",
				},
			})
			return
		}

		decision := DecideAccess(view.Auth, c.Request.URL.RequestURI())
		switch decision.Action {
		case AccessAllow:
			c.Next()
		case AccessRedirect:
			c.Redirect(http.StatusFound, decision.Location)
			c.Abort()
		default:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{
				"success": true,
				"data": gin.H{
					"status":  "checking",
					"message": VerifyingMessage,
				},
			})
		}
	}
}
