package middleware

import (
	"bitwise74/capture-api/pkg/security"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie holds the signed session token
	SessionCookie = "token"

	identityKey = "identity"
	userIDKey   = "userID"
)

// RouteClass tells the gate how to treat a request path
type RouteClass int

const (
	// RoutePublic is always forwarded, whatever the token state
	RoutePublic RouteClass = iota
	// RoutePage needs a valid token, otherwise the client is redirected to the login page
	RoutePage
	// RouteAPI needs a valid token, otherwise the client gets a 401 JSON body
	RouteAPI
)

// TokenVerifier is implemented by *security.TokenCodec
type TokenVerifier interface {
	Verify(token string) (*security.Claims, bool)
}

type GateConfig struct {
	Tokens     TokenVerifier
	CookieName string
	LoginPath  string
	// Secure marks the cleared cookie as HTTPS only, it has to match how it was set
	Secure bool

	PublicPaths []string
	// APIPaths are protected paths that answer with JSON instead of a redirect
	APIPaths []string
}

// Classify returns the class of path. Anything not explicitly public is protected
func (g *GateConfig) Classify(path string) RouteClass {
	if path == g.LoginPath || slices.Contains(g.PublicPaths, path) {
		return RoutePublic
	}

	if slices.Contains(g.APIPaths, path) {
		return RouteAPI
	}

	return RoutePage
}

// NewSessionGate returns the middleware that runs before every handler and
// decides if the request may reach it. It holds no state between requests.
//
// A valid token always attaches its claims to the context, public routes
// included, so handlers can read the identity with Identity instead of
// decoding the cookie again.
func NewSessionGate(g GateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		class := g.Classify(c.Request.URL.Path)

		tokenStr, err := c.Cookie(g.CookieName)
		hasToken := err == nil && tokenStr != ""

		var claims *security.Claims
		valid := false
		if hasToken {
			claims, valid = g.Tokens.Verify(tokenStr)
		}

		if valid {
			c.Set(identityKey, claims)
			c.Set(userIDKey, claims.UserID)
		}

		if class == RoutePublic || valid {
			c.Next()
			return
		}

		// A stale cookie would bounce the client between the login page and
		// the protected route forever, drop it
		if hasToken {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(g.CookieName, "", -1, "/", "", g.Secure, true)
		}

		if class == RouteAPI {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Redirect(http.StatusFound, g.LoginPath)
		c.Abort()
	}
}

// Identity returns the claims the session gate attached to the request
func Identity(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}

	claims, ok := v.(*security.Claims)
	return claims, ok && claims != nil
}
