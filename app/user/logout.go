package user

import (
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserLogout drops the session cookie. The token itself stays valid until it
// expires, there is no server side revocation
func UserLogout(c *gin.Context, d *internal.Deps) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", d.SecureCookies, true)
	c.Redirect(http.StatusSeeOther, "/login")
}
