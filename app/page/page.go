// Package page renders the HTML pages served to browsers
package page

import (
	"bitwise74/capture-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Index renders the capture page. Only reachable with a valid session
func Index(c *gin.Context) {
	claims, _ := middleware.Identity(c)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Email": claims.Email,
	})
}

func Login(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}
