package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat answers 200 with no body so load balancers can probe the server
func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}
