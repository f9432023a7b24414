package user

import (
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserSeed creates the demo account if it's missing. Only mounted outside production
func UserSeed(c *gin.Context, d *internal.Deps) {
	user, err := service.SeedDemoUser(c.Request.Context(), d.DB, d.Argon)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})

		zap.L().Error("Failed to seed demo user", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}
