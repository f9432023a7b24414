package user

import (
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/model"
	"bitwise74/capture-api/pkg/middleware"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserWhoami returns the user behind the session cookie, or null. The cookie
// was already decoded by the session gate
func UserWhoami(c *gin.Context, d *internal.Deps) {
	claims, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	var user model.User
	err := d.DB.WithContext(c.Request.Context()).
		Select("id", "email").
		Where("id = ?", claims.UserID).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})

		zap.L().Error("Failed to fetch current user", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
