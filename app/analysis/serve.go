package analysis

import (
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/service"
	"bitwise74/capture-api/internal/storage"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ImageServe serves a stored image to the user that uploaded it
func ImageServe(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	key := c.Param("key")
	if !storage.ValidKey(key) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	owns, err := d.Analyzer.Owns(c.Request.Context(), userID, service.UploadPrefix+key)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)

		zap.L().Error("Failed to check if user owns an image", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		return
	}

	if !owns {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	d.Blobs.Serve(c.Writer, c.Request, key)
}
