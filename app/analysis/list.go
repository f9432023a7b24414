package analysis

import (
	"bitwise74/capture-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const historyLimit = 20

// AnalysisList returns the latest analyses of the current user
func AnalysisList(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	analyses, err := d.Analyzer.History(c.Request.Context(), userID, historyLimit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})

		zap.L().Error("Failed to fetch analyses", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": analyses,
	})
}
