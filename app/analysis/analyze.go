package analysis

import (
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/service"
	"bitwise74/capture-api/pkg/middleware"
	"bitwise74/capture-api/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalysisCreate accepts a multipart form with image, comment and rating,
// stores the image and returns the fabricated analysis
func AnalysisCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	fh, err := c.FormFile("image")
	if err != nil {
		switch {
		case middleware.IsBodyTooLarge(err):
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request body size exceeds limit",
			})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "No image provided",
			})
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})

			zap.L().Debug("Failed to parse multipart form", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	rating, err := validators.ParseRating(c.PostForm("rating"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Invalid rating",
		})
		return
	}

	comment := c.PostForm("comment")

	code, f, mime, err := validators.ImageValidator(fh, d.AllowedTypes, d.MaxUploadSize)
	if err != nil {
		msg := "Internal server error"
		switch {
		case errors.Is(err, validators.ErrNoImage):
			msg = "No image provided"
		case errors.Is(err, validators.ErrImageTypeUnsupported):
			msg = "Unsupported image type"
		case errors.Is(err, validators.ErrImageTooLarge):
			msg = "Request body size exceeds limit"
		default:
			zap.L().Error("Failed to validate image", zap.Error(err), zap.String("requestID", requestID))
		}

		c.AbortWithStatusJSON(code, gin.H{
			"error": msg,
		})
		return
	}
	defer f.Close()

	rec, err := d.Analyzer.Submit(c.Request.Context(), service.Submission{
		UserID:      userID,
		Image:       f,
		Size:        fh.Size,
		ContentType: mime.String(),
		Ext:         mime.Extension(),
		Comment:     comment,
		Rating:      rating,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})

		zap.L().Error("Failed to submit analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"ai_response": rec.AIResponse,
		"analysis":    rec,
	})
}
