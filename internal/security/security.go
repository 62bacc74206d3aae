package security

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
)

// MaxBodySize rejects requests whose declared length exceeds limit with a 413 and caps
// the body reader for requests that do not declare one.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			appErr := apperrors.NewPayloadTooLargeError(limit)
			apperrors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from a body capped by MaxBodySize
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// RequireContentType rejects requests whose media type is not one of allowed
func RequireContentType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err == nil {
			for _, a := range allowed {
				if strings.EqualFold(mediaType, a) {
					c.Next()
					return
				}
			}
		}

		appErr := apperrors.NewInvalidInputError("Unsupported content type", c.GetHeader("Content-Type"))
		appErr.HTTPStatus = http.StatusUnsupportedMediaType
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
	}
}
