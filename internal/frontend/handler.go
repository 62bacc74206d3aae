package frontend

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/security"
)

// NewIndexHandler serves the upload page with the request's CSP nonce applied
func NewIndexHandler(indexTemplate *template.Template) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce := security.GetNonce(c)
		if nonce == "" {
			slog.Warn("CSP nonce not found in context, generating new one")
			var err error
			nonce, err = security.GenerateNonce()
			if err != nil {
				appErr := apperrors.NewInternalError(c.Request.URL.Path, "csp_nonce", err)
				c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
				return
			}
			c.Header("Content-Security-Policy", "script-src 'nonce-"+nonce+"'; style-src 'nonce-"+nonce+"'")
		}

		if err := RenderIndex(c, indexTemplate, nonce); err != nil {
			slog.Error("Failed to render index.html", "error", err, "path", c.Request.URL.Path)
			appErr := apperrors.NewInternalError(c.Request.URL.Path, "render_index", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.Response())
		}
	}
}
