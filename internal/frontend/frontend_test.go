package frontend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestProcessHTMLForNonce(t *testing.T) {
	in := `<style>a{}</style><link rel="stylesheet" href="/a.css"><script src="/a.js"></script>`
	out := processHTMLForNonce(in)

	assert.Contains(t, out, `<style nonce="{{.Nonce}}">`)
	assert.Contains(t, out, `<link nonce="{{.Nonce}}" rel="stylesheet" href="/a.css">`)
	assert.Contains(t, out, `<script nonce="{{.Nonce}}" src="/a.js">`)
}

func TestLoadIndexTemplate_Missing(t *testing.T) {
	_, err := LoadIndexTemplate(fstest.MapFS{})
	assert.Error(t, err)
}

func TestLoadEmbeddedIndex(t *testing.T) {
	tmpl, err := LoadEmbeddedIndex()
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, tmpl.Execute(&sb, map[string]interface{}{"Nonce": "abc123"}))
	page := sb.String()

	assert.Contains(t, page, `<script nonce="abc123">`)
	assert.Contains(t, page, `<style nonce="abc123">`)
	assert.Contains(t, page, "/api/analyze")
	assert.Contains(t, page, "/api/analyze-url")
}

func TestIndexHandler_UsesRequestNonce(t *testing.T) {
	tmpl, err := LoadEmbeddedIndex()
	require.NoError(t, err)

	r := gin.New()
	r.Use(security.CSPMiddleware())
	r.GET("/", NewIndexHandler(tmpl))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'nonce-")
	assert.Contains(t, w.Body.String(), `<script nonce="`)
}

func TestIndexHandler_GeneratesNonceWithoutMiddleware(t *testing.T) {
	tmpl, err := LoadEmbeddedIndex()
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", NewIndexHandler(tmpl))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'nonce-")
}
