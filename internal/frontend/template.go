package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

var (
	scriptTagRegex = regexp.MustCompile(`<script([^>]*)>`)
	styleTagRegex  = regexp.MustCompile(`<style([^>]*)>`)
	linkTagRegex   = regexp.MustCompile(`<link([^>]*rel=["']stylesheet["'][^>]*)>`)
)

// LoadIndexTemplate reads index.html from fsys and turns it into a template
// that stamps a nonce onto every script and style element.
func LoadIndexTemplate(fsys fs.FS) (*template.Template, error) {
	indexFile, err := fsys.Open("index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to open index.html: %w", err)
	}
	defer indexFile.Close()

	htmlContent, err := io.ReadAll(indexFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read index.html: %w", err)
	}

	tmpl, err := template.New("index").Parse(processHTMLForNonce(string(htmlContent)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return tmpl, nil
}

// LoadEmbeddedIndex is LoadIndexTemplate over the compiled-in web UI
func LoadEmbeddedIndex() (*template.Template, error) {
	fsys, err := GetWebFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded web UI: %w", err)
	}
	return LoadIndexTemplate(fsys)
}

func processHTMLForNonce(html string) string {
	html = scriptTagRegex.ReplaceAllString(html, `<script nonce="{{.Nonce}}"$1>`)
	html = styleTagRegex.ReplaceAllString(html, `<style nonce="{{.Nonce}}"$1>`)
	html = linkTagRegex.ReplaceAllString(html, `<link nonce="{{.Nonce}}"$1>`)
	return html
}

// RenderIndex renders the index template with the provided nonce
func RenderIndex(c *gin.Context, tmpl *template.Template, nonce string) error {
	var buf bytes.Buffer

	data := map[string]interface{}{
		"Nonce": nonce,
	}

	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	return nil
}
