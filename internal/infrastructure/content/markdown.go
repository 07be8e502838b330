package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"NewsPublisher/internal/ports"
)

var blockTag = regexp.MustCompile(`(?i)<(p|h[1-6]|ul|ol|li|div|blockquote|br|strong|em|a)[\s>/]`)

// Renderer converts Markdown or plain-text bodies into sanitized HTML;
// bodies that already carry HTML are only sanitized.
type Renderer struct {
	engine    goldmark.Markdown
	sanitizer *bluemonday.Policy
}

var _ ports.ContentRenderer = (*Renderer)(nil)

// NewRenderer configures GFM with hard line breaks.
func NewRenderer() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// RenderHTML returns site-ready HTML for body.
func (r *Renderer) RenderHTML(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", nil
	}
	if blockTag.MatchString(body) {
		return r.sanitizer.Sanitize(body), nil
	}

	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(string(r.sanitizer.SanitizeBytes(buf.Bytes()))), nil
}
