package render

import (
	"html/template"
	"sync"

	"github.com/debemdeboas/the-draftroom/internal/cache"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/util"
	"github.com/microcosm-cc/bluemonday"
)

// Preview is what the preview pane shows for a draft.
type Preview struct {
	HTML template.HTML
	// Placeholder codes present in the draft, in order of first appearance.
	Placeholders []string
	Visible      bool
}

var previewPolicy = newPreviewPolicy()

func newPreviewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").Globally()
	p.AllowElements("section", "figure", "figcaption", "aside")
	p.AllowAttrs("start").OnElements("ol")
	return p
}

// Sanitize strips anything a draft should not be able to inject into the page.
func Sanitize(rendered []byte) []byte {
	return previewPolicy.SanitizeBytes(rendered)
}

// HighlightPlaceholders wraps every placeholder token in a span.
func HighlightPlaceholders(rendered []byte) []byte {
	return config.RegexPlaceholder.ReplaceAll(rendered, []byte(`<span class="placeholder">$0</span>`))
}

// FindPlaceholders lists distinct placeholder tokens in order of first appearance.
func FindPlaceholders(content []byte) []string {
	matches := config.RegexPlaceholder.FindAll(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	found := make([]string, 0, len(matches))
	for _, m := range matches {
		code := string(m)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		found = append(found, code)
	}
	return found
}

var previewMu sync.Mutex

// RenderPreview renders a draft to sanitized HTML with its placeholders highlighted.
// Nothing is rendered when show is false.
func RenderPreview(content []byte, syntaxTheme string, show bool) Preview {
	if !show {
		return Preview{}
	}
	if len(content) == 0 {
		return Preview{
			HTML:    template.HTML("<p class=\"empty\">" + template.HTMLEscapeString(config.PreviewEmptyText) + "</p>"),
			Visible: true,
		}
	}

	hash := util.ContentHash(content)
	if cached, found := cache.GetRenderedPreview(hash, syntaxTheme); found {
		renderLogger.Debug().Str("contentHash", hash).Str("syntaxTheme", syntaxTheme).Msg("Cache hit for preview")
		return Preview{HTML: template.HTML(cached.HTML), Placeholders: cached.Placeholders, Visible: true}
	}

	previewMu.Lock()
	defer previewMu.Unlock()

	out := HighlightPlaceholders(Sanitize(RenderMarkdown(content, syntaxTheme)))
	placeholders := FindPlaceholders(content)
	cache.SetRenderedPreview(hash, syntaxTheme, out, placeholders)

	renderLogger.Debug().Str("contentHash", hash).Int("placeholders", len(placeholders)).Msg("Rendered preview")
	return Preview{HTML: template.HTML(out), Placeholders: placeholders, Visible: true}
}

// WarmCache pre-renders content asynchronously so the first preview is a cache hit.
func WarmCache(content []byte, syntaxTheme string) {
	go func() {
		RenderPreview(content, syntaxTheme, true)
		renderLogger.Debug().Str("syntaxTheme", syntaxTheme).Msg("Cache warming completed")
	}()
}
