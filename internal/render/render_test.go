package render

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/debemdeboas/the-draftroom/internal/cache"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/util"
)

func setupTest() {
	cache.ClearRenderedPreviewCache()
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		contains []string
	}{
		{
			name:     "heading",
			markdown: "# Service Agreement\n\nBetween the parties.",
			contains: []string{"<h1", "Service Agreement", "Between the parties."},
		},
		{
			name:     "code block is highlighted",
			markdown: "```go\nfunc main() {}\n```",
			contains: []string{`<div class="highlight">`, "chroma"},
		},
		{
			name:     "list",
			markdown: "- one\n- two\n",
			contains: []string{"<ul>", "<li>one</li>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(RenderMarkdown([]byte(tt.markdown), "github"))
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("Expected output to contain %q, got %q", want, out)
				}
			}
		})
	}
}

func TestRenderMarkdownMmark_TitleData(t *testing.T) {
	t.Run("front matter title", func(t *testing.T) {
		md := []byte("%%%\ntitle = \"Offer Letter\"\n%%%\n\nHello.")
		_, info := RenderMarkdownMmark(md, "github")
		if info == nil || info.Title != "Offer Letter" {
			t.Errorf("Expected title %q, got %+v", "Offer Letter", info)
		}
	})

	t.Run("no front matter", func(t *testing.T) {
		_, info := RenderMarkdownMmark([]byte("Hello."), "github")
		if info == nil || info.Title != "Untitled" || info.Language != "en" {
			t.Errorf("Expected untitled english defaults, got %+v", info)
		}
	})
}

func TestHighlightCode(t *testing.T) {
	t.Run("unknown language falls back", func(t *testing.T) {
		out := HighlightCode("plain words", "no-such-language", "github")
		if !strings.Contains(out, "plain words") {
			t.Errorf("Expected code to survive highlighting, got %q", out)
		}
	})

	t.Run("callout", func(t *testing.T) {
		out := HighlightCode("x := 1 // <<1>>", "go", "github")
		if !strings.Contains(out, `<span class="callout">1</span>`) {
			t.Errorf("Expected callout span, got %q", out)
		}
	})
}

func TestRenderPreview(t *testing.T) {
	setupTest()

	t.Run("hidden preview renders nothing", func(t *testing.T) {
		p := RenderPreview([]byte("# Title"), "github", false)
		if p.Visible || p.HTML != "" || p.Placeholders != nil {
			t.Errorf("Expected empty preview, got %+v", p)
		}
	})

	t.Run("empty draft shows hint", func(t *testing.T) {
		p := RenderPreview(nil, "github", true)
		if !p.Visible {
			t.Error("Expected preview to be visible")
		}
		if !strings.Contains(string(p.HTML), config.PreviewEmptyText) {
			t.Errorf("Expected empty text hint, got %q", p.HTML)
		}
	})

	t.Run("placeholders are highlighted", func(t *testing.T) {
		p := RenderPreview([]byte("Dear {{client_name}}, on {{date}} we met. Regards {{client_name}}"), "github", true)
		html := string(p.HTML)
		if !strings.Contains(html, `<span class="placeholder">{{client_name}}</span>`) {
			t.Errorf("Expected highlighted placeholder, got %q", html)
		}
		if len(p.Placeholders) != 2 || p.Placeholders[0] != "{{client_name}}" || p.Placeholders[1] != "{{date}}" {
			t.Errorf("Unexpected placeholders %v", p.Placeholders)
		}
	})

	t.Run("scripts are stripped", func(t *testing.T) {
		p := RenderPreview([]byte("Hi <script>alert('xss')</script> there"), "github", true)
		if strings.Contains(string(p.HTML), "<script>") {
			t.Errorf("Expected script to be sanitized, got %q", p.HTML)
		}
	})

	t.Run("result is cached", func(t *testing.T) {
		content := []byte("cached {{amount}}")
		first := RenderPreview(content, "monokai", true)

		cached, found := cache.GetRenderedPreview(util.ContentHash(content), "monokai")
		if !found {
			t.Fatal("Expected preview to be cached")
		}
		if string(cached.HTML) != string(first.HTML) {
			t.Errorf("Cached HTML mismatch: %q vs %q", cached.HTML, first.HTML)
		}

		second := RenderPreview(content, "monokai", true)
		if second.HTML != first.HTML {
			t.Error("Expected identical HTML from cache")
		}
	})
}

func TestFindPlaceholders(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", "no tokens here", nil},
		{"single", "Hello {{name}}", []string{"{{name}}"}},
		{"spaces inside braces", "Total: {{ invoice.total }}", []string{"{{ invoice.total }}"}},
		{"duplicates collapse", "{{a}} {{b}} {{a}}", []string{"{{a}}", "{{b}}"}},
		{"unterminated", "{{broken", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPlaceholders([]byte(tt.content))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("FindPlaceholders(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestRenderPreviewConcurrency(t *testing.T) {
	setupTest()

	const numGoroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			content := []byte(fmt.Sprintf("# Doc %d\n\n{{client_name}}", id%4))
			p := RenderPreview(content, "github", true)
			if len(p.Placeholders) != 1 {
				t.Errorf("Expected one placeholder, got %v", p.Placeholders)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkRenderPreviewCached(b *testing.B) {
	setupTest()
	content := []byte("# Benchmark\n\nDear {{client_name}},\n\n```go\nfunc main() {}\n```")
	RenderPreview(content, "github", true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderPreview(content, "github", true)
	}
}

func BenchmarkRenderPreviewUncached(b *testing.B) {
	content := []byte("# Benchmark\n\nDear {{client_name}},\n\n```go\nfunc main() {}\n```")

	for i := 0; i < b.N; i++ {
		Sanitize(RenderMarkdown(content, "github"))
	}
}
