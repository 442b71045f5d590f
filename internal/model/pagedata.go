package model

import (
	"html/template"
	"net/http"

	"github.com/debemdeboas/the-draftroom/internal/cache"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/theme"
)

// PageData is what every full page template receives.
type PageData struct {
	SiteName        string
	SiteDescription string

	PageURL string
	Theme   string

	SyntaxCSS    template.CSS
	SyntaxTheme  string
	SyntaxThemes []string

	IsEditorPage *bool
	UserID       UserID
}

func NewPageData(r *http.Request) *PageData {
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)
	return &PageData{
		SiteName:        config.AppConfig.Site.Name,
		SiteDescription: config.AppConfig.Site.Description,
		PageURL:         r.URL.Path,
		Theme:           theme.GetThemeFromRequest(r),
		SyntaxTheme:     syntaxTheme,
		SyntaxThemes:    theme.GetSyntaxThemes(),
		SyntaxCSS:       theme.GenerateSyntaxCSS(syntaxTheme),
	}
}

func (pd *PageData) IsEditor() bool {
	return pd.IsEditorPage != nil && *pd.IsEditorPage
}

// Asset returns the URL of a static file with its content hash appended, so
// browsers refetch it after a deploy.
func (pd *PageData) Asset(name string) string {
	path := config.StaticUrlPath + name
	if hash, ok := cache.GetStaticHash(path); ok && len(hash) >= 8 {
		return path + "?v=" + hash[:8]
	}
	return path
}
