package cache

import "html/template"

var (
	// Static file fingerprints keyed by URL path. Served as ETags and
	// appended to asset URLs in templates.
	staticHashes = NewCache[string, string]()

	// Generated chroma stylesheets keyed by style name.
	syntaxStyles = NewCache[string, template.CSS]()
)

func GetStaticHash(path string) (string, bool) {
	return staticHashes.Get(path)
}

func SetStaticHash(path, hash string) {
	staticHashes.Set(path, hash)
}

func GetSyntaxCSS(style string) (template.CSS, bool) {
	return syntaxStyles.Get(style)
}

func SetSyntaxCSS(style string, css template.CSS) {
	syntaxStyles.Set(style, css)
}

func ClearSyntaxCSS() {
	syntaxStyles.Clear()
}
