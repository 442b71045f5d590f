package config

import "regexp"

const (
	MarkdownRenderer = "mmark"

	PreviewEmptyText = "Start typing your document content here to see a preview."
)

// RegexPlaceholder matches tokens like {{client_name}} or {{ invoice.total }}.
var RegexPlaceholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

const (
	LightTheme = "light-theme"
	DarkTheme  = "dark-theme"

	// The toggle shows the icon of the theme it switches to.
	LightThemeIcon = `<i class="fas fa-sun"></i>`
	DarkThemeIcon  = `<i class="fas fa-moon"></i>`
)
