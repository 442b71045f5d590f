// Package routes defines HTTP route constants for the application.
package routes

const (
	// Static and assets
	RobotsPath        = "/robots.txt"
	ThemeOppositeIcon = "/theme/opposite-icon"
	ThemeToggle       = "/theme/toggle"
	SyntaxThemeSet    = "/syntax-theme/set"
	SyntaxThemeGet    = "/syntax-theme/{theme}"

	// Observability
	SSEPath     = "/sse"
	MetricsPath = "/metrics"

	RootPath = "/"

	// Documents
	DocumentsCreate = "POST /documents"
	DocumentsEdit   = "GET /documents/{id}/edit"
	EditorBack      = "POST /editor/back"

	// Editor API
	APIEditorDraft        = "POST /api/editor/draft"
	APIEditorPlaceholders = "POST /api/editor/placeholders"
	APIEditorSave         = "POST /api/editor/save"
	APIPlaceholders       = "GET /api/placeholders"
	PartialsPreview       = "GET /partials/preview"
	WSPreview             = "GET /ws/preview/{id}"

	WebhookUser = "POST /webhook/user"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	AuthLogin     = "/auth/login"
)

// EditPath is the editor page for a document.
func EditPath(id string) string {
	return "/documents/" + id + "/edit"
}
