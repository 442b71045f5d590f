package config

const (
	//? These paths must match the paths in the embed directive
	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	TemplatesLocalDir = "templates"

	TemplateLayout    = "layout.html"
	TemplateIndex     = "index.html"
	TemplateEditor    = "editor.html"
	TemplatePreview   = "preview.html"
	TemplateAuth      = "ed25519_auth.html"
	TemplateNameAuth  = "auth"
	TemplateNameIndex = "index"
)
