package auth

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/routes"
)

// RegisterEd25519AuthRoutes registers the challenge, verify and login routes
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider, files fs.FS) error {
	tmpl, err := template.ParseFS(
		files,
		config.TemplatesLocalDir+"/"+config.TemplateAuth,
	)
	if err != nil {
		return fmt.Errorf("error loading auth template: %w", err)
	}

	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(provider))
	mux.HandleFunc(routes.AuthLogin, Ed25519AuthPageHandler(provider, tmpl))
	return nil
}
