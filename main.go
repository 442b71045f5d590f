package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-draftroom/internal/auth"
	"github.com/debemdeboas/the-draftroom/internal/cache"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/db"
	"github.com/debemdeboas/the-draftroom/internal/editor"
	"github.com/debemdeboas/the-draftroom/internal/logger"
	"github.com/debemdeboas/the-draftroom/internal/metrics"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/placeholder"
	"github.com/debemdeboas/the-draftroom/internal/render"
	"github.com/debemdeboas/the-draftroom/internal/repository"
	"github.com/debemdeboas/the-draftroom/internal/routes"
	"github.com/debemdeboas/the-draftroom/internal/sse"
	"github.com/debemdeboas/the-draftroom/internal/theme"
	"github.com/debemdeboas/the-draftroom/internal/util"
	"github.com/debemdeboas/the-draftroom/internal/util/compression"
)

//go:embed static/* templates/*
var content embed.FS

var clients = sse.NewSSEClients()

var mainLogger zerolog.Logger

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	configPath := os.Getenv("DRAFTROOM_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	configErr := config.LoadConfig(configPath)

	root := logger.New(config.AppConfig.Logging.Level)
	mainLogger = logger.Component(root, "main")
	if configErr != nil {
		mainLogger.Fatal().Err(configErr).Msg("Failed to load configuration")
	}

	config.SetLogger(logger.Component(root, "config"))
	db.SetLogger(logger.Component(root, "db"))
	repository.SetLogger(logger.Component(root, "repository"))
	render.SetLogger(logger.Component(root, "render"))
	sse.SetLogger(logger.Component(root, "sse"))
	auth.SetLogger(logger.Component(root, "auth"))
	editor.SetLogger(logger.Component(root, "editor"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, repo, err := openRepository(ctx, config.AppConfig.Storage)
	if err != nil {
		mainLogger.Fatal().Err(err).Str("backend", config.AppConfig.Storage.Backend).Msg(config.ErrInitializingDocuments)
	}
	if database != nil {
		defer database.Close()
	}

	repo.SetReloadNotifier(handleReloadDocument)
	go repo.ReloadDocuments(ctx, config.AppConfig.Storage.ReloadInterval)

	catalog, err := placeholder.NewCatalog(config.AppConfig.Placeholders)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Invalid placeholder catalog")
	}

	registry := editor.NewRegistry(repo, editor.MultiNotifier{
		editor.LogNotifier{},
		editor.BroadcastNotifier{Clients: clients},
	})
	sweeper, err := registry.StartSweeper(config.AppConfig.Editor.SweepSchedule, config.AppConfig.Editor.SessionTTL)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Failed to start session sweeper")
	}
	defer sweeper.Stop()

	// Calculate the hash of static content
	static, _ := fs.Sub(content, config.StaticLocalDir)
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return err
		}
		cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash(data))
		return nil
	})

	mux := http.NewServeMux()

	provider, err := setupAuth(mux, database)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg(fmt.Sprintf(config.ErrCreateProviderFmt, config.AppConfig.Features.Authentication.Type))
	}

	editorHandler, err := editor.NewHandler(registry, repo, catalog, provider, content, editor.OptionsFromConfig(config.AppConfig))
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Failed to create editor handler")
	}
	editorHandler.Register(mux)

	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow: /"))
	})

	mux.HandleFunc(routes.ThemeOppositeIcon, func(w http.ResponseWriter, r *http.Request) {
		currTheme := r.URL.Query().Get("theme")
		if currTheme == "" {
			http.Error(w, "theme required", http.StatusBadRequest)
			return
		}

		w.Header().Set(config.HCType, config.CTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(theme.GetThemeIcon(currTheme)))
	})

	mux.Handle(config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))
	mux.HandleFunc(routes.ThemeToggle, serveThemePostToggle)
	mux.HandleFunc(routes.SyntaxThemeSet, serveSyntaxThemePostSet)
	mux.HandleFunc(routes.SyntaxThemeGet, serveSyntaxThemeGetTheme)
	mux.HandleFunc(routes.SSEPath, clients.ServeEvents)

	if config.AppConfig.Features.Metrics.Enabled {
		mux.Handle(routes.MetricsPath, metrics.Handler())
	}

	securedMux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == routes.RobotsPath {
			mux.ServeHTTP(w, r)
		} else {
			secureHeaders(mux.ServeHTTP)(w, r)
		}
	})

	authMux := provider.WithHeaderAuthorization()(securedMux)

	server := &http.Server{
		Addr:              config.AppConfig.ServerAddr(),
		Handler:           withRequestLogger(root, cacheIt(authMux.ServeHTTP)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLogger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	mainLogger.Info().
		Str("addr", server.Addr).
		Str("backend", config.AppConfig.Storage.Backend).
		Str("variant", config.AppConfig.Editor.Variant).
		Int("placeholders", catalog.Len()).
		Msg("Starting server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mainLogger.Fatal().Err(err).Msg("Server failed")
	}
	mainLogger.Info().Msg("Server stopped")
}

// openRepository builds the configured document backend. The database is nil
// for backends that do not use one.
func openRepository(ctx context.Context, cfg config.StorageConfig) (db.DB, repository.DocumentRepository, error) {
	var database db.DB
	var repo repository.DocumentRepository

	switch cfg.Backend {
	case config.BackendSQLite:
		database = db.NewSQLite(cfg.SQLitePath)
	case config.BackendPostgres:
		dsn := cfg.PostgresDSN
		if env := os.Getenv("DATABASE_URL"); env != "" {
			dsn = env
		}
		database = db.NewPostgres(dsn)
	case config.BackendFS:
		repo = repository.NewFSDocumentRepository(cfg.DocumentsDir)
	case config.BackendS3:
		client, err := repository.NewS3Client(ctx, repository.S3Options{
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		repo = repository.NewS3DocumentRepository(client, cfg.S3.Bucket)
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if database != nil {
		if err := database.InitDB(ctx); err != nil {
			return nil, nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		dbRepo := repository.NewDBDocumentRepository(database)
		dbRepo.SetCompressor(compression.ByName(cfg.Compression))
		repo = dbRepo
	}

	if err := repo.Init(ctx); err != nil {
		if database != nil {
			database.Close()
		}
		return nil, nil, err
	}
	return database, repo, nil
}

func setupAuth(mux *http.ServeMux, database db.DB) (auth.AuthProvider, error) {
	cfg := config.AppConfig.Features.Authentication
	if !cfg.Enabled {
		mainLogger.Warn().Msg("Authentication disabled, every document belongs to the local user")
		return auth.NoopAuthProvider{}, nil
	}

	switch cfg.Type {
	case "ed25519":
		provider, err := auth.NewEd25519AuthProvider(os.Getenv("ED25519_PUBKEY"), "Authorization", model.UserID("admin"))
		if err != nil {
			return nil, err
		}
		if err := auth.RegisterEd25519AuthRoutes(mux, provider, content); err != nil {
			return nil, err
		}
		return provider, nil

	case "clerk":
		provider := auth.NewClerkAuthProvider(os.Getenv("CLERK_API"), database)
		mux.HandleFunc(routes.WebhookUser, provider.HandleWebhookUser)
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown authentication type %q", cfg.Type)
	}
}

func withRequestLogger(root zerolog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := root.With().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next(w, r.WithContext(l.WithContext(r.Context())))
	}
}

func cacheIt(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		// Add etag header to response if it's a static file
		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")

		h(w, r)
	}
}

func serveThemePostToggle(w http.ResponseWriter, r *http.Request) {
	newTheme := theme.ToggleTheme(theme.GetThemeFromRequest(r))

	http.SetCookie(w, &http.Cookie{
		Name:  config.CookieTheme,
		Value: newTheme,
		Path:  "/",
	})

	syntaxTheme := theme.GetDefaultSyntaxTheme(newTheme)
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil {
		syntaxTheme = cookie.Value
	}

	w.Header().Set(config.HHxTrigger, fmt.Sprintf(`{"themeChanged":{"value":%q,"syntaxTheme":%q}}`, newTheme, syntaxTheme))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(theme.GetThemeIcon(newTheme)))
}

func serveSyntaxThemePostSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	currTheme := r.FormValue("syntax-theme-select")
	if currTheme == "" {
		http.Error(w, "theme required", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    currTheme,
		Path:     "/",
		HttpOnly: true,
	})

	writeSyntaxCSS(w, currTheme)
}

func serveSyntaxThemeGetTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}
	writeSyntaxCSS(w, r.PathValue("theme"))
}

func writeSyntaxCSS(w http.ResponseWriter, syntaxTheme string) {
	themeStyle := []byte(theme.GenerateSyntaxCSS(syntaxTheme))
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	w.WriteHeader(http.StatusOK)
	w.Write(themeStyle)
}

// handleReloadDocument tells open editors that the stored document changed.
func handleReloadDocument(id model.DocumentID) {
	mainLogger.Info().Str("document_id", string(id)).Msg("Document changed in storage")
	clients.Broadcast(id, sse.Message{Event: sse.EventReload, Data: string(id)})
}
