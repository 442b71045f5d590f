package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/auth"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/metrics"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/placeholder"
	"github.com/debemdeboas/the-draftroom/internal/render"
	"github.com/debemdeboas/the-draftroom/internal/repository"
	"github.com/debemdeboas/the-draftroom/internal/routes"
	"github.com/debemdeboas/the-draftroom/internal/theme"
	"github.com/go-playground/validator"
	"github.com/rs/zerolog"
)

var (
	errForbidden  = errors.New("document belongs to another user")
	errBadRequest = errors.New("malformed request")
)

type Options struct {
	Variant      string
	SaveDelay    time.Duration
	LivePreview  bool
	ShowPreview  bool
	MaxPayloadMB int
}

// OptionsFromConfig reads the editor section of the loaded configuration.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Variant:      c.Editor.Variant,
		SaveDelay:    c.Editor.SaveDelay,
		LivePreview:  c.Editor.LivePreview,
		ShowPreview:  c.Editor.ShowPreview,
		MaxPayloadMB: c.Editor.MaxPayloadMB,
	}
}

type Handler struct {
	registry *Registry
	repo     repository.DocumentRepository
	catalog  *placeholder.Catalog
	auth     auth.AuthProvider

	validate *validator.Validate
	pages    map[string]*template.Template
	partial  *template.Template

	opts Options
}

func parsePage(files fs.FS, page string) (*template.Template, error) {
	tmpl, err := template.ParseFS(files,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplatePreview,
		config.TemplatesLocalDir+"/"+page,
	)
	if err != nil {
		return nil, fmt.Errorf("error loading template %s: %w", page, err)
	}
	return tmpl, nil
}

func NewHandler(
	registry *Registry,
	repo repository.DocumentRepository,
	catalog *placeholder.Catalog,
	provider auth.AuthProvider,
	files fs.FS,
	opts Options,
) (*Handler, error) {
	h := &Handler{
		registry: registry,
		repo:     repo,
		catalog:  catalog,
		auth:     provider,
		validate: validator.New(),
		pages:    make(map[string]*template.Template),
		opts:     opts,
	}

	for _, page := range []string{config.TemplateIndex, config.TemplateEditor} {
		tmpl, err := parsePage(files, page)
		if err != nil {
			return nil, err
		}
		h.pages[page] = tmpl
	}

	partial, err := template.ParseFS(files, config.TemplatesLocalDir+"/"+config.TemplatePreview)
	if err != nil {
		return nil, fmt.Errorf("error loading preview template: %w", err)
	}
	h.partial = partial

	if h.opts.MaxPayloadMB <= 0 {
		h.opts.MaxPayloadMB = 20
	}
	return h, nil
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", metrics.Instrument("dashboard", h.ServeDashboard))
	mux.HandleFunc(routes.DocumentsCreate, metrics.Instrument("documents_create", h.CreateDocument))
	mux.HandleFunc(routes.DocumentsEdit, metrics.Instrument("documents_edit", h.ServeEditor))
	mux.HandleFunc(routes.EditorBack, metrics.Instrument("editor_back", h.NavigateBack))
	mux.HandleFunc(routes.APIEditorDraft, metrics.Instrument("editor_draft", h.UpdateDraft))
	mux.HandleFunc(routes.APIEditorPlaceholders, metrics.Instrument("editor_placeholders", h.InsertPlaceholder))
	mux.HandleFunc(routes.APIEditorSave, metrics.Instrument("editor_save", h.Save))
	mux.HandleFunc(routes.APIPlaceholders, metrics.Instrument("placeholders", h.ServeCatalog))
	mux.HandleFunc(routes.PartialsPreview, metrics.Instrument("preview", h.ServePreview))
	mux.HandleFunc(routes.WSPreview, h.ServePreviewSocket)
}

// session returns the caller's session, creating one and setting the cookie
// when the browser has none.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	var id SessionID
	if cookie, err := r.Cookie(config.CookieSessionID); err == nil {
		id = SessionID(cookie.Value)
	}

	session, created := h.registry.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     config.CookieSessionID,
			Value:    string(session.ID),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
		zerolog.Ctx(r.Context()).Debug().Str("session_id", string(session.ID)).Msg("Created editor session")
	}
	return session
}

// requireUser redirects full page loads to the login page.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (model.UserID, bool) {
	userID, err := h.auth.GetUserIDFromSession(r)
	if err != nil {
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return "", false
	}
	return userID, true
}

func canEdit(doc *model.Document, userID model.UserID) bool {
	return doc.Owner == "" || doc.Owner == userID
}

// statusFor maps editor and repository errors to an HTTP status and a
// message safe to show the user.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, config.ErrPayloadTooLarge
	case errors.Is(err, ErrSaveInProgress):
		return http.StatusConflict, config.ErrSaveInProgress
	case errors.Is(err, ErrDocumentMismatch):
		return http.StatusConflict, config.ErrDocumentMismatch
	case errors.Is(err, ErrNoDocument):
		return http.StatusBadRequest, config.ErrNoActiveDocument
	case errors.Is(err, repository.ErrDocumentNotFound):
		return http.StatusNotFound, config.ErrDocumentNotFound
	case errors.Is(err, ErrSerialization):
		return http.StatusBadGateway, config.ErrSerializeDocument
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError, config.ErrPersistDocument
	case errors.Is(err, placeholder.ErrUnknownPlaceholder):
		return http.StatusBadRequest, config.ErrInvalidPlaceholder
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, config.ErrForbidden
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, config.ErrInvalidRequest
	default:
		return http.StatusInternalServerError, config.ErrInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	l := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", status).Msg("Editor request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("Editor request rejected")
	}
	http.Error(w, msg, status)
}

// applyDraft stores the "content" field, if sent, for the document named by
// the "document" field. Another tab sharing the session cookie may have
// opened a different document; such requests fail with ErrDocumentMismatch.
func applyDraft(session *Session, form url.Values) error {
	id := model.DocumentID(form.Get("document"))
	if !form.Has("content") {
		return session.Expect(id)
	}
	return session.SetDraftFor(id, []byte(form.Get("content")))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type dashboardPage struct {
	*model.PageData
	Documents []model.Document
	Variant   string
}

func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var docs []model.Document
	for _, doc := range h.repo.GetDocumentList() {
		if canEdit(&doc, userID) {
			docs = append(docs, doc)
		}
	}

	data := dashboardPage{
		PageData:  model.NewPageData(r),
		Documents: docs,
		Variant:   h.opts.Variant,
	}
	data.UserID = userID

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := h.pages[config.TemplateIndex].ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render dashboard")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

type createRequest struct {
	Name   string `validate:"required,max=200"`
	Format string `validate:"omitempty,oneof=text rich"`
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.EnforceUserAndGetID(w, r)
	if err != nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	req := createRequest{
		Name:   strings.TrimSpace(r.PostForm.Get("name")),
		Format: r.PostForm.Get("format"),
	}
	if err := h.validate.Struct(req); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Invalid create request")
		http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	format := model.Format(req.Format)
	if format == "" {
		format = model.FormatText
		if h.opts.Variant == config.VariantRich {
			format = model.FormatRich
		}
	}

	doc := h.repo.NewDocument(req.Name, format, userID)
	if err := h.repo.SaveDocument(r.Context(), doc); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", ErrPersistence, err))
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("document_id", string(doc.ID)).Str("format", string(format)).Msg("Document created")

	target := routes.EditPath(string(doc.ID))
	w.Header().Set(config.HHxRedirect, target)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type editorPage struct {
	*model.PageData
	Document    *model.Document
	Draft       string
	Characters  int
	Groups      []placeholder.Group
	Usage       []placeholder.Usage
	Preview     previewPartial
	Variant     string
	LivePreview bool
	SaveStatus  string
}

func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	doc, err := h.repo.ReadDocument(model.DocumentID(r.PathValue("id")))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !canEdit(doc, userID) {
		writeError(w, r, errForbidden)
		return
	}

	session := h.session(w, r)
	session.Open(doc)
	draft := session.Draft()

	variant := config.VariantPlain
	if doc.IsRich() {
		variant = config.VariantRich
	}

	isEditor := true
	data := editorPage{
		PageData:    model.NewPageData(r),
		Document:    doc,
		Draft:       string(draft),
		Characters:  session.Characters(),
		Groups:      h.catalog.Groups(),
		Usage:       h.catalog.Find(draft),
		Variant:     variant,
		LivePreview: h.opts.LivePreview,
		SaveStatus:  session.Status().String(),
	}
	data.IsEditorPage = &isEditor
	data.UserID = userID
	if !doc.IsRich() {
		data.Preview = previewPartial{
			Preview:    render.RenderPreview(draft, data.SyntaxTheme, h.opts.ShowPreview),
			Characters: data.Characters,
		}
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := h.pages[config.TemplateEditor].ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render editor")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func (h *Handler) NavigateBack(w http.ResponseWriter, r *http.Request) {
	h.session(w, r).NavigateBack()
	w.Header().Set(config.HHxRedirect, routes.RootPath)
	http.Redirect(w, r, routes.RootPath, http.StatusSeeOther)
}

type previewPartial struct {
	render.Preview
	Characters int
}

func (h *Handler) writePreview(w http.ResponseWriter, r *http.Request, session *Session, show bool) {
	preview := render.RenderPreview(session.Draft(), theme.GetSyntaxThemeFromRequest(r), show)
	w.Header().Set(config.HCType, config.CTypeHTML)
	err := h.partial.ExecuteTemplate(w, config.TemplatePreview, previewPartial{
		Preview:    preview,
		Characters: session.Characters(),
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render preview")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func showPreview(r *http.Request, fallback bool) bool {
	if v, err := strconv.ParseBool(r.FormValue("show")); err == nil {
		return v
	}
	return fallback
}

// UpdateDraft stores what the user typed and answers with the preview.
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	session := h.session(w, r)
	if err := applyDraft(session, r.PostForm); err != nil {
		writeError(w, r, err)
		return
	}
	h.writePreview(w, r, session, showPreview(r, h.opts.ShowPreview))
}

func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	h.writePreview(w, r, h.session(w, r), showPreview(r, h.opts.ShowPreview))
}

// formSurface is the browser's text area as described by one request. The
// after-render hooks run once the response draft is ready, and their effect
// is returned to the browser to apply.
type formSurface struct {
	start, end int

	focused bool
	cursor  int
	hooks   []func()
}

func (f *formSurface) Selection() (int, int) {
	return f.start, f.end
}

func (f *formSurface) Focus() {
	f.focused = true
}

func (f *formSurface) SetCursor(pos int) {
	f.cursor = pos
}

func (f *formSurface) AfterRender(fn func()) {
	f.hooks = append(f.hooks, fn)
}

func (f *formSurface) render() {
	hooks := f.hooks
	f.hooks = nil
	for _, fn := range hooks {
		fn()
	}
}

type insertRequest struct {
	Code  string `validate:"required,max=128"`
	Start *int   `validate:"omitempty,min=0"`
	End   *int   `validate:"omitempty,min=0"`
}

type insertResponse struct {
	Content    string `json:"content"`
	Cursor     int    `json:"cursor"`
	Focus      bool   `json:"focus"`
	Characters int    `json:"characters"`
}

func formInt(r *http.Request, key string) (*int, error) {
	raw := strings.TrimSpace(r.PostForm.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &n, nil
}

// InsertPlaceholder inserts a token at the browser's selection. Offsets are
// UTF-16 code units, as the text area reports them. Without offsets the token
// is appended.
func (h *Handler) InsertPlaceholder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	req := insertRequest{Code: strings.TrimSpace(r.PostForm.Get("code"))}
	var err error
	if req.Start, err = formInt(r, "start"); err != nil {
		http.Error(w, config.ErrInvalidPlaceholder, http.StatusBadRequest)
		return
	}
	if req.End, err = formInt(r, "end"); err != nil {
		http.Error(w, config.ErrInvalidPlaceholder, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Invalid placeholder request")
		http.Error(w, config.ErrInvalidPlaceholder, http.StatusBadRequest)
		return
	}

	p, err := h.catalog.Resolve(req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session := h.session(w, r)
	if err := applyDraft(session, r.PostForm); err != nil {
		writeError(w, r, err)
		return
	}

	var surface Surface
	var form *formSurface
	if req.Start != nil {
		draft := session.Draft()
		end := *req.Start
		if req.End != nil {
			end = *req.End
		}
		form = &formSurface{start: ByteOffset(draft, *req.Start), end: ByteOffset(draft, end)}
		surface = form
	}

	cursor := session.InsertPlaceholder(surface, p.Code)
	draft := session.Draft()

	resp := insertResponse{
		Content:    string(draft),
		Cursor:     UnitOffset(draft, cursor),
		Characters: session.Characters(),
	}
	if form != nil {
		form.render()
		resp.Focus = form.focused
		resp.Cursor = UnitOffset(draft, form.cursor)
	}

	writeJSON(w, http.StatusOK, resp)
}

type saveResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
	Characters int    `json:"characters"`
}

// Save persists the current document. Text documents send the draft as the
// "content" form field; rich documents send the widget output as the
// multipart file "payload", or "error" when the widget could not serialize.
// The "document" field names the document the browser is editing; a save
// for any other document is rejected with 409.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	doc := session.Store().CurrentDocument()
	if doc == nil {
		writeError(w, r, ErrNoDocument)
		return
	}

	userID, err := h.auth.EnforceUserAndGetID(w, r)
	if err != nil {
		return
	}
	if !canEdit(doc, userID) {
		writeError(w, r, errForbidden)
		return
	}

	var saver Saver
	if doc.IsRich() {
		saver, err = h.richSaver(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := checkSaveTarget(session, doc, r.FormValue("document")); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
			return
		}
		if err := checkSaveTarget(session, doc, r.PostForm.Get("document")); err != nil {
			writeError(w, r, err)
			return
		}
		if err := applyDraft(session, r.PostForm); err != nil {
			writeError(w, r, err)
			return
		}
		saver = PlainSaver{Delay: h.opts.SaveDelay}
	}

	if err := session.Save(r.Context(), saver); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, saveResponse{
		Status:     "saved",
		DocumentID: string(doc.ID),
		Characters: session.Characters(),
	})
}

// checkSaveTarget fails unless the document the browser names is both the
// store's current document and the one the draft was synced from.
func checkSaveTarget(session *Session, doc *model.Document, id string) error {
	if id != "" && model.DocumentID(id) != doc.ID {
		return fmt.Errorf("%w: %s current, got %s", ErrDocumentMismatch, doc.ID, id)
	}
	return session.Expect(model.DocumentID(id))
}

func (h *Handler) richSaver(w http.ResponseWriter, r *http.Request) (Saver, error) {
	limit := int64(h.opts.MaxPayloadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	if msg := r.FormValue("error"); msg != "" {
		return RichSaver{Widget: SerializerFunc(func(_ context.Context) ([]byte, error) {
			return nil, errors.New(msg)
		})}, nil
	}

	file, _, err := r.FormFile("payload")
	if err != nil {
		return RichSaver{}, nil
	}
	return RichSaver{Widget: SerializerFunc(func(_ context.Context) ([]byte, error) {
		defer file.Close()
		return io.ReadAll(file)
	})}, nil
}

type catalogResponse struct {
	Groups  []placeholder.Group `json:"groups"`
	Usage   []placeholder.Usage `json:"usage"`
	Unknown []string            `json:"unknown"`
}

func (h *Handler) ServeCatalog(w http.ResponseWriter, r *http.Request) {
	var draft []byte
	if cookie, err := r.Cookie(config.CookieSessionID); err == nil {
		if session, err := h.registry.GetSession(SessionID(cookie.Value)); err == nil {
			draft = session.Draft()
		}
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Groups:  h.catalog.Groups(),
		Usage:   h.catalog.Find(draft),
		Unknown: h.catalog.Unknown(draft),
	})
}
