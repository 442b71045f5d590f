package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/util"
)

// FSDocumentRepository serves a directory of files. The document id is the
// hash of the file name, so renaming a file makes it a new document.
type FSDocumentRepository struct { // implements DocumentRepository
	*index

	documentsPath string
}

var fsExtensions = map[string]model.Format{
	".md":   model.FormatText,
	".txt":  model.FormatText,
	".docx": model.FormatRich,
}

func NewFSDocumentRepository(documentsPath string) *FSDocumentRepository {
	return &FSDocumentRepository{
		index:         newIndex(),
		documentsPath: documentsPath,
	}
}

func fsDocumentID(fileName string) model.DocumentID {
	return model.DocumentID(util.ContentHashString(fileName))
}

func (r *FSDocumentRepository) Init(ctx context.Context) error {
	if err := os.MkdirAll(r.documentsPath, 0o755); err != nil {
		return fmt.Errorf("error creating documents directory: %w", err)
	}

	docs, docMap, err := r.GetDocuments(ctx)
	if err != nil {
		return fmt.Errorf("error initializing documents: %w", err)
	}

	r.replace(docs, docMap)
	return nil
}

func (r *FSDocumentRepository) GetDocuments(ctx context.Context) ([]model.Document, map[model.DocumentID]*model.Document, error) {
	entries, err := os.ReadDir(r.documentsPath)
	if err != nil {
		return nil, nil, err
	}

	var docs []model.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		format, ok := fsExtensions[ext]
		if !ok {
			continue
		}

		content, err := os.ReadFile(filepath.Join(r.documentsPath, entry.Name()))
		if err != nil {
			return nil, nil, err
		}

		fileInfo, err := entry.Info()
		if err != nil {
			return nil, nil, err
		}

		doc := model.Document{
			ID:           fsDocumentID(entry.Name()),
			Name:         strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path:         entry.Name(),
			Format:       format,
			CreatedDate:  fileInfo.ModTime(),
			ModifiedDate: fileInfo.ModTime(),
		}
		doc.SetContent(content)

		docs = append(docs, doc)
	}

	sortDocuments(docs)
	docMap := make(map[model.DocumentID]*model.Document, len(docs))
	for i := range docs {
		docMap[docs[i].ID] = &docs[i]
	}

	return docs, docMap, nil
}

func (r *FSDocumentRepository) reload(ctx context.Context) {
	docs, docMap, err := r.GetDocuments(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error reloading documents")
		return
	}
	r.reconcile(docs, docMap)
}

func (r *FSDocumentRepository) ReloadDocuments(ctx context.Context, interval time.Duration) {
	poll(ctx, interval, r.reload)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileNameFor(name string, format model.Format) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "-"), "-.")
	if base == "" {
		base = "untitled-" + time.Now().UTC().Format("20060102-150405")
	}
	if format == model.FormatRich {
		return base + ".docx"
	}
	return base + ".md"
}

func (r *FSDocumentRepository) NewDocument(name string, format model.Format, owner model.UserID) *model.Document {
	fileName := fileNameFor(name, format)
	doc := newDocument(fsDocumentID(fileName), name, format, owner)
	doc.Path = fileName
	return doc
}

// writeFile replaces the file atomically so a concurrent reload never reads a partial write.
func (r *FSDocumentRepository) writeFile(fileName string, content []byte) error {
	tmp, err := os.CreateTemp(r.documentsPath, ".draft-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(r.documentsPath, fileName))
}

func (r *FSDocumentRepository) SaveDocument(ctx context.Context, doc *model.Document) error {
	if doc.Path == "" {
		doc.Path = fileNameFor(doc.Name, doc.Format)
		doc.ID = fsDocumentID(doc.Path)
	}
	if _, err := os.Stat(filepath.Join(r.documentsPath, doc.Path)); err == nil {
		return fmt.Errorf("error saving document: %s already exists", doc.Path)
	}

	if err := r.writeFile(doc.Path, doc.Content); err != nil {
		return fmt.Errorf("error saving document: %w", err)
	}

	doc.ContentHash = util.ContentHash(doc.Content)
	r.put(doc)
	return nil
}

func (r *FSDocumentRepository) SetDocumentContent(ctx context.Context, id model.DocumentID, content []byte) (*model.Document, error) {
	doc, err := r.ReadDocument(id)
	if err != nil {
		return nil, err
	}

	if err := r.writeFile(doc.Path, content); err != nil {
		return nil, fmt.Errorf("error writing %s: %w", doc.Path, err)
	}

	doc.SetContent(content)
	doc.ModifiedDate = time.Now().UTC()
	r.put(doc)

	repoLogger.Debug().Str("document_id", string(doc.ID)).Str("path", doc.Path).Msg("Document content written")
	return doc, nil
}
