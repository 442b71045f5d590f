package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/db"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/util"
	"github.com/debemdeboas/the-draftroom/internal/util/compression"
	"github.com/google/uuid"
)

type DBDocumentRepository struct { // implements DocumentRepository
	*index

	lastModifiedTime *time.Time // Track the latest modification time

	db         db.DB
	compressor compression.Compressor
}

func NewDBDocumentRepository(db db.DB) *DBDocumentRepository {
	return &DBDocumentRepository{
		index: newIndex(),

		db: db,

		compressor: compression.ZstdCompressor{},
	}
}

// SetCompressor changes the codec new writes use. Stored rows are read with
// whichever codec wrote them.
func (r *DBDocumentRepository) SetCompressor(c compression.Compressor) {
	r.compressor = c
}

func (r *DBDocumentRepository) Init(ctx context.Context) error {
	docs, docMap, err := r.GetDocuments(ctx)
	if err != nil {
		return fmt.Errorf("error initializing documents: %w", err)
	}

	r.replace(docs, docMap)
	return nil
}

func (r *DBDocumentRepository) GetLatestModifiedTime(ctx context.Context) (*time.Time, error) {
	var latestTimeStr sql.NullString
	row := r.db.QueryRow(ctx, `SELECT MAX(modified_at) FROM documents`)
	if err := row.Scan(&latestTimeStr); err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil // NULL: no documents yet
	}

	// go-sqlite3 returns MAX() as a string, possibly with a space separator.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		time.RFC3339,
	}

	var latestTime time.Time
	var parseErr error
	for _, format := range timeFormats {
		latestTime, parseErr = time.Parse(format, latestTimeStr.String)
		if parseErr == nil {
			return &latestTime, nil
		}
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

func (r *DBDocumentRepository) GetDocuments(ctx context.Context) ([]model.Document, map[model.DocumentID]*model.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, format, content, content_hash, created_at, modified_at, user_id FROM documents`)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	docMap := make(map[model.DocumentID]*model.Document)
	var latestModTime *time.Time

	for rows.Next() {
		var doc model.Document
		var compressed []byte
		var hash, owner sql.NullString
		var modified sql.NullTime

		err := rows.Scan(&doc.ID, &doc.Name, &doc.Format, &compressed, &hash, &doc.CreatedDate, &modified, &owner)
		if err != nil {
			return nil, nil, fmt.Errorf("error scanning document: %w", err)
		}
		doc.Owner = model.UserID(owner.String)
		doc.ModifiedDate = doc.CreatedDate
		if modified.Valid {
			doc.ModifiedDate = modified.Time
		}

		if latestModTime == nil || doc.ModifiedDate.After(*latestModTime) {
			t := doc.ModifiedDate
			latestModTime = &t
		}

		content, err := compression.Detect(compressed).Decompress(compressed)
		if err != nil {
			return nil, nil, fmt.Errorf("error decompressing content of %s: %w", doc.ID, err)
		}
		doc.SetContent(content)
		if hash.Valid && hash.String != doc.ContentHash {
			repoLogger.Warn().Str("document_id", string(doc.ID)).Msg("Stored content hash does not match content")
		}

		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating documents: %w", err)
	}

	r.lastModifiedTime = latestModTime

	// Pointers are taken after sorting so they stay on the right element.
	sortDocuments(docs)
	for i := range docs {
		docMap[docs[i].ID] = &docs[i]
	}

	return docs, docMap, nil
}

func (r *DBDocumentRepository) reload(ctx context.Context) {
	// Lightweight check first
	latestTime, err := r.GetLatestModifiedTime(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error checking latest modification time")
		return
	}

	if r.lastModifiedTime != nil && latestTime != nil && !latestTime.After(*r.lastModifiedTime) {
		repoLogger.Debug().Msg("No documents modified, skipping reload")
		return
	}

	repoLogger.Debug().Msg("Documents may have changed, performing full reload")

	docs, docMap, err := r.GetDocuments(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error reloading documents")
		return
	}

	if r.reconcile(docs, docMap) {
		repoLogger.Info().Msg("Documents have changed, cache updated")
	}
}

func (r *DBDocumentRepository) ReloadDocuments(ctx context.Context, interval time.Duration) {
	poll(ctx, interval, r.reload)
}

func (r *DBDocumentRepository) NewDocument(name string, format model.Format, owner model.UserID) *model.Document {
	return newDocument(model.DocumentID(uuid.New().String()), name, format, owner)
}

func (r *DBDocumentRepository) SaveDocument(ctx context.Context, doc *model.Document) error {
	compressed, err := r.compressor.Compress(doc.Content)
	if err != nil {
		return fmt.Errorf("error compressing content: %w", err)
	}

	doc.ContentHash = util.ContentHash(doc.Content)

	_, err = r.db.Exec(ctx,
		`INSERT INTO documents (id, name, format, content, content_hash, created_at, modified_at, user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Format, compressed, doc.ContentHash, doc.CreatedDate, doc.ModifiedDate, doc.Owner,
	)
	if err != nil {
		return fmt.Errorf("error saving document: %w", err)
	}

	r.put(doc)
	repoLogger.Debug().Str("document_id", string(doc.ID)).Msg("Document saved")
	return nil
}

func (r *DBDocumentRepository) SetDocumentContent(ctx context.Context, id model.DocumentID, content []byte) (*model.Document, error) {
	doc, err := r.ReadDocument(id)
	if err != nil {
		return nil, err
	}

	doc.SetContent(content)
	doc.ModifiedDate = time.Now().UTC()

	compressed, err := r.compressor.Compress(content)
	if err != nil {
		return nil, fmt.Errorf("error compressing content: %w", err)
	}

	res, err := r.db.Exec(ctx,
		`UPDATE documents SET content = ?, content_hash = ?, modified_at = ? WHERE id = ?`,
		compressed, doc.ContentHash, doc.ModifiedDate, doc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrDocumentNotFound
	}

	r.put(doc)
	repoLogger.Debug().Str("document_id", string(doc.ID)).Int("bytes", len(content)).Msg("Document content set")

	return doc, nil
}
