package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/debemdeboas/the-draftroom/internal/db"
	"github.com/debemdeboas/the-draftroom/internal/logger"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/repository"
	"github.com/debemdeboas/the-draftroom/internal/util"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

// main imports a directory of .md and .txt files as text documents.
func main() {
	path := flag.String("path", "", "Path to the directory containing .md or .txt files")
	ownerID := flag.String("owner-id", "", "Owner user ID for the documents")
	sqlitePath := flag.String("sqlite", "./database.db", "SQLite database file")
	dsn := flag.String("postgres", "", "Postgres DSN; takes precedence over -sqlite")
	flag.Parse()

	log = logger.New(os.Getenv("LOG_LEVEL"))

	if *path == "" || *ownerID == "" {
		log.Fatal().Msg("Both --path and --owner-id flags are required")
	}

	var database db.DB = db.NewSQLite(*sqlitePath)
	if *dsn != "" {
		database = db.NewPostgres(*dsn)
	}

	ctx := context.Background()
	if err := database.InitDB(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	defer database.Close()

	repo := repository.NewDBDocumentRepository(database)

	files, err := os.ReadDir(*path)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("Error reading directory")
	}

	imported := 0
	for _, file := range files {
		if file.IsDir() || !isDocumentFile(file.Name()) {
			continue
		}
		doc, err := importFile(ctx, *path, file, repo, model.UserID(*ownerID))
		if err != nil {
			log.Error().Err(err).Str("file", file.Name()).Msg("Error processing file")
			continue
		}
		imported++
		log.Info().Str("file", file.Name()).Str("document_id", string(doc.ID)).Msg("Imported document")
	}
	log.Info().Int("imported", imported).Msg("Migration complete")
}

func isDocumentFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".txt"
}

// importFile stores one file. The front matter title and date win over the
// file name and modification time.
func importFile(ctx context.Context, dir string, file os.DirEntry, repo repository.DocumentRepository, owner model.UserID) (*model.Document, error) {
	content, err := os.ReadFile(filepath.Join(dir, file.Name()))
	if err != nil {
		return nil, err
	}

	info, err := file.Info()
	if err != nil {
		return nil, err
	}
	modTime := info.ModTime().UTC()

	name := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
	doc := repo.NewDocument(name, model.FormatText, owner)
	doc.SetContent(content)
	doc.CreatedDate = modTime
	doc.ModifiedDate = modTime

	if fm, err := util.GetFrontMatter(content); err == nil && fm.TitleData != nil && !fm.Date.IsZero() {
		doc.CreatedDate = fm.Date.UTC()
	}

	if err := repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
