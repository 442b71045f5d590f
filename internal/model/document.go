// Package model defines core data structures and types for the editor.
package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/util"
)

type DocumentID string

type UserID string

// Format tells how a document's content should be interpreted.
type Format string

const (
	// FormatText is markdown or plain text edited in the text area.
	FormatText Format = "text"
	// FormatRich is an opaque payload produced by the embedded rich editor.
	FormatRich Format = "rich"
)

type Document struct {
	ID DocumentID

	Name string
	Path string

	Format  Format
	Content []byte

	// Hash of the raw content. Used to detect changes between reloads and
	// to key the preview cache.
	ContentHash string

	CreatedDate  time.Time
	ModifiedDate time.Time

	// Optional data from Mmark front matter.
	Info *util.ExtendedTitleData

	Owner UserID
}

// GetName prefers the front matter title over the stored name.
func (d *Document) GetName() string {
	if d.Info != nil && d.Info.TitleData != nil && d.Info.Title != "" {
		return d.Info.Title
	}
	if d.Name == "" {
		return "Untitled"
	}
	return d.Name
}

func (d *Document) IsRich() bool {
	return d.Format == FormatRich
}

// Clone returns a copy that shares no content bytes with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Content != nil {
		c.Content = append([]byte(nil), d.Content...)
	}
	return &c
}

// SetContent replaces the content and refreshes the derived fields.
func (d *Document) SetContent(content []byte) {
	d.Content = content
	d.ContentHash = util.ContentHash(content)
	if d.Format != FormatRich {
		if info, err := util.GetFrontMatter(content); err == nil {
			d.Info = info
		} else {
			d.Info = nil
		}
	}
}

// FormatFromPath guesses a format from a file name.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx", ".odt", ".rtf":
		return FormatRich
	default:
		return FormatText
	}
}
