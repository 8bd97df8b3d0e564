package repository

import (
	"context"
	"errors"

	"studynotes/internal/notes/model"
)

// ErrCorruptDocument is returned by Load together with an empty document when
// stored data exists but cannot be read or parsed.
var ErrCorruptDocument = errors.New("stored notes document is unreadable")

// NotesRepository persists the whole notes document. There is no partial
// update: Save replaces everything.
type NotesRepository interface {
	// Load returns the stored document. A store with nothing saved yet
	// returns an empty document and a nil error.
	Load(ctx context.Context) (model.Document, error)
	Save(ctx context.Context, doc model.Document) error
}
