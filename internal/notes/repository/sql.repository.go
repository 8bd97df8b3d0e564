package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studynotes/internal/notes/model"
	"studynotes/pkg/logger"
)

// DefaultDocumentID is the key of the single row holding the document.
const DefaultDocumentID = "default"

// Dialect holds the statements that differ between database engines.
type Dialect struct {
	Name   string
	Schema string
	Select string
	Upsert string
}

var (
	PostgresDialect = Dialect{
		Name: "postgres",
		Schema: `CREATE TABLE IF NOT EXISTS notes_documents (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		Select: `SELECT content FROM notes_documents WHERE id = $1`,
		Upsert: `INSERT INTO notes_documents (id, content, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()`,
	}

	SQLiteDialect = Dialect{
		Name: "sqlite",
		Schema: `CREATE TABLE IF NOT EXISTS notes_documents (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		Select: `SELECT content FROM notes_documents WHERE id = ?`,
		Upsert: `INSERT INTO notes_documents (id, content, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (id) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
	}
)

// SQLRepository stores the whole document as one JSON text row.
type SQLRepository struct {
	DB      *sql.DB
	Dialect Dialect
	DocID   string
}

func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{DB: db, Dialect: dialect, DocID: DefaultDocumentID}
}

func (r *SQLRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Schema)
	if err != nil {
		logger.Sugar.Errorf("Failed to create notes table (%s): %v", r.Dialect.Name, err)
	}
	return err
}

func (r *SQLRepository) Load(ctx context.Context) (model.Document, error) {
	var content string
	err := r.DB.QueryRowContext(ctx, r.Dialect.Select, r.DocID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load notes document %s: %v", r.DocID, err)
		return model.Document{}, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	doc, err := model.Decode([]byte(content))
	if err != nil {
		logger.Sugar.Errorf("Failed to parse notes document %s: %v", r.DocID, err)
		return model.Document{}, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return doc, nil
}

func (r *SQLRepository) Save(ctx context.Context, doc model.Document) error {
	data, err := model.Encode(doc)
	if err != nil {
		logger.Sugar.Errorf("Failed to encode notes document: %v", err)
		return err
	}
	if _, err := r.DB.ExecContext(ctx, r.Dialect.Upsert, r.DocID, string(data)); err != nil {
		logger.Sugar.Errorf("Failed to save notes document %s: %v", r.DocID, err)
		return err
	}
	return nil
}
