package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"studynotes/internal/notes/model"
	"studynotes/pkg/logger"
)

// FileRepository keeps the document in a single pretty-printed JSON file.
type FileRepository struct {
	Path string
	// OnWrite, if set, runs right before the file is replaced.
	OnWrite func()
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileRepository{Path: path}, nil
}

func (r *FileRepository) Load(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	raw, err := os.ReadFile(r.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Document{}, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read notes file %s: %v", r.Path, err)
		return model.Document{}, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	doc, err := model.Decode(raw)
	if err != nil {
		logger.Sugar.Errorf("Failed to parse notes file %s: %v", r.Path, err)
		return model.Document{}, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return doc, nil
}

// Save writes to a temp file next to the target and renames it into place,
// so a crash mid-write leaves the previous file intact.
func (r *FileRepository) Save(ctx context.Context, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := model.Encode(doc)
	if err != nil {
		logger.Sugar.Errorf("Failed to encode notes document: %v", err)
		return err
	}

	dir := filepath.Dir(r.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Sugar.Errorf("Failed to create data directory %s: %v", dir, err)
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.Path)+".*.tmp")
	if err != nil {
		logger.Sugar.Errorf("Failed to create temp file in %s: %v", dir, err)
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		logger.Sugar.Errorf("Failed to write notes file %s: %v", tmpName, err)
		return err
	}
	if err := tmp.Close(); err != nil {
		logger.Sugar.Errorf("Failed to close notes file %s: %v", tmpName, err)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		logger.Sugar.Warnf("Failed to chmod notes file %s: %v", tmpName, err)
	}
	if r.OnWrite != nil {
		r.OnWrite()
	}
	if err := os.Rename(tmpName, r.Path); err != nil {
		logger.Sugar.Errorf("Failed to replace notes file %s: %v", r.Path, err)
		return err
	}
	return nil
}
