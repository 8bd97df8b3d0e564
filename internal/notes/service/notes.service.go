package service

import (
	"context"
	"errors"
	"time"

	"studynotes/internal/notes/model"
	"studynotes/internal/notes/repository"
	"studynotes/pkg/logger"
	"studynotes/pkg/metrics"
)

var ErrServiceStopped = errors.New("notes save worker is not running")

// Publisher receives every successfully saved document.
type Publisher interface {
	BroadcastDocument(doc model.Document)
}

type saveRequest struct {
	ctx    context.Context
	doc    model.Document
	result chan error
}

// NotesService reads and replaces the whole notes document. Saves are applied
// one at a time, in arrival order, by SaveWorker.
type NotesService struct {
	Repo repository.NotesRepository
	Hub  Publisher

	queue chan saveRequest
	done  chan struct{}
}

func NewNotesService(repo repository.NotesRepository, hub Publisher) *NotesService {
	return &NotesService{
		Repo:  repo,
		Hub:   hub,
		queue: make(chan saveRequest),
		done:  make(chan struct{}),
	}
}

// Load never fails: a missing or unreadable document is reported as empty.
func (s *NotesService) Load(ctx context.Context) model.Document {
	start := time.Now()
	doc, err := s.Repo.Load(ctx)
	metrics.NotesStoreDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	metrics.NotesOperationsTotal.WithLabelValues("load", metrics.Result(err)).Inc()
	if err != nil {
		logger.Sugar.Warnf("Serving empty notes document after load failure: %v", err)
		return model.Document{}
	}
	if doc == nil {
		return model.Document{}
	}
	return doc
}

// Save hands doc to the worker and waits for the write to finish.
func (s *NotesService) Save(ctx context.Context, doc model.Document) error {
	req := saveRequest{ctx: ctx, doc: doc.Clone(), result: make(chan error, 1)}
	select {
	case s.queue <- req:
	case <-s.done:
		return ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		// The write may still land; the caller just stops waiting.
		return ctx.Err()
	}
}

// SaveWorker applies queued saves until ctx is done.
func (s *NotesService) SaveWorker(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			req.result <- s.write(req.ctx, req.doc)
		}
	}
}

func (s *NotesService) write(ctx context.Context, doc model.Document) error {
	start := time.Now()
	err := s.Repo.Save(ctx, doc)
	metrics.NotesStoreDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	metrics.NotesOperationsTotal.WithLabelValues("save", metrics.Result(err)).Inc()
	if err != nil {
		logger.Sugar.Errorf("Failed to save notes document: %v", err)
		return err
	}

	metrics.NotesSections.Set(float64(doc.Len()))
	logger.Sugar.Infof("Saved notes document: %d topics, %d sections", len(doc), doc.Len())
	if s.Hub != nil {
		s.Hub.BroadcastDocument(doc)
	}
	return nil
}

// Fetch and Push let the in-process study UI use the service as its remote.
func (s *NotesService) Fetch(ctx context.Context) (model.Document, error) {
	return s.Load(ctx), nil
}

func (s *NotesService) Push(ctx context.Context, doc model.Document) error {
	return s.Save(ctx, doc)
}
