package study

import (
	"context"
	"sync"
	"time"

	"studynotes/internal/notes/model"
	"studynotes/pkg/logger"
)

// saver pushes snapshots with at most one request in flight. A snapshot
// queued while a push is running replaces any older queued one, so the last
// push to finish always carries the newest state.
type saver struct {
	remote  Remote
	timeout time.Duration

	mu      sync.Mutex
	pending model.Document
	running bool
	idle    chan struct{}
	lastErr error
	pushes  int
}

func newSaver(remote Remote, timeout time.Duration) *saver {
	idle := make(chan struct{})
	close(idle)
	return &saver{remote: remote, timeout: timeout, idle: idle}
}

func (s *saver) enqueue(doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = doc
	if s.running {
		return
	}
	s.running = true
	s.idle = make(chan struct{})
	go s.loop()
}

func (s *saver) loop() {
	for {
		s.mu.Lock()
		doc := s.pending
		s.pending = nil
		if doc == nil {
			s.running = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.remote.Push(ctx, doc)
		cancel()
		if err != nil {
			logger.Sugar.Errorf("Error saving notes: %v", err)
		}

		s.mu.Lock()
		s.lastErr = err
		s.pushes++
		s.mu.Unlock()
	}
}

// wait blocks until nothing is queued or in flight.
func (s *saver) wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *saver) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *saver) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
