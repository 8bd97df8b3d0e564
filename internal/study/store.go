package study

import (
	"context"
	"reflect"
	"sync"
	"time"

	"studynotes/internal/notes/model"
	"studynotes/pkg/logger"

	"github.com/google/uuid"
)

type State int

const (
	Uninitialized State = iota
	Loaded
	Mutated
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Mutated:
		return "mutated"
	default:
		return "uninitialized"
	}
}

// Section is one note entry. The ID is generated on the client and lives
// only in memory; the stored document holds the text alone.
type Section struct {
	ID   string
	Text string
}

// TopicStore is the in-memory notes document, pushed in full to the remote
// after every change.
type TopicStore struct {
	remote Remote
	topics []string
	saver  *saver
	newID  func() string

	mu       sync.RWMutex
	state    State
	order    []string
	sections map[string][]Section
	// pushed holds the latest snapshots this store sent, newest last.
	pushed []model.Document
}

// pushedHistory bounds how many of our own snapshots Apply recognises.
const pushedHistory = 8

type StoreOption func(*TopicStore)

// WithSaveTimeout bounds each push to the remote.
func WithSaveTimeout(d time.Duration) StoreOption {
	return func(s *TopicStore) { s.saver.timeout = d }
}

// WithIDGenerator replaces uuid section ids, mostly for tests.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *TopicStore) { s.newID = fn }
}

// NewTopicStore starts with an empty section list for every topic.
func NewTopicStore(remote Remote, topics []string, opts ...StoreOption) *TopicStore {
	s := &TopicStore{
		remote: remote,
		topics: append([]string(nil), topics...),
		saver:  newSaver(remote, 10*time.Second),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.replace(SeedDocument(s.topics))
	return s
}

// Mount loads the stored document once. A non-empty result is merged with
// the fixed topics; an empty or failed load keeps the seeded state. Later
// calls do nothing.
func (s *TopicStore) Mount(ctx context.Context) error {
	s.mu.RLock()
	mounted := s.state != Uninitialized
	s.mu.RUnlock()
	if mounted {
		return nil
	}

	doc, err := s.remote.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Uninitialized {
		return nil
	}
	s.state = Loaded
	if err != nil {
		logger.Sugar.Errorf("Error loading notes: %v", err)
		return err
	}
	if len(doc) > 0 {
		s.replaceLocked(Merge(doc, s.topics))
	}
	return nil
}

func (s *TopicStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FixedTopics is the configured topic list.
func (s *TopicStore) FixedTopics() []string {
	return append([]string(nil), s.topics...)
}

// Topics lists every topic key, fixed ones first.
func (s *TopicStore) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *TopicStore) HasTopic(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sections[topic]
	return ok
}

func (s *TopicStore) Sections(topic string) []Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Section(nil), s.sections[topic]...)
}

func (s *TopicStore) Section(topic, id string) (Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.sections[topic], id)
	if i < 0 {
		return Section{}, false
	}
	return s.sections[topic][i], true
}

func (s *TopicStore) SectionAt(topic string, index int) (Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.sections[topic]
	if index < 0 || index >= len(list) {
		return Section{}, false
	}
	return list[index], true
}

// Document is a snapshot in the wire format.
func (s *TopicStore) Document() model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentLocked()
}

// AddSection appends text to the topic. Blank text is the caller's problem.
func (s *TopicStore) AddSection(topic, text string) (Section, bool) {
	s.mu.Lock()
	list, ok := s.sections[topic]
	if !ok {
		s.mu.Unlock()
		return Section{}, false
	}
	sec := Section{ID: s.newID(), Text: text}
	s.sections[topic] = append(list[:len(list):len(list)], sec)
	s.commitLocked()
	return sec, true
}

// EditSection replaces the text of one entry. An unknown id changes nothing.
func (s *TopicStore) EditSection(topic, id, text string) bool {
	s.mu.Lock()
	i := indexOf(s.sections[topic], id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.editLocked(topic, i, text)
	return true
}

// RemoveSection deletes one entry; later entries move up by one.
func (s *TopicStore) RemoveSection(topic, id string) bool {
	s.mu.Lock()
	i := indexOf(s.sections[topic], id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.removeLocked(topic, i)
	return true
}

// EditAt is EditSection by position. Out of range changes nothing.
func (s *TopicStore) EditAt(topic string, index int, text string) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.sections[topic]) {
		s.mu.Unlock()
		return false
	}
	s.editLocked(topic, index, text)
	return true
}

// RemoveAt is RemoveSection by position. Out of range changes nothing.
func (s *TopicStore) RemoveAt(topic string, index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.sections[topic]) {
		s.mu.Unlock()
		return false
	}
	s.removeLocked(topic, index)
	return true
}

// Flush waits for queued saves to reach the remote and returns the result
// of the last one.
func (s *TopicStore) Flush(ctx context.Context) error {
	if err := s.saver.wait(ctx); err != nil {
		return err
	}
	return s.saver.err()
}

// LastSaveError is the outcome of the most recent push, nil if it worked.
func (s *TopicStore) LastSaveError() error {
	return s.saver.err()
}

// Apply replaces local state with a document changed outside this store,
// e.g. by an edit to the notes file. It does not trigger a save and reports
// false when doc matches the current state, when a local save is still
// pending (that save is newer and will overwrite doc anyway), or when doc is
// one of this store's own recent snapshots read back late. Entries whose
// text is unchanged at the same position keep their ids.
func (s *TopicStore) Apply(doc model.Document) bool {
	merged := Merge(doc, s.topics)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saver.busy() || reflect.DeepEqual(merged, s.documentLocked()) || s.ownSnapshotLocked(merged) {
		return false
	}
	old := s.sections
	s.replaceLocked(merged)
	for topic, list := range s.sections {
		prev := old[topic]
		for i := range list {
			if i < len(prev) && prev[i].Text == list[i].Text {
				list[i].ID = prev[i].ID
			}
		}
	}
	if s.state == Uninitialized {
		s.state = Loaded
	}
	return true
}

func (s *TopicStore) editLocked(topic string, i int, text string) {
	list := append([]Section(nil), s.sections[topic]...)
	list[i].Text = text
	s.sections[topic] = list
	s.commitLocked()
}

func (s *TopicStore) removeLocked(topic string, i int) {
	old := s.sections[topic]
	list := make([]Section, 0, len(old)-1)
	list = append(list, old[:i]...)
	list = append(list, old[i+1:]...)
	s.sections[topic] = list
	s.commitLocked()
}

// commitLocked marks the state mutated, queues a save of the whole document
// and releases the lock. Queueing under the lock keeps snapshots in order.
func (s *TopicStore) commitLocked() {
	s.state = Mutated
	doc := s.documentLocked()
	s.pushed = append(s.pushed, doc)
	if len(s.pushed) > pushedHistory {
		s.pushed = s.pushed[len(s.pushed)-pushedHistory:]
	}
	s.saver.enqueue(doc.Clone())
	s.mu.Unlock()
}

// ownSnapshotLocked reports whether doc is one of the documents this store
// pushed itself, e.g. a reload racing with our own save.
func (s *TopicStore) ownSnapshotLocked(doc model.Document) bool {
	for _, own := range s.pushed {
		if reflect.DeepEqual(own, doc) {
			return true
		}
	}
	return false
}

func (s *TopicStore) replace(doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(doc)
}

func (s *TopicStore) replaceLocked(doc model.Document) {
	s.sections = make(map[string][]Section, len(doc))
	for topic, texts := range doc {
		list := make([]Section, len(texts))
		for i, text := range texts {
			list[i] = Section{ID: s.newID(), Text: text}
		}
		s.sections[topic] = list
	}
	s.order = topicOrder(doc, s.topics)
}

func (s *TopicStore) documentLocked() model.Document {
	doc := make(model.Document, len(s.sections))
	for topic, list := range s.sections {
		texts := make([]string, len(list))
		for i, sec := range list {
			texts[i] = sec.Text
		}
		doc[topic] = texts
	}
	return doc
}

func indexOf(list []Section, id string) int {
	for i, sec := range list {
		if sec.ID == id {
			return i
		}
	}
	return -1
}
