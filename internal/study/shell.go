package study

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"studynotes/internal/notes/model"
)

// ScrollThreshold is the scroll offset past which the scroll-to-top control
// is shown.
const ScrollThreshold = 200

const exportPrefix = "algorithm_study_notes_"

// AppShell is the application state around the topic views: selected topic,
// global search term and export. Safe for concurrent use.
type AppShell struct {
	Store *TopicStore

	mu       sync.Mutex
	views    map[string]*TopicView
	selected string
	search   string
	now      func() time.Time
}

func NewAppShell(store *TopicStore) *AppShell {
	selected := ""
	if fixed := store.FixedTopics(); len(fixed) > 0 {
		selected = fixed[0]
	}
	return &AppShell{
		Store:    store,
		views:    make(map[string]*TopicView),
		selected: selected,
		now:      time.Now,
	}
}

func (a *AppShell) SelectedTopic() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// SelectTopic switches the displayed topic. Unknown topics are refused.
func (a *AppShell) SelectTopic(topic string) bool {
	if !a.Store.HasTopic(topic) {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = topic
	return true
}

func (a *AppShell) SearchTerm() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.search
}

func (a *AppShell) SetSearch(term string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.search = term
}

// WithView runs fn with the selected topic's view under the shell lock.
func (a *AppShell) WithView(fn func(v *TopicView)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.viewLocked(a.selected))
}

func (a *AppShell) viewLocked(topic string) *TopicView {
	v, ok := a.views[topic]
	if !ok {
		v = NewTopicView(a.Store, topic)
		a.views[topic] = v
	}
	return v
}

// HasMatchingContent reports whether the search term matches a section in
// any topic. An empty term always matches.
func (a *AppShell) HasMatchingContent() bool {
	term := a.SearchTerm()
	if term == "" {
		return true
	}
	for _, texts := range a.Store.Document() {
		for _, text := range texts {
			if Matches(text, term) {
				return true
			}
		}
	}
	return false
}

// Export renders the in-memory document for download. Nothing is sent to the
// server.
func (a *AppShell) Export() (string, []byte, error) {
	data, err := model.Encode(a.Store.Document())
	if err != nil {
		return "", nil, fmt.Errorf("encode export: %w", err)
	}
	return ExportFilename(a.now()), data, nil
}

// ExportFilename is algorithm_study_notes_<UTC ISO-8601 millis>.json with
// ':' and '.' in the timestamp replaced by '-'.
func ExportFilename(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return exportPrefix + ts + ".json"
}

// ShowScrollButton reports whether the scroll-to-top control is visible at
// the given scroll offset.
func ShowScrollButton(scrollY int) bool {
	return scrollY > ScrollThreshold
}
