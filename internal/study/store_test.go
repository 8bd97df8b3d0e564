package study

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"studynotes/internal/notes/model"
	"studynotes/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	m.Run()
}

type memRemote struct {
	mu       sync.Mutex
	doc      model.Document
	fetchErr error
	pushErr  error
	pushed   []model.Document
	fetches  int
	block    chan struct{}
}

func (r *memRemote) Fetch(ctx context.Context) (model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.doc.Clone(), nil
}

func (r *memRemote) Push(ctx context.Context, doc model.Document) error {
	r.mu.Lock()
	block := r.block
	r.mu.Unlock()
	if block != nil {
		<-block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, doc.Clone())
	if r.pushErr != nil {
		return r.pushErr
	}
	r.doc = doc.Clone()
	return nil
}

func (r *memRemote) pushes() []model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Document(nil), r.pushed...)
}

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newStore(t *testing.T, remote *memRemote) *TopicStore {
	t.Helper()
	s := NewTopicStore(remote, Topics, WithSaveTimeout(time.Second))
	return s
}

func flush(t *testing.T, s *TopicStore) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.saver.wait(ctx))
}

func texts(sections []Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Text
	}
	return out
}

func TestNewStoreSeedsEveryTopic(t *testing.T) {
	s := newStore(t, &memRemote{})

	assert.Equal(t, Uninitialized, s.State())
	assert.Equal(t, Topics, s.Topics())
	for _, topic := range Topics {
		assert.Empty(t, s.Sections(topic))
		assert.True(t, s.HasTopic(topic))
	}
}

func TestMountMergesStoredDocument(t *testing.T) {
	remote := &memRemote{doc: model.Document{
		"Graph":  {"bfs", "dfs"},
		"Tries":  {"prefix tree"},
		"Custom": nil,
	}}
	s := newStore(t, remote)

	require.NoError(t, s.Mount(context.Background()))
	assert.Equal(t, Loaded, s.State())

	doc := s.Document()
	for _, topic := range Topics {
		assert.Contains(t, doc, topic)
	}
	assert.Equal(t, []string{"bfs", "dfs"}, doc["Graph"])
	assert.Equal(t, []string{"prefix tree"}, doc["Tries"], "topics outside the fixed set are kept")
	assert.Equal(t, []string{}, doc["Custom"])
	assert.Equal(t, append(append([]string(nil), Topics...), "Custom", "Tries"), s.Topics())
	assert.Empty(t, remote.pushes(), "mounting does not save")
}

func TestMountOnlyOnce(t *testing.T) {
	remote := &memRemote{doc: model.Document{"Graph": {"bfs"}}}
	s := newStore(t, remote)

	require.NoError(t, s.Mount(context.Background()))
	require.NoError(t, s.Mount(context.Background()))
	assert.Equal(t, 1, remote.fetches)
}

func TestMountKeepsSeedOnEmptyOrFailedLoad(t *testing.T) {
	s := newStore(t, &memRemote{doc: model.Document{}})
	require.NoError(t, s.Mount(context.Background()))
	assert.Equal(t, SeedDocument(Topics), s.Document())

	s = newStore(t, &memRemote{fetchErr: errors.New("offline")})
	assert.Error(t, s.Mount(context.Background()))
	assert.Equal(t, Loaded, s.State())
	assert.Equal(t, SeedDocument(Topics), s.Document())
}

func TestAddSectionAppendsAndSaves(t *testing.T) {
	remote := &memRemote{}
	s := newStore(t, remote)

	sec, ok := s.AddSection("Graph", "x")
	require.True(t, ok)
	assert.NotEmpty(t, sec.ID)
	_, ok = s.AddSection("Graph", "y")
	require.True(t, ok)

	assert.Equal(t, []string{"x", "y"}, texts(s.Sections("Graph")))
	assert.Equal(t, Mutated, s.State())

	flush(t, s)
	pushes := remote.pushes()
	require.NotEmpty(t, pushes)
	assert.Equal(t, []string{"x", "y"}, pushes[len(pushes)-1]["Graph"])
	assert.Contains(t, pushes[len(pushes)-1], "Heaps", "the whole document is saved")
}

func TestAddSectionUnknownTopic(t *testing.T) {
	remote := &memRemote{}
	s := newStore(t, remote)

	_, ok := s.AddSection("Nope", "x")
	assert.False(t, ok)
	flush(t, s)
	assert.Empty(t, remote.pushes())
}

func TestEditAndRemoveByPosition(t *testing.T) {
	s := newStore(t, &memRemote{})
	for _, text := range []string{"a", "b", "c", "d"} {
		s.AddSection("Heaps", text)
	}

	require.True(t, s.EditAt("Heaps", 1, "B"))
	assert.Equal(t, []string{"a", "B", "c", "d"}, texts(s.Sections("Heaps")))

	require.True(t, s.RemoveAt("Heaps", 1))
	assert.Equal(t, []string{"a", "c", "d"}, texts(s.Sections("Heaps")))

	assert.False(t, s.EditAt("Heaps", 3, "z"))
	assert.False(t, s.EditAt("Heaps", -1, "z"))
	assert.False(t, s.RemoveAt("Heaps", 7))
	assert.Equal(t, []string{"a", "c", "d"}, texts(s.Sections("Heaps")), "out of range changes nothing")
}

func TestEditAndRemoveByID(t *testing.T) {
	s := NewTopicStore(&memRemote{}, Topics, WithIDGenerator(counterIDs()))
	a, _ := s.AddSection("Graph", "a")
	b, _ := s.AddSection("Graph", "b")
	c, _ := s.AddSection("Graph", "c")

	require.True(t, s.RemoveSection("Graph", a.ID))
	// Ids survive the shift that a positional index would not.
	require.True(t, s.EditSection("Graph", c.ID, "C"))
	assert.Equal(t, []Section{{ID: b.ID, Text: "b"}, {ID: c.ID, Text: "C"}}, s.Sections("Graph"))

	assert.False(t, s.EditSection("Graph", a.ID, "gone"))
	assert.False(t, s.RemoveSection("Graph", "missing"))
	assert.Len(t, s.Sections("Graph"), 2)

	got, ok := s.SectionAt("Graph", 1)
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)
}

func TestSavesAreSerialisedAndLatestWins(t *testing.T) {
	block := make(chan struct{})
	remote := &memRemote{block: block}
	s := newStore(t, remote)

	s.AddSection("Graph", "1")
	s.AddSection("Graph", "2")
	s.AddSection("Graph", "3")
	close(block)
	flush(t, s)

	pushes := remote.pushes()
	require.NotEmpty(t, pushes)
	assert.LessOrEqual(t, len(pushes), 3)
	assert.Equal(t, []string{"1", "2", "3"}, pushes[len(pushes)-1]["Graph"])
	remote.mu.Lock()
	assert.Equal(t, []string{"1", "2", "3"}, remote.doc["Graph"])
	remote.mu.Unlock()
}

func TestSaveFailureKeepsLocalState(t *testing.T) {
	remote := &memRemote{pushErr: errors.New("server down")}
	s := newStore(t, remote)

	s.AddSection("Graph", "kept locally")
	err := s.Flush(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.LastSaveError())
	assert.Equal(t, []string{"kept locally"}, texts(s.Sections("Graph")))

	remote.mu.Lock()
	remote.pushErr = nil
	remote.mu.Unlock()
	s.AddSection("Graph", "second")
	assert.NoError(t, s.Flush(context.Background()))
	assert.NoError(t, s.LastSaveError())
}

func TestApplyExternalDocument(t *testing.T) {
	s := NewTopicStore(&memRemote{}, Topics, WithIDGenerator(counterIDs()))
	a, _ := s.AddSection("Graph", "bfs")
	flush(t, s)

	assert.False(t, s.Apply(s.Document()), "identical document is ignored")

	changed := s.Document()
	changed["Graph"] = append(changed["Graph"], "dfs")
	assert.True(t, s.Apply(changed))

	got := s.Sections("Graph")
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID, "unchanged entries keep their id")
	assert.Equal(t, "dfs", got[1].Text)
}

func TestApplyIgnoresOwnEarlierSnapshot(t *testing.T) {
	s := NewTopicStore(&memRemote{}, Topics, WithIDGenerator(counterIDs()))
	s.AddSection("Graph", "a")
	flush(t, s)
	stale := s.Document()
	s.AddSection("Graph", "b")
	flush(t, s)

	assert.False(t, s.Apply(stale), "our own older write read back late")
	assert.Equal(t, []string{"a", "b"}, texts(s.Sections("Graph")))

	external := s.Document()
	external["Graph"] = append(external["Graph"], "c")
	assert.True(t, s.Apply(external))
	assert.Equal(t, []string{"a", "b", "c"}, texts(s.Sections("Graph")))
}

func TestApplyIgnoredWhileSaving(t *testing.T) {
	block := make(chan struct{})
	s := newStore(t, &memRemote{block: block})
	s.AddSection("Graph", "local")

	assert.False(t, s.Apply(model.Document{"Graph": {"stale"}}))
	close(block)
	flush(t, s)
	assert.Equal(t, []string{"local"}, texts(s.Sections("Graph")))
}

func TestMergeAndSeed(t *testing.T) {
	merged := Merge(model.Document{"Graph": {"bfs"}, "Extra": {"e"}}, []string{"Graph", "Heaps"})
	assert.Equal(t, model.Document{"Graph": {"bfs"}, "Heaps": {}, "Extra": {"e"}}, merged)
	assert.Equal(t, model.Document{"A": {}, "B": {}}, SeedDocument([]string{"A", "B"}))
}
