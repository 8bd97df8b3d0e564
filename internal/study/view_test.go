package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCaseInsensitiveInOrder(t *testing.T) {
	sections := []Section{{ID: "1", Text: "foo"}, {ID: "2", Text: "bar"}, {ID: "3", Text: "FooBar"}}

	assert.Equal(t, []string{"foo", "FooBar"}, texts(Filter(sections, "foo")))
	assert.Equal(t, []string{"foo", "bar", "FooBar"}, texts(Filter(sections, "")))
	assert.Empty(t, Filter(sections, "baz"))
}

func TestFilterMatchesMathMarkup(t *testing.T) {
	sections := []Section{{Text: `\(O(n \log n)\)`}, {Text: "log of n"}}
	assert.Equal(t, []string{`\(O(n \log n)\)`}, texts(Filter(sections, `\log`)))
}

func newView(t *testing.T) (*TopicView, *TopicStore, *memRemote) {
	t.Helper()
	remote := &memRemote{}
	store := NewTopicStore(remote, Topics, WithIDGenerator(counterIDs()))
	return NewTopicView(store, "Graph"), store, remote
}

func TestComposeNewSection(t *testing.T) {
	v, store, _ := newView(t)

	require.NoError(t, v.StartAdd())
	assert.Equal(t, ComposingNew, v.Mode())
	v.SetBuffer("Dijkstra needs \\(w \\ge 0\\)")
	require.NoError(t, v.Commit())

	assert.Equal(t, Idle, v.Mode())
	assert.Empty(t, v.Buffer())
	assert.Equal(t, []string{"Dijkstra needs \\(w \\ge 0\\)"}, texts(store.Sections("Graph")))
}

func TestCommitWhitespaceKeepsComposerOpen(t *testing.T) {
	v, store, remote := newView(t)

	require.NoError(t, v.StartAdd())
	v.SetBuffer("   ")
	assert.ErrorIs(t, v.Commit(), ErrEmptyContent)

	assert.Equal(t, ComposingNew, v.Mode())
	assert.Equal(t, "   ", v.Buffer())
	assert.Empty(t, store.Sections("Graph"))
	flush(t, store)
	assert.Empty(t, remote.pushes())
}

func TestEditSectionThroughComposer(t *testing.T) {
	v, store, _ := newView(t)
	a, _ := store.AddSection("Graph", "bfs")
	store.AddSection("Graph", "dfs")

	require.NoError(t, v.StartEdit(a.ID))
	assert.Equal(t, ComposingEdit, v.Mode())
	assert.Equal(t, a.ID, v.EditingID())
	assert.Equal(t, "bfs", v.Buffer())

	v.SetBuffer("breadth first")
	require.NoError(t, v.Commit())
	assert.Equal(t, []string{"breadth first", "dfs"}, texts(store.Sections("Graph")))
	assert.Equal(t, Idle, v.Mode())
}

func TestComposerLocksOutOtherEdits(t *testing.T) {
	v, store, _ := newView(t)
	a, _ := store.AddSection("Graph", "a")
	b, _ := store.AddSection("Graph", "b")

	require.NoError(t, v.StartEdit(a.ID))
	assert.ErrorIs(t, v.StartEdit(b.ID), ErrComposerBusy)
	assert.ErrorIs(t, v.StartAdd(), ErrComposerBusy)
	assert.Equal(t, a.ID, v.EditingID())

	v.Cancel()
	require.NoError(t, v.StartEdit(b.ID))
}

func TestCancelDiscardsBuffer(t *testing.T) {
	v, store, _ := newView(t)
	a, _ := store.AddSection("Graph", "original")

	require.NoError(t, v.StartEdit(a.ID))
	v.SetBuffer("changed")
	v.Cancel()

	assert.Equal(t, Idle, v.Mode())
	assert.Empty(t, v.Buffer())
	assert.Equal(t, []string{"original"}, texts(store.Sections("Graph")))
}

func TestCommitAfterTargetRemoved(t *testing.T) {
	v, store, _ := newView(t)
	a, _ := store.AddSection("Graph", "a")

	require.NoError(t, v.StartEdit(a.ID))
	v.SetBuffer("edited")
	store.RemoveSection("Graph", a.ID)

	assert.ErrorIs(t, v.Commit(), ErrSectionGone)
	assert.Equal(t, ComposingNew, v.Mode())
	assert.Equal(t, "edited", v.Buffer())
	assert.Empty(t, store.Sections("Graph"))

	require.NoError(t, v.Commit())
	assert.Equal(t, []string{"edited"}, texts(store.Sections("Graph")))
}

func TestViewRemoveClosesComposerOnThatSection(t *testing.T) {
	v, store, _ := newView(t)
	a, _ := store.AddSection("Graph", "a")

	require.NoError(t, v.StartEdit(a.ID))
	assert.True(t, v.Remove(a.ID))
	assert.Equal(t, Idle, v.Mode())
	assert.False(t, v.Remove(a.ID))
}

func TestStartEditUnknownAndCommitIdle(t *testing.T) {
	v, _, _ := newView(t)
	assert.ErrorIs(t, v.StartEdit("nope"), ErrUnknownTarget)
	assert.ErrorIs(t, v.Commit(), ErrNotComposing)
}

func TestEmptyMessage(t *testing.T) {
	v, store, _ := newView(t)
	store.AddSection("Graph", "bfs")

	assert.Equal(t, "", v.EmptyMessage(""))
	assert.Equal(t, "", v.EmptyMessage("BFS"))
	assert.Equal(t, `No content found matching "heap" in Graph`, v.EmptyMessage("heap"))
}
