package study

import (
	"errors"
	"fmt"
	"strings"
)

type ComposerMode int

const (
	Idle ComposerMode = iota
	ComposingNew
	ComposingEdit
)

var (
	ErrComposerBusy  = errors.New("composer is already open")
	ErrEmptyContent  = errors.New("content is empty")
	ErrSectionGone   = errors.New("section being edited no longer exists")
	ErrNotComposing  = errors.New("composer is not open")
	ErrUnknownTarget = errors.New("no such section")
)

// TopicView is the composer and filter for one topic. It is not safe for
// concurrent use; AppShell serialises access.
type TopicView struct {
	Topic string
	store *TopicStore

	mode      ComposerMode
	editingID string
	buffer    string
}

func NewTopicView(store *TopicStore, topic string) *TopicView {
	return &TopicView{Topic: topic, store: store}
}

func (v *TopicView) Mode() ComposerMode { return v.mode }
func (v *TopicView) EditingID() string  { return v.editingID }
func (v *TopicView) Buffer() string     { return v.buffer }

// StartAdd opens an empty composer for a new section.
func (v *TopicView) StartAdd() error {
	if v.mode != Idle {
		return ErrComposerBusy
	}
	v.mode = ComposingNew
	v.editingID = ""
	v.buffer = ""
	return nil
}

// StartEdit opens the composer on an existing section, prefilled with its
// text. Refused while another composer is open.
func (v *TopicView) StartEdit(id string) error {
	if v.mode != Idle {
		return ErrComposerBusy
	}
	sec, ok := v.store.Section(v.Topic, id)
	if !ok {
		return ErrUnknownTarget
	}
	v.mode = ComposingEdit
	v.editingID = id
	v.buffer = sec.Text
	return nil
}

func (v *TopicView) SetBuffer(text string) {
	v.buffer = text
}

// Commit saves the buffer. Blank content leaves the composer open and the
// store untouched. If the section being edited was removed meanwhile the
// composer stays open as a new-section composer so the text is not lost.
func (v *TopicView) Commit() error {
	if v.mode == Idle {
		return ErrNotComposing
	}
	if strings.TrimSpace(v.buffer) == "" {
		return ErrEmptyContent
	}

	switch v.mode {
	case ComposingEdit:
		if !v.store.EditSection(v.Topic, v.editingID, v.buffer) {
			v.mode = ComposingNew
			v.editingID = ""
			return ErrSectionGone
		}
	case ComposingNew:
		if _, ok := v.store.AddSection(v.Topic, v.buffer); !ok {
			return fmt.Errorf("unknown topic %q", v.Topic)
		}
	}
	v.reset()
	return nil
}

// Cancel drops the buffer without touching the store.
func (v *TopicView) Cancel() {
	v.reset()
}

// Remove deletes a section. The composer is closed if it was editing it.
func (v *TopicView) Remove(id string) bool {
	if !v.store.RemoveSection(v.Topic, id) {
		return false
	}
	if v.mode == ComposingEdit && v.editingID == id {
		v.reset()
	}
	return true
}

// Visible is the topic's sections filtered by term.
func (v *TopicView) Visible(term string) []Section {
	return Filter(v.store.Sections(v.Topic), term)
}

// EmptyMessage is shown when a search hides every section of the topic.
func (v *TopicView) EmptyMessage(term string) string {
	if term == "" || len(v.Visible(term)) > 0 {
		return ""
	}
	return fmt.Sprintf("No content found matching %q in %s", term, v.Topic)
}

func (v *TopicView) reset() {
	v.mode = Idle
	v.editingID = ""
	v.buffer = ""
}

// Matches is a case-insensitive substring test on the raw text, math
// markup included.
func Matches(text, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

// Filter keeps sections matching term, in their original order.
func Filter(sections []Section, term string) []Section {
	if term == "" {
		return sections
	}
	out := make([]Section, 0, len(sections))
	for _, sec := range sections {
		if Matches(sec.Text, term) {
			out = append(out, sec)
		}
	}
	return out
}
