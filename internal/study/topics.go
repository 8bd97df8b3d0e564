// Package study holds the client-side state of the study notes app: the
// topic store mirrored to the notes server, the per-topic composer and
// search filter, and the application shell around them.
package study

import (
	"sort"

	"studynotes/internal/notes/model"
)

// Topics is the fixed topic list. The first entry is selected on start.
var Topics = []string{
	"Time Complexity",
	"Graph",
	"Heaps",
	"Master Theorem",
	"Amortized Analysis",
	"Sorting Algorithms",
}

// SeedDocument has an empty section list for every fixed topic.
func SeedDocument(topics []string) model.Document {
	doc := make(model.Document, len(topics))
	for _, t := range topics {
		doc[t] = []string{}
	}
	return doc
}

// Merge adds the fixed topics to a stored document. Stored topics outside
// the fixed list are kept; nothing is ever dropped. Null section lists
// become empty ones.
func Merge(stored model.Document, topics []string) model.Document {
	out := stored.Clone()
	for _, t := range topics {
		if _, ok := out[t]; !ok {
			out[t] = nil
		}
	}
	for t, sections := range out {
		if sections == nil {
			out[t] = []string{}
		}
	}
	return out
}

// topicOrder lists fixed topics first, in their declared order, then any
// extra stored topics alphabetically.
func topicOrder(doc model.Document, topics []string) []string {
	order := make([]string, 0, len(doc))
	fixed := make(map[string]bool, len(topics))
	for _, t := range topics {
		fixed[t] = true
		order = append(order, t)
	}
	var extra []string
	for t := range doc {
		if !fixed[t] {
			extra = append(extra, t)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}
