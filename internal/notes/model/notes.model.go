package model

import (
	"bytes"
	"encoding/json"
	"errors"

	"studynotes/pkg/logger"
)

// Document is the whole note set: topic name to its ordered sections.
// It is the wire format of /notes and the on-disk format.
type Document map[string][]string

var ErrNotObject = errors.New("document must be a JSON object")

// Clone returns a deep copy so callers never share section slices.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for topic, sections := range d {
		if sections == nil {
			out[topic] = nil
			continue
		}
		out[topic] = append(make([]string, 0, len(sections)), sections...)
	}
	return out
}

// Len is the total number of sections across all topics.
func (d Document) Len() int {
	n := 0
	for _, sections := range d {
		n += len(sections)
	}
	return n
}

// Decode parses raw JSON into a Document. Any JSON object is accepted: a
// value that is not a list of strings is logged and left out, so one bad key
// never hides the rest of the notes. A JSON null decodes to an empty
// document; anything else that is not an object is an error.
func Decode(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrNotObject
	}
	if raw[0] != '{' {
		if string(raw) == "null" {
			return Document{}, nil
		}
		return nil, ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	doc := make(Document, len(fields))
	for topic, value := range fields {
		var sections []string
		if err := json.Unmarshal(value, &sections); err != nil {
			logger.Sugar.Warnf("Dropping notes key %q: not a list of strings: %v", topic, err)
			continue
		}
		if sections == nil {
			sections = []string{}
		}
		doc[topic] = sections
	}
	return doc, nil
}

// DecodeStrict is Decode for incoming saves: every value must be a list of
// strings, so a save never silently drops part of what the client sent.
func DecodeStrict(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '{' && string(raw) != "null") {
		return nil, ErrNotObject
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Encode renders the document pretty-printed with 2-space indentation.
func Encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

type SaveResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
