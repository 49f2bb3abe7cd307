package adapters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/dhatu/internal/model"
)

// JSONAdapter reads JSON corpora.
//
// Accepted shapes:
//
//	["text one", "text two"]
//	[{"id": "a", "text": "..."}, ...]
//	{"documents": [...]}
//
// and JSON Lines (.jsonl), one string or object per line.
type JSONAdapter struct {
	BaseAdapter
}

type jsonDocument struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NewJSONAdapter creates a new JSON adapter
func NewJSONAdapter() *JSONAdapter {
	return &JSONAdapter{}
}

// Name returns the adapter name
func (a *JSONAdapter) Name() string {
	return "json"
}

// CanHandle matches .json/.jsonl files and JSON responses
func (a *JSONAdapter) CanHandle(source string, contentType string) bool {
	switch a.MediaType(contentType) {
	case "application/json", "application/x-ndjson":
		return true
	}
	ext := a.Ext(source)
	return ext == ".json" || ext == ".jsonl"
}

// Extract decodes the corpus into documents, in file order
func (a *JSONAdapter) Extract(data []byte, source string) ([]model.Document, error) {
	if a.Ext(source) == ".jsonl" {
		return a.extractLines(data, source)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Document{}, nil
	}

	var items []json.RawMessage
	if trimmed[0] == '{' {
		var wrapper struct {
			Documents []json.RawMessage `json:"documents"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse JSON corpus: %w", err)
		}
		if wrapper.Documents == nil {
			// A single object is one document
			items = []json.RawMessage{trimmed}
		} else {
			items = wrapper.Documents
		}
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON corpus: %w", err)
	}

	docs := make([]model.Document, 0, len(items))
	for i, raw := range items {
		doc, err := a.decodeItem(raw, source, i)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (a *JSONAdapter) extractLines(data []byte, source string) ([]model.Document, error) {
	docs := make([]model.Document, 0)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		doc, err := a.decodeItem(json.RawMessage(line), source, len(docs))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (a *JSONAdapter) decodeItem(raw json.RawMessage, source string, index int) (model.Document, error) {
	fallbackID := source + "#" + strconv.Itoa(index)

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return model.Document{ID: fallbackID, Source: source, Text: text}, nil
	}

	var item jsonDocument
	if err := json.Unmarshal(raw, &item); err != nil {
		return model.Document{}, fmt.Errorf("document %d: expected string or {id, text} object: %w", index, err)
	}
	if item.ID == "" {
		item.ID = fallbackID
	}
	return model.Document{ID: item.ID, Source: source, Text: item.Text}, nil
}
