package adapters

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/dhatu/internal/model"
)

// LinesAdapter reads one document per non-empty line.
// In .tsv files the first column is the document ID.
type LinesAdapter struct {
	BaseAdapter
}

// NewLinesAdapter creates a new line-oriented adapter
func NewLinesAdapter() *LinesAdapter {
	return &LinesAdapter{}
}

// Name returns the adapter name
func (a *LinesAdapter) Name() string {
	return "lines"
}

// CanHandle matches .lines and .tsv files
func (a *LinesAdapter) CanHandle(source string, contentType string) bool {
	switch a.Ext(source) {
	case ".lines", ".tsv":
		return true
	}
	return a.MediaType(contentType) == "text/tab-separated-values"
}

// Extract splits data into line documents
func (a *LinesAdapter) Extract(data []byte, source string) ([]model.Document, error) {
	tsv := a.Ext(source) == ".tsv"
	docs := make([]model.Document, 0)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		doc := model.Document{
			ID:     source + ":" + strconv.Itoa(lineNum),
			Source: source,
			Text:   line,
		}
		if tsv {
			if id, text, ok := strings.Cut(line, "\t"); ok {
				doc.ID = strings.TrimSpace(id)
				doc.Text = strings.TrimSpace(text)
			}
		}
		docs = append(docs, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return docs, nil
}
