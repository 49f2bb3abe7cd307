package adapters

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ppiankov/dhatu/internal/extract"
	"github.com/ppiankov/dhatu/internal/model"
	"golang.org/x/net/html"
)

// HTMLAdapter extracts the visible text of the main content area
type HTMLAdapter struct {
	BaseAdapter
}

// NewHTMLAdapter creates a new HTML adapter
func NewHTMLAdapter() *HTMLAdapter {
	return &HTMLAdapter{}
}

// Name returns the adapter name
func (a *HTMLAdapter) Name() string {
	return "html"
}

// CanHandle matches .html/.htm files and text/html responses
func (a *HTMLAdapter) CanHandle(source string, contentType string) bool {
	switch a.MediaType(contentType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	ext := a.Ext(source)
	return ext == ".html" || ext == ".htm"
}

// Extract returns one document holding the page's visible text
func (a *HTMLAdapter) Extract(data []byte, source string) ([]model.Document, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := a.mainContent(doc)
	if content == nil {
		content = doc
	}

	id := source
	if title := a.title(doc); title != "" {
		id = title
	}

	return []model.Document{{
		ID:     id,
		Source: source,
		Text:   extract.NodeText(content),
	}}, nil
}

// mainContent finds the article body, preferring explicit content markers
func (a *HTMLAdapter) mainContent(doc *html.Node) *html.Node {
	// Wiki-style content containers
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "mw-content-text")
	})
	if content != nil {
		return content
	}

	for _, tag := range []string{"article", "main", "body"} {
		content = a.FindFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == tag
		})
		if content != nil {
			return content
		}
	}
	return nil
}

func (a *HTMLAdapter) title(doc *html.Node) string {
	node := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	})
	if node == nil {
		return ""
	}
	return strings.TrimSpace(extract.NodeText(node))
}
