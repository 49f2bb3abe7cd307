package adapters

import (
	"path/filepath"
	"strings"

	"github.com/ppiankov/dhatu/internal/model"
	"golang.org/x/net/html"
)

// Adapter turns raw corpus bytes into documents
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given source/content type
	CanHandle(source string, contentType string) bool

	// Extract splits the raw data into documents
	Extract(data []byte, source string) ([]model.Document, error)
}

// Registry manages corpus adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	// Register built-in adapters
	registry.Register(NewHTMLAdapter())
	registry.Register(NewJSONAdapter())
	registry.Register(NewLinesAdapter())

	// Set generic adapter as fallback
	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given source and content type
func (r *Registry) FindAdapter(source string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(source, contentType) {
			return adapter
		}
	}

	return r.generic
}

// Names returns the registered adapter names, fallback last
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters)+1)
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return append(names, r.generic.Name())
}

// BaseAdapter provides common functionality for adapters
type BaseAdapter struct{}

// Ext returns the lower-cased file extension of a source, ignoring any URL query
func (b *BaseAdapter) Ext(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.ToLower(filepath.Ext(source))
}

// MediaType strips parameters from a Content-Type value
func (b *BaseAdapter) MediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}
