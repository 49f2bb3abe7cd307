package adapters

import (
	"github.com/ppiankov/dhatu/internal/model"
)

// GenericAdapter is the fallback adapter: the whole input is one document
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(source string, contentType string) bool {
	return true
}

// Extract returns the input unchanged as a single document
func (a *GenericAdapter) Extract(data []byte, source string) ([]model.Document, error) {
	return []model.Document{{ID: source, Source: source, Text: string(data)}}, nil
}
