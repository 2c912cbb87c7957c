package ingest

import (
	"context"
	"fmt"
	"strings"
)

// Document is the full-text payload a loader produces from a file.
type Document struct {
	Title    string
	Text     string
	Metadata map[string]string
}

// Loader extracts article text from a specific file format.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
	SupportedFormats() []string
}

// Registry maps file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns a registry with the built-in txt and pdf loaders.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range []Loader{&TextLoader{}, &PDFLoader{}} {
		for _, f := range l.SupportedFormats() {
			r.loaders[f] = l
		}
	}
	return r
}

// Get returns the loader for a format (extension without the dot).
func (r *Registry) Get(format string) (Loader, error) {
	l, ok := r.loaders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no loader for format: %s", format)
	}
	return l, nil
}

// Register overrides or adds the loader for a format.
func (r *Registry) Register(format string, l Loader) {
	r.loaders[strings.ToLower(format)] = l
}
