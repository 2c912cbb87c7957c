package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextLoader handles plain text (.txt, .md) files.
type TextLoader struct{}

func (l *TextLoader) SupportedFormats() []string { return []string{"txt", "md"} }

func (l *TextLoader) Load(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	name := filepath.Base(path)
	return &Document{
		Title: strings.TrimSuffix(name, filepath.Ext(name)),
		Text:  string(data),
	}, nil
}
