package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/elum-utils/toxicity/lexicon"
)

// FileSource reads category records from a YAML document on disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) (*FileSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("source: file path is empty")
	}
	return &FileSource{path: path}, nil
}

func (f *FileSource) Categories(_ context.Context) ([]lexicon.Spec, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", f.path, err)
	}
	return lexicon.DecodeYAML(data)
}
