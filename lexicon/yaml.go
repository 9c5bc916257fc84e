package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML layout of a lexicon file.
type Document struct {
	Categories []Spec `yaml:"categories"`
}

// ParseYAML decodes a lexicon document and validates it.
func ParseYAML(data []byte) (*Lexicon, error) {
	specs, err := DecodeYAML(data)
	if err != nil {
		return nil, err
	}
	return New(specs)
}

// DecodeYAML decodes category records without validating them.
func DecodeYAML(data []byte) ([]Spec, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("lexicon: decode yaml: %w", err)
	}
	return doc.Categories, nil
}

// LoadFile reads and validates a YAML lexicon file.
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	return ParseYAML(data)
}
