// Package source provides lexicon sources read once at process start.
package source

import (
	"context"
	"errors"

	"github.com/elum-utils/toxicity/interfaces"
	"github.com/elum-utils/toxicity/lexicon"
)

var (
	_ interfaces.LexiconSource = (*MemorySource)(nil)
	_ interfaces.LexiconSource = (*FileSource)(nil)
	_ interfaces.LexiconSource = (*SQLSource)(nil)
)

// Load reads every record from src and builds the immutable lexicon.
func Load(ctx context.Context, src interfaces.LexiconSource) (*lexicon.Lexicon, error) {
	if src == nil {
		return nil, errors.New("source: nil lexicon source")
	}
	specs, err := src.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return lexicon.New(specs)
}
