package source

import (
	"context"
	"sync"

	"github.com/elum-utils/toxicity/lexicon"
)

// MemorySource serves category records held in memory.
type MemorySource struct {
	mu    sync.RWMutex
	specs []lexicon.Spec
}

// NewMemorySource creates a source over a copy of specs.
func NewMemorySource(specs ...lexicon.Spec) *MemorySource {
	m := &MemorySource{}
	for _, s := range specs {
		m.specs = append(m.specs, cloneSpec(s))
	}
	return m
}

// Put adds or replaces a category by name.
func (m *MemorySource) Put(spec lexicon.Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.specs {
		if m.specs[i].Name == spec.Name {
			m.specs[i] = cloneSpec(spec)
			return
		}
	}
	m.specs = append(m.specs, cloneSpec(spec))
}

func (m *MemorySource) Categories(_ context.Context) ([]lexicon.Spec, error) {
	m.mu.RLock()
	out := make([]lexicon.Spec, 0, len(m.specs))
	for _, s := range m.specs {
		out = append(out, cloneSpec(s))
	}
	m.mu.RUnlock()
	return out, nil
}

func cloneSpec(s lexicon.Spec) lexicon.Spec {
	s.Terms = append([]string(nil), s.Terms...)
	s.Patterns = append([]string(nil), s.Patterns...)
	return s
}
