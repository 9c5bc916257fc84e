package lexicon

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformed is returned when a category table fails validation.
var ErrMalformed = errors.New("lexicon: malformed category table")

// Spec is a raw category record as it appears in static configuration.
type Spec struct {
	Name     string   `yaml:"name" json:"name"`
	Terms    []string `yaml:"terms,omitempty" json:"terms,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Weight   float64  `yaml:"weight" json:"weight"`
	Color    string   `yaml:"color,omitempty" json:"color,omitempty"`
}

// Category is a validated, immutable category record.
type Category struct {
	name     string
	terms    []string
	patterns []*regexp.Regexp
	weight   float64
	color    string
}

func (c Category) Name() string    { return c.name }
func (c Category) Weight() float64 { return c.weight }
func (c Category) Color() string   { return c.color }

// Terms returns a copy of the folded literal terms.
func (c Category) Terms() []string {
	return append([]string(nil), c.terms...)
}

// Patterns returns the source of every pattern.
func (c Category) Patterns() []string {
	out := make([]string, 0, len(c.patterns))
	for _, p := range c.patterns {
		out = append(out, p.String())
	}
	return out
}

// Match reports the distinct literal terms contained in folded text and the
// number of distinct patterns matching it at least once.
// Terms use plain substring containment, so "hate" also matches "hated".
func (c Category) Match(folded string) ([]string, int) {
	var terms []string
	for _, term := range c.terms {
		if strings.Contains(folded, term) {
			terms = append(terms, term)
		}
	}
	patterns := 0
	for _, p := range c.patterns {
		if p.MatchString(folded) {
			patterns++
		}
	}
	return terms, patterns
}

// Lexicon is an ordered set of categories. It has no mutation API and is safe
// for concurrent reads once New returns.
type Lexicon struct {
	categories []Category
	byName     map[string]int
}

// New validates specs and builds a lexicon. Any invalid record fails the
// whole table with an error wrapping ErrMalformed.
func New(specs []Spec) (*Lexicon, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrMalformed)
	}
	l := &Lexicon{
		categories: make([]Category, 0, len(specs)),
		byName:     make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		cat, err := build(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: category #%d: %v", ErrMalformed, i, err)
		}
		if _, dup := l.byName[cat.name]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrMalformed, cat.name)
		}
		l.byName[cat.name] = len(l.categories)
		l.categories = append(l.categories, cat)
	}
	return l, nil
}

func build(spec Spec) (Category, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return Category{}, errors.New("name is empty")
	}
	if !(spec.Weight > 0 && spec.Weight <= 1) {
		return Category{}, fmt.Errorf("%s: weight %v outside (0,1]", name, spec.Weight)
	}
	if len(spec.Terms) == 0 && len(spec.Patterns) == 0 {
		return Category{}, fmt.Errorf("%s: no terms or patterns", name)
	}

	cat := Category{name: name, weight: spec.Weight, color: spec.Color}
	seen := make(map[string]struct{}, len(spec.Terms))
	for _, raw := range spec.Terms {
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" {
			return Category{}, fmt.Errorf("%s: blank term", name)
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		cat.terms = append(cat.terms, term)
	}
	for _, raw := range spec.Patterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			return Category{}, fmt.Errorf("%s: pattern %q: %v", name, raw, err)
		}
		cat.patterns = append(cat.patterns, re)
	}
	return cat, nil
}

// Categories returns the categories in table order.
func (l *Lexicon) Categories() []Category {
	return append([]Category(nil), l.categories...)
}

// Lookup finds a category by name.
func (l *Lexicon) Lookup(name string) (Category, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Category{}, false
	}
	return l.categories[i], true
}

// Len returns the number of categories.
func (l *Lexicon) Len() int {
	return len(l.categories)
}

// Color returns the display color of a category, or "" for unknown names.
func (l *Lexicon) Color(name string) string {
	if c, ok := l.Lookup(name); ok {
		return c.color
	}
	return ""
}
