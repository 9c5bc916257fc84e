package scorer

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/elum-utils/toxicity/lexicon"
	"github.com/elum-utils/toxicity/models"
	"github.com/elum-utils/toxicity/signals"
)

// MinLength is the minimum trimmed rune length that can be evaluated.
const MinLength = 3

// TopCategories is the size of the category breakdown.
const TopCategories = 3

// Options toggle the signal extractors. The zero value enables all of them.
type Options struct {
	DisableCaps           bool
	DisablePunctuation    bool
	DisableRepetition     bool
	DisablePersonalAttack bool
	// LexiconOnly disables every extractor and scores category matches only.
	LexiconOnly bool
	// Workers bounds ScoreBatch parallelism. Defaults to GOMAXPROCS.
	Workers int
}

// Scorer combines lexicon matches and surface signals into a ScoreResult.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	lex *lexicon.Lexicon
	opt Options
}

// New creates a scorer over an immutable lexicon.
func New(lex *lexicon.Lexicon, opt Options) *Scorer {
	if opt.LexiconOnly {
		opt.DisableCaps = true
		opt.DisablePunctuation = true
		opt.DisableRepetition = true
		opt.DisablePersonalAttack = true
	}
	if opt.Workers <= 0 {
		opt.Workers = runtime.GOMAXPROCS(0)
	}
	return &Scorer{lex: lex, opt: opt}
}

// Lexicon returns the lexicon the scorer matches against.
func (s *Scorer) Lexicon() *lexicon.Lexicon {
	return s.lex
}

type contribution struct {
	index int
	name  string
	score float64
	color string
}

// Score evaluates one text.
func (s *Scorer) Score(text string) models.ScoreResult {
	folded := strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(folded) < MinLength {
		return zeroResult(text)
	}

	res := models.ScoreResult{
		Categories: []string{},
		Terms:      []string{},
		TextLength: utf8.RuneCountInString(text),
		WordCount:  len(strings.Fields(text)),
	}

	var contributions []contribution
	for i, cat := range s.lex.Categories() {
		terms, patterns := cat.Match(folded)
		hits := len(terms) + patterns
		if hits == 0 {
			continue
		}
		score := cat.Weight() * float64(hits)
		if score > cat.Weight() {
			score = cat.Weight()
		}
		res.Raw += score
		res.Categories = append(res.Categories, cat.Name())
		res.Terms = appendUnique(res.Terms, terms...)
		contributions = append(contributions, contribution{index: i, name: cat.Name(), score: score, color: cat.Color()})
	}

	if !s.opt.DisableRepetition {
		if repeated := signals.RepeatedTerms(folded, res.Terms); len(repeated) > 0 {
			res.Raw += signals.RepetitionBonus * float64(len(repeated))
			res.Signals.RepeatedTerms = true
		}
	}

	res.Signals.CapsRatio = models.Round2(signals.CapsRatio(text))
	if !s.opt.DisableCaps && signals.Yelling(text) {
		res.Raw += signals.YellingBonus
		res.Categories = appendUnique(res.Categories, signals.TagYelling)
	}

	res.Signals.PunctuationIntensity = signals.PunctuationIntensity(text)
	if !s.opt.DisablePunctuation {
		if bonus := signals.PunctuationBonus(res.Signals.PunctuationIntensity); bonus > 0 {
			res.Raw += bonus
			res.Categories = appendUnique(res.Categories, signals.TagExcessivePunctuation)
		}
	}

	if !s.opt.DisablePersonalAttack && signals.PersonalAttack(folded) {
		res.Raw += signals.PersonalAttackBonus
		res.Categories = appendUnique(res.Categories, signals.TagPersonalAttack)
	}

	res.Finalize()
	res.TopCategories = top(contributions, TopCategories)
	return res
}

// ScoreBatch scores texts in parallel. The output has the same length and
// order as the input.
func (s *Scorer) ScoreBatch(texts []string) []models.ScoreResult {
	out := make([]models.ScoreResult, len(texts))
	if len(texts) == 0 {
		return out
	}
	workers := s.opt.Workers
	if workers > len(texts) {
		workers = len(texts)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.Score(texts[i])
			}
		}()
	}
	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func zeroResult(text string) models.ScoreResult {
	res := models.ScoreResult{
		Categories:    []string{},
		Terms:         []string{},
		TopCategories: []models.CategoryScore{},
		TextLength:    utf8.RuneCountInString(text),
		WordCount:     len(strings.Fields(text)),
	}
	res.Finalize()
	return res
}

func top(contributions []contribution, n int) []models.CategoryScore {
	sort.SliceStable(contributions, func(i, j int) bool {
		if contributions[i].score != contributions[j].score {
			return contributions[i].score > contributions[j].score
		}
		return contributions[i].index < contributions[j].index
	})
	if len(contributions) > n {
		contributions = contributions[:n]
	}
	out := make([]models.CategoryScore, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, models.CategoryScore{Name: c.name, Score: models.Round3(c.score), Color: c.color})
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
