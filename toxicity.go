// Package toxicity scores text and images for toxic content with a
// deterministic rule engine and optional external model classifiers.
package toxicity

import (
	"sync"

	"github.com/elum-utils/toxicity/core"
	"github.com/elum-utils/toxicity/interfaces"
	"github.com/elum-utils/toxicity/lexicon"
	"github.com/elum-utils/toxicity/models"
	"github.com/elum-utils/toxicity/scorer"
)

// Re-export core API at module root for convenient imports.
type (
	Core         = core.Core
	Options      = core.Options
	EventName    = core.EventName
	EventHandler = core.EventHandler
	Event        = interfaces.Event
	Content      = models.Content
	Moderation   = models.Moderation
	ScoreResult  = models.ScoreResult
	Severity     = models.Severity
	Verdict      = models.Verdict
)

const (
	EventAllowClean       = core.EventAllowClean
	EventMarkLow          = core.EventMarkLow
	EventHumanReview      = core.EventHumanReview
	EventAutoRestrict     = core.EventAutoRestrict
	EventCriticalEscalate = core.EventCriticalEscalate
)

const (
	SeverityNone     = models.SeverityNone
	SeverityLow      = models.SeverityLow
	SeverityMedium   = models.SeverityMedium
	SeverityHigh     = models.SeverityHigh
	SeverityCritical = models.SeverityCritical
)

// New creates a moderation core.
func New(opt Options) *Core {
	return core.New(opt)
}

var (
	defaultOnce   sync.Once
	defaultScorer *scorer.Scorer
)

// Score rates text with the built-in lexicon and every signal enabled.
func Score(text string) ScoreResult {
	defaultOnce.Do(func() {
		defaultScorer = scorer.New(lexicon.MustDefault(), scorer.Options{})
	})
	return defaultScorer.Score(text)
}
