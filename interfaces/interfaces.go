package interfaces

import (
	"context"

	"github.com/elum-utils/toxicity/lexicon"
	"github.com/elum-utils/toxicity/models"
)

// TextClassifier is an external model scoring text.
type TextClassifier interface {
	Name() string
	ClassifyText(ctx context.Context, text string) (models.Verdict, error)
}

// ImageClassifier is an external model scoring encoded images.
type ImageClassifier interface {
	Name() string
	ClassifyImage(ctx context.Context, image []byte) (models.Verdict, error)
}

// LexiconSource provides category records once at startup.
type LexiconSource interface {
	Categories(ctx context.Context) ([]lexicon.Spec, error)
}

// Event is the payload delivered to callbacks for one moderation decision.
type Event struct {
	RequestID  string
	ContentID  string
	UserID     int64
	Excerpt    string
	Score      float64
	Toxic      bool
	Severity   models.Severity
	Warning    string
	Categories []string
	Modalities []string
	Fallback   bool
}

// CallbackHandler handles results by severity tier.
type CallbackHandler interface {
	OnClean(ctx context.Context, event Event) error
	OnLow(ctx context.Context, event Event) error
	OnMedium(ctx context.Context, event Event) error
	OnHigh(ctx context.Context, event Event) error
	OnCritical(ctx context.Context, event Event) error
}

// ProcessedHandler handles every result with one method.
type ProcessedHandler interface {
	OnProcessed(ctx context.Context, event Event) error
}

// Logger is an optional structured logger.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}
