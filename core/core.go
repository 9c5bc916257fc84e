package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/elum-utils/toxicity/combiner"
	"github.com/elum-utils/toxicity/interfaces"
	"github.com/elum-utils/toxicity/lexicon"
	"github.com/elum-utils/toxicity/models"
	"github.com/elum-utils/toxicity/scorer"
)

const (
	defaultMaxTextSize   = 1 << 20
	defaultCacheTTL      = 1 * time.Hour
	defaultCacheMaxBytes = 32 * mib

	// ExcerptLength bounds text echoed in single results, events and logs.
	ExcerptLength = 100
	// BatchExcerptLength bounds text echoed in batch summaries.
	BatchExcerptLength = 50
)

// ErrNoImageClassifier is returned when image bytes are submitted but no
// image classifier is configured.
var ErrNoImageClassifier = errors.New("core: image classifier is nil")

// EventName is a callback bus event.
type EventName string

const (
	EventAllowClean       EventName = "allow_clean"
	EventMarkLow          EventName = "mark_low"
	EventHumanReview      EventName = "human_review"
	EventAutoRestrict     EventName = "auto_restrict"
	EventCriticalEscalate EventName = "critical_escalate"
)

// EventHandler handles one moderation event.
type EventHandler func(ctx context.Context, event interfaces.Event) error

// Options configure the moderation core. Zero values select defaults.
type Options struct {
	// Lexicon defaults to the built-in table.
	Lexicon *lexicon.Lexicon
	Scorer  scorer.Options

	TextClassifier  interfaces.TextClassifier
	ImageClassifier interfaces.ImageClassifier
	CallbackHandler interfaces.CallbackHandler
	Processed       interfaces.ProcessedHandler
	Logger          interfaces.Logger

	// MaxTextSize caps scored text, in runes.
	MaxTextSize   int
	Workers       int
	CacheTTL      time.Duration
	CacheMaxBytes int
	DisableCache  bool
}

// Health describes what the core has loaded.
type Health struct {
	Categories      int    `json:"categories"`
	TextClassifier  string `json:"text_classifier,omitempty"`
	ImageClassifier string `json:"image_classifier,omitempty"`
	CachedVerdicts  int    `json:"cached_verdicts"`
}

// Core scores content with the rule engine, consults optional external
// classifiers and merges modalities into one decision.
type Core struct {
	lex        *lexicon.Lexicon
	scorer     *scorer.Scorer
	textModel  interfaces.TextClassifier
	imageModel interfaces.ImageClassifier
	cb         interfaces.CallbackHandler
	allCb      interfaces.ProcessedHandler
	logger     interfaces.Logger

	maxTextSize int
	workers     int
	cacheTTL    time.Duration
	cache       *verdictCache
	stop        chan struct{}
	closeOnce   sync.Once

	eventsMu sync.RWMutex
	events   map[EventName][]EventHandler

	processed [5]atomic.Int64
}

// New creates a core. It panics if no lexicon is given and the built-in one
// is malformed, so a broken table stops the process at startup.
func New(opt Options) *Core {
	c := &Core{
		cb:          noopCallbacks{},
		events:      make(map[EventName][]EventHandler, 5),
		maxTextSize: defaultMaxTextSize,
		workers:     runtime.GOMAXPROCS(0),
		cacheTTL:    defaultCacheTTL,
		stop:        make(chan struct{}),
	}

	c.lex = opt.Lexicon
	if c.lex == nil {
		c.lex = lexicon.MustDefault()
	}
	if opt.MaxTextSize > 0 {
		c.maxTextSize = opt.MaxTextSize
	}
	if opt.Workers > 0 {
		c.workers = opt.Workers
	}
	if opt.CacheTTL > 0 {
		c.cacheTTL = opt.CacheTTL
	}
	cacheMaxBytes := defaultCacheMaxBytes
	if opt.CacheMaxBytes > 0 {
		cacheMaxBytes = opt.CacheMaxBytes
	}
	if opt.Logger != nil {
		c.logger = opt.Logger
	}
	if opt.CallbackHandler != nil {
		c.cb = opt.CallbackHandler
	}
	if opt.Processed != nil {
		c.allCb = opt.Processed
	}

	scorerOpt := opt.Scorer
	if scorerOpt.Workers <= 0 {
		scorerOpt.Workers = c.workers
	}
	c.scorer = scorer.New(c.lex, scorerOpt)
	c.textModel = opt.TextClassifier
	c.imageModel = opt.ImageClassifier
	if !opt.DisableCache && (c.textModel != nil || c.imageModel != nil) {
		c.cache = newVerdictCache(int64(cacheMaxBytes), c.cacheTTL)
		c.startCacheJanitor()
	}

	return c
}

// Close stops background work. It is safe to call more than once.
func (c *Core) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

// On registers event handlers.
func (c *Core) On(event EventName, handler EventHandler) error {
	if handler == nil {
		return errors.New("core: handler is nil")
	}
	c.eventsMu.Lock()
	c.events[event] = append(c.events[event], handler)
	c.eventsMu.Unlock()
	return nil
}

// OnClean registers handler for severity none.
func (c *Core) OnClean(handler EventHandler) error {
	return c.On(EventAllowClean, handler)
}

// OnLow registers handler for severity low.
func (c *Core) OnLow(handler EventHandler) error {
	return c.On(EventMarkLow, handler)
}

// OnMedium registers handler for severity medium.
func (c *Core) OnMedium(handler EventHandler) error {
	return c.On(EventHumanReview, handler)
}

// OnHigh registers handler for severity high.
func (c *Core) OnHigh(handler EventHandler) error {
	return c.On(EventAutoRestrict, handler)
}

// OnCritical registers handler for severity critical.
func (c *Core) OnCritical(handler EventHandler) error {
	return c.On(EventCriticalEscalate, handler)
}

// Lexicon returns the lexicon in use.
func (c *Core) Lexicon() *lexicon.Lexicon {
	return c.lex
}

// Score runs the rule engine on text without classifiers or callbacks.
func (c *Core) Score(text string) models.ScoreResult {
	return c.scorer.Score(c.truncate(text))
}

// SummarizeBatch scores texts and returns one summary per text, in order.
func (c *Core) SummarizeBatch(texts []string) []models.Summary {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = c.truncate(t)
	}
	results := c.scorer.ScoreBatch(prepared)
	out := make([]models.Summary, len(results))
	for i, r := range results {
		out[i] = Summarize(texts[i], r, BatchExcerptLength)
	}
	return out
}

// Summarize builds the compact summary of one scoring result.
func Summarize(text string, r models.ScoreResult, excerptLen int) models.Summary {
	return models.Summary{
		Text:       models.Excerpt(text, excerptLen),
		Toxic:      r.Toxic,
		Score:      r.Score,
		Severity:   r.Severity,
		Categories: r.Categories,
		Warning:    r.Warning,
	}
}

// SummarizeModeration builds the compact summary of a full moderation
// decision. Categories come from the text modality, then the image one.
func SummarizeModeration(text string, m models.Moderation, excerptLen int) models.Summary {
	var categories []string
	switch {
	case m.Combined.Text != nil:
		categories = m.Combined.Text.Categories
	case m.Combined.Image != nil:
		categories = m.Combined.Image.Categories
	}
	if categories == nil {
		categories = []string{}
	}
	return models.Summary{
		Text:       models.Excerpt(text, excerptLen),
		Toxic:      m.Toxic,
		Score:      m.Score,
		Severity:   m.Severity,
		Categories: categories,
		Warning:    m.Warning,
	}
}

// ProcessContent moderates one content item across all present modalities.
func (c *Core) ProcessContent(ctx context.Context, content models.Content) (models.Moderation, error) {
	if content.Empty() {
		return models.Moderation{}, combiner.ErrNoModality
	}
	m, err := c.moderate(ctx, content)
	if err != nil {
		return models.Moderation{}, err
	}
	c.record(ctx, content, m)
	return m, nil
}

// ProcessBatch moderates contents in parallel. Results keep input order; the
// first failure fails the whole batch.
func (c *Core) ProcessBatch(ctx context.Context, contents []models.Content) ([]models.Moderation, error) {
	if len(contents) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]models.Moderation, len(contents))
	filled := make([]bool, len(contents))
	workers := c.workers
	if workers > len(contents) {
		workers = len(contents)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				m, err := c.ProcessContent(ctx, contents[i])
				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("core: batch item %d: %w", i, err)
						cancel()
					})
					continue
				}
				out[i] = m
				filled[i] = true
			}
		}()
	}

feed:
	for i := range contents {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	for i := range out {
		if !filled[i] {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("core: batch interrupted at index %d: %w", i, err)
			}
			return nil, fmt.Errorf("core: internal batch result mismatch at index %d", i)
		}
	}
	return out, nil
}

func (c *Core) moderate(ctx context.Context, content models.Content) (models.Moderation, error) {
	m := models.Moderation{ContentID: content.ID, RequestID: uuid.NewString()}
	text := c.truncate(content.Text)

	var textRes, imageRes *models.ScoreResult
	if text != "" {
		rules := c.scorer.Score(text)
		m.Rules = &rules
		textRes = m.Rules
	}

	verdict, ok, err := c.textVerdict(ctx, content.TextVerdict, text)
	switch {
	case err != nil:
		m.Fallback = true
		c.logWarn("text classifier failed, using rules", map[string]any{
			"error":      err.Error(),
			"classifier": c.textModel.Name(),
			"content_id": content.ID,
		})
	case ok:
		r := models.FromVerdict(verdict)
		textRes = &r
	}

	verdict, ok, err = c.imageVerdict(ctx, content)
	if err != nil {
		return models.Moderation{}, err
	}
	if ok {
		r := models.FromVerdict(verdict)
		imageRes = &r
	}

	combined, err := combiner.Combine(textRes, imageRes)
	if err != nil {
		return models.Moderation{}, err
	}
	m.Combined = combined
	m.Score = combined.Score
	m.Toxic = combined.Toxic
	m.Severity = decisionSeverity(combined)
	if m.Toxic {
		m.Warning = m.Severity.Warning()
	}
	return m, nil
}

// decisionSeverity keeps a single modality's own tier, so a confident
// non-toxic model verdict is not escalated by its confidence score.
func decisionSeverity(r models.CombinedResult) models.Severity {
	switch {
	case r.Text != nil && r.Image == nil:
		return r.Text.Severity
	case r.Image != nil && r.Text == nil:
		return r.Image.Severity
	default:
		return models.ClassifySeverity(r.Score)
	}
}

func (c *Core) textVerdict(ctx context.Context, pre *models.Verdict, text string) (models.Verdict, bool, error) {
	if pre != nil {
		return *pre, true, nil
	}
	if c.textModel == nil || utf8.RuneCountInString(strings.TrimSpace(text)) < scorer.MinLength {
		return models.Verdict{}, false, nil
	}
	if v, ok := c.cache.lookup(models.ModalityText, []byte(text), time.Now()); ok {
		return v, true, nil
	}
	v, err := c.textModel.ClassifyText(ctx, text)
	if err != nil {
		return models.Verdict{}, false, err
	}
	c.cache.remember(models.ModalityText, []byte(text), v, time.Now())
	return v, true, nil
}

func (c *Core) imageVerdict(ctx context.Context, content models.Content) (models.Verdict, bool, error) {
	if content.ImageVerdict != nil {
		return *content.ImageVerdict, true, nil
	}
	if len(content.Image) == 0 {
		return models.Verdict{}, false, nil
	}
	if c.imageModel == nil {
		return models.Verdict{}, false, ErrNoImageClassifier
	}
	if v, ok := c.cache.lookup(models.ModalityImage, content.Image, time.Now()); ok {
		return v, true, nil
	}
	v, err := c.imageModel.ClassifyImage(ctx, content.Image)
	if err != nil {
		return models.Verdict{}, false, fmt.Errorf("core: image classifier %s: %w", c.imageModel.Name(), err)
	}
	c.cache.remember(models.ModalityImage, content.Image, v, time.Now())
	return v, true, nil
}

func (c *Core) truncate(text string) string {
	if c.maxTextSize <= 0 || len(text) <= c.maxTextSize {
		return text
	}
	n := 0
	for pos := range text {
		if n == c.maxTextSize {
			return text[:pos]
		}
		n++
	}
	return text
}

// Metrics returns count of processed contents by severity tier.
func (c *Core) Metrics() map[models.Severity]int64 {
	out := make(map[models.Severity]int64, len(c.processed))
	for i := range c.processed {
		out[models.Severity(i)] = c.processed[i].Load()
	}
	return out
}

// Health reports loaded categories and configured classifiers.
func (c *Core) Health() Health {
	h := Health{Categories: c.lex.Len(), CachedVerdicts: c.cache.Len()}
	if c.textModel != nil {
		h.TextClassifier = c.textModel.Name()
	}
	if c.imageModel != nil {
		h.ImageClassifier = c.imageModel.Name()
	}
	return h
}

func (c *Core) record(ctx context.Context, content models.Content, m models.Moderation) {
	sev := m.Severity
	if !sev.Valid() {
		sev = models.SeverityNone
	}
	c.processed[sev].Add(1)
	e := interfaces.Event{
		RequestID:  m.RequestID,
		ContentID:  content.ID,
		UserID:     content.User,
		Excerpt:    models.Excerpt(content.Text, ExcerptLength),
		Score:      m.Score,
		Toxic:      m.Toxic,
		Severity:   sev,
		Warning:    m.Warning,
		Categories: eventCategories(m),
		Modalities: m.Combined.Modalities(),
		Fallback:   m.Fallback,
	}
	if c.logger != nil {
		c.logger.Debug("content moderated", map[string]any{
			"request_id": e.RequestID,
			"content_id": e.ContentID,
			"score":      e.Score,
			"severity":   e.Severity.String(),
			"toxic":      e.Toxic,
			"excerpt":    e.Excerpt,
		})
	}
	c.dispatchBySeverity(ctx, e)
	c.dispatchEvent(ctx, e)
}

func eventCategories(m models.Moderation) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(r *models.ScoreResult) {
		if r == nil {
			return
		}
		for _, name := range r.Categories {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	add(m.Rules)
	add(m.Combined.Text)
	add(m.Combined.Image)
	return out
}

func (c *Core) dispatchBySeverity(ctx context.Context, e interfaces.Event) {
	var err error
	switch e.Severity {
	case models.SeverityNone:
		err = c.cb.OnClean(ctx, e)
	case models.SeverityLow:
		err = c.cb.OnLow(ctx, e)
	case models.SeverityMedium:
		err = c.cb.OnMedium(ctx, e)
	case models.SeverityHigh:
		err = c.cb.OnHigh(ctx, e)
	case models.SeverityCritical:
		err = c.cb.OnCritical(ctx, e)
	}
	if err != nil {
		c.logWarn("callback failed", map[string]any{"error": err.Error(), "severity": e.Severity.String()})
	}
	if c.allCb != nil {
		if err := c.allCb.OnProcessed(ctx, e); err != nil {
			c.logWarn("processed callback failed", map[string]any{"error": err.Error()})
		}
	}
}

func (c *Core) dispatchEvent(ctx context.Context, e interfaces.Event) {
	event := eventNameFromSeverity(e.Severity)
	c.eventsMu.RLock()
	handlers := append([]EventHandler(nil), c.events[event]...)
	c.eventsMu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			c.logWarn("event handler failed", map[string]any{"error": err.Error(), "event": string(event)})
		}
	}
}

func eventNameFromSeverity(s models.Severity) EventName {
	switch s {
	case models.SeverityLow:
		return EventMarkLow
	case models.SeverityMedium:
		return EventHumanReview
	case models.SeverityHigh:
		return EventAutoRestrict
	case models.SeverityCritical:
		return EventCriticalEscalate
	default:
		return EventAllowClean
	}
}

func (c *Core) logWarn(msg string, fields map[string]any) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}

func (c *Core) startCacheJanitor() {
	interval := time.Minute
	if c.cacheTTL > 0 && c.cacheTTL < interval {
		interval = c.cacheTTL
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logWarn("verdict cache janitor panic", map[string]any{"panic": fmt.Sprint(r)})
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if n := c.cache.sweep(time.Now()); n > 0 && c.logger != nil {
					c.logger.Debug("verdict cache swept", map[string]any{"expired": n})
				}
			}
		}
	}()
}

type noopCallbacks struct{}

func (noopCallbacks) OnClean(context.Context, interfaces.Event) error    { return nil }
func (noopCallbacks) OnLow(context.Context, interfaces.Event) error      { return nil }
func (noopCallbacks) OnMedium(context.Context, interfaces.Event) error   { return nil }
func (noopCallbacks) OnHigh(context.Context, interfaces.Event) error     { return nil }
func (noopCallbacks) OnCritical(context.Context, interfaces.Event) error { return nil }
