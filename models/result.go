package models

import "math"

// ToxicThreshold is the per-modality cut-off: a result is toxic when its
// normalized score is strictly above it.
const ToxicThreshold = 0.4

// Signals holds the surface signal values of one scoring call. CapsRatio is
// reported to two decimals.
type Signals struct {
	CapsRatio            float64 `json:"caps_ratio"`
	PunctuationIntensity float64 `json:"punctuation_intensity"`
	RepeatedTerms        bool    `json:"repeated_terms"`
}

// CategoryScore is one entry of the top category breakdown.
type CategoryScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Color string  `json:"color,omitempty"`
}

// ScoreResult is the outcome of scoring a single piece of content.
type ScoreResult struct {
	Raw           float64         `json:"raw"`
	Score         float64         `json:"score"`
	Toxic         bool            `json:"toxic"`
	Severity      Severity        `json:"severity"`
	Warning       string          `json:"warning,omitempty"`
	Categories    []string        `json:"categories"`
	Terms         []string        `json:"terms"`
	TopCategories []CategoryScore `json:"top_categories"`
	Signals       Signals         `json:"signals"`
	TextLength    int             `json:"text_length"`
	WordCount     int             `json:"word_count"`
}

// Finalize normalizes raw into Score and derives Toxic and Severity. Only
// toxic results carry a warning.
func (r *ScoreResult) Finalize() {
	r.Score = Round3(r.Normalized())
	r.Toxic = r.Score > ToxicThreshold
	r.Severity = ClassifySeverity(r.Score)
	r.Warning = ""
	if r.Toxic {
		r.Warning = r.Severity.Warning()
	}
}

// Normalized is Raw clamped to [0, 1] without rounding.
func (r ScoreResult) Normalized() float64 {
	return math.Max(0, math.Min(r.Raw, 1))
}

// Round3 rounds half away from zero to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CombinedResult merges per-modality results into one decision.
type CombinedResult struct {
	Text  *ScoreResult `json:"text,omitempty"`
	Image *ScoreResult `json:"image,omitempty"`
	Score float64      `json:"score"`
	Toxic bool         `json:"toxic"`
}

// Modalities lists the modalities present in the combination.
func (c CombinedResult) Modalities() []string {
	out := make([]string, 0, 2)
	if c.Text != nil {
		out = append(out, ModalityText)
	}
	if c.Image != nil {
		out = append(out, ModalityImage)
	}
	return out
}

// Summary is the compact per-text shape returned by batch scoring.
type Summary struct {
	Text       string   `json:"text"`
	Toxic      bool     `json:"toxic"`
	Score      float64  `json:"score"`
	Severity   Severity `json:"severity"`
	Categories []string `json:"categories"`
	Warning    string   `json:"warning,omitempty"`
}
