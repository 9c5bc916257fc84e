package models

import "unicode/utf8"

// Modality names.
const (
	ModalityText  = "text"
	ModalityImage = "image"
)

// Content is an input unit for moderation. Text and Image are independent
// modalities; either may be empty. TextVerdict and ImageVerdict carry
// pre-computed model signals and suppress the corresponding classifier call.
type Content struct {
	ID           string   `json:"id,omitempty"`
	User         int64    `json:"user,omitempty"`
	Text         string   `json:"text,omitempty"`
	Image        []byte   `json:"image,omitempty"`
	TextVerdict  *Verdict `json:"text_verdict,omitempty"`
	ImageVerdict *Verdict `json:"image_verdict,omitempty"`
}

// Empty reports whether the content carries no modality at all.
func (c Content) Empty() bool {
	return c.Text == "" && len(c.Image) == 0 && c.TextVerdict == nil && c.ImageVerdict == nil
}

// Moderation is the full decision for one Content.
type Moderation struct {
	ContentID string         `json:"content_id,omitempty"`
	RequestID string         `json:"request_id"`
	Rules     *ScoreResult   `json:"rules,omitempty"`
	Combined  CombinedResult `json:"combined"`
	Score     float64        `json:"score"`
	Toxic     bool           `json:"toxic"`
	Severity  Severity       `json:"severity"`
	Warning   string         `json:"warning,omitempty"`
	// Fallback is set when the text classifier failed and rules were used.
	Fallback bool `json:"fallback,omitempty"`
}

// Excerpt truncates text to n runes, appending "..." when it was cut.
func Excerpt(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos] + "..."
		}
		i++
	}
	return text
}
