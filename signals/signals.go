// Package signals computes non-lexical toxicity cues from raw text structure.
// Every function is pure and independent of the lexicon.
package signals

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tags added to the matched category set when a signal fires.
const (
	TagYelling              = "yelling"
	TagExcessivePunctuation = "excessive_punctuation"
	TagPersonalAttack       = "personal_attack"
)

// Bonuses added to the score accumulator.
const (
	YellingBonus        = 0.3
	RepetitionBonus     = 0.2
	PersonalAttackBonus = 0.4
	MaxPunctuationBonus = 0.3
)

const (
	yellingRatio      = 0.7
	yellingMinLength  = 10
	punctuationLimit  = 5
	punctuationFactor = 0.1
)

var secondPerson = regexp.MustCompile(`\byou(?:'?re)?\b`)

// attackTerms is the high-salience insult subset used with second-person address.
var attackTerms = []string{"stupid", "idiot", "ugly", "fat"}

// CapsRatio returns the share of case-bearing letters that are uppercase.
func CapsRatio(text string) float64 {
	var upper, cased int
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			upper++
			cased++
		case unicode.IsLower(r), unicode.IsTitle(r):
			cased++
		}
	}
	if cased == 0 {
		return 0
	}
	return float64(upper) / float64(cased)
}

// Yelling reports whether text is shouted: caps ratio above 0.7 on text
// longer than 10 characters.
func Yelling(text string) bool {
	return utf8.RuneCountInString(text) > yellingMinLength && CapsRatio(text) > yellingRatio
}

// PunctuationIntensity counts '!' plus half of '?'.
func PunctuationIntensity(text string) float64 {
	return float64(strings.Count(text, "!")) + 0.5*float64(strings.Count(text, "?"))
}

// PunctuationBonus returns the accumulator bonus for a given intensity, or 0
// when intensity does not exceed 5.
func PunctuationBonus(intensity float64) float64 {
	if intensity <= punctuationLimit {
		return 0
	}
	return math.Min(intensity*punctuationFactor, MaxPunctuationBonus)
}

// RepeatedTerms returns the matched terms that occur as a whitespace-separated
// token more than once in folded text. Each term is reported once.
func RepeatedTerms(folded string, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	counts := make(map[string]int, 16)
	for _, tok := range strings.Fields(folded) {
		counts[tok]++
	}
	var out []string
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		if counts[term] > 1 {
			out = append(out, term)
		}
	}
	return out
}

// PersonalAttack reports whether folded text addresses the reader in the
// second person and contains a high-salience insult.
func PersonalAttack(folded string) bool {
	if !secondPerson.MatchString(folded) {
		return false
	}
	for _, term := range attackTerms {
		if strings.Contains(folded, term) {
			return true
		}
	}
	return false
}
