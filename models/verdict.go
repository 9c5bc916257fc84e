package models

import "math"

// Verdict is the output of an external model classifier. Score is the
// confidence of the predicted class, so a confident non-toxic verdict has a
// high score and Toxic=false.
type Verdict struct {
	Toxic      bool    `json:"toxic"`
	Score      float64 `json:"score"`
	Prediction string  `json:"prediction,omitempty"`
	Model      string  `json:"model,omitempty"`
}

// CategoryModel is the category tag attached to toxic model verdicts.
const CategoryModel = "cyberbullying"

// FromVerdict converts a model verdict into a modality ScoreResult. The
// model's own toxic flag is kept; non-toxic verdicts carry severity none.
func FromVerdict(v Verdict) ScoreResult {
	score := Round3(math.Max(0, math.Min(v.Score, 1)))
	res := ScoreResult{
		Raw:        v.Score,
		Score:      score,
		Toxic:      v.Toxic,
		Categories: []string{},
		Terms:      []string{},
	}
	if v.Toxic {
		res.Severity = ClassifySeverity(score)
		res.Warning = res.Severity.Warning()
		res.Categories = []string{CategoryModel}
		res.TopCategories = []CategoryScore{{Name: CategoryModel, Score: score}}
	}
	return res
}
