package quiz

import "math"

// ItemResult is the outcome of one question.
type ItemResult struct {
	QuestionID      string `json:"questionId"`
	Selected        int    `json:"selected,omitempty"`
	Answered        bool   `json:"answered"`
	Correct         bool   `json:"correct"`
	CorrectChoiceNo int    `json:"correctChoiceNo"`
}

// Result summarizes a graded quiz.
type Result struct {
	Total    int          `json:"total"`
	Answered int          `json:"answered"`
	Correct  int          `json:"correct"`
	Score    int          `json:"score"`
	Items    []ItemResult `json:"items"`
}

// Grade scores answers (question id -> selected original choice ordinal)
// against questions. Unanswered questions count as wrong. Score is the
// rounded percentage of correct answers.
func Grade(questions []RenderedQuestion, answers map[string]int) Result {
	res := Result{
		Total: len(questions),
		Items: make([]ItemResult, 0, len(questions)),
	}
	for _, q := range questions {
		item := ItemResult{
			QuestionID:      q.ID,
			CorrectChoiceNo: q.CorrectChoiceNo,
		}
		if selected, ok := answers[q.ID]; ok {
			item.Selected = selected
			item.Answered = true
			item.Correct = q.IsCorrect(selected)
			res.Answered++
		}
		if item.Correct {
			res.Correct++
		}
		res.Items = append(res.Items, item)
	}
	res.Score = Score(res.Correct, res.Total)
	return res
}

// Score returns correct/total as a rounded percentage; 0 for an empty quiz.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
