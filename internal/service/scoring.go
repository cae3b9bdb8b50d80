package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
)

type QuestionResult struct {
	Index         int  `json:"index"`
	Selected      *int `json:"selected"`
	CorrectAnswer int  `json:"correctAnswer"`
	Correct       bool `json:"correct"`
}

type ScoreResult struct {
	Total   int
	Correct int
	Score   int
	Passed  bool
	Results []QuestionResult
}

// ScoreAnswers compares each answer with the stored option index. Missing
// answers count as wrong. A quiz without questions scores 0.
func ScoreAnswers(questions []model.QuizQuestion, answers model.AnswerSheet, passingScore int) (ScoreResult, error) {
	res := ScoreResult{Total: len(questions), Results: make([]QuestionResult, 0, len(questions))}
	for i, q := range questions {
		if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
			return ScoreResult{}, util.Validationf("question %d has no valid answer key", i)
		}
		qr := QuestionResult{Index: i, CorrectAnswer: *q.CorrectAnswer}
		if selected, ok := answers[i]; ok {
			sel := selected
			qr.Selected = &sel
			qr.Correct = selected == *q.CorrectAnswer
		}
		if qr.Correct {
			res.Correct++
		}
		res.Results = append(res.Results, qr)
	}
	res.Score = PercentHalfUp(res.Correct, res.Total)
	res.Passed = res.Score >= passingScore
	return res, nil
}

// PercentHalfUp returns round-half-up(100*part/whole), or 0 when whole is 0.
func PercentHalfUp(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}
