package models

import (
	"strings"
	"time"
)

// ChecklistQuestion is a single yes/no question of the review checklist.
type ChecklistQuestion struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Criteria string `json:"criteria" yaml:"criteria"`
}

// ChecklistTab groups the questions of one review topic.
type ChecklistTab struct {
	ID        string              `json:"id" yaml:"id"`
	Label     string              `json:"label" yaml:"label"`
	Questions []ChecklistQuestion `json:"questions" yaml:"questions"`
}

// Checklist is the externally supplied, read-only review checklist.
type Checklist struct {
	Tabs []ChecklistTab `json:"tabs" yaml:"tabs"`
}

// Questions flattens the questions of all tabs in tab order.
func (c Checklist) Questions() []ChecklistQuestion {
	var questions []ChecklistQuestion
	for _, tab := range c.Tabs {
		questions = append(questions, tab.Questions...)
	}
	return questions
}

type Answer string

const (
	AnswerYes Answer = "Yes"
	AnswerNo  Answer = "No"
)

// ParseAnswer maps a case-insensitive "yes" to AnswerYes and everything else to AnswerNo.
func ParseAnswer(s string) Answer {
	if strings.EqualFold(s, "yes") {
		return AnswerYes
	}
	return AnswerNo
}

// AiEvaluation is the model's answer to one checklist question with the transcript timestamps it cites.
type AiEvaluation struct {
	QuestionID string   `json:"questionId"`
	AiAnswer   Answer   `json:"aiAnswer"`
	Evidence   []string `json:"evidence"`
}

// EvaluationArtifact is the persisted evaluation document.
type EvaluationArtifact struct {
	Evaluations []AiEvaluation `json:"evaluations"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// EvaluationIndex looks up evaluations by question ID. The first evaluation wins when the model
// answered a question more than once.
type EvaluationIndex map[string]AiEvaluation

func NewEvaluationIndex(evaluations []AiEvaluation) EvaluationIndex {
	index := make(EvaluationIndex, len(evaluations))
	for _, e := range evaluations {
		if _, ok := index[e.QuestionID]; !ok {
			index[e.QuestionID] = e
		}
	}
	return index
}

// Lookup returns the evaluation for questionID. Questions without one are not an error.
func (idx EvaluationIndex) Lookup(questionID string) (AiEvaluation, bool) {
	e, ok := idx[questionID]
	return e, ok
}
