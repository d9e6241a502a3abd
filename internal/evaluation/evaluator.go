// Package evaluation answers the review checklist from a transcript with a language model and normalizes
// stored evaluation documents.
package evaluation

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
)

const systemPrompt = "You are a clinical evaluation assistant. Use the transcript to answer each checklist question. " +
	"Respond with JSON only."

const instructions = "For each question, return Yes or No, and list evidence timestamps in mm:ss from the transcript. " +
	"If there is no evidence, answer No with an empty evidence array. " +
	`Reply with {"evaluations":[{"questionId":"...","aiAnswer":"Yes"|"No","evidence":["mm:ss"]}]}.`

// Completer sends one chat completion and returns the reply text.
type Completer interface {
	CheckCredentials() error
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

type Evaluator struct {
	completer Completer
	logger    *slog.Logger
}

func NewEvaluator(completer Completer, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		completer: completer,
		logger:    logger.With("source", "evaluation.Evaluator"),
	}
}

type promptQuestion struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Criteria string `json:"criteria"`
}

type promptUtterance struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type prompt struct {
	Instructions string            `json:"instructions"`
	Questions    []promptQuestion  `json:"questions"`
	Transcript   []promptUtterance `json:"transcript"`
}

// Evaluate asks the model to answer every checklist question from the transcript.
//
// The model may skip or repeat questions. A reply that cannot be decoded yields no evaluations and no error.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	checklist models.Checklist,
	transcript []models.TranscriptSegment,
) ([]models.AiEvaluation, error) {
	if err := e.completer.CheckCredentials(); err != nil {
		return nil, err //nolint:wrapcheck // configuration error is surfaced verbatim
	}

	p := prompt{
		Instructions: instructions,
		Questions:    make([]promptQuestion, 0),
		Transcript:   make([]promptUtterance, 0, len(transcript)),
	}
	for _, q := range checklist.Questions() {
		p.Questions = append(p.Questions, promptQuestion{ID: q.ID, Title: q.Title, Criteria: q.Criteria})
	}
	for _, s := range transcript {
		p.Transcript = append(p.Transcript, promptUtterance{Timestamp: s.Timestamp, Text: s.Text})
	}
	user, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal evaluation prompt")
	}

	reply, err := e.completer.CompleteJSON(ctx, systemPrompt, string(user))
	if err != nil {
		return nil, err //nolint:wrapcheck // upstream body is the message
	}

	evaluations, err := Normalize([]byte(stripCodeFence(reply)))
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unparsable model reply",
			slog.Int("reply_length", len(reply)), errors.SlogError(err))
		return []models.AiEvaluation{}, nil
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "checklist evaluated",
		slog.Int("questions", len(p.Questions)), slog.Int("evaluations", len(evaluations)))
	return evaluations, nil
}

// stripCodeFence removes a surrounding Markdown code fence such as ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
