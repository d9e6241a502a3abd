package evaluation

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
)

var ErrMalformed = errors.NewSentinel("malformed evaluation document")

// Shape tags the evaluation document layouts that have been written over time.
type Shape int

const (
	// ShapeArray is a bare JSON array of entries.
	ShapeArray Shape = iota
	// ShapeEvaluations is {"evaluations": [...]}, the current layout.
	ShapeEvaluations
	// ShapeAnswers is {"answers": [...]}.
	ShapeAnswers
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEvaluations:
		return "evaluations"
	case ShapeAnswers:
		return "answers"
	default:
		return "unknown"
	}
}

// document is a decoded evaluation document together with the layout it was found in.
type document struct {
	shape   Shape
	entries []entry
}

// entry accepts both the current and the legacy key names of one evaluation.
type entry struct {
	QuestionID json.RawMessage `json:"questionId"`
	ID         json.RawMessage `json:"id"`
	AiAnswer   json.RawMessage `json:"aiAnswer"`
	Answer     json.RawMessage `json:"answer"`
	Evidence   json.RawMessage `json:"evidence"`
}

func decodeDocument(raw []byte) (document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return document{}, errors.Wrap(ErrMalformed, "empty document")
	}

	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return document{}, errors.Wrap(ErrMalformed, "decode array: "+err.Error())
		}
		return document{shape: ShapeArray, entries: decodeEntries(items)}, nil
	}

	var envelope struct {
		Evaluations json.RawMessage `json:"evaluations"`
		Answers     json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return document{}, errors.Wrap(ErrMalformed, "decode object: "+err.Error())
	}
	switch {
	case !isFalsy(envelope.Evaluations):
		return document{shape: ShapeEvaluations, entries: nestedEntries(envelope.Evaluations)}, nil
	case !isFalsy(envelope.Answers):
		return document{shape: ShapeAnswers, entries: nestedEntries(envelope.Answers)}, nil
	default:
		return document{}, errors.Wrap(ErrMalformed, "no evaluations or answers key")
	}
}

// decodeEntries keeps the items that are JSON objects and skips everything else.
func decodeEntries(items []json.RawMessage) []entry {
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var e entry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// nestedEntries reads the value under an envelope key, which may itself be any known layout.
func nestedEntries(raw json.RawMessage) []entry {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil
	}
	return doc.entries
}

// Normalize decodes an evaluation document in any known layout into evaluations in the current form.
//
// Entries that are not objects or have no question ID are dropped. Any answer other than a
// case-insensitive "yes" becomes [models.AnswerNo], evidence that is not an array becomes empty, and
// non-string evidence items are dropped. It returns [ErrMalformed] when raw is not one of the known layouts.
func Normalize(raw []byte) ([]models.AiEvaluation, error) {
	evaluations, _, err := NormalizeDocument(raw)
	return evaluations, err
}

// NormalizeDocument is [Normalize] that also reports the layout raw was written in.
func NormalizeDocument(raw []byte) ([]models.AiEvaluation, Shape, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, 0, err
	}

	evaluations := make([]models.AiEvaluation, 0, len(doc.entries))
	for _, e := range doc.entries {
		idField := e.QuestionID
		if isAbsent(idField) {
			idField = e.ID
		}
		id := rawString(idField)
		if id == "" {
			continue
		}
		answer := e.AiAnswer
		if isAbsent(answer) {
			answer = e.Answer
		}
		evaluations = append(evaluations, models.AiEvaluation{
			QuestionID: id,
			AiAnswer:   models.ParseAnswer(rawString(answer)),
			Evidence:   evidence(e.Evidence),
		})
	}
	return evaluations, doc.shape, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// isFalsy reports whether raw is missing or one of the JSON values that do not select an envelope key.
func isFalsy(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return true
	default:
		return false
	}
}

func isString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}

// rawString returns the JSON string in raw or "" for any other JSON value.
func rawString(raw json.RawMessage) string {
	if !isString(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func evidence(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if !isString(item) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
