// Package checklist loads the review checklist document. The document is YAML or JSON and is validated against
// an embedded JSON Schema before it is decoded.
package checklist

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/myrjola/ace/internal/errors"
	"github.com/myrjola/ace/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.NewSentinel("invalid checklist")

//go:embed checklist.schema.json
var schemaJSON string

var (
	schema  = mustCompileSchema(schemaJSON, "checklist.schema.json")
	printer = message.NewPrinter(language.English)
)

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic("parse embedded " + name + ": " + err.Error())
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic("add " + name + " resource: " + err.Error())
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic("compile " + name + ": " + err.Error())
	}
	return sch
}

// Load reads and parses the checklist document at path.
func Load(path string) (*models.Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read checklist", slog.String("path", path))
	}
	checklist, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse checklist", slog.String("path", path))
	}
	return checklist, nil
}

// Parse validates data and decodes it. YAML is a superset of JSON, so both formats are accepted.
//
// Question IDs must be unique across all tabs because evaluations refer to questions by ID alone.
func Parse(data []byte) (*models.Checklist, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(ErrInvalid, "decode document", slog.String("cause", err.Error()))
	}
	if problems := validate(doc); len(problems) > 0 {
		return nil, errors.Wrap(ErrInvalid, "schema validation failed",
			slog.String("problems", strings.Join(problems, "; ")))
	}

	var checklist models.Checklist
	if err := yaml.Unmarshal(data, &checklist); err != nil {
		return nil, errors.Wrap(ErrInvalid, "decode checklist", slog.String("cause", err.Error()))
	}

	seen := make(map[string]struct{})
	for _, q := range checklist.Questions() {
		if _, ok := seen[q.ID]; ok {
			return nil, errors.Wrap(ErrInvalid, "duplicate question id", slog.String("question_id", q.ID))
		}
		seen[q.ID] = struct{}{}
	}
	return &checklist, nil
}

func validate(doc any) []string {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var problems []string
	collectProblems(ve, &problems)
	return problems
}

func collectProblems(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		*problems = append(*problems, "/"+strings.Join(ve.InstanceLocation, "/")+": "+
			ve.ErrorKind.LocalizedString(printer))
		return
	}
	for _, c := range ve.Causes {
		collectProblems(c, problems)
	}
}
