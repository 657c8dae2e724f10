package realitio

import (
	"encoding/json"
	"fmt"
	"strings"

	"oraclescope/internal/model"
)

// fieldDelimiter separates the raw question string into template fields.
const fieldDelimiter = "␟"

// builtinTemplates are the contract's default question templates, registered
// in its constructor as ids 0 through 4.
var builtinTemplates = map[int64]string{
	0: `{"title": "%s", "type": "bool", "category": "%s", "lang": "%s"}`,
	1: `{"title": "%s", "type": "uint", "decimals": 18, "category": "%s", "lang": "%s"}`,
	2: `{"title": "%s", "type": "single-select", "outcomes": [%s], "category": "%s", "lang": "%s"}`,
	3: `{"title": "%s", "type": "multiple-select", "outcomes": [%s], "category": "%s", "lang": "%s"}`,
	4: `{"title": "%s", "type": "datetime", "category": "%s", "lang": "%s"}`,
}

// UnrecognizedQuestionTypeError reports a template type string with no known
// question type mapping.
type UnrecognizedQuestionTypeError struct {
	Type string
}

func (e *UnrecognizedQuestionTypeError) Error() string {
	return fmt.Sprintf("unrecognized question type %q", e.Type)
}

// UnknownTemplateError reports a template id outside the builtin table.
type UnknownTemplateError struct {
	TemplateID int64
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("unknown template id %d", e.TemplateID)
}

// QuestionContent is the parsed result of populating a template with the raw
// question fields.
type QuestionContent struct {
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Category string   `json:"category"`
	Lang     string   `json:"lang"`
	Outcomes []string `json:"outcomes"`
	Decimals int      `json:"decimals"`
}

// QuestionType maps the template type string to a question type.
func (c QuestionContent) QuestionType() (model.QuestionType, error) {
	switch c.Type {
	case "bool":
		return model.TypeBinary, nil
	case "uint", "int":
		return model.TypeNumber, nil
	case "single-select":
		return model.TypeSingleChoice, nil
	case "multiple-select":
		return model.TypeMultipleChoice, nil
	case "datetime":
		return model.TypeDateTime, nil
	default:
		return "", &UnrecognizedQuestionTypeError{Type: c.Type}
	}
}

// ParseQuestionText splits the raw question string on the field delimiter,
// substitutes the fields into the template's placeholders verbatim, and parses
// the populated template as JSON. Fields beyond the template's placeholders
// are ignored; missing fields populate as empty strings.
func ParseQuestionText(templateID int64, raw string) (QuestionContent, error) {
	tmpl, ok := builtinTemplates[templateID]
	if !ok {
		return QuestionContent{}, &UnknownTemplateError{TemplateID: templateID}
	}

	fields := strings.Split(raw, fieldDelimiter)
	populated := substitute(tmpl, fields)

	var content QuestionContent
	if err := json.Unmarshal([]byte(populated), &content); err != nil {
		return QuestionContent{}, fmt.Errorf("parse populated template %d: %w", templateID, err)
	}
	return content, nil
}

// substitute replaces each %s placeholder with the next field, verbatim. No
// escaping: the fields are trusted to form valid JSON once inserted, exactly
// as the contract's reference tooling assumes.
func substitute(tmpl string, fields []string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	idx := 0
	for {
		pos := strings.Index(rest, "%s")
		if pos < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:pos])
		if idx < len(fields) {
			b.WriteString(fields[idx])
		}
		idx++
		rest = rest[pos+2:]
	}
}
