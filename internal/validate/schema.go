package validate

import (
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// questionSchema describes the shape a question entry needs for the loader
// to keep it. Ordinals may be integers or integer strings, as the loader
// accepts both.
const questionSchema = `{
  "definitions": {
    "ordinal": {
      "type": ["integer", "string", "null"],
      "pattern": "^-?[0-9]+$"
    }
  },
  "type": "object",
  "required": ["question", "choices", "answer"],
  "properties": {
    "no": {"$ref": "#/definitions/ordinal"},
    "topic": {"type": ["string", "null"]},
    "question": {"type": "string", "minLength": 1},
    "choices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "no": {"$ref": "#/definitions/ordinal"},
          "text": {"type": ["string", "null"]}
        }
      }
    },
    "answer": {
      "type": "object",
      "required": ["choiceNo"],
      "properties": {
        "choiceNo": {"type": "integer", "not": {"enum": [0]}}
      }
    },
    "explanation": {"type": ["string", "null"]}
  }
}`

var compiledQuestionSchema = sync.OnceValue(func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionSchema))
	if err != nil {
		panic("validate: invalid question schema: " + err.Error())
	}
	return s
})

// checkShape returns the schema violations of one decoded question entry.
func checkShape(entry any) []string {
	if entry == nil {
		return []string{"entry is null"}
	}
	result, err := compiledQuestionSchema().Validate(gojsonschema.NewGoLoader(entry))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return problems
}

func joinProblems(problems []string) string {
	return strings.Join(problems, "; ")
}
