package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["subject", "levels"],
    "properties": {
      "subject": {"type": "string", "minLength": 1},
      "levels": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "object",
          "required": ["level", "questions"],
          "properties": {
            "level": {"type": "string", "minLength": 1},
            "questions": {
              "type": "array",
              "minItems": 1,
              "items": {
                "type": "object",
                "required": ["question", "options", "correctAnswer"],
                "properties": {
                  "question": {"type": "string", "minLength": 1},
                  "options": {
                    "type": "array",
                    "minItems": 1,
                    "uniqueItems": true,
                    "items": {"type": "string"}
                  },
                  "correctAnswer": {"type": "string"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var jsonSchema = mustCompileSchema(catalogSchema)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling catalog schema: %v", err))
	}
	return s
}

// ValidateJSON checks a JSON catalog document against the catalog schema.
func ValidateJSON(data []byte) error {
	result, err := jsonSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validating catalog JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("catalog JSON does not match schema: %s", strings.Join(msgs, "; "))
}
