package questions

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// bankSchema constrains a question bank file: every key maps to a non-empty list of
// non-empty strings and the fallback list is mandatory.
const bankSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["default"],
  "minProperties": 1,
  "additionalProperties": {
    "type": "array",
    "minItems": 1,
    "items": {"type": "string", "minLength": 1}
  }
}`

// SchemaError lists the problems found in a question bank file.
type SchemaError struct {
	Path     string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("question bank %s is invalid: %s", e.Path, strings.Join(e.Problems, "; "))
}

// LoadFile reads a YAML question bank, validates it and returns it with lowercased keys.
func LoadFile(path string) (Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes YAML question bank content. name is used in errors only.
func Parse(name string, data []byte) (Bank, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse question bank %s: %w", name, err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(bankSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate question bank %s: %w", name, err)
	}
	if !result.Valid() {
		serr := &SchemaError{Path: name}
		for _, re := range result.Errors() {
			serr.Problems = append(serr.Problems, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
		}
		slog.Warn("questions.Parse: schema validation failed", "path", name, "problems", len(serr.Problems))
		return nil, serr
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode question bank %s: %w", name, err)
	}

	bank := make(Bank, len(raw))
	for skill, qs := range raw {
		key := strings.ToLower(strings.TrimSpace(skill))
		bank[key] = append(bank[key], qs...)
	}
	slog.Debug("questions.Parse: question bank loaded", "path", name, "skills", len(bank))
	return bank, nil
}
