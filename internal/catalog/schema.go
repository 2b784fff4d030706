package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// catalogSchema is the structural contract of a catalog file:
// feature name -> exactly one category -> non-empty alias strings.
// Alias-list emptiness is left to semantic validation so it surfaces as
// EmptyCategory rather than a generic schema failure.
func catalogSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"features"},
		"properties": map[string]any{
			"ambiguous_aliases": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1},
			},
			"features": map[string]any{
				"type":          "object",
				"minProperties": 1,
				"additionalProperties": map[string]any{
					"type":          "object",
					"minProperties": 1,
					"maxProperties": 1,
					"additionalProperties": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
		},
	}
}

// validateCatalogJSON validates raw catalog bytes against the schema.
func validateCatalogJSON(data []byte) error {
	b, err := json.Marshal(catalogSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("catalog does not match schema: %w", err)
	}
	return nil
}
