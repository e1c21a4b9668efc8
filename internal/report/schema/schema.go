// Package schema provides JSON schema validation for result-formatter
// payloads before they are decoded.
package schema

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed results.schema.json
var schemaFS embed.FS

var (
	resultsSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

// compileSchema compiles the embedded schema once.
func compileSchema() error {
	compileOnce.Do(func() {
		data, err := schemaFS.ReadFile("results.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read results schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal results schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("results.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add results schema resource: %w", err)
			return
		}

		resultsSchema, err = compiler.Compile("results.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile results schema: %w", err)
		}
	})

	return compileErr
}

// ValidateResults validates JSON data against the results schema.
func ValidateResults(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := resultsSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
