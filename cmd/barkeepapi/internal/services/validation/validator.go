package validation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names understood by SchemaValidator.
const (
	SchemaDrink       = "drink.json"
	SchemaDrinkUpdate = "drink_update.json"
)

// ErrInvalidDrink is wrapped by every payload rejection.
var ErrInvalidDrink = errors.New("invalid drink payload")

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator validates request payloads against the bundled JSON schemas.
type Validator interface {
	// Validate checks raw JSON against the named schema and returns an error
	// wrapping ErrInvalidDrink when the payload does not conform.
	Validate(schema string, payload []byte) error
}

// SchemaValidator implements Validator using santhosh-tekuri/jsonschema/v6
type SchemaValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
	compiler    *jsonschema.Compiler
}

var _ Validator = (*SchemaValidator)(nil)

// NewSchemaValidator creates a new validator with LRU caching for compiled schemas
func NewSchemaValidator(cacheSize int) (*SchemaValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read bundled schemas: %w", err)
	}
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(entry.Name(), parsed); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", entry.Name(), err)
		}
	}

	return &SchemaValidator{
		schemaCache: cache,
		compiler:    compiler,
	}, nil
}

// Validate decodes payload and validates it against the named schema.
func (v *SchemaValidator) Validate(name string, payload []byte) error {
	schema, err := v.schema(name)
	if err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidDrink, err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDrink, formatValidationError(err))
	}
	return nil
}

// schema returns the compiled schema, compiling on first use.
func (v *SchemaValidator) schema(name string) (*jsonschema.Schema, error) {
	if cached, found := v.schemaCache.Get(name); found {
		return cached, nil
	}

	schema, err := v.compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	v.schemaCache.Add(name, schema)
	return schema, nil
}

// formatValidationError renders the JSON path of the first failure with the library message.
// Example: "validation failed at '$.name': minLength: got 0, want 1"
func formatValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}

	// Report the deepest cause; its location is the most specific.
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := "$"
	var parts []string
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	errorMsg := ve.Error()
	if len(errorMsg) > 200 {
		errorMsg = errorMsg[:200] + "... (truncated)"
	}

	return fmt.Sprintf("validation failed at '%s': %s", path, errorMsg)
}

// GetCacheSize returns cache size for monitoring
func (v *SchemaValidator) GetCacheSize() int {
	return v.schemaCache.Len()
}
