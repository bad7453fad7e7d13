package engagement

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go-engage/internal/domain"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type compiledSchema struct {
	raw    string
	schema *jsonschema.Schema
}

// SchemaCache compiles stored JSON Schemas once, recompiling when the
// stored document changes.
type SchemaCache struct {
	mu       sync.Mutex
	compiled map[uuid.UUID]compiledSchema
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{compiled: make(map[uuid.UUID]compiledSchema)}
}

// CompileSchema checks that raw is a valid Draft-07 schema.
func CompileSchema(raw []byte) error {
	_, err := compile(uuid.New(), raw)
	return err
}

func compile(id uuid.UUID, raw []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	url := id.String() + ".json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", id, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", id, err)
	}
	return s, nil
}

func (c *SchemaCache) get(s *domain.JSONSchema) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw := string(s.Schema)
	if cs, ok := c.compiled[s.ID]; ok && cs.raw == raw {
		return cs.schema, nil
	}
	compiled, err := compile(s.ID, s.Schema)
	if err != nil {
		return nil, err
	}
	c.compiled[s.ID] = compiledSchema{raw: raw, schema: compiled}
	return compiled, nil
}

// Validate checks value against s. A non-empty violation describes why the
// value was rejected; err is reserved for a stored schema that cannot be used.
func (c *SchemaCache) Validate(s *domain.JSONSchema, value any) (violation string, err error) {
	compiled, err := c.get(s)
	if err != nil {
		return "", err
	}
	if err := compiled.Validate(value); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return "", err
		}
		return violationMessage(ve), nil
	}
	return "", nil
}

// violationMessage flattens a validation error to its leaf causes.
func violationMessage(ve *jsonschema.ValidationError) string {
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			if e.InstanceLocation != "" {
				msgs = append(msgs, e.InstanceLocation+": "+e.Message)
			} else {
				msgs = append(msgs, e.Message)
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
