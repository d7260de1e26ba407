// Package migrate imports existing prompt collections into the vault
// and discovers prompt-like strings embedded in source trees.
package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// batchSchema is the contract a batch document must satisfy before any
// item is handed to the write pipeline. Validating the whole document
// up front keeps a half-imported vault from being the common failure
// mode.
const batchSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["prompts"],
  "properties": {
    "source": {"type": "string"},
    "prompts": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "content", "version"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "content": {"type": "string", "minLength": 1},
          "version": {"type": "string", "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+"},
          "category": {"enum": ["system", "user", "fallback", "template", "internal"]},
          "risk_level": {"enum": ["low", "medium", "high", "critical"]},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var compiledBatchSchema = mustCompileBatchSchema()

func mustCompileBatchSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://promptvault.schemas.local/batch.schema.json"
	if err := c.AddResource(url, strings.NewReader(batchSchema)); err != nil {
		panic(err)
	}
	return c.MustCompile(url)
}

// Batch is a validated import document.
type Batch struct {
	Source  string `json:"source,omitempty"`
	Prompts []Item `json:"prompts"`
}

// Item is one prompt to import.
type Item struct {
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Version   string   `json:"version"`
	Category  string   `json:"category,omitempty"`
	RiskLevel string   `json:"risk_level,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// ParseBatch decodes and schema-validates a batch document.
func ParseBatch(data []byte) (*Batch, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("batch: invalid JSON: %w", err)
	}
	if err := compiledBatchSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("batch: schema validation failed: %w", err)
	}

	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("batch: decode: %w", err)
	}
	return &b, nil
}

// ReadBatchFile loads and validates a batch document from disk.
func ReadBatchFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read %q: %w", path, err)
	}
	return ParseBatch(data)
}
