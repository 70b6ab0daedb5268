package graph

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// flowDataSchema describes the persisted shape of a document. Unknown top-level keys
// are tolerated so that flow data written by other tools still loads.
const flowDataSchema = `{
  "type": "object",
  "properties": {
    "nodes": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "position": {
            "type": "object",
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"}
            }
          },
          "data": {"type": ["object", "null"]}
        }
      }
    },
    "edges": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(flowDataSchema))
})

// ParseFlowData decodes persisted flow data. A blank string is an empty document.
// Invalid JSON or a shape violation returns an error wrapping ErrMalformedFlowData.
func ParseFlowData(flowData string) (Document, error) {
	if strings.TrimSpace(flowData) == "" {
		return Empty(), nil
	}

	schema, err := compiledSchema()
	if err != nil {
		return Empty(), fmt.Errorf("failed to compile flow data schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(flowData))
	if err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrMalformedFlowData, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return Empty(), fmt.Errorf("%w: %s", ErrMalformedFlowData, strings.Join(details, "; "))
	}

	var doc Document

	err = json.Unmarshal([]byte(flowData), &doc)
	if err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrMalformedFlowData, err)
	}

	return normalize(doc), nil
}

// Marshal encodes a document into its canonical flow data JSON.
func Marshal(doc Document) (string, error) {
	payload, err := json.Marshal(normalize(doc))
	if err != nil {
		return "", fmt.Errorf("failed to marshal flow data: %w", err)
	}

	return string(payload), nil
}

// normalize replaces nil collections so that the JSON form always carries arrays and objects.
func normalize(doc Document) Document {
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}

	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}

	nodes := make([]Node, len(doc.Nodes))
	for i, node := range doc.Nodes {
		if node.Data == nil {
			node.Data = map[string]any{}
		}

		nodes[i] = node
	}

	doc.Nodes = nodes

	return doc
}
