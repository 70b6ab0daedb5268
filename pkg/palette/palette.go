// Package palette describes the node types that can be dragged onto the canvas and the
// data each new node starts with.
package palette

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowedit/pkg/graph"
	"gopkg.in/yaml.v3"
)

// ErrUnknownNodeType indicates the palette has no entry for a node type.
var ErrUnknownNodeType = errors.New("unknown node type")

// Entry is one draggable palette item.
type Entry struct {
	Type        graph.NodeType `json:"type"                  yaml:"type"`
	Label       string         `json:"label"                 yaml:"label"`
	Category    string         `json:"category"              yaml:"category"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Defaults    map[string]any `json:"defaults,omitempty"    yaml:"defaults,omitempty"`
}

// Palette is an ordered set of entries keyed by node type.
type Palette struct {
	entries []Entry
}

// Default returns the built-in palette.
func Default() *Palette {
	return New([]Entry{
		{Type: graph.NodeTypeStart, Label: "Start", Category: "Flow", Description: "Entry point of the workflow"},
		{Type: graph.NodeTypeAgent, Label: "Agent", Category: "General", Description: "Autonomous agent step"},
		{Type: graph.NodeTypeCondition, Label: "Condition", Category: "Logic", Description: "Branch on an expression"},
		{Type: graph.NodeTypeLLM, Label: "LLM", Category: "AI", Description: "Single model call"},
		{Type: graph.NodeTypeLoop, Label: "Loop", Category: "Logic", Description: "Repeat the following steps"},
		{Type: graph.NodeTypeTool, Label: "Tool", Category: "Integration", Description: "Invoke a tool"},
		{Type: graph.NodeTypeDocument, Label: "Document", Category: "Data", Description: "Load documents"},
		{Type: graph.NodeTypeMemory, Label: "Memory", Category: "Data", Description: "Conversation memory"},
		{Type: graph.NodeTypeAPI, Label: "API", Category: "Integration", Description: "Call an HTTP API"},
	})
}

// New builds a palette from entries. Later entries replace earlier ones of the same type.
func New(entries []Entry) *Palette {
	p := &Palette{}
	for _, entry := range entries {
		p.set(entry)
	}

	return p
}

// Entries returns the palette items in order.
func (p *Palette) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Entry returns the item for a node type.
func (p *Palette) Entry(nodeType graph.NodeType) (Entry, bool) {
	for _, entry := range p.entries {
		if entry.Type == nodeType {
			return entry, true
		}
	}

	return Entry{}, false
}

// DefaultData returns the data a freshly dropped node of nodeType starts with:
// the entry's defaults plus label, type and category.
func (p *Palette) DefaultData(nodeType graph.NodeType) (map[string]any, error) {
	entry, ok := p.Entry(nodeType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}

	data := graph.CloneData(entry.Defaults)
	if data == nil {
		data = make(map[string]any, 3)
	}

	data[graph.DataLabel] = entry.Label
	data[graph.DataType] = string(entry.Type)
	data[graph.DataCategory] = entry.Category

	return data, nil
}

// Merge returns a palette holding p's entries overridden and extended by other's.
func (p *Palette) Merge(other *Palette) *Palette {
	merged := New(p.entries)
	for _, entry := range other.entries {
		merged.set(entry)
	}

	return merged
}

func (p *Palette) set(entry Entry) {
	if entry.Label == "" {
		entry.Label = string(entry.Type)
	}

	for i, existing := range p.entries {
		if existing.Type == entry.Type {
			p.entries[i] = entry

			return
		}
	}

	p.entries = append(p.entries, entry)
}

type paletteFile struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// FromFile loads entries from a YAML or JSON file, chosen by extension, and merges them
// over the default palette.
func FromFile(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read palette file: %w", err)
	}

	var file paletteFile

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported palette file extension: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("parse palette file: %w", err)
	}

	for i, entry := range file.Entries {
		if entry.Type == "" {
			return nil, fmt.Errorf("palette entry %d: type is required", i)
		}
	}

	return Default().Merge(New(file.Entries)), nil
}
