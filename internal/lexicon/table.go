package lexicon

import (
	"fmt"

	"github.com/ppiankov/dhatu/internal/model"
	"gopkg.in/yaml.v3"
)

// Definition is the serialized form of a lexicon (YAML or JSON)
type Definition struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Categories  PatternTable `yaml:"categories"`
	Secondary   PatternTable `yaml:"secondary,omitempty"`
	Vectors     VectorTable  `yaml:"vectors,omitempty"`
}

// Entry is one category and its ordered pattern list
type Entry struct {
	Name     string
	Patterns []string
}

// PatternTable is an ordered category -> patterns mapping.
// It decodes from a YAML/JSON mapping and keeps the key order of the file.
type PatternTable []Entry

// UnmarshalYAML decodes a mapping node in document order
func (t *PatternTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping of category to pattern list", node.Line)
	}

	table := make(PatternTable, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var name string
		if err := keyNode.Decode(&name); err != nil {
			return fmt.Errorf("line %d: category name: %w", keyNode.Line, err)
		}

		var patterns []string
		if err := valNode.Decode(&patterns); err != nil {
			return fmt.Errorf("line %d: patterns for %s: %w", valNode.Line, name, err)
		}

		table = append(table, Entry{Name: name, Patterns: patterns})
	}

	*t = table
	return nil
}

// MarshalYAML encodes the table as a mapping, preserving order
func (t PatternTable) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range t {
		var val yaml.Node
		if err := val.Encode(entry.Patterns); err != nil {
			return nil, err
		}
		val.Style = yaml.FlowStyle
		for _, item := range val.Content {
			item.Style = yaml.SingleQuotedStyle
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name},
			&val,
		)
	}
	return node, nil
}

// VectorTable is an ordered category -> components mapping
type VectorTable []model.CategoryVector

// UnmarshalYAML decodes a mapping node in document order
func (t *VectorTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping of category to vector", node.Line)
	}

	table := make(VectorTable, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var name string
		if err := keyNode.Decode(&name); err != nil {
			return fmt.Errorf("line %d: category name: %w", keyNode.Line, err)
		}

		var components []float64
		if err := valNode.Decode(&components); err != nil {
			return fmt.Errorf("line %d: vector for %s: %w", valNode.Line, name, err)
		}

		table = append(table, model.CategoryVector{Category: name, Components: components})
	}

	*t = table
	return nil
}

// MarshalYAML encodes the table as a mapping of flow sequences
func (t VectorTable) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, vec := range t {
		var val yaml.Node
		if err := val.Encode(vec.Components); err != nil {
			return nil, err
		}
		val.Style = yaml.FlowStyle
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: vec.Category},
			&val,
		)
	}
	return node, nil
}

// DefaultSecondary returns the secondary table used to suggest concepts for gaps
func DefaultSecondary() PatternTable {
	return PatternTable{
		{Name: "TIME", Patterns: []string{
			`\b(?:time|when|then|now|today|tomorrow|yesterday|before|after|during|while|until|since|always|never|often|moment|period|soon|later|early|late)\b`,
			`\b(?:second|minute|hour|day|week|month|year|decade|century|morning|evening|night)s?\b`,
		}},
		{Name: "SPACE", Patterns: []string{
			`\b(?:here|there|where|place|location|above|below|under|over|inside|outside|near|far|between|around|across|behind|beside|within|beyond)\b`,
			`\b(?:north|south|east|west|left|right|top|bottom|front|back|side|area|region|space)s?\b`,
		}},
		{Name: "QUANTITY", Patterns: []string{
			`\b(?:many|much|more|most|less|least|few|several|all|some|none|every|each|number|amount|quantity|half|double|single|total)\b`,
			`\b(?:one|two|three|four|five|six|seven|eight|nine|ten|hundred|thousand|million)\b`,
			`\b\d+(?:[.,]\d+)?\b`,
		}},
		{Name: "IDENTITY", Patterns: []string{
			`\b(?:self|same|identical|identity|itself|himself|herself|themselves|myself|yourself|name|named|called|this|that|these|those)\b`,
			`\b(?:who|whom|whose|which|what)\b`,
		}},
	}
}
