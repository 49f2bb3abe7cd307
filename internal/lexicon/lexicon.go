// Package lexicon loads and compiles dhatu pattern tables.
//
// A lexicon is configuration data: an ordered set of categories, each with
// an ordered list of case-insensitive regular expressions, an optional
// secondary table used to label gaps, and optional category vectors for
// the geometric classifier. Lexicons are validated once and are immutable
// afterwards, so one instance can be shared by any number of analyzers.
package lexicon

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/ppiankov/dhatu/internal/model"
	"gopkg.in/yaml.v3"
)

// Pattern is a compiled, case-insensitive regular expression
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// FindAll returns the byte ranges of all non-overlapping matches in text
func (p Pattern) FindAll(text string) [][]int {
	return p.re.FindAllStringIndex(text, -1)
}

// MatchString reports whether the pattern matches anywhere in s
func (p Pattern) MatchString(s string) bool {
	return p.re.MatchString(s)
}

// Category is a named, ordered list of compiled patterns
type Category struct {
	Name     string
	Patterns []Pattern
}

// Lexicon is a validated, compiled pattern table.
//
// Patterns use Go's RE2 syntax (the regexp package): word boundaries,
// character classes, alternation and quantifiers work as in Perl, but
// lookaround and backreferences are rejected when the lexicon compiles.
// \b and \w only know ASCII word characters.
type Lexicon struct {
	name        string
	description string
	categories  []Category
	secondary   []Category
	vectors     []model.CategoryVector
	definition  Definition
}

// Name returns the lexicon name
func (l *Lexicon) Name() string { return l.name }

// Description returns the lexicon description
func (l *Lexicon) Description() string { return l.description }

// Categories returns a copy of the primary categories in declaration order
func (l *Lexicon) Categories() []Category { return copyCategories(l.categories) }

// Secondary returns a copy of the gap-labelling categories in declaration order
func (l *Lexicon) Secondary() []Category { return copyCategories(l.secondary) }

// Vectors returns a copy of the category vectors in declaration order
func (l *Lexicon) Vectors() []model.CategoryVector {
	out := make([]model.CategoryVector, len(l.vectors))
	for i, v := range l.vectors {
		out[i] = model.CategoryVector{Category: v.Category, Components: append([]float64(nil), v.Components...)}
	}
	return out
}

func copyCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		out[i] = Category{Name: c.Name, Patterns: append([]Pattern(nil), c.Patterns...)}
	}
	return out
}

// HasVectors reports whether the lexicon supports relation analysis
func (l *Lexicon) HasVectors() bool { return len(l.vectors) > 0 }

// Definition returns the source definition the lexicon was compiled from
func (l *Lexicon) Definition() Definition { return l.definition }

// CategoryNames returns the primary category names in declaration order
func (l *Lexicon) CategoryNames() []string {
	names := make([]string, len(l.categories))
	for i, c := range l.categories {
		names[i] = c.Name
	}
	return names
}

// PatternCount returns the total number of primary patterns
func (l *Lexicon) PatternCount() int {
	n := 0
	for _, c := range l.categories {
		n += len(c.Patterns)
	}
	return n
}

// Parse decodes and compiles a lexicon from YAML or JSON bytes
func Parse(data []byte, source string) (*Lexicon, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &model.ConfigError{Source: source, Err: fmt.Errorf("decode lexicon: %w", err)}
	}
	if def.Name == "" {
		def.Name = source
	}
	return Compile(def)
}

// LoadFile reads and compiles a lexicon file
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data, path)
}

// Compile validates a definition and compiles every pattern.
// Any invalid pattern or inconsistent entry fails the whole lexicon.
func Compile(def Definition) (*Lexicon, error) {
	source := def.Name
	if len(def.Categories) == 0 {
		return nil, &model.ConfigError{Source: source, Field: "categories", Err: errors.New("lexicon defines no categories")}
	}

	categories, err := compileTable(source, def.Categories)
	if err != nil {
		return nil, err
	}

	secondaryDef := def.Secondary
	if len(secondaryDef) == 0 {
		secondaryDef = DefaultSecondary()
	}
	secondary, err := compileTable(source, secondaryDef)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(categories))
	for _, c := range categories {
		declared[c.Name] = true
	}

	seenVec := make(map[string]bool, len(def.Vectors))
	vectors := make([]model.CategoryVector, 0, len(def.Vectors))
	for _, v := range def.Vectors {
		if !declared[v.Category] {
			return nil, &model.ConfigError{Source: source, Field: v.Category, Err: errors.New("vector for undeclared category")}
		}
		if seenVec[v.Category] {
			return nil, &model.ConfigError{Source: source, Field: v.Category, Err: errors.New("duplicate vector")}
		}
		seenVec[v.Category] = true

		components := make([]float64, len(v.Components))
		copy(components, v.Components)
		vectors = append(vectors, model.CategoryVector{Category: v.Category, Components: components})
	}

	return &Lexicon{
		name:        def.Name,
		description: def.Description,
		categories:  categories,
		secondary:   secondary,
		vectors:     vectors,
		definition:  def,
	}, nil
}

// compileTable compiles an ordered pattern table
func compileTable(source string, table PatternTable) ([]Category, error) {
	seen := make(map[string]bool, len(table))
	categories := make([]Category, 0, len(table))

	for _, entry := range table {
		if entry.Name == "" {
			return nil, &model.ConfigError{Source: source, Err: errors.New("empty category name")}
		}
		if seen[entry.Name] {
			return nil, &model.ConfigError{Source: source, Field: entry.Name, Err: errors.New("duplicate category")}
		}
		seen[entry.Name] = true

		patterns := make([]Pattern, 0, len(entry.Patterns))
		for i, src := range entry.Patterns {
			if src == "" {
				return nil, &model.ConfigError{Source: source, Field: fmt.Sprintf("%s[%d]", entry.Name, i), Err: errors.New("empty pattern")}
			}
			re, err := regexp.Compile("(?i)" + src)
			if err != nil {
				return nil, &model.ConfigError{Source: source, Field: fmt.Sprintf("%s[%d]", entry.Name, i), Err: err}
			}
			patterns = append(patterns, Pattern{Source: src, re: re})
		}

		categories = append(categories, Category{Name: entry.Name, Patterns: patterns})
	}

	return categories, nil
}
