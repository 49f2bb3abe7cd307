package model

// Match is one pattern firing on one input text
type Match struct {
	Category string `json:"category" yaml:"category"`                   // Category the pattern belongs to (e.g., "EXIST")
	Text     string `json:"text" yaml:"text"`                           // Matched substring
	Start    int    `json:"start" yaml:"start"`                         // Character offset of the first matched rune
	End      int    `json:"end" yaml:"end"`                             // Character offset one past the last matched rune
	Pattern  string `json:"pattern,omitempty" yaml:"pattern,omitempty"` // Source of the pattern that fired
}

// Len returns the number of characters the match covers
func (m Match) Len() int {
	return m.End - m.Start
}

// Token is a maximal run of letters and digits
type Token struct {
	Text  string `json:"text" yaml:"text"`
	Start int    `json:"start" yaml:"start"` // Character offset (inclusive)
	End   int    `json:"end" yaml:"end"`     // Character offset (exclusive)
}

// Len returns the token length in characters
func (t Token) Len() int {
	return t.End - t.Start
}

// UnknownConcept marks a gap no secondary pattern could explain
const UnknownConcept = "UNKNOWN"

// Gap is a word token not covered by any match
type Gap struct {
	Token           string   `json:"token" yaml:"token"`
	Start           int      `json:"start" yaml:"start"`
	End             int      `json:"end" yaml:"end"`
	MissingConcepts []string `json:"missing_concepts" yaml:"missing_concepts"` // Secondary categories suggested for the token, or UNKNOWN
}

// CoverageStats summarises how much of a text the lexicon explains
type CoverageStats struct {
	CharCoverage     float64 `json:"char_coverage" yaml:"char_coverage"`         // covered characters / total characters
	WordCoverage     float64 `json:"word_coverage" yaml:"word_coverage"`         // covered words / total words
	SemanticCoverage float64 `json:"semantic_coverage" yaml:"semantic_coverage"` // weighted blend of the two

	Characters        int `json:"characters" yaml:"characters"`
	CoveredCharacters int `json:"covered_characters" yaml:"covered_characters"`
	OverlapCharacters int `json:"overlap_characters" yaml:"overlap_characters"` // characters claimed by more than one category
	Words             int `json:"words" yaml:"words"`
	CoveredWords      int `json:"covered_words" yaml:"covered_words"`
	GapWords          int `json:"gap_words" yaml:"gap_words"`
	ShortWords        int `json:"short_words" yaml:"short_words"` // uncovered words below the gap length threshold
}

// Analysis is the result of analysing one text
type Analysis struct {
	Matches  []Match       `json:"matches" yaml:"matches"`
	Coverage CoverageStats `json:"coverage" yaml:"coverage"`
	Gaps     []Gap         `json:"gaps" yaml:"gaps"`
}

// Document is a unit of input text read from a corpus source
type Document struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Text   string `json:"text" yaml:"text"`
}
