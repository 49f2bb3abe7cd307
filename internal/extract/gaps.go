package extract

import (
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/model"
)

// GapDetector finds word tokens no pattern explains
type GapDetector struct {
	secondary []lexicon.Category
	minLength int
}

// NewGapDetector creates a gap detector using the lexicon's secondary table.
// Tokens shorter than minLength characters are never reported.
func NewGapDetector(lex *lexicon.Lexicon, minLength int) *GapDetector {
	if minLength < 1 {
		minLength = 1
	}
	return &GapDetector{
		secondary: lex.Secondary(),
		minLength: minLength,
	}
}

// MinLength returns the minimum gap token length in characters
func (d *GapDetector) MinLength() int {
	return d.minLength
}

// Detect returns a gap for every sufficiently long token with no covered
// character, in token order. covered is indexed by character offset.
func (d *GapDetector) Detect(tokens []model.Token, covered []bool) []model.Gap {
	var gaps []model.Gap

	for _, tok := range tokens {
		if tok.Len() < d.minLength || touchesCovered(tok, covered) {
			continue
		}
		gaps = append(gaps, model.Gap{
			Token:           tok.Text,
			Start:           tok.Start,
			End:             tok.End,
			MissingConcepts: d.Suggest(tok.Text),
		})
	}

	return gaps
}

// Suggest returns the secondary categories matching a token, or UNKNOWN
func (d *GapDetector) Suggest(token string) []string {
	var concepts []string
	for _, category := range d.secondary {
		for _, pattern := range category.Patterns {
			if pattern.MatchString(token) {
				concepts = append(concepts, category.Name)
				break
			}
		}
	}

	if len(concepts) == 0 {
		return []string{model.UnknownConcept}
	}
	return concepts
}

// touchesCovered reports whether any character of the token is covered
func touchesCovered(tok model.Token, covered []bool) bool {
	for i := tok.Start; i < tok.End && i < len(covered); i++ {
		if covered[i] {
			return true
		}
	}
	return false
}
