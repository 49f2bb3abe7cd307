package extract

import (
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/model"
)

// Tagger tags spans of text with lexicon categories
type Tagger struct {
	categories []lexicon.Category
}

// NewTagger creates a new tagger over the lexicon's primary categories
func NewTagger(lex *lexicon.Lexicon) *Tagger {
	return &Tagger{
		categories: lex.Categories(),
	}
}

// Tag returns every match of every pattern, category by category.
// Matches from different categories may cover the same characters; they are
// kept as-is. Callers that need positional order sort by Start.
func (t *Tagger) Tag(text string) []model.Match {
	if text == "" {
		return nil
	}

	idx := newRuneIndex(text)

	var matches []model.Match
	for _, category := range t.categories {
		for _, pattern := range category.Patterns {
			for _, loc := range pattern.FindAll(text) {
				// Zero-width matches cover nothing
				if loc[0] == loc[1] {
					continue
				}
				matches = append(matches, model.Match{
					Category: category.Name,
					Text:     text[loc[0]:loc[1]],
					Start:    idx.runeAt(loc[0]),
					End:      idx.runeAt(loc[1]),
					Pattern:  pattern.Source,
				})
			}
		}
	}

	return matches
}

// runeIndex maps byte offsets to character offsets
type runeIndex struct {
	offsets []int // offsets[b] = runes before byte b, for b on a rune boundary
}

func newRuneIndex(text string) runeIndex {
	offsets := make([]int, len(text)+1)
	n := 0
	for b := range text {
		offsets[b] = n
		n++
	}
	offsets[len(text)] = n
	return runeIndex{offsets: offsets}
}

func (r runeIndex) runeAt(b int) int {
	return r.offsets[b]
}
