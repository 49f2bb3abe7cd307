package extract

import (
	"unicode"

	"github.com/ppiankov/dhatu/internal/model"
)

// Words splits text into maximal runs of letters and digits.
// Offsets are character offsets, consistent with model.Match.
func Words(text string) []model.Token {
	var tokens []model.Token

	var current []rune
	start := 0
	pos := 0

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, model.Token{
				Text:  string(current),
				Start: start,
				End:   pos,
			})
			current = current[:0]
		}
	}

	for _, r := range text {
		if isWordRune(r) {
			if len(current) == 0 {
				start = pos
			}
			current = append(current, r)
		} else {
			flush()
		}
		pos++
	}
	flush()

	return tokens
}

func isWordRune(r rune) bool {
	// Combining marks keep scripts like Devanagari inside one token
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}
