// Package analyzer runs the tag, coverage and gap stages over one text and
// answers relation queries against the lexicon's category vectors.
//
// An Analyzer is immutable after New and safe for concurrent use.
package analyzer

import (
	"errors"
	"unicode/utf8"

	"github.com/ppiankov/dhatu/internal/extract"
	"github.com/ppiankov/dhatu/internal/geometry"
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/score"
)

// ErrNoVectors is returned for relation queries on a lexicon without vectors
var ErrNoVectors = errors.New("lexicon has no category vectors")

// Analyzer tags text against one lexicon
type Analyzer struct {
	lex    *lexicon.Lexicon
	tagger *extract.Tagger
	gaps   *extract.GapDetector
	scorer *score.Scorer
	space  *geometry.Space
}

// New builds an analyzer. Configuration and vectors are validated up front.
func New(lex *lexicon.Lexicon, cfg model.Config) (*Analyzer, error) {
	if lex == nil {
		return nil, &model.ConfigError{Source: "lexicon", Err: errors.New("no lexicon")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		lex:    lex,
		tagger: extract.NewTagger(lex),
		gaps:   extract.NewGapDetector(lex, cfg.Coverage.MinGapTokenLength),
		scorer: score.NewScorer(cfg.Coverage),
	}

	if lex.HasVectors() {
		space, err := geometry.NewSpace(lex.Vectors(), cfg.Relations)
		if err != nil {
			return nil, err
		}
		a.space = space
	}

	return a, nil
}

// Lexicon returns the lexicon the analyzer was built with
func (a *Analyzer) Lexicon() *lexicon.Lexicon {
	return a.lex
}

// Scorer returns the coverage scorer
func (a *Analyzer) Scorer() *score.Scorer {
	return a.scorer
}

// Analyze tags text and derives coverage and gaps. It never fails; empty
// text yields empty lists and zero coverage.
func (a *Analyzer) Analyze(text string) model.Analysis {
	matches := a.tagger.Tag(text)
	if matches == nil {
		matches = []model.Match{}
	}

	covered, overlap := score.CoveredMask(utf8.RuneCountInString(text), matches)
	tokens := extract.Words(text)

	stats := a.scorer.Coverage(covered, overlap, tokens)
	gaps := a.gaps.Detect(tokens, covered)
	if gaps == nil {
		gaps = []model.Gap{}
	}

	stats.GapWords = len(gaps)
	stats.ShortWords = stats.Words - stats.CoveredWords - stats.GapWords

	return model.Analysis{
		Matches:  matches,
		Coverage: stats,
		Gaps:     gaps,
	}
}

// HasRelations reports whether relation queries are available
func (a *Analyzer) HasRelations() bool {
	return a.space != nil
}

// ClassifyRelation classifies the relation between two categories
func (a *Analyzer) ClassifyRelation(x, y string) (model.Relation, error) {
	if a.space == nil {
		return model.Relation{}, ErrNoVectors
	}
	return a.space.Classify(x, y)
}

// PairwiseRelations classifies every pair of categories, all when empty
func (a *Analyzer) PairwiseRelations(categories []string) (map[model.RelationKind][]model.Relation, error) {
	if a.space == nil {
		return nil, ErrNoVectors
	}
	return a.space.Pairwise(categories)
}
