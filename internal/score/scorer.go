package score

import (
	"fmt"
	"sort"

	"github.com/ppiankov/dhatu/internal/model"
)

// Scorer calculates coverage statistics and generates diagnostic signals
type Scorer struct {
	charWeight float64
	wordWeight float64
}

// NewScorer creates a new scorer with the configured coverage blend
func NewScorer(cfg model.CoverageConfig) *Scorer {
	return &Scorer{
		charWeight: cfg.CharWeight,
		wordWeight: cfg.WordWeight,
	}
}

// CoveredMask marks every character covered by at least one match and
// counts characters claimed by more than one category.
func CoveredMask(length int, matches []model.Match) ([]bool, int) {
	covered := make([]bool, length)
	owner := make([]string, length)
	shared := make([]bool, length)

	for _, m := range matches {
		for i := max(m.Start, 0); i < m.End && i < length; i++ {
			covered[i] = true
			switch {
			case owner[i] == "":
				owner[i] = m.Category
			case owner[i] != m.Category:
				shared[i] = true
			}
		}
	}

	overlap := 0
	for _, s := range shared {
		if s {
			overlap++
		}
	}
	return covered, overlap
}

// Coverage derives character, word and semantic coverage.
// All ratios are 0 when there is nothing to cover.
func (s *Scorer) Coverage(covered []bool, overlap int, tokens []model.Token) model.CoverageStats {
	stats := model.CoverageStats{
		Characters:        len(covered),
		OverlapCharacters: overlap,
		Words:             len(tokens),
	}

	for _, c := range covered {
		if c {
			stats.CoveredCharacters++
		}
	}

	for _, tok := range tokens {
		for i := tok.Start; i < tok.End && i < len(covered); i++ {
			if covered[i] {
				stats.CoveredWords++
				break
			}
		}
	}

	if stats.Characters > 0 {
		stats.CharCoverage = float64(stats.CoveredCharacters) / float64(stats.Characters)
	}
	if stats.Words > 0 {
		stats.WordCoverage = float64(stats.CoveredWords) / float64(stats.Words)
	}
	stats.SemanticCoverage = clamp01(s.charWeight*stats.CharCoverage + s.wordWeight*stats.WordCoverage)

	return stats
}

// CountByCategory counts matches per category; every category gets a key
func CountByCategory(matches []model.Match, categories []string) map[string]int {
	counts := make(map[string]int, len(categories))
	for _, c := range categories {
		counts[c] = 0
	}
	for _, m := range matches {
		counts[m.Category]++
	}
	return counts
}

// Diagnose generates transparent signals for an analysis
func (s *Scorer) Diagnose(analysis model.Analysis, categories []string) []model.Signal {
	var signals []model.Signal

	// 1. Semantic coverage
	signals = append(signals, s.coverageSignal(analysis.Coverage))

	// 2. Gap density
	signals = append(signals, s.gapSignal(analysis.Coverage))

	// 3. Category distribution
	signals = append(signals, s.distributionSignal(analysis.Matches, categories))

	// 4. Duplicate coverage across categories
	if sig, ok := s.duplicateSignal(analysis.Coverage); ok {
		signals = append(signals, sig)
	}

	// 5. Gaps nothing explains
	if sig, ok := s.unknownGapSignal(analysis.Gaps); ok {
		signals = append(signals, sig)
	}

	return signals
}

// coverageSignal reports the weighted coverage blend
func (s *Scorer) coverageSignal(stats model.CoverageStats) model.Signal {
	if stats.Characters == 0 {
		return model.Signal{
			Type:        model.SignalSemanticCoverage,
			Severity:    model.SeverityInfo,
			Description: "Empty input (coverage defined as 0)",
			Data:        map[string]any{"characters": 0, "words": 0},
		}
	}

	severity := model.SeverityInfo
	if stats.SemanticCoverage < 0.3 {
		severity = model.SeverityCritical
	} else if stats.SemanticCoverage < 0.6 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalSemanticCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Semantic coverage: %.1f%% (char %.1f%%, word %.1f%%)", stats.SemanticCoverage*100, stats.CharCoverage*100, stats.WordCoverage*100),
		Data: map[string]any{
			"char_coverage":     stats.CharCoverage,
			"word_coverage":     stats.WordCoverage,
			"semantic_coverage": stats.SemanticCoverage,
			"char_weight":       s.charWeight,
			"word_weight":       s.wordWeight,
			"formula":           fmt.Sprintf("%.2f * char_coverage + %.2f * word_coverage", s.charWeight, s.wordWeight),
		},
	}
}

// gapSignal reports the share of words that are gaps
func (s *Scorer) gapSignal(stats model.CoverageStats) model.Signal {
	if stats.Words == 0 {
		return model.Signal{
			Type:        model.SignalGapDensity,
			Severity:    model.SeverityInfo,
			Description: "No word tokens",
			Data:        map[string]any{"words": 0, "gaps": 0},
		}
	}

	density := float64(stats.GapWords) / float64(stats.Words)

	severity := model.SeverityInfo
	if density > 0.4 {
		severity = model.SeverityCritical
	} else if density > 0.2 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalGapDensity,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d words are gaps (%.0f%%)", stats.GapWords, stats.Words, density*100),
		Data: map[string]any{
			"words":         stats.Words,
			"covered_words": stats.CoveredWords,
			"gaps":          stats.GapWords,
			"short_words":   stats.ShortWords,
			"density":       density,
			"formula":       "gap_words / words",
		},
	}
}

// distributionSignal reports how matches spread over categories
func (s *Scorer) distributionSignal(matches []model.Match, categories []string) model.Signal {
	counts := CountByCategory(matches, categories)

	var unused []string
	for _, c := range categories {
		if counts[c] == 0 {
			unused = append(unused, c)
		}
	}

	dominant, dominantCount := "", 0
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if counts[name] > dominantCount {
			dominant, dominantCount = name, counts[name]
		}
	}

	severity := model.SeverityInfo
	description := fmt.Sprintf("%d of %d categories matched", len(categories)-len(unused), len(categories))
	if len(matches) > 0 && dominantCount*2 > len(matches) && len(categories) > 1 {
		severity = model.SeverityWarning
		description += fmt.Sprintf("; %s accounts for %d of %d matches", dominant, dominantCount, len(matches))
	}

	data := map[string]any{
		"counts":  counts,
		"matches": len(matches),
		"unused":  unused,
	}
	if dominant != "" {
		data["dominant"] = dominant
	}

	return model.Signal{
		Type:        model.SignalCategoryDistribution,
		Severity:    severity,
		Description: description,
		Data:        data,
	}
}

// duplicateSignal flags characters counted by more than one category
func (s *Scorer) duplicateSignal(stats model.CoverageStats) (model.Signal, bool) {
	if stats.OverlapCharacters == 0 {
		return model.Signal{}, false
	}

	ratio := float64(stats.OverlapCharacters) / float64(stats.CoveredCharacters)
	return model.Signal{
		Type:        model.SignalDuplicateCoverage,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d covered characters are claimed by more than one category", stats.OverlapCharacters),
		Data: map[string]any{
			"overlap_characters": stats.OverlapCharacters,
			"covered_characters": stats.CoveredCharacters,
			"ratio":              ratio,
			"formula":            "overlap_characters / covered_characters",
		},
	}, true
}

// unknownGapSignal reports gaps no secondary concept explains
func (s *Scorer) unknownGapSignal(gaps []model.Gap) (model.Signal, bool) {
	if len(gaps) == 0 {
		return model.Signal{}, false
	}

	unknown := 0
	concepts := make(map[string]int)
	for _, g := range gaps {
		for _, c := range g.MissingConcepts {
			if c == model.UnknownConcept {
				unknown++
				continue
			}
			concepts[c]++
		}
	}

	ratio := float64(unknown) / float64(len(gaps))
	severity := model.SeverityInfo
	if ratio > 0.5 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalUnknownGaps,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d gaps match no secondary concept", unknown, len(gaps)),
		Data: map[string]any{
			"unknown":  unknown,
			"gaps":     len(gaps),
			"ratio":    ratio,
			"concepts": concepts,
		},
	}, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
