package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/dhatu/internal/logging"
	"github.com/ppiankov/dhatu/internal/model"
	"go.uber.org/zap"
)

// Labeler labels the unexplained gaps of reports
type Labeler struct {
	provider Provider
	maxGaps  int
	logger   *zap.Logger
}

// NewLabeler creates a labeler; maxGaps <= 0 sends every gap
func NewLabeler(provider Provider, maxGaps int, logger *zap.Logger) *Labeler {
	logger = logging.OrNop(logger)
	return &Labeler{provider: provider, maxGaps: maxGaps, logger: logger}
}

// LabelReport labels the report's UNKNOWN gaps with one of categories.
// Each distinct word is sent once. A report without such gaps is answered
// without calling the provider.
func (l *Labeler) LabelReport(ctx context.Context, report *model.Report, categories []string) (*LabelResponse, error) {
	tokens := UnknownGapTokens(report.Analysis.Gaps)
	if l.maxGaps > 0 && len(tokens) > l.maxGaps {
		l.logger.Debug("truncating gap list",
			zap.String("subject", report.Subject),
			zap.Int("gaps", len(tokens)),
			zap.Int("max", l.maxGaps))
		tokens = tokens[:l.maxGaps]
	}

	if len(tokens) == 0 {
		return &LabelResponse{Labels: []Label{}}, nil
	}

	resp, err := l.provider.Label(ctx, LabelRequest{Tokens: tokens, Categories: categories})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("labelled gaps",
		zap.String("provider", l.provider.Name()),
		zap.String("subject", report.Subject),
		zap.Int("tokens", len(tokens)),
		zap.Int("tokens_used", resp.TokensUsed))

	return resp, nil
}

// UnknownGapTokens returns the distinct (case-insensitive) gap words no
// secondary concept explained, in order of first appearance
func UnknownGapTokens(gaps []model.Gap) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, g := range gaps {
		if len(g.MissingConcepts) != 1 || g.MissingConcepts[0] != model.UnknownConcept {
			continue
		}
		key := strings.ToLower(g.Token)
		if seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, g.Token)
	}
	return tokens
}
