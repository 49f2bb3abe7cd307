package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/dhatu/internal/model"
	"gopkg.in/yaml.v3"
)

// Output formats for the terminal
const (
	FormatSummary = "summary"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// Formats lists the supported terminal formats
func Formats() []string {
	return []string{FormatSummary, FormatJSON, FormatYAML}
}

const rule = "═══════════════════════════════════════════════════════════"

// Renderer writes reports as JSON, YAML, Markdown or a terminal summary
type Renderer struct {
	includeFooter bool
	maxMatches    int
}

// NewRenderer creates a renderer from the output configuration
func NewRenderer(cfg model.OutputConfig) *Renderer {
	return &Renderer{
		includeFooter: cfg.IncludeFooter,
		maxMatches:    cfg.MaxMatches,
	}
}

// RenderJSON writes v as indented JSON to path, creating parent directories
func (r *Renderer) RenderJSON(v any, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, v) })
}

// RenderMarkdown writes the Markdown form of a report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(report))
		return err
	})
}

// WriteJSON writes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as YAML
func (r *Renderer) WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Write renders a report in the given terminal format
func (r *Renderer) Write(w io.Writer, report *model.Report, format string) error {
	switch format {
	case FormatJSON:
		return r.WriteJSON(w, report)
	case FormatYAML:
		return r.WriteYAML(w, report)
	case FormatSummary, "":
		r.WriteSummary(w, report)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// WriteSummary prints a compact human-readable summary
func (r *Renderer) WriteSummary(w io.Writer, report *model.Report) {
	cov := report.Analysis.Coverage

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", report.Subject)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Source:     %s\n", report.Source)
	fmt.Fprintf(w, "  Lexicon:    %s\n", report.Lexicon)
	fmt.Fprintf(w, "  Semantic:   %.1f%%\n", cov.SemanticCoverage*100)
	fmt.Fprintf(w, "  Characters: %.1f%% (%d/%d)\n", cov.CharCoverage*100, cov.CoveredCharacters, cov.Characters)
	fmt.Fprintf(w, "  Words:      %.1f%% (%d/%d)\n", cov.WordCoverage*100, cov.CoveredWords, cov.Words)
	fmt.Fprintf(w, "  Matches:    %d\n", len(report.Analysis.Matches))
	fmt.Fprintf(w, "  Gaps:       %d\n", len(report.Analysis.Gaps))
	fmt.Fprintln(w)

	if counts := sortedCounts(report.CategoryCounts); len(counts) > 0 {
		fmt.Fprintln(w, "  Categories:")
		for _, c := range counts {
			fmt.Fprintf(w, "    %-10s %d\n", c.name, c.count)
		}
		fmt.Fprintln(w)
	}

	for _, sig := range report.Signals {
		fmt.Fprintf(w, "  %s %s: %s\n", severityMark(sig.Severity), sig.Type, sig.Description)
	}
	fmt.Fprintln(w)
}

// WriteRelations prints a relation sweep grouped by kind
func (r *Renderer) WriteRelations(w io.Writer, report *model.RelationReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Relations (%s, %d categories)\n", report.Lexicon, len(report.Categories))
	fmt.Fprintln(w, rule)

	for _, kind := range model.RelationKinds() {
		rels := report.Relations[kind]
		fmt.Fprintf(w, "\n  %s (%d)\n", strings.ToUpper(string(kind)), len(rels))
		for _, rel := range rels {
			fmt.Fprintf(w, "    %s\n", FormatRelation(rel))
		}
	}
	fmt.Fprintln(w)
}

// FormatRelation renders one relation on a single line
func FormatRelation(rel model.Relation) string {
	switch rel.Kind {
	case model.RelationInclusion:
		return fmt.Sprintf("%s ⊂ %s  (distance %.3f)", rel.A, rel.B, rel.Distance)
	case model.RelationExclusion:
		return fmt.Sprintf("%s ∩ %s = ∅  (distance %.3f)", rel.A, rel.B, rel.Distance)
	case model.RelationEquality:
		return fmt.Sprintf("%s = %s  (distance %.3f)", rel.A, rel.B, rel.Distance)
	default:
		return fmt.Sprintf("%s ∩ %s  (distance %.3f, strength %.2f)", rel.A, rel.B, rel.Distance, rel.Strength)
	}
}

// Markdown renders a report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	cov := report.Analysis.Coverage

	fmt.Fprintf(&b, "# %s\n\n", report.Subject)
	fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	fmt.Fprintf(&b, "- **Lexicon:** %s\n", report.Lexicon)
	fmt.Fprintf(&b, "- **Analyzed:** %s\n", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Report ID:** `%s`\n", report.ID)
	if report.FetchMeta != nil {
		fmt.Fprintf(&b, "- **HTTP status:** %d", report.FetchMeta.StatusCode)
		if report.FetchMeta.FromCache {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Coverage\n\n")
	b.WriteString("| Measure | Value | Detail |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Semantic | %.3f | weighted blend |\n", cov.SemanticCoverage)
	fmt.Fprintf(&b, "| Characters | %.3f | %d of %d covered |\n", cov.CharCoverage, cov.CoveredCharacters, cov.Characters)
	fmt.Fprintf(&b, "| Words | %.3f | %d of %d covered |\n", cov.WordCoverage, cov.CoveredWords, cov.Words)
	fmt.Fprintf(&b, "| Overlap | %d | characters claimed by several categories |\n", cov.OverlapCharacters)

	if counts := sortedCounts(report.CategoryCounts); len(counts) > 0 {
		b.WriteString("\n## Categories\n\n| Category | Matches |\n|---|---|\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "| %s | %d |\n", c.name, c.count)
		}
	}

	if len(report.Signals) > 0 {
		b.WriteString("\n## Signals\n\n")
		for _, sig := range report.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", sig.Type, sig.Severity, sig.Description)
		}
	}

	if len(report.Analysis.Gaps) > 0 {
		b.WriteString("\n## Gaps\n\n| Token | Position | Missing concepts |\n|---|---|---|\n")
		for _, g := range report.Analysis.Gaps {
			fmt.Fprintf(&b, "| %s | %d–%d | %s |\n", escapeCell(g.Token), g.Start, g.End, strings.Join(g.MissingConcepts, ", "))
		}
	}

	matches := report.Analysis.Matches
	if len(matches) > 0 {
		b.WriteString("\n## Matches\n\n| Category | Text | Position |\n|---|---|---|\n")
		shown := matches
		if r.maxMatches > 0 && len(shown) > r.maxMatches {
			shown = shown[:r.maxMatches]
		}
		for _, m := range shown {
			fmt.Fprintf(&b, "| %s | %s | %d–%d |\n", m.Category, escapeCell(m.Text), m.Start, m.End)
		}
		if len(shown) < len(matches) {
			fmt.Fprintf(&b, "\n_%d more matches omitted._\n", len(matches)-len(shown))
		}
	}

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		b.WriteString("_Generated by dhatu. Coverage measures pattern matches against the lexicon; it is not a judgement of linguistic correctness._\n")
	}

	return b.String()
}

type categoryCount struct {
	name  string
	count int
}

// sortedCounts orders categories by count, then name
func sortedCounts(counts map[string]int) []categoryCount {
	out := make([]categoryCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, categoryCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func severityMark(s model.SignalSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "✗"
	case model.SeverityWarning:
		return "!"
	default:
		return "✓"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return write(f)
}
