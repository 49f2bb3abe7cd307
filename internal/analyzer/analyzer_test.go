package analyzer

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/model"
)

const scenarioText = "The system exists to help, but does it say anything?"

func scenarioDefinition() lexicon.Definition {
	return lexicon.Definition{
		Name: "scenario",
		Categories: lexicon.PatternTable{
			{Name: "EXIST", Patterns: []string{`\bis\b`, `\bexists?\b`}},
			{Name: "COMM", Patterns: []string{`\bsay\b`, `\btell\b`}},
		},
	}
}

func newAnalyzer(t *testing.T, def lexicon.Definition) *Analyzer {
	t.Helper()
	lex, err := lexicon.Compile(def)
	if err != nil {
		t.Fatalf("Failed to compile lexicon: %v", err)
	}
	a, err := New(lex, *model.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return a
}

func builtinAnalyzer(t *testing.T, name string) *Analyzer {
	t.Helper()
	lex, err := lexicon.Builtin(name)
	if err != nil {
		t.Fatalf("Failed to load %s: %v", name, err)
	}
	a, err := New(lex, *model.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return a
}

func TestAnalyze_Scenario(t *testing.T) {
	result := newAnalyzer(t, scenarioDefinition()).Analyze(scenarioText)

	var categories []string
	for _, m := range result.Matches {
		categories = append(categories, m.Category+":"+m.Text)
	}
	if diff := cmp.Diff([]string{"EXIST:exists", "COMM:say"}, categories); diff != "" {
		t.Errorf("Matches mismatch (-want +got):\n%s", diff)
	}

	cov := result.Coverage
	if cov.WordCoverage != 0.2 {
		t.Errorf("Expected word coverage 2/10, got %v", cov.WordCoverage)
	}
	wantChar := 9.0 / 52.0
	if math.Abs(cov.CharCoverage-wantChar) > 1e-12 {
		t.Errorf("Expected char coverage %v, got %v", wantChar, cov.CharCoverage)
	}
	wantSemantic := 0.7*wantChar + 0.3*0.2
	if math.Abs(cov.SemanticCoverage-wantSemantic) > 1e-12 {
		t.Errorf("Expected semantic coverage %v, got %v", wantSemantic, cov.SemanticCoverage)
	}

	var gaps []string
	for _, g := range result.Gaps {
		gaps = append(gaps, g.Token)
	}
	if diff := cmp.Diff([]string{"system", "help", "does", "anything"}, gaps); diff != "" {
		t.Errorf("Gaps mismatch (-want +got):\n%s", diff)
	}
	for _, g := range result.Gaps {
		if g.Token == "anything" && (len(g.MissingConcepts) != 1 || g.MissingConcepts[0] != model.UnknownConcept) {
			t.Errorf("Expected UNKNOWN for 'anything', got %v", g.MissingConcepts)
		}
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	result := newAnalyzer(t, scenarioDefinition()).Analyze("")

	if result.Matches == nil || len(result.Matches) != 0 {
		t.Errorf("Expected empty non-nil matches, got %#v", result.Matches)
	}
	if result.Gaps == nil || len(result.Gaps) != 0 {
		t.Errorf("Expected empty non-nil gaps, got %#v", result.Gaps)
	}
	if diff := cmp.Diff(model.CoverageStats{}, result.Coverage); diff != "" {
		t.Errorf("Expected zero coverage (-want +got):\n%s", diff)
	}
}

var propertyTexts = []string{
	"",
	"   ",
	scenarioText,
	"It is what it is, and it is good because we decided so.",
	"Numbers like 1995 and 3.14 are everywhere; yesterday, here, somewhere.",
	"is is is is is",
	"धातु पाठ is a list of roots",
	"!!!???",
	"\xff is \xfe good",
}

func TestAnalyze_CoverageBounds(t *testing.T) {
	for _, name := range lexicon.BuiltinNames() {
		a := builtinAnalyzer(t, name)
		for _, text := range propertyTexts {
			cov := a.Analyze(text).Coverage
			for label, v := range map[string]float64{
				"char":     cov.CharCoverage,
				"word":     cov.WordCoverage,
				"semantic": cov.SemanticCoverage,
			} {
				if math.IsNaN(v) || v < 0 || v > 1 {
					t.Errorf("%s: %s coverage %v out of range for %q", name, label, v, text)
				}
			}
		}
	}
}

func TestAnalyze_AddingPatternNeverLowersCoverage(t *testing.T) {
	base := scenarioDefinition()
	extended := scenarioDefinition()
	extended.Categories[1].Patterns = append(extended.Categories[1].Patterns, `\bhelp\b`, `\bsystem\b`)

	before := newAnalyzer(t, base)
	after := newAnalyzer(t, extended)

	for _, text := range propertyTexts {
		b := before.Analyze(text).Coverage
		a := after.Analyze(text).Coverage
		if a.CharCoverage < b.CharCoverage || a.WordCoverage < b.WordCoverage {
			t.Errorf("Coverage decreased for %q: before %+v, after %+v", text, b, a)
		}
	}

	if got := after.Analyze(scenarioText).Coverage.WordCoverage; got != 0.4 {
		t.Errorf("Expected word coverage 4/10 after adding patterns, got %v", got)
	}
}

func TestAnalyze_TokenPartition(t *testing.T) {
	for _, name := range lexicon.BuiltinNames() {
		a := builtinAnalyzer(t, name)
		for _, text := range propertyTexts {
			cov := a.Analyze(text).Coverage
			if cov.CoveredWords+cov.GapWords+cov.ShortWords != cov.Words {
				t.Errorf("%s: token partition broken for %q: %+v", name, text, cov)
			}
			if cov.ShortWords < 0 {
				t.Errorf("%s: negative short word count for %q", name, text)
			}
		}
	}
}

func TestAnalyze_MatchesSliceBackToText(t *testing.T) {
	a := builtinAnalyzer(t, "optimal")
	for _, text := range propertyTexts {
		runes := []rune(text)
		for _, m := range a.Analyze(text).Matches {
			if m.Start < 0 || m.End > len(runes) || m.Start >= m.End {
				t.Fatalf("Invalid range [%d,%d) for %q", m.Start, m.End, text)
			}
			if string(runes[m.Start:m.End]) != m.Text {
				t.Errorf("Match %q does not slice back from [%d,%d)", m.Text, m.Start, m.End)
			}
		}
	}
}

func TestAnalyze_Concurrent(t *testing.T) {
	a := builtinAnalyzer(t, "dhatu9")
	want := a.Analyze(scenarioText)

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if diff := cmp.Diff(want, a.Analyze(scenarioText)); diff != "" {
				errs <- diff
			}
		}()
	}
	wg.Wait()
	close(errs)

	for diff := range errs {
		t.Errorf("Concurrent analysis differs (-want +got):\n%s", diff)
	}
}

func TestRelations(t *testing.T) {
	a := builtinAnalyzer(t, "dhatu9")
	if !a.HasRelations() {
		t.Fatal("Expected dhatu9 to support relations")
	}

	rel, err := a.ClassifyRelation("EXIST", "EXIST")
	if err != nil {
		t.Fatalf("ClassifyRelation failed: %v", err)
	}
	if rel.Kind != model.RelationEquality {
		t.Errorf("Expected equality for EXIST/EXIST, got %s", rel.Kind)
	}

	all, err := a.PairwiseRelations(nil)
	if err != nil {
		t.Fatalf("PairwiseRelations failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected every relation kind as a key, got %d keys", len(all))
	}
}

func TestRelations_NoVectors(t *testing.T) {
	a := builtinAnalyzer(t, "dhatu7")

	if _, err := a.ClassifyRelation("EXIST", "COMM"); !errors.Is(err, ErrNoVectors) {
		t.Errorf("Expected ErrNoVectors, got %v", err)
	}
	if _, err := a.PairwiseRelations(nil); !errors.Is(err, ErrNoVectors) {
		t.Errorf("Expected ErrNoVectors, got %v", err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	lex, err := lexicon.Compile(scenarioDefinition())
	if err != nil {
		t.Fatal(err)
	}

	cfg := *model.DefaultConfig()
	cfg.Coverage.CharWeight = 0.9
	cfg.Coverage.WordWeight = 0.9

	a, err := New(lex, cfg)
	if err == nil || a != nil {
		t.Fatal("Expected weights summing above 1 to be rejected")
	}
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected *model.ConfigError, got %T", err)
	}

	cfg = *model.DefaultConfig()
	cfg.Coverage.CharWeight = math.NaN()
	if _, err := New(lex, cfg); !errors.As(err, &cfgErr) {
		t.Errorf("Expected NaN weight to be rejected, got %v", err)
	}

	if _, err := New(nil, *model.DefaultConfig()); err == nil {
		t.Error("Expected nil lexicon to be rejected")
	}
}

func TestNew_RejectsBadVectors(t *testing.T) {
	def := scenarioDefinition()
	def.Vectors = lexicon.VectorTable{
		{Category: "EXIST", Components: []float64{1, 0}},
		{Category: "COMM", Components: []float64{0, 0}},
	}
	lex, err := lexicon.Compile(def)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := New(lex, *model.DefaultConfig()); err == nil {
		t.Error("Expected zero vector to be rejected")
	}
}
