package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/ppiankov/dhatu/internal/analyzer"
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/worker"
)

const scenarioText = "The system exists to help, but does it say anything?"

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.HTTP = testHTTPConfig()
	cfg.RateLimiting.RequestsPerSecond = 0
	return cfg
}

func scenarioLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.Compile(lexicon.Definition{
		Name: "scenario",
		Categories: lexicon.PatternTable{
			{Name: "EXIST", Patterns: []string{`\bis\b`, `\bexists?\b`}},
			{Name: "COMM", Patterns: []string{`\bsay\b`, `\btell\b`}},
		},
	})
	if err != nil {
		t.Fatalf("Failed to compile lexicon: %v", err)
	}
	return lex
}

func newTestPipeline(t *testing.T, cfg *model.Config, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	p, err := NewPipeline(cfg, opts...)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func TestAnalyzeText(t *testing.T) {
	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))

	report := p.AnalyzeText("scenario", scenarioText)

	if _, err := uuid.Parse(report.ID); err != nil {
		t.Errorf("Expected UUID report ID, got %q", report.ID)
	}
	if report.Subject != "scenario" || report.Source != "text" || report.Lexicon != "scenario" {
		t.Errorf("Unexpected report header: %+v", report)
	}
	if !report.AnalyzedAt.Equal(fixedTime) || report.AnalyzedAt.Location() != time.UTC {
		t.Errorf("Expected AnalyzedAt %v in UTC, got %v", fixedTime, report.AnalyzedAt)
	}
	if report.FetchMeta != nil {
		t.Errorf("Expected no fetch metadata for text, got %+v", report.FetchMeta)
	}
	if diff := cmp.Diff(map[string]int{"EXIST": 1, "COMM": 1}, report.CategoryCounts); diff != "" {
		t.Errorf("CategoryCounts mismatch (-want +got):\n%s", diff)
	}
	if report.Analysis.Coverage.WordCoverage != 0.2 {
		t.Errorf("Expected word coverage 0.2, got %v", report.Analysis.Coverage.WordCoverage)
	}
	if len(report.Signals) == 0 || report.Signals[0].Type != model.SignalSemanticCoverage {
		t.Errorf("Expected semantic coverage signal first, got %+v", report.Signals)
	}
}

func TestAnalyzeText_UniqueIDs(t *testing.T) {
	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))
	if p.AnalyzeText("a", "x").ID == p.AnalyzeText("a", "x").ID {
		t.Error("Expected distinct report IDs")
	}
}

func TestWithLogger_Nil(t *testing.T) {
	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)), WithLogger(nil))
	if p.logger == nil {
		t.Fatal("Expected a no-op logger for nil")
	}
	if _, err := p.AnalyzeInput(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestAnalyzeInput_Files(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "note.txt")
	jsonPath := filepath.Join(dir, "corpus.json")
	if err := os.WriteFile(textPath, []byte(scenarioText), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, []byte(`[{"id": "first", "text": "it is"}, "we say so"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))

	reports, err := p.AnalyzeInput(context.Background(), textPath)
	if err != nil {
		t.Fatalf("AnalyzeInput failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Subject != "note.txt" || reports[0].Source != textPath {
		t.Errorf("Unexpected text report: %+v", reports)
	}

	reports, err = p.AnalyzeInput(context.Background(), jsonPath)
	if err != nil {
		t.Fatalf("AnalyzeInput failed: %v", err)
	}
	var subjects []string
	for _, r := range reports {
		subjects = append(subjects, r.Subject)
	}
	if diff := cmp.Diff([]string{"first", jsonPath + "#1"}, subjects); diff != "" {
		t.Errorf("Subjects mismatch (-want +got):\n%s", diff)
	}
	if reports[0].CategoryCounts["EXIST"] != 1 || reports[1].CategoryCounts["COMM"] != 1 {
		t.Errorf("Unexpected counts: %v / %v", reports[0].CategoryCounts, reports[1].CategoryCounts)
	}
}

func TestAnalyzeInput_Stdin(t *testing.T) {
	p := newTestPipeline(t, testConfig(),
		WithLexicon(scenarioLexicon(t)),
		WithStdin(strings.NewReader("we say it is")))

	reports, err := p.AnalyzeInput(context.Background(), StdinSource)
	if err != nil {
		t.Fatalf("AnalyzeInput failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Subject != "stdin" || reports[0].Source != StdinSource {
		t.Fatalf("Unexpected stdin report: %+v", reports)
	}
	if reports[0].Analysis.Coverage.CoveredWords != 2 {
		t.Errorf("Expected 2 covered words, got %d", reports[0].Analysis.Coverage.CoveredWords)
	}
}

func TestAnalyzeInput_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>Roots</title></head><body><nav>menu</nav><main><p>It is what we say.</p></main></body></html>`)
	}))
	defer server.Close()

	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))

	reports, err := p.AnalyzeInput(context.Background(), server.URL+"/doc")
	if err != nil {
		t.Fatalf("AnalyzeInput failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}
	report := reports[0]
	if report.Subject != "Roots" {
		t.Errorf("Expected subject from <title>, got %q", report.Subject)
	}
	if report.FetchMeta == nil || report.FetchMeta.StatusCode != http.StatusOK {
		t.Errorf("Expected fetch metadata with 200, got %+v", report.FetchMeta)
	}
	if report.Analysis.Coverage.Words != 5 {
		t.Errorf("Expected main content only (5 words), got %d", report.Analysis.Coverage.Words)
	}
}

func TestAnalyzeInput_Errors(t *testing.T) {
	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))

	if _, err := p.AnalyzeInput(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[1, 2]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AnalyzeInput(context.Background(), bad); err == nil {
		t.Error("Expected error for malformed JSON corpus")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.AnalyzeInput(ctx, "anything"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRelations(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	report, err := p.Relations(nil)
	if err != nil {
		t.Fatalf("Relations failed: %v", err)
	}
	if report.Lexicon != "dhatu9" || len(report.Categories) != 9 {
		t.Errorf("Unexpected relation report header: %s %v", report.Lexicon, report.Categories)
	}

	total := 0
	for _, rels := range report.Relations {
		total += len(rels)
	}
	if total != 36 {
		t.Errorf("Expected 36 pairs, got %d", total)
	}
	if len(report.Relations[model.RelationInclusion]) != 1 {
		t.Errorf("Expected 1 inclusion, got %v", report.Relations[model.RelationInclusion])
	}

	rel, err := p.Classify("EVAL", "DECIDE")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if rel.Kind != model.RelationInclusion || rel.A != "EVAL" || rel.B != "DECIDE" {
		t.Errorf("Expected EVAL ⊂ DECIDE, got %+v", rel)
	}
}

func TestRelations_NoVectors(t *testing.T) {
	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))

	if _, err := p.Relations(nil); !errors.Is(err, analyzer.ErrNoVectors) {
		t.Errorf("Expected ErrNoVectors, got %v", err)
	}
	if _, err := p.Classify("EXIST", "COMM"); !errors.Is(err, analyzer.ErrNoVectors) {
		t.Errorf("Expected ErrNoVectors, got %v", err)
	}
}

func TestNewPipeline_Rejects(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Format = "xml"
	_, err := NewPipeline(cfg)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "format" {
		t.Errorf("Expected format ConfigError, got %v", err)
	}

	cfg = testConfig()
	cfg.Lexicon = "nope"
	if _, err := NewPipeline(cfg); !errors.Is(err, lexicon.ErrUnknownLexicon) {
		t.Errorf("Expected ErrUnknownLexicon, got %v", err)
	}
}

func TestRenderReport(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")

	cfg := testConfig()
	cfg.Output.Verbose = true
	var status bytes.Buffer
	p := newTestPipeline(t, cfg, WithLexicon(scenarioLexicon(t)), WithStatus(&status))
	report := p.AnalyzeText("scenario", scenarioText)

	var out bytes.Buffer
	if err := p.RenderReport(&out, report, jsonPath, mdPath); err != nil {
		t.Fatalf("RenderReport failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Expected JSON file: %v", err)
	}
	var decoded model.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON report: %v", err)
	}
	if decoded.ID != report.ID || len(decoded.Analysis.Gaps) != 4 {
		t.Errorf("Unexpected decoded report: %+v", decoded)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("Expected Markdown file: %v", err)
	}
	if !strings.HasPrefix(string(md), "# scenario\n") || !strings.Contains(string(md), "| anything |") {
		t.Errorf("Unexpected Markdown:\n%s", md)
	}

	if !strings.Contains(out.String(), "Semantic:") || !strings.Contains(out.String(), "scenario") {
		t.Errorf("Expected summary on stdout, got:\n%s", out.String())
	}
	if !strings.Contains(status.String(), "✓ Wrote JSON") || !strings.Contains(status.String(), "✓ Wrote Markdown") {
		t.Errorf("Expected verbose status lines, got %q", status.String())
	}
}

func TestRenderRelations_JSON(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Format = FormatJSON
	p := newTestPipeline(t, cfg)

	report, err := p.Relations([]string{"EVAL", "DECIDE"})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := p.RenderRelations(&out, report); err != nil {
		t.Fatal(err)
	}

	var decoded model.RelationReport
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if diff := cmp.Diff([]string{"EVAL", "DECIDE"}, decoded.Categories); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
	if len(decoded.Relations[model.RelationInclusion]) != 1 {
		t.Errorf("Expected the inclusion pair, got %+v", decoded.Relations)
	}
}

func TestPipeline_AsBatchAnalyzer(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	if err := os.WriteFile(good, []byte("it is"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.txt")

	p := newTestPipeline(t, testConfig(), WithLexicon(scenarioLexicon(t)))
	bp := worker.NewBatchProcessor(p, 2, time.Minute, nil)

	results := bp.Process(context.Background(), []string{good, missing})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil || len(results[0].Reports) != 1 {
		t.Errorf("Expected good input analysed, got %+v", results[0])
	}
	if results[1].Error == nil {
		t.Error("Expected error for missing input")
	}

	summary := worker.Summarize(results)
	if summary.Succeeded != 1 || summary.Failed != 1 || summary.Documents != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}
