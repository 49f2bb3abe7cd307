package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/dhatu/internal/analyzer"
	"github.com/ppiankov/dhatu/internal/cache"
	"github.com/ppiankov/dhatu/internal/extract/adapters"
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/logging"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/score"
	"github.com/ppiankov/dhatu/internal/worker"
	"go.uber.org/zap"
)

// StdinSource names standard input as an input source
const StdinSource = "-"

// Pipeline turns inputs (files, URLs, stdin, raw text) into reports
type Pipeline struct {
	analyzer *analyzer.Analyzer
	adapters *adapters.Registry
	fetcher  *Fetcher
	cache    cache.Cache
	renderer *Renderer
	config   *model.Config
	logger   *zap.Logger
	stdin    io.Reader
	status   io.Writer
	now      func() time.Time

	lex *lexicon.Lexicon
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNop(l) }
}

// WithStdin replaces os.Stdin as the "-" input
func WithStdin(r io.Reader) Option {
	return func(p *Pipeline) { p.stdin = r }
}

// WithStatus sets where "✓ Wrote ..." lines go in verbose mode
func WithStatus(w io.Writer) Option {
	return func(p *Pipeline) { p.status = w }
}

// WithLexicon uses an already loaded lexicon instead of resolving cfg.Lexicon
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(p *Pipeline) { p.lex = lex }
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	p := &Pipeline{
		adapters: adapters.NewRegistry(),
		renderer: NewRenderer(cfg.Output),
		config:   cfg,
		logger:   logging.Nop(),
		stdin:    os.Stdin,
		status:   os.Stderr,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if !validFormat(cfg.Output.Format) {
		return nil, &model.ConfigError{Source: "output", Field: "format",
			Err: fmt.Errorf("unknown format %q (want one of %s)", cfg.Output.Format, strings.Join(Formats(), ", "))}
	}

	if p.lex == nil {
		lex, err := lexicon.Resolve(cfg.Lexicon)
		if err != nil {
			return nil, err
		}
		p.lex = lex
	}

	a, err := analyzer.New(p.lex, *cfg)
	if err != nil {
		return nil, err
	}
	p.analyzer = a

	fetchOpts := []FetcherOption{
		WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
		WithFetchLogger(p.logger),
	}
	if cfg.Cache.Enabled {
		p.cache = cache.NewFromConfig(cfg.Cache, p.logger)
		fetchOpts = append(fetchOpts, WithCache(p.cache))
	}

	fetcher, err := NewFetcher(cfg.HTTP, fetchOpts...)
	if err != nil {
		return nil, err
	}
	p.fetcher = fetcher

	p.logger.Debug("pipeline ready",
		zap.String("lexicon", p.lex.Name()),
		zap.Int("categories", len(p.lex.Categories())),
		zap.Bool("relations", a.HasRelations()),
		zap.Bool("cache", cfg.Cache.Enabled))

	return p, nil
}

// Lexicon returns the lexicon reports are produced with
func (p *Pipeline) Lexicon() *lexicon.Lexicon {
	return p.lex
}

// Cache returns the fetch cache, or nil when caching is disabled
func (p *Pipeline) Cache() cache.Cache {
	return p.cache
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// AnalyzeText analyses raw text under the given subject
func (p *Pipeline) AnalyzeText(subject, text string) *model.Report {
	return p.AnalyzeDocument(model.Document{ID: subject, Source: "text", Text: text}, nil)
}

// AnalyzeDocument analyses one document, attaching fetch metadata when present
func (p *Pipeline) AnalyzeDocument(doc model.Document, meta *model.FetchMeta) *model.Report {
	analysis := p.analyzer.Analyze(doc.Text)
	categories := p.lex.CategoryNames()

	return &model.Report{
		ID:             uuid.NewString(),
		Subject:        doc.ID,
		Source:         doc.Source,
		Lexicon:        p.lex.Name(),
		AnalyzedAt:     p.now().UTC(),
		FetchMeta:      meta,
		Analysis:       analysis,
		CategoryCounts: score.CountByCategory(analysis.Matches, categories),
		Signals:        p.analyzer.Scorer().Diagnose(analysis, categories),
	}
}

// AnalyzeInput reads an input (URL, file path or "-" for stdin), splits it
// into documents with the matching adapter and analyses each one.
func (p *Pipeline) AnalyzeInput(ctx context.Context, input string) ([]*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case isURL(input):
		return p.analyzeURL(ctx, input)
	case input == StdinSource:
		data, err := io.ReadAll(p.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return p.analyzeData(data, StdinSource, "", "stdin", nil)
	default:
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return p.analyzeData(data, input, "", filepath.Base(input), nil)
	}
}

func (p *Pipeline) analyzeURL(ctx context.Context, rawURL string) ([]*model.Report, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	meta := result.Meta
	return p.analyzeData(result.Body, result.FinalURL, meta.ContentType, result.Subject, &meta)
}

// analyzeData extracts documents from data and analyses them in order.
// A document whose ID is just its source is renamed to fallbackSubject.
func (p *Pipeline) analyzeData(data []byte, source, contentType, fallbackSubject string, meta *model.FetchMeta) ([]*model.Report, error) {
	adapter := p.adapters.FindAdapter(source, contentType)
	docs, err := adapter.Extract(data, source)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", adapter.Name(), err)
	}

	p.logger.Debug("extracted documents",
		zap.String("source", source),
		zap.String("adapter", adapter.Name()),
		zap.Int("documents", len(docs)))

	reports := make([]*model.Report, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == source {
			doc.ID = fallbackSubject
		}
		reports = append(reports, p.AnalyzeDocument(doc, meta))
	}
	return reports, nil
}

// Classify classifies the relation between two categories
func (p *Pipeline) Classify(a, b string) (model.Relation, error) {
	return p.analyzer.ClassifyRelation(a, b)
}

// Relations classifies every pair among categories (all vector categories when empty)
func (p *Pipeline) Relations(categories []string) (*model.RelationReport, error) {
	rels, err := p.analyzer.PairwiseRelations(categories)
	if err != nil {
		return nil, err
	}

	if len(categories) == 0 {
		for _, v := range p.lex.Vectors() {
			categories = append(categories, v.Category)
		}
	}

	return &model.RelationReport{
		Lexicon:    p.lex.Name(),
		Categories: categories,
		Relations:  rels,
	}, nil
}

// RenderReport writes the report files that were asked for, then prints the
// report to w in the configured format.
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath, mdPath string) error {
	verbose := p.config.Output.Verbose

	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(p.status, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(p.status, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	return p.renderer.Write(w, report, p.config.Output.Format)
}

// RenderRelations prints a relation report in the configured format
func (p *Pipeline) RenderRelations(w io.Writer, report *model.RelationReport) error {
	switch p.config.Output.Format {
	case FormatJSON:
		return p.renderer.WriteJSON(w, report)
	case FormatYAML:
		return p.renderer.WriteYAML(w, report)
	default:
		p.renderer.WriteRelations(w, report)
		return nil
	}
}

var _ worker.InputAnalyzer = (*Pipeline)(nil)

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

func validFormat(format string) bool {
	if format == "" {
		return true
	}
	for _, f := range Formats() {
		if f == format {
			return true
		}
	}
	return false
}
