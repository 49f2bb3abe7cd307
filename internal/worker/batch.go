package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/dhatu/internal/logging"
	"github.com/ppiankov/dhatu/internal/model"
	"go.uber.org/zap"
)

// InputAnalyzer analyzes one input (URL, file path or "-") into reports
type InputAnalyzer interface {
	AnalyzeInput(ctx context.Context, input string) ([]*model.Report, error)
}

// AnalyzeJob analyzes a single input
type AnalyzeJob struct {
	Index    int
	Input    string
	Analyzer InputAnalyzer
	Timeout  time.Duration
}

// Execute runs the analysis, bounded by the job timeout when set
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	reports, err := j.Analyzer.AnalyzeInput(ctx, j.Input)
	return &InputResult{
		Index:    j.Index,
		Input:    j.Input,
		Reports:  reports,
		Error:    err,
		Duration: time.Since(start),
	}
}

// InputResult is the outcome of one input
type InputResult struct {
	Index    int
	Input    string
	Reports  []*model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the error from the result
func (r *InputResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many inputs concurrently, one input per job
type BatchProcessor struct {
	analyzer    InputAnalyzer
	concurrency int
	jobTimeout  time.Duration
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer InputAnalyzer, concurrency int, jobTimeout time.Duration, logger *zap.Logger) *BatchProcessor {
	logger = logging.OrNop(logger)
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		jobTimeout:  jobTimeout,
		logger:      logger,
	}
}

// Process analyzes the inputs and returns one result per input, in input
// order. Inputs never started because ctx ended carry ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, inputs []string) []*InputResult {
	results := make([]*InputResult, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submit from a separate goroutine so results can drain while jobs queue
	go func() {
		defer pool.Close()
		for i, input := range inputs {
			job := &AnalyzeJob{Index: i, Input: input, Analyzer: b.analyzer, Timeout: b.jobTimeout}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	for res := range pool.Results() {
		r := res.(*InputResult)
		results[r.Index] = r

		if r.Error != nil {
			b.logger.Warn("input failed", zap.String("input", r.Input), zap.Error(r.Error))
		} else {
			b.logger.Debug("input analyzed",
				zap.String("input", r.Input),
				zap.Int("documents", len(r.Reports)),
				zap.Duration("duration", r.Duration))
		}
	}

	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = &InputResult{Index: i, Input: inputs[i], Error: err}
		}
	}

	return results
}

// ProcessFile reads inputs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*InputResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.Process(ctx, inputs), nil
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	Inputs               int
	Succeeded            int
	Failed               int
	Documents            int
	MeanSemanticCoverage float64
}

// Summarize aggregates results; the mean is over all successful documents
func Summarize(results []*InputResult) BatchSummary {
	summary := BatchSummary{Inputs: len(results)}

	var total float64
	for _, r := range results {
		if r.Error != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		for _, report := range r.Reports {
			summary.Documents++
			total += report.Analysis.Coverage.SemanticCoverage
		}
	}

	if summary.Documents > 0 {
		summary.MeanSemanticCoverage = total / float64(summary.Documents)
	}
	return summary
}

// ReadInputsFromFile reads inputs (one per line), skipping blanks, '#'
// comments and duplicates.
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
