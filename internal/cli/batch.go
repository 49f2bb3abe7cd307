package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ppiankov/dhatu/internal/pipeline"
	"github.com/ppiankov/dhatu/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	jobTimeout   time.Duration
	// noCache and noFooter are defined in analyze.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many inputs from a file in parallel",
	Long: `Batch analyzes many inputs concurrently:
- Read inputs (file paths or URLs) from a file, one per line
- Analyze each input as an independent job on a worker pool
- Write a JSON and a Markdown report per document
- Print a summary with the mean semantic coverage

Blank lines and lines starting with '#' are skipped.

Example:
  dhatu batch inputs.txt
  dhatu batch inputs.txt --concurrency 8 --output-dir ./reports
  dhatu batch urls.txt --timeout 30m --job-timeout 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./dhatu-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&jobTimeout, "job-timeout", time.Minute, "timeout for each input")

	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOutputFlags(cfg)
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  dhatu Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Lexicon:      %s\n", cfg.Lexicon)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, jobTimeout, logger)

	fmt.Fprintf(os.Stderr, "⚙️  Reading inputs from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")

	renderer := p.Renderer()
	names := newNameSet()

	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Input, result.Error)
			continue
		}

		for _, report := range result.Reports {
			slug := names.unique(sanitizeFilename(report.Subject))
			jsonPath := filepath.Join(outputDir, slug+".json")
			mdPath := filepath.Join(outputDir, slug+".md")

			if err := renderer.RenderJSON(report, jsonPath); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Input, err)
				continue
			}
			if err := renderer.RenderMarkdown(report, mdPath); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Input, err)
				continue
			}

			fmt.Fprintf(os.Stderr, "✓ %s (semantic coverage: %.1f%%, gaps: %d)\n",
				report.Subject, report.Analysis.Coverage.SemanticCoverage*100, len(report.Analysis.Gaps))
		}
	}

	summary := worker.Summarize(results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d inputs\n", summary.Inputs)
	fmt.Fprintf(os.Stderr, "  Success:    %d\n", summary.Succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Documents:  %d\n", summary.Documents)
	fmt.Fprintf(os.Stderr, "  Mean semantic coverage: %.1f%%\n", summary.MeanSemanticCoverage*100)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename turns a report subject into a safe file name
func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '-'
		case r == '-' || r == '_' || r == '.':
			return r
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))

	s = strings.Trim(s, ".")
	if s == "" {
		s = "report"
	}

	// Limit length without splitting a rune
	if runes := []rune(s); len(runes) > 100 {
		s = string(runes[:100])
	}

	return s
}

// nameSet hands out file names that do not collide within one batch
type nameSet map[string]int

func newNameSet() nameSet {
	return make(nameSet)
}

func (n nameSet) unique(name string) string {
	key := strings.ToLower(name)
	n[key]++
	if n[key] == 1 {
		return name
	}
	return name + "-" + strconv.Itoa(n[key])
}
