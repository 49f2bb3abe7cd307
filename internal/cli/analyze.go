package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outJSON  string
	outMD    string
	format   string
	text     string
	subject  string
	timeout  time.Duration
	noCache  bool
	noFooter bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [input]",
	Short: "Tag a text, file, URL or stdin and report coverage and gaps",
	Long: `Analyze tags the input with the lexicon's categories and reports:
- Every pattern match with its category and position
- Character, word and weighted semantic coverage
- Gap words no category covers, with suggested secondary concepts
- Diagnostic signals showing the numbers behind each score

The input is a file path, an http(s) URL, or "-" for stdin. Corpus files
(.json, .jsonl, .lines, .tsv) produce one report per document.

Example:
  dhatu analyze --text "The system exists to help, but does it say anything?"
  dhatu analyze notes.txt --md notes.md
  dhatu analyze corpus.jsonl --format json
  dhatu analyze https://en.wikipedia.org/wiki/Dhatu_(grammar) --lexicon dhatu7`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input flags
	analyzeCmd.Flags().StringVar(&text, "text", "", "analyze this text instead of an input")
	analyzeCmd.Flags().StringVar(&subject, "subject", "text", "subject recorded for --text")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "", "terminal format: summary, json or yaml (default from config)")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// HTTP flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout for URL inputs")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && text == "" {
		return errors.New("nothing to analyze: pass an input or --text")
	}
	if len(args) > 0 && text != "" {
		return errors.New("pass either an input or --text, not both")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOutputFlags(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	var reports []*model.Report
	if text != "" {
		reports = []*model.Report{p.AnalyzeText(subject, text)}
	} else {
		input := args[0]
		if verbose {
			fmt.Fprintf(os.Stderr, "Analyzing: %s\n", input)
			fmt.Fprintf(os.Stderr, "Lexicon: %s\n", p.Lexicon().Name())
			fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
			fmt.Fprintln(os.Stderr)
		}

		reports, err = p.AnalyzeInput(ctx, input)
		if err != nil {
			return fmt.Errorf("analyze failed: %w", err)
		}
	}

	logger.Debug("analysis complete", zap.Int("reports", len(reports)))

	for i, report := range reports {
		jsonPath := numberedPath(outJSON, i, len(reports))
		mdPath := numberedPath(outMD, i, len(reports))
		if err := p.RenderReport(cmd.OutOrStdout(), report, jsonPath, mdPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}

	return nil
}

// applyOutputFlags layers the shared output flags over cfg
func applyOutputFlags(cfg *model.Config) {
	if format != "" {
		cfg.Output.Format = format
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
}

// numberedPath returns path unchanged for a single report, and
// "name-<i+1>.ext" when an input produced several.
func numberedPath(path string, i, n int) string {
	if path == "" || n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
