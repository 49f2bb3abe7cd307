package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/dhatu/internal/llm"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/ppiankov/dhatu/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	llmProvider  string
	llmModel     string
	labelTimeout time.Duration
)

// labelCmd represents the label command
var labelCmd = &cobra.Command{
	Use:   "label [input]",
	Short: "Ask a language model to label unexplained gap words",
	Long: `Label analyzes the input, then sends the gap words that no secondary
concept explains to a language model and asks it to pick one of the
lexicon's categories for each. The model may only answer with a listed
category or UNKNOWN; any other answer is rejected.

Labels are suggestions for extending the lexicon. They never change the
coverage scores or signals.

The API key is read from DHATU_LLM_API_KEY or OPENAI_API_KEY. Ollama needs
no key, defaults to http://localhost:11434/v1 and to the llama3.1 model.

Example:
  dhatu label --text "The system exists to help, but does it say anything?"
  dhatu label notes.txt --llm-provider ollama --llm-model llama3.1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLabel,
}

func init() {
	rootCmd.AddCommand(labelCmd)

	labelCmd.Flags().StringVar(&text, "text", "", "label gaps of this text instead of an input")
	labelCmd.Flags().StringVar(&subject, "subject", "text", "subject recorded for --text")
	labelCmd.Flags().StringVarP(&format, "format", "f", "", "terminal format: summary, json or yaml (default from config)")
	labelCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider: openai or ollama (default from config, else openai)")
	labelCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default from config)")
	labelCmd.Flags().DurationVar(&labelTimeout, "timeout", 5*time.Minute, "overall timeout for fetching and labelling")
}

// labelledReport pairs a report subject with its gap labels
type labelledReport struct {
	Subject string      `json:"subject" yaml:"subject"`
	Model   string      `json:"model" yaml:"model"`
	Labels  []llm.Label `json:"labels" yaml:"labels"`
}

func runLabel(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && text == "" {
		return errors.New("nothing to label: pass an input or --text")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOutputFlags(cfg)
	applyLLMFlags(cfg)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}
	labeler := llm.NewLabeler(provider, cfg.LLM.MaxGaps, logger)

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), labelTimeout)
	defer cancel()

	var reports []*model.Report
	if text != "" {
		reports = []*model.Report{p.AnalyzeText(subject, text)}
	} else {
		reports, err = p.AnalyzeInput(ctx, args[0])
		if err != nil {
			return fmt.Errorf("analyze failed: %w", err)
		}
	}

	categories := p.Lexicon().CategoryNames()
	results := make([]labelledReport, 0, len(reports))
	for _, report := range reports {
		resp, err := labeler.LabelReport(ctx, report, categories)
		if err != nil {
			return fmt.Errorf("label %s: %w", report.Subject, err)
		}
		results = append(results, labelledReport{Subject: report.Subject, Model: resp.Model, Labels: resp.Labels})
	}

	out := cmd.OutOrStdout()
	switch cfg.Output.Format {
	case pipeline.FormatJSON:
		return p.Renderer().WriteJSON(out, results)
	case pipeline.FormatYAML:
		return p.Renderer().WriteYAML(out, results)
	}

	fmt.Fprintf(os.Stderr, "Labels from %s (advisory, scores unchanged)\n\n", provider.Name())
	for _, r := range results {
		fmt.Fprintf(out, "%s\n", r.Subject)
		if len(r.Labels) == 0 {
			fmt.Fprintf(out, "  (no unexplained gaps)\n")
		}
		for _, l := range r.Labels {
			fmt.Fprintf(out, "  %-20s → %s\n", l.Token, l.Category)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// applyLLMFlags layers the label flags and OPENAI_API_KEY over cfg.LLM
func applyLLMFlags(cfg *model.Config) {
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
