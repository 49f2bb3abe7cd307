package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/dhatu/internal/analyzer"
	"github.com/ppiankov/dhatu/internal/pipeline"
	"github.com/spf13/cobra"
)

// relationsCmd represents the relations command
var relationsCmd = &cobra.Command{
	Use:   "relations [CATEGORY...]",
	Short: "Classify every pair of categories geometrically",
	Long: `Relations compares the category vectors of the lexicon pairwise and groups
each pair as inclusion, exclusion, equality or intersection.

With no arguments every category that has a vector is compared.
The lexicon must define vectors (the built-in dhatu9 does).

Example:
  dhatu relations
  dhatu relations EVAL DECIDE FEEL --format json`,
	RunE: runRelations,
}

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <category> <category>",
	Short: "Classify the relation between two categories",
	Long: `Classify reports the geometric relation between two categories together
with their cosine distance.

Example:
  dhatu classify EVAL DECIDE`,
	Args: cobra.ExactArgs(2),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(classifyCmd)

	relationsCmd.Flags().StringVarP(&format, "format", "f", "", "terminal format: summary, json or yaml (default from config)")
}

func relationPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	applyOutputFlags(cfg)
	// Relations never fetch
	cfg.Cache.Enabled = false

	return pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
}

func runRelations(cmd *cobra.Command, args []string) error {
	p, err := relationPipeline()
	if err != nil {
		return err
	}

	report, err := p.Relations(args)
	if err != nil {
		return relationError(p, err)
	}

	return p.RenderRelations(cmd.OutOrStdout(), report)
}

func runClassify(cmd *cobra.Command, args []string) error {
	p, err := relationPipeline()
	if err != nil {
		return err
	}

	rel, err := p.Classify(args[0], args[1])
	if err != nil {
		return relationError(p, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", strings.ToUpper(string(rel.Kind)), pipeline.FormatRelation(rel))
	return nil
}

func relationError(p *pipeline.Pipeline, err error) error {
	if errors.Is(err, analyzer.ErrNoVectors) {
		return fmt.Errorf("lexicon %q has no category vectors; try --lexicon dhatu9", p.Lexicon().Name())
	}
	return err
}
