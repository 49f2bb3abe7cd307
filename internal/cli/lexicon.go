package cli

import (
	"fmt"

	"github.com/ppiankov/dhatu/internal/geometry"
	"github.com/ppiankov/dhatu/internal/lexicon"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// lexiconCmd represents the lexicon command
var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Inspect and validate lexicons",
	Long: `A lexicon is a YAML or JSON file with ordered categories of case-insensitive
regular expressions, an optional secondary table used to label gaps, and
optional category vectors for relation analysis.`,
}

var lexiconListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in lexicons",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, name := range lexicon.BuiltinNames() {
			lex, err := lexicon.Builtin(name)
			if err != nil {
				return err
			}
			vectors := ""
			if lex.HasVectors() {
				vectors = ", vectors"
			}
			fmt.Fprintf(out, "%-10s %d categories, %d patterns%s\n", name, len(lex.Categories()), lex.PatternCount(), vectors)
			if lex.Description() != "" {
				fmt.Fprintf(out, "           %s\n", lex.Description())
			}
		}
		return nil
	},
}

var lexiconShowCmd = &cobra.Command{
	Use:   "show <name|path>",
	Short: "Print a lexicon definition as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lex, err := lexicon.Resolve(args[0])
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(lex.Definition()); err != nil {
			return fmt.Errorf("encode lexicon: %w", err)
		}
		return enc.Close()
	},
}

var lexiconValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check that a lexicon file compiles",
	Long: `Validate loads a lexicon file and compiles every pattern. Any invalid
regular expression, duplicate category or inconsistent vector fails the
whole lexicon.

Patterns use RE2 syntax: \b, character classes, alternation and
quantifiers are supported; lookaround and backreferences are not. The
(?i) flag is added to every pattern.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lex, err := lexicon.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("✗ %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ %s is valid\n", args[0])
		fmt.Fprintf(out, "  Name:        %s\n", lex.Name())
		fmt.Fprintf(out, "  Categories:  %d\n", len(lex.Categories()))
		fmt.Fprintf(out, "  Patterns:    %d\n", lex.PatternCount())
		fmt.Fprintf(out, "  Secondary:   %d\n", len(lex.Secondary()))
		if !lex.HasVectors() {
			fmt.Fprintf(out, "  Vectors:     0\n")
			return nil
		}

		space, err := geometry.NewSpace(lex.Vectors(), model.DefaultConfig().Relations)
		if err != nil {
			return fmt.Errorf("✗ %s: %w", args[0], err)
		}
		fmt.Fprintf(out, "  Vectors:     %d (dimension %d)\n", len(space.Categories()), space.Dimension())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexiconCmd)
	lexiconCmd.AddCommand(lexiconListCmd)
	lexiconCmd.AddCommand(lexiconShowCmd)
	lexiconCmd.AddCommand(lexiconValidateCmd)
}
