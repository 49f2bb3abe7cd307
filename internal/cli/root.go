package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/dhatu/internal/logging"
	"github.com/ppiankov/dhatu/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "0.1.0"

const envPrefix = "DHATU"

var (
	cfgFile     string
	verbose     bool
	lexiconName string

	logger = logging.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dhatu",
	Short: "dhatu - semantic primitive tagging and coverage diagnostics",
	Long: `dhatu tags text with a small set of semantic primitives (dhātu: "roots"),
measures how much of the text the primitives explain, and reports the words
they leave uncovered.

Categories that carry vectors can also be compared geometrically: two
categories may include, exclude, equal or intersect one another.

Coverage is a pattern-matching heuristic. It does not judge whether a text
is correct, meaningful or well written.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dhatu v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dhatu/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&lexiconName, "lexicon", "l", "", "built-in lexicon name or path to a lexicon file (default: dhatu9)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	registerDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".dhatu"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// DHATU_HTTP_USER_AGENT overrides http.user_agent, and so on
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("http.http_proxy")
	_ = viper.BindEnv("http.https_proxy")
	_ = viper.BindEnv("llm.api_key")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the layered configuration over the defaults and
// applies the global flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if lexiconName != "" {
		cfg.Lexicon = lexiconName
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		zap.String("file", viper.ConfigFileUsed()),
		zap.String("lexicon", cfg.Lexicon))

	return cfg, nil
}

// registerDefaults makes every config key known to viper so that
// AutomaticEnv lookups reach Unmarshal.
func registerDefaults(v *viper.Viper, cfg *model.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	for key, value := range flattenKeys("", tree) {
		v.SetDefault(key, value)
	}
}

func flattenKeys(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flattenKeys(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}
