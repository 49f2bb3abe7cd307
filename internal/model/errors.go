package model

import "fmt"

// ConfigError reports a construction-time problem with a lexicon, vector
// table or configuration value. Analyzers are never built from bad config.
type ConfigError struct {
	Source string // Lexicon name, file path or config section
	Field  string // Offending category, pattern or key
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Source != "" && e.Field != "":
		return fmt.Sprintf("config %s: %s: %v", e.Source, e.Field, e.Err)
	case e.Source != "":
		return fmt.Sprintf("config %s: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("config: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
