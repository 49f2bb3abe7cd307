package model

import "time"

// Report represents the complete analysis of one document
type Report struct {
	ID         string     `json:"id" yaml:"id"`                                     // Unique report identifier
	Subject    string     `json:"subject" yaml:"subject"`                           // Human-readable subject (document ID, file name, URL slug)
	Source     string     `json:"source" yaml:"source"`                             // Path, URL or "-" for stdin
	Lexicon    string     `json:"lexicon" yaml:"lexicon"`                           // Name of the lexicon used
	AnalyzedAt time.Time  `json:"analyzed_at" yaml:"analyzed_at"`                   // When the analysis ran
	FetchMeta  *FetchMeta `json:"fetch_meta,omitempty" yaml:"fetch_meta,omitempty"` // HTTP metadata for URL inputs

	Analysis       Analysis       `json:"analysis" yaml:"analysis"`
	CategoryCounts map[string]int `json:"category_counts" yaml:"category_counts"` // Matches per category
	Signals        []Signal       `json:"signals" yaml:"signals"`                 // Diagnostic signals with transparent data
}

// FetchMeta contains HTTP metadata from fetching a URL input
type FetchMeta struct {
	StatusCode   int               `json:"status_code" yaml:"status_code"`
	ContentType  string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	FromCache    bool              `json:"from_cache" yaml:"from_cache"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType     `json:"type" yaml:"type"`                     // Signal classification
	Severity    SignalSeverity `json:"severity" yaml:"severity"`             // info, warning, critical
	Description string         `json:"description" yaml:"description"`       // Human-readable description
	Data        map[string]any `json:"data,omitempty" yaml:"data,omitempty"` // Inputs and formula behind the signal
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSemanticCoverage     SignalType = "semantic_coverage"     // Weighted char/word coverage
	SignalGapDensity           SignalType = "gap_density"           // Share of words that are gaps
	SignalCategoryDistribution SignalType = "category_distribution" // Matches per category
	SignalDuplicateCoverage    SignalType = "duplicate_coverage"    // Characters claimed by several categories
	SignalUnknownGaps          SignalType = "unknown_gaps"          // Gaps no secondary concept explains
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// RelationReport is the batch form of the relation classifier
type RelationReport struct {
	Lexicon    string                      `json:"lexicon" yaml:"lexicon"`
	Categories []string                    `json:"categories" yaml:"categories"`
	Relations  map[RelationKind][]Relation `json:"relations" yaml:"relations"`
}
