package model

// RelationKind classifies the geometric relation between two categories
type RelationKind string

const (
	RelationInclusion    RelationKind = "inclusion"    // A is a more specific sub-concept of B
	RelationExclusion    RelationKind = "exclusion"    // A and B point away from each other
	RelationEquality     RelationKind = "equality"     // A and B are the same concept
	RelationIntersection RelationKind = "intersection" // Partial overlap
)

// RelationKinds lists every kind in report order
func RelationKinds() []RelationKind {
	return []RelationKind{
		RelationInclusion,
		RelationExclusion,
		RelationEquality,
		RelationIntersection,
	}
}

// CategoryVector is the raw numeric embedding of a category
type CategoryVector struct {
	Category   string    `json:"category" yaml:"category"`
	Components []float64 `json:"components" yaml:"components"`
}

// Relation is the classified relation between two categories.
// For inclusion, A is the included (narrower) category and B the including one.
type Relation struct {
	Kind     RelationKind `json:"kind" yaml:"kind"`
	A        string       `json:"a" yaml:"a"`
	B        string       `json:"b" yaml:"b"`
	Distance float64      `json:"distance" yaml:"distance"`                     // Cosine distance between the unit vectors
	Strength float64      `json:"strength,omitempty" yaml:"strength,omitempty"` // Overlap strength (intersection only)
}
