package types

// Filters are optional predicates applied to every storage query
type Filters struct {
	Author           string      `json:"author,omitempty"`
	Kind             CommentKind `json:"kind,omitempty"`
	Category         string      `json:"category,omitempty"`
	Severity         string      `json:"severity,omitempty"`
	FilePathContains string      `json:"file_path_contains,omitempty"`
}

// Query holds the parameters of one retrieval call
type Query struct {
	Text        string
	Vector      []float32 // Takes precedence over Text when set
	TargetCode  string
	TargetPath  string
	ProjectPath string // Isolation key, mandatory
	Filters     Filters
}

// Validate checks that the query can be executed
func (q *Query) Validate() error {
	if q.ProjectPath == "" {
		return ErrMissingIsolationKey
	}
	if q.Filters.Kind != "" && !q.Filters.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}
