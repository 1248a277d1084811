package parser

import "sort"

// Severity of a diagnostic; external layers map these onto protocol levels.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is the user-facing form of a ParseError, enriched with the
// source line and an optional fix suggestion.
type Diagnostic struct {
	Message    string
	Expected   []string
	Span       Span
	Severity   Severity
	Suggestion string
	// Line and Column are 1-based human-readable coordinates.
	Line   int
	Column int
	// SourceLine is the text of the offending line.
	SourceLine string
}

// BuildDiagnostics converts the recorded errors into enriched
// diagnostics, ordered by source position with ties broken by recording
// order.
func BuildDiagnostics(errs []*ParseError, src string) []Diagnostic {
	idx := NewLineIndex(src)
	out := make([]Diagnostic, 0, len(errs)+1)
	for _, err := range errs {
		pos := idx.PositionAt(err.Span.Start)
		expected := make([]string, 0, len(err.Expected))
		for _, kind := range err.Expected {
			expected = append(expected, kind.String())
		}
		out = append(out, Diagnostic{
			Message:    err.Error(),
			Expected:   expected,
			Span:       err.Span,
			Severity:   SeverityError,
			Suggestion: err.Suggestion(),
			Line:       pos.Line,
			Column:     pos.Column,
			SourceLine: idx.LineText(pos.Line - 1),
		})
	}
	if idx.MixedLineEndings() {
		out = append(out, Diagnostic{
			Message:  "mixed line endings in source",
			Span:     Span{Start: 0, End: 0},
			Severity: SeverityWarning,
			Line:     1,
			Column:   1,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})
	return out
}
