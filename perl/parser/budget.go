package parser

import "fmt"

// ParseErrorKind is the closed set of failures the engine can report.
type ParseErrorKind int

const (
	ErrUnexpectedEOF ParseErrorKind = iota
	ErrUnexpectedToken
	ErrSyntax
	ErrLexer
	ErrRecursionLimit
	ErrInvalidNumber
	ErrInvalidString
	ErrUnclosedDelimiter
	ErrInvalidRegex
	ErrNestingTooDeep
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrUnexpectedEOF:
		return "UnexpectedEOF"
	case ErrUnexpectedToken:
		return "UnexpectedToken"
	case ErrSyntax:
		return "SyntaxError"
	case ErrLexer:
		return "LexerError"
	case ErrRecursionLimit:
		return "RecursionLimit"
	case ErrInvalidNumber:
		return "InvalidNumber"
	case ErrInvalidString:
		return "InvalidString"
	case ErrUnclosedDelimiter:
		return "UnclosedDelimiter"
	case ErrInvalidRegex:
		return "InvalidRegex"
	case ErrNestingTooDeep:
		return "NestingTooDeep"
	}
	return "Unknown"
}

// ParseError is one recorded failure. Errors never abort a parse; they
// accumulate on the ParseOutput while recovery continues.
type ParseError struct {
	Kind     ParseErrorKind
	Message  string
	Expected []TokenKind
	Found    string
	Span     Span
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrUnexpectedEOF:
		return "unexpected end of input"
	case ErrUnexpectedToken:
		if len(e.Expected) > 0 {
			return fmt.Sprintf("unexpected token at %d: expected %v, found %q", e.Span.Start, e.Expected, e.Found)
		}
		return fmt.Sprintf("unexpected token %q at %d", e.Found, e.Span.Start)
	case ErrUnclosedDelimiter:
		return fmt.Sprintf("unclosed delimiter: %s", e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s at %d: %s", e.Kind, e.Span.Start, e.Message)
	}
	return fmt.Sprintf("%s at %d", e.Kind, e.Span.Start)
}

// Suggestion derives a fix hint from the error shape, or "" when there is
// no obvious one.
func (e *ParseError) Suggestion() string {
	switch e.Kind {
	case ErrUnclosedDelimiter:
		if e.Message != "" {
			return fmt.Sprintf("add closing %q to complete the literal", e.Message)
		}
	case ErrUnexpectedToken, ErrUnexpectedEOF:
		for _, kind := range e.Expected {
			switch kind {
			case TokenSemicolon:
				return "add a semicolon ';' at the end of the statement"
			case TokenRBrace:
				return "add a closing brace '}' to end the block"
			case TokenRParen:
				return "add a closing parenthesis ')'"
			case TokenRBracket:
				return "add a closing bracket ']'"
			}
		}
	}
	return ""
}

// ParseBudget caps the work a single parse invocation may spend on error
// recovery, bounding worst-case time on adversarial input.
type ParseBudget struct {
	// MaxErrors stops diagnostic flooding.
	MaxErrors int
	// MaxDepth bounds recursive nesting (blocks, parens, expressions).
	MaxDepth int
	// MaxTokensSkipped bounds total tokens discarded across all recoveries.
	MaxTokensSkipped int
	// MaxRecoveries bounds the number of recovery attempts.
	MaxRecoveries int
}

// DefaultBudget suits interactive parsing of real-world code.
func DefaultBudget() ParseBudget {
	return ParseBudget{
		MaxErrors:        100,
		MaxDepth:         256,
		MaxTokensSkipped: 1000,
		MaxRecoveries:    500,
	}
}

// IDEBudget is the preset LSP uses; currently the default limits.
func IDEBudget() ParseBudget {
	return DefaultBudget()
}

// StrictBudget is for untrusted input.
func StrictBudget() ParseBudget {
	return ParseBudget{
		MaxErrors:        10,
		MaxDepth:         64,
		MaxTokensSkipped: 100,
		MaxRecoveries:    50,
	}
}

// UnlimitedBudget disables all caps. Use with caution.
func UnlimitedBudget() ParseBudget {
	const big = int(^uint(0) >> 1)
	return ParseBudget{
		MaxErrors:        big,
		MaxDepth:         big,
		MaxTokensSkipped: big,
		MaxRecoveries:    big,
	}
}

// BudgetTracker accumulates consumption during one parse invocation. It is
// the sole gate that can force early termination: once exhausted, the
// parser stops attempting recovery and returns what it has.
type BudgetTracker struct {
	ErrorsEmitted       int
	CurrentDepth        int
	MaxDepthReached     int
	TokensSkipped       int
	RecoveriesAttempted int
}

func (t *BudgetTracker) ErrorsExhausted(b ParseBudget) bool {
	return t.ErrorsEmitted >= b.MaxErrors
}

func (t *BudgetTracker) DepthWouldExceed(b ParseBudget) bool {
	return t.CurrentDepth >= b.MaxDepth
}

func (t *BudgetTracker) RecoveriesExhausted(b ParseBudget) bool {
	return t.RecoveriesAttempted >= b.MaxRecoveries
}

// CanSkipMore reports whether additional tokens may still be discarded.
func (t *BudgetTracker) CanSkipMore(b ParseBudget, additional int) bool {
	return t.TokensSkipped+additional <= b.MaxTokensSkipped
}

// BeginRecovery checks the budget and, when allowed, records the attempt.
// A false return means the caller must stop recovering.
func (t *BudgetTracker) BeginRecovery(b ParseBudget) bool {
	if t.RecoveriesAttempted >= b.MaxRecoveries {
		return false
	}
	t.RecoveriesAttempted++
	return true
}

func (t *BudgetTracker) RecordError() {
	t.ErrorsEmitted++
}

func (t *BudgetTracker) RecordSkip(count int) {
	t.TokensSkipped += count
}

func (t *BudgetTracker) EnterDepth() {
	t.CurrentDepth++
	if t.CurrentDepth > t.MaxDepthReached {
		t.MaxDepthReached = t.CurrentDepth
	}
}

func (t *BudgetTracker) ExitDepth() {
	if t.CurrentDepth > 0 {
		t.CurrentDepth--
	}
}
