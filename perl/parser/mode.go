package parser

// LexerMode is the single piece of state that resolves Perl's `/` and `%`
// ambiguity. Exactly one mode is active at any lexer position; transitions
// are driven by the kind of the last token emitted (see TokenKind.endsOperand).
type LexerMode int

const (
	// ModeExpectTerm means the next token should be an operand: `/` opens
	// a regex, `%` and `*` are sigils.
	ModeExpectTerm LexerMode = iota
	// ModeExpectOperator means an operand just ended: `/` is division,
	// `%` is modulo, `*` is multiplication.
	ModeExpectOperator
	// ModeExpectDelimiter is active between a quote-like operator (q, qq,
	// qw, qr, m, s, tr, y) and its delimiter character.
	ModeExpectDelimiter
	// ModeInFormatBody consumes a format body through its terminating
	// dot line.
	ModeInFormatBody
	// ModeInDataSection consumes everything after __DATA__ or __END__.
	ModeInDataSection
)

func (m LexerMode) String() string {
	switch m {
	case ModeExpectTerm:
		return "ExpectTerm"
	case ModeExpectOperator:
		return "ExpectOperator"
	case ModeExpectDelimiter:
		return "ExpectDelimiter"
	case ModeInFormatBody:
		return "InFormatBody"
	case ModeInDataSection:
		return "InDataSection"
	}
	return "Unknown"
}

// listOperators are builtins whose arguments follow without parentheses,
// so the position after them expects a term: "print <<EOT" opens a
// heredoc and "print /x/" opens a regex, while an unknown bareword is
// assumed to be a value ("$n = count / 2" divides).
var listOperators = map[string]bool{
	"print": true, "say": true, "printf": true, "sprintf": true,
	"push": true, "unshift": true, "splice": true,
	"warn": true, "die": true,
	"join": true, "split": true, "grep": true, "map": true, "sort": true,
	"reverse": true, "keys": true, "values": true, "each": true,
	"open": true, "close": true, "bless": true,
	"defined": true, "exists": true, "delete": true, "ref": true,
	"scalar": true, "chomp": true, "chop": true,
	"lc": true, "uc": true, "lcfirst": true, "ucfirst": true,
}

// modeAfter computes the mode that follows an emitted token. Postfix ++ and
// -- complete an operand ("$x++ / 2" divides), so they keep ExpectOperator;
// every other operator demands a term.
func modeAfter(tok Token, current LexerMode) LexerMode {
	switch tok.Kind {
	case TokenOperator:
		if (tok.Text == "++" || tok.Text == "--") && current == ModeExpectOperator {
			return ModeExpectOperator
		}
		return ModeExpectTerm
	case TokenFormatBody, TokenDataBody:
		return ModeExpectTerm
	case TokenIdent:
		if listOperators[tok.Text] {
			return ModeExpectTerm
		}
	}
	if tok.Kind.endsOperand() {
		return ModeExpectOperator
	}
	return ModeExpectTerm
}
