package parser

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError
	// TokenUnknownRest covers the remainder of the input after a lexer
	// budget overflow. At most one is emitted per pass.
	TokenUnknownRest
	TokenWhitespace
	TokenComment
	TokenPod

	// Literals and atoms
	TokenIdent
	TokenVariable // $x, @list, %hash, *glob, $#array
	TokenNumber
	TokenString        // '...', "...", `...`, q{...}, qq{...}
	TokenQwList        // qw(...)
	TokenMatch         // /re/, m{re}, qr{re}
	TokenSubstitution  // s/re/repl/
	TokenTransliterate // tr/a/b/, y/a/b/
	TokenHeredocStart  // <<EOT, <<~"EOT"
	TokenHeredocBody   // body region, emitted only when requested
	TokenFormatBody    // format body through the terminating dot line
	TokenDataMarker    // __DATA__ or __END__
	TokenDataBody      // everything after a data marker
	TokenFileTest      // -e, -f, -d, ... in term position

	// Keywords
	TokenMy
	TokenOur
	TokenLocal
	TokenState
	TokenSub
	TokenPackage
	TokenUse
	TokenNo
	TokenRequire
	TokenIf
	TokenElsif
	TokenElse
	TokenUnless
	TokenWhile
	TokenUntil
	TokenFor
	TokenForeach
	TokenDo
	TokenReturn
	TokenLast
	TokenNext
	TokenRedo
	TokenFormat

	// Word operators
	TokenAnd
	TokenOr
	TokenNot
	TokenXor
	TokenEq
	TokenNe
	TokenLt
	TokenGt
	TokenLe
	TokenGe
	TokenCmp
	TokenX

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenSemicolon
	TokenComma
	TokenFatComma // =>
	TokenArrow    // ->

	// TokenOperator carries all remaining symbolic operators; the parser
	// dispatches on Token.Text. TokenSlash is split out because the mode
	// table is what decides it exists at all.
	TokenOperator
	TokenSlash // division
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:           "EOF",
	TokenError:         "Error",
	TokenUnknownRest:   "UnknownRest",
	TokenWhitespace:    "Whitespace",
	TokenComment:       "Comment",
	TokenPod:           "Pod",
	TokenIdent:         "Identifier",
	TokenVariable:      "Variable",
	TokenNumber:        "Number",
	TokenString:        "String",
	TokenQwList:        "QwList",
	TokenMatch:         "Match",
	TokenSubstitution:  "Substitution",
	TokenTransliterate: "Transliterate",
	TokenHeredocStart:  "HeredocStart",
	TokenHeredocBody:   "HeredocBody",
	TokenFormatBody:    "FormatBody",
	TokenDataMarker:    "DataMarker",
	TokenDataBody:      "DataBody",
	TokenFileTest:      "FileTest",
	TokenMy:            "my",
	TokenOur:           "our",
	TokenLocal:         "local",
	TokenState:         "state",
	TokenSub:           "sub",
	TokenPackage:       "package",
	TokenUse:           "use",
	TokenNo:            "no",
	TokenRequire:       "require",
	TokenIf:            "if",
	TokenElsif:         "elsif",
	TokenElse:          "else",
	TokenUnless:        "unless",
	TokenWhile:         "while",
	TokenUntil:         "until",
	TokenFor:           "for",
	TokenForeach:       "foreach",
	TokenDo:            "do",
	TokenReturn:        "return",
	TokenLast:          "last",
	TokenNext:          "next",
	TokenRedo:          "redo",
	TokenFormat:        "format",
	TokenAnd:           "and",
	TokenOr:            "or",
	TokenNot:           "not",
	TokenXor:           "xor",
	TokenEq:            "eq",
	TokenNe:            "ne",
	TokenLt:            "lt",
	TokenGt:            "gt",
	TokenLe:            "le",
	TokenGe:            "ge",
	TokenCmp:           "cmp",
	TokenX:             "x",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenSemicolon:     ";",
	TokenComma:         ",",
	TokenFatComma:      "=>",
	TokenArrow:         "->",
	TokenOperator:      "Operator",
	TokenSlash:         "/",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Token is one lexical unit. Text is a slice of the source; Start and End
// are byte offsets. Tokens are immutable once produced.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int
	// Err carries the lexer error for TokenError and TokenUnknownRest
	// tokens, nil otherwise.
	Err *ParseError
}

func (t Token) Span() Span {
	return Span{Start: t.Start, End: t.End}
}

// IsTrivia reports whether the token is whitespace, comment or POD,
// which the parser discards unless trivia preservation is on.
func (t Token) IsTrivia() bool {
	switch t.Kind {
	case TokenWhitespace, TokenComment, TokenPod:
		return true
	}
	return false
}

var keywords = map[string]TokenKind{
	"my":      TokenMy,
	"our":     TokenOur,
	"local":   TokenLocal,
	"state":   TokenState,
	"sub":     TokenSub,
	"package": TokenPackage,
	"use":     TokenUse,
	"no":      TokenNo,
	"require": TokenRequire,
	"if":      TokenIf,
	"elsif":   TokenElsif,
	"else":    TokenElse,
	"unless":  TokenUnless,
	"while":   TokenWhile,
	"until":   TokenUntil,
	"for":     TokenFor,
	"foreach": TokenForeach,
	"do":      TokenDo,
	"return":  TokenReturn,
	"last":    TokenLast,
	"next":    TokenNext,
	"redo":    TokenRedo,
	"format":  TokenFormat,
	"and":     TokenAnd,
	"or":      TokenOr,
	"not":     TokenNot,
	"xor":     TokenXor,
	"eq":      TokenEq,
	"ne":      TokenNe,
	"lt":      TokenLt,
	"gt":      TokenGt,
	"le":      TokenLe,
	"ge":      TokenGe,
	"cmp":     TokenCmp,
	"x":       TokenX,
}

func LookupKeyword(ident string) TokenKind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return TokenIdent
}

// endsOperand reports whether a token of this kind completes an operand.
// This is the table that drives the lexer mode transition: after an
// operand-ending token the lexer expects an operator, so `/` is division
// and `%` is modulo; after anything else it expects a term, so `/` opens a
// regex and `%` is a hash sigil. Getting this wrong silently corrupts all
// subsequent tokenization, which is why the table lives in one place.
func (k TokenKind) endsOperand() bool {
	switch k {
	case TokenIdent, TokenVariable, TokenNumber, TokenString, TokenQwList,
		TokenMatch, TokenSubstitution, TokenTransliterate,
		TokenHeredocStart, TokenRParen, TokenRBrace, TokenRBracket:
		return true
	}
	return false
}
