package parser

import (
	"strings"
	"time"
)

// LexerBudget bounds the work a single construct may consume. A source
// file that blows a limit still tokenizes: the offending construct comes
// back as a TokenUnknownRest covering the remainder of the input.
type LexerBudget struct {
	MaxRegexBytes   int
	MaxHeredocBytes int
	MaxDelimNest    int
	MaxHeredocDepth int
	HeredocTimeout  time.Duration
}

func DefaultLexerBudget() LexerBudget {
	return LexerBudget{
		MaxRegexBytes:   64 * 1024,
		MaxHeredocBytes: 256 * 1024,
		MaxDelimNest:    128,
		MaxHeredocDepth: 100,
		HeredocTimeout:  5 * time.Second,
	}
}

// pendingHeredoc is a heredoc whose start tag has been lexed but whose
// body has not. Bodies begin at the next line start, in queue order.
type pendingHeredoc struct {
	label       string
	indented    bool
	interpolate bool
	startOffset int
}

type Lexer struct {
	src         string
	pos         int
	mode        LexerMode
	pending     []pendingHeredoc
	delimStack  []rune
	formatStage int
	budget      LexerBudget
	started     time.Time
	eofEmitted  bool
}

func NewLexer(src string) *Lexer {
	return &Lexer{
		src:     src,
		mode:    ModeExpectTerm,
		budget:  DefaultLexerBudget(),
		started: time.Now(),
	}
}

func (l *Lexer) SetBudget(b LexerBudget) { l.budget = b }

func (l *Lexer) Mode() LexerMode { return l.mode }

// Checkpoint snapshots the lexer so it can be restored later. The
// formatStage detail is collapsed into FormatPending; restoring a
// checkpoint taken at a clean boundary is exact.
func (l *Lexer) Checkpoint() LexerCheckpoint {
	return LexerCheckpoint{
		Offset:          l.pos,
		Mode:            l.mode,
		DelimStack:      append([]rune(nil), l.delimStack...),
		PendingHeredocs: append([]pendingHeredoc(nil), l.pending...),
		FormatPending:   l.formatStage != 0,
	}.clone()
}

func (l *Lexer) Restore(cp LexerCheckpoint) {
	l.pos = cp.Offset
	l.mode = cp.Mode
	l.delimStack = append(l.delimStack[:0], cp.DelimStack...)
	l.pending = append(l.pending[:0], cp.PendingHeredocs...)
	l.formatStage = 0
	if cp.FormatPending {
		l.formatStage = 2
	}
	l.eofEmitted = false
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	ch := l.src[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) advanceN(n int) {
	l.pos += n
	if l.pos > len(l.src) {
		l.pos = len(l.src)
	}
}

func (l *Lexer) atLineStart() bool {
	return l.pos == 0 || l.src[l.pos-1] == '\n'
}

func (l *Lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Text: l.src[start:l.pos], Start: start, End: l.pos}
}

func (l *Lexer) errorToken(kind TokenKind, start int, errKind ParseErrorKind, msg string) Token {
	tok := l.token(kind, start)
	tok.Err = &ParseError{
		Kind:    errKind,
		Message: msg,
		Span:    Span{Start: start, End: l.pos},
	}
	return tok
}

// unknownRest consumes everything to EOF. Emitted when a budget limit is
// exceeded so the caller still sees the whole input covered by tokens.
func (l *Lexer) unknownRest(start int, errKind ParseErrorKind, msg string) Token {
	l.pos = len(l.src)
	l.pending = l.pending[:0]
	l.delimStack = l.delimStack[:0]
	return l.errorToken(TokenUnknownRest, start, errKind, msg)
}

// NextToken returns the next token, including trivia (whitespace,
// comments, POD). Callers that do not want trivia filter with IsTrivia.
// Every byte of the input is covered by exactly one token.
func (l *Lexer) NextToken() Token {
	if l.mode == ModeInDataSection && l.pos < len(l.src) {
		return l.scanDataBody()
	}

	if l.atLineStart() && l.pos < len(l.src) {
		if len(l.pending) > 0 {
			return l.emit(l.scanHeredocBody())
		}
		if l.mode == ModeInFormatBody {
			return l.emit(l.scanFormatBody())
		}
		if l.peek() == '=' && isIdentStart(l.peekN(1)) {
			return l.scanPod()
		}
	}

	if l.pos >= len(l.src) {
		if len(l.pending) > 0 {
			start := l.pending[0].startOffset
			l.pending = l.pending[:0]
			tok := Token{Kind: TokenError, Start: l.pos, End: l.pos}
			tok.Err = &ParseError{
				Kind:    ErrUnclosedDelimiter,
				Message: "heredoc body never terminated",
				Span:    Span{Start: start, End: l.pos},
			}
			return tok
		}
		l.eofEmitted = true
		return Token{Kind: TokenEOF, Start: l.pos, End: l.pos}
	}

	ch := l.peek()

	if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
		return l.scanWhitespace()
	}
	if ch == '#' {
		return l.scanComment()
	}

	if isIdentStart(ch) {
		return l.emit(l.scanIdentOrKeyword())
	}
	if isDigit(ch) {
		return l.emit(l.scanNumber())
	}

	switch ch {
	case '\'', '"', '`':
		return l.emit(l.scanStringLiteral())
	case '$', '@':
		return l.emit(l.scanVariable())
	case '%':
		if l.mode == ModeExpectTerm && isSigilFollower(l.peekN(1)) {
			return l.emit(l.scanVariable())
		}
	case '&':
		if l.mode == ModeExpectTerm && isIdentStart(l.peekN(1)) {
			return l.emit(l.scanVariable())
		}
	case '/':
		if l.mode == ModeExpectTerm {
			return l.emit(l.scanBareMatch())
		}
	case '<':
		if l.mode == ModeExpectTerm && l.peekN(1) == '<' && l.looksLikeHeredoc() {
			return l.emit(l.scanHeredocStart())
		}
		if l.mode == ModeExpectTerm {
			if end, ok := l.readlineEnd(); ok {
				start := l.pos
				l.pos = end
				return l.emit(l.token(TokenString, start))
			}
		}
	case '-':
		if l.mode == ModeExpectTerm && isFileTestLetter(l.peekN(1)) && !isIdentContinue(l.peekN(2)) {
			start := l.pos
			l.advanceN(2)
			return l.emit(l.token(TokenFileTest, start))
		}
	}

	return l.emit(l.scanOperator())
}

// emit applies the mode transition for a freshly scanned token and keeps
// the format-declaration state machine moving.
func (l *Lexer) emit(tok Token) Token {
	if tok.IsTrivia() {
		return tok
	}
	switch {
	case tok.Kind == TokenFormat:
		l.formatStage = 1
	case l.formatStage == 1 && tok.Kind == TokenIdent:
		l.formatStage = 2
	case l.formatStage >= 1 && tok.Kind == TokenOperator && tok.Text == "=":
		l.formatStage = 0
		l.mode = ModeInFormatBody
		return tok
	default:
		l.formatStage = 0
	}
	if tok.Kind == TokenDataMarker {
		l.mode = ModeInDataSection
		return tok
	}
	if l.mode != ModeInFormatBody && l.mode != ModeInDataSection {
		l.mode = modeAfter(tok, l.mode)
	}
	return tok
}

func (l *Lexer) scanWhitespace() Token {
	start := l.pos
	for {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' {
			l.advance()
			continue
		}
		if ch == '\n' {
			l.advance()
			// Pending heredoc bodies start at the next line, so the
			// whitespace run must not swallow it.
			if len(l.pending) > 0 || l.mode == ModeInFormatBody {
				break
			}
			continue
		}
		break
	}
	return l.token(TokenWhitespace, start)
}

func (l *Lexer) scanComment() Token {
	start := l.pos
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
	return l.token(TokenComment, start)
}

// scanPod consumes a POD block: from a line-start "=word" through the
// line containing "=cut" (inclusive), or to EOF.
func (l *Lexer) scanPod() Token {
	start := l.pos
	for l.pos < len(l.src) {
		lineStart := l.pos
		for l.pos < len(l.src) && l.peek() != '\n' {
			l.advance()
		}
		line := l.src[lineStart:l.pos]
		if l.pos < len(l.src) {
			l.advance()
		}
		if strings.HasPrefix(line, "=cut") && lineStart != start {
			break
		}
	}
	return l.token(TokenPod, start)
}

func (l *Lexer) scanDataBody() Token {
	start := l.pos
	l.pos = len(l.src)
	return l.token(TokenDataBody, start)
}

func (l *Lexer) scanIdentOrKeyword() Token {
	start := l.pos
	for isIdentContinue(l.peek()) {
		l.advance()
	}
	// Package-qualified names: Foo::Bar::baz stays one identifier.
	for l.peek() == ':' && l.peekN(1) == ':' && isIdentStart(l.peekN(2)) {
		l.advanceN(2)
		for isIdentContinue(l.peek()) {
			l.advance()
		}
	}
	word := l.src[start:l.pos]

	// v-strings: v5.10.1 is a version literal, not an identifier.
	if len(word) >= 2 && word[0] == 'v' && allDigits(word[1:]) && l.peek() == '.' && isDigit(l.peekN(1)) {
		for l.peek() == '.' && isDigit(l.peekN(1)) {
			l.advance()
			for isDigit(l.peek()) {
				l.advance()
			}
		}
		return l.token(TokenNumber, start)
	}

	if (word == "__DATA__" || word == "__END__") && l.wasLineStart(start) && l.atLineEndAfterMarker() {
		return l.token(TokenDataMarker, start)
	}

	if l.mode == ModeExpectTerm {
		if kind, ok := quoteLikeOps[word]; ok && l.quoteFollows() {
			return l.scanQuoteLike(start, word, kind)
		}
	}

	return Token{Kind: LookupKeyword(word), Text: word, Start: start, End: l.pos}
}

func (l *Lexer) wasLineStart(offset int) bool {
	return offset == 0 || l.src[offset-1] == '\n'
}

func (l *Lexer) atLineEndAfterMarker() bool {
	i := l.pos
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t' || l.src[i] == '\r') {
		i++
	}
	return i >= len(l.src) || l.src[i] == '\n'
}

var quoteLikeOps = map[string]TokenKind{
	"q":  TokenString,
	"qq": TokenString,
	"qw": TokenQwList,
	"qr": TokenMatch,
	"m":  TokenMatch,
	"s":  TokenSubstitution,
	"tr": TokenTransliterate,
	"y":  TokenTransliterate,
}

// quoteFollows reports whether the character after the current position
// opens a quote-like construct rather than leaving the word a plain
// identifier. A fat comma after the word (s => 1) keeps it an identifier,
// as does "#" after whitespace, which starts a comment.
func (l *Lexer) quoteFollows() bool {
	i := l.pos
	sawSpace := false
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
		sawSpace = true
	}
	if i >= len(l.src) {
		return false
	}
	c := l.src[i]
	if c == '=' {
		if i+1 < len(l.src) && l.src[i+1] == '>' {
			return false
		}
		// "=" alone is assignment to the result of a call, not a delimiter.
		if i+1 >= len(l.src) || l.src[i+1] != '=' {
			return false
		}
	}
	if sawSpace && c == '#' {
		return false
	}
	if c == ',' || c == ';' || c == ')' || c == '}' {
		return false
	}
	return isDelimiterByte(c)
}

// scanQuoteLike consumes the full quote-like construct (delimiters,
// body, second body for s/tr/y, modifiers) as a single token.
func (l *Lexer) scanQuoteLike(start int, word string, kind TokenKind) Token {
	for l.peek() == ' ' || l.peek() == '\t' {
		l.advance()
	}
	open := rune(l.peek())
	if !isDelimiterByte(byte(open)) {
		return Token{Kind: TokenIdent, Text: l.src[start:l.pos], Start: start, End: l.pos}
	}
	if err := l.consumeDelimited(open); err != nil {
		return l.unknownRest(start, err.Kind, err.Message)
	}
	twoPart := kind == TokenSubstitution || kind == TokenTransliterate
	if twoPart {
		if isPairedDelimiter(open) {
			for l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\n' || l.peek() == '\r' {
				l.advance()
			}
			replOpen := rune(l.peek())
			if isDelimiterByte(byte(replOpen)) {
				if err := l.consumeDelimited(replOpen); err != nil {
					return l.unknownRest(start, err.Kind, err.Message)
				}
			} else {
				return l.errorToken(kind, start, ErrUnclosedDelimiter, "missing replacement part")
			}
		} else {
			if err := l.consumeUntil(byte(closingDelimiter(open))); err != nil {
				return l.unknownRest(start, err.Kind, err.Message)
			}
		}
	}
	if kind == TokenMatch || kind == TokenSubstitution || kind == TokenTransliterate {
		for isModifierByte(l.peek()) {
			l.advance()
		}
	}
	return l.token(kind, start)
}

// consumeDelimited eats one delimiter-bounded section starting at the
// opening delimiter. Paired delimiters nest; nesting depth and total
// size are budgeted.
func (l *Lexer) consumeDelimited(open rune) *ParseError {
	start := l.pos
	close := byte(closingDelimiter(open))
	paired := isPairedDelimiter(open)
	l.advance()
	l.delimStack = append(l.delimStack, open)
	defer func() { l.delimStack = l.delimStack[:len(l.delimStack)-1] }()

	depth := 1
	for l.pos < len(l.src) {
		if l.pos-start > l.budget.MaxRegexBytes {
			return &ParseError{
				Kind:    ErrInvalidRegex,
				Message: "quoted construct exceeds size limit",
				Span:    Span{Start: start, End: l.pos},
			}
		}
		ch := l.advance()
		if ch == '\\' {
			l.advance()
			continue
		}
		if paired && ch == byte(open) {
			depth++
			if depth+len(l.delimStack)-1 > l.budget.MaxDelimNest {
				return &ParseError{
					Kind:    ErrNestingTooDeep,
					Message: "delimiter nesting too deep",
					Span:    Span{Start: start, End: l.pos},
				}
			}
			continue
		}
		if ch == close {
			depth--
			if !paired || depth == 0 {
				return nil
			}
		}
	}
	return &ParseError{
		Kind:    ErrUnclosedDelimiter,
		Message: "unterminated quoted construct",
		Span:    Span{Start: start, End: l.pos},
	}
}

// consumeUntil eats bytes through an unescaped close byte. Used for the
// replacement part of a same-delimiter substitution, where the pattern's
// closing delimiter doubles as the replacement's opener.
func (l *Lexer) consumeUntil(close byte) *ParseError {
	start := l.pos
	for l.pos < len(l.src) {
		if l.pos-start > l.budget.MaxRegexBytes {
			return &ParseError{
				Kind:    ErrInvalidRegex,
				Message: "quoted construct exceeds size limit",
				Span:    Span{Start: start, End: l.pos},
			}
		}
		ch := l.advance()
		if ch == '\\' {
			l.advance()
			continue
		}
		if ch == close {
			return nil
		}
	}
	return &ParseError{
		Kind:    ErrUnclosedDelimiter,
		Message: "unterminated quoted construct",
		Span:    Span{Start: start, End: l.pos},
	}
}

func (l *Lexer) scanBareMatch() Token {
	start := l.pos
	if err := l.consumeDelimited('/'); err != nil {
		return l.unknownRest(start, err.Kind, err.Message)
	}
	for isModifierByte(l.peek()) {
		l.advance()
	}
	return l.token(TokenMatch, start)
}

func (l *Lexer) scanStringLiteral() Token {
	start := l.pos
	quote := l.advance()
	for l.pos < len(l.src) {
		ch := l.advance()
		if ch == '\\' && quote != '\'' {
			l.advance()
			continue
		}
		if ch == '\\' && quote == '\'' && (l.peek() == '\'' || l.peek() == '\\') {
			l.advance()
			continue
		}
		if ch == quote {
			return l.token(TokenString, start)
		}
	}
	return l.errorToken(TokenString, start, ErrInvalidString, "unterminated string literal")
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.advanceN(2)
		for isHexDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		return l.token(TokenNumber, start)
	}
	if l.peek() == '0' && (l.peekN(1) == 'b' || l.peekN(1) == 'B') {
		l.advanceN(2)
		for l.peek() == '0' || l.peek() == '1' || l.peek() == '_' {
			l.advance()
		}
		return l.token(TokenNumber, start)
	}
	for isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekN(1)) {
		l.advance()
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peekN(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekN(2))) {
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return l.token(TokenNumber, start)
}

// scanVariable scans a sigil plus name: $foo, @Foo::bar, %h, $_, $$,
// punctuation variables, ${...}, $#array, and dereference forms like $$ref.
func (l *Lexer) scanVariable() Token {
	start := l.pos
	sigil := l.advance()

	if sigil == '$' && l.peek() == '#' && (isIdentStart(l.peekN(1)) || l.peekN(1) == '{' || l.peekN(1) == '$') {
		l.advance()
	}

	// Chained dereference sigils: $$ref, @$ref, $$$ref.
	for l.peek() == '$' && (isIdentStart(l.peekN(1)) || l.peekN(1) == '$' || l.peekN(1) == '{') {
		l.advance()
	}

	switch {
	case l.peek() == '{':
		depth := 0
		for l.pos < len(l.src) {
			ch := l.advance()
			if ch == '{' {
				depth++
			} else if ch == '}' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if depth != 0 {
			return l.errorToken(TokenVariable, start, ErrUnclosedDelimiter, "unterminated braced variable name")
		}
	case isIdentStart(l.peek()):
		for isIdentContinue(l.peek()) {
			l.advance()
		}
		for l.peek() == ':' && l.peekN(1) == ':' && isIdentStart(l.peekN(2)) {
			l.advanceN(2)
			for isIdentContinue(l.peek()) {
				l.advance()
			}
		}
	case sigil == '$' && isPunctVariable(l.peek()):
		l.advance()
	case sigil == '$' && isDigit(l.peek()):
		for isDigit(l.peek()) {
			l.advance()
		}
	case sigil == '@' && l.peek() == '_':
		l.advance()
	default:
		if l.pos == start+1 && sigil != '$' {
			// Bare @ or % with nothing attachable: operator territory.
			return l.token(TokenOperator, start)
		}
	}
	return l.token(TokenVariable, start)
}

// readlineEnd matches a readline or glob construct in term position:
// <>, <STDIN>, <$fh>. Returns the offset just past the closing '>'.
func (l *Lexer) readlineEnd() (int, bool) {
	i := l.pos + 1
	if i < len(l.src) && l.src[i] == '$' {
		i++
	}
	for i < len(l.src) && isIdentContinue(l.src[i]) {
		i++
	}
	if i < len(l.src) && l.src[i] == '>' {
		return i + 1, true
	}
	return 0, false
}

// looksLikeHeredoc checks that "<<" begins a heredoc tag rather than a
// left shift mistakenly reached in term position.
func (l *Lexer) looksLikeHeredoc() bool {
	i := l.pos + 2
	if i < len(l.src) && l.src[i] == '~' {
		i++
	}
	if i >= len(l.src) {
		return false
	}
	c := l.src[i]
	return isIdentStart(c) || c == '"' || c == '\'' || c == '`' || c == '\\'
}

func (l *Lexer) scanHeredocStart() Token {
	start := l.pos
	l.advanceN(2)
	indented := false
	if l.peek() == '~' {
		indented = true
		l.advance()
	}
	interpolate := true
	var label string
	switch c := l.peek(); {
	case c == '"' || c == '\'' || c == '`':
		quote := l.advance()
		labelStart := l.pos
		for l.pos < len(l.src) && l.peek() != quote && l.peek() != '\n' {
			l.advance()
		}
		label = l.src[labelStart:l.pos]
		if l.peek() != quote {
			return l.errorToken(TokenHeredocStart, start, ErrUnclosedDelimiter, "unterminated heredoc label")
		}
		l.advance()
		interpolate = quote != '\''
	case c == '\\':
		l.advance()
		labelStart := l.pos
		for isIdentContinue(l.peek()) {
			l.advance()
		}
		label = l.src[labelStart:l.pos]
		interpolate = false
	default:
		labelStart := l.pos
		for isIdentContinue(l.peek()) {
			l.advance()
		}
		label = l.src[labelStart:l.pos]
	}
	if label == "" {
		return l.errorToken(TokenHeredocStart, start, ErrSyntax, "empty heredoc label")
	}
	if len(l.pending) >= l.budget.MaxHeredocDepth {
		return l.unknownRest(start, ErrNestingTooDeep, "too many pending heredocs")
	}
	l.pending = append(l.pending, pendingHeredoc{
		label:       label,
		indented:    indented,
		interpolate: interpolate,
		startOffset: start,
	})
	return l.token(TokenHeredocStart, start)
}

// scanHeredocBody consumes one pending heredoc body: every line from the
// current line start through the terminator line, inclusive.
func (l *Lexer) scanHeredocBody() Token {
	hd := l.pending[0]
	l.pending = l.pending[1:]
	start := l.pos
	for l.pos < len(l.src) {
		if l.pos-start > l.budget.MaxHeredocBytes {
			return l.unknownRest(start, ErrInvalidString, "heredoc body exceeds size limit")
		}
		if time.Since(l.started) > l.budget.HeredocTimeout {
			return l.unknownRest(start, ErrLexer, "heredoc scanning timed out")
		}
		lineStart := l.pos
		for l.pos < len(l.src) && l.peek() != '\n' {
			l.advance()
		}
		line := strings.TrimRight(l.src[lineStart:l.pos], "\r")
		if l.pos < len(l.src) {
			l.advance()
		}
		if hd.indented {
			line = strings.TrimLeft(line, " \t")
		}
		if line == hd.label {
			return l.token(TokenHeredocBody, start)
		}
	}
	return l.errorToken(TokenHeredocBody, start, ErrUnclosedDelimiter,
		"heredoc body missing terminator "+hd.label)
}

// scanFormatBody consumes a format template: every line through the
// terminating "." line, inclusive.
func (l *Lexer) scanFormatBody() Token {
	start := l.pos
	for l.pos < len(l.src) {
		lineStart := l.pos
		for l.pos < len(l.src) && l.peek() != '\n' {
			l.advance()
		}
		line := strings.TrimRight(l.src[lineStart:l.pos], "\r")
		if l.pos < len(l.src) {
			l.advance()
		}
		if line == "." {
			l.mode = ModeExpectTerm
			return l.token(TokenFormatBody, start)
		}
	}
	l.mode = ModeExpectTerm
	return l.errorToken(TokenFormatBody, start, ErrUnclosedDelimiter, "format body missing terminating dot")
}

// operatorTexts are tried longest first so "<=>" wins over "<=" and "<".
var operatorTexts = []string{
	"<=>", "**=", "||=", "&&=", "//=", "<<=", ">>=", "...",
	"->", "=>", "==", "!=", "<=", ">=", "=~", "!~", "**", "++", "--",
	"&&", "||", "//", "<<", ">>", "..", "+=", "-=", "*=", "/=", "%=",
	".=", "x=", "|=", "&=", "^=",
	"+", "-", "*", "/", "%", ".", "!", "~", "=", "<", ">", "?", ":",
	"&", "|", "^", "\\", ",", ";", "(", ")", "{", "}", "[", "]", "@",
}

func (l *Lexer) scanOperator() Token {
	start := l.pos
	rest := l.src[l.pos:]
	for _, op := range operatorTexts {
		if strings.HasPrefix(rest, op) {
			l.advanceN(len(op))
			switch op {
			case "(":
				return l.token(TokenLParen, start)
			case ")":
				return l.token(TokenRParen, start)
			case "{":
				return l.token(TokenLBrace, start)
			case "}":
				return l.token(TokenRBrace, start)
			case "[":
				return l.token(TokenLBracket, start)
			case "]":
				return l.token(TokenRBracket, start)
			case ";":
				return l.token(TokenSemicolon, start)
			case ",":
				return l.token(TokenComma, start)
			case "=>":
				return l.token(TokenFatComma, start)
			case "->":
				return l.token(TokenArrow, start)
			case "/":
				return l.token(TokenSlash, start)
			}
			return l.token(TokenOperator, start)
		}
	}
	l.advance()
	return l.errorToken(TokenError, start, ErrLexer, "unexpected character "+l.src[start:l.pos])
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentContinue(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isModifierByte(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// isDelimiterByte reports whether c may open a quote-like construct.
func isDelimiterByte(c byte) bool {
	if c == 0 || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
		return false
	}
	return !isIdentContinue(c)
}

func isSigilFollower(c byte) bool {
	return isIdentStart(c) || c == '{' || c == '$'
}

func isPunctVariable(c byte) bool {
	switch c {
	case '_', '&', '`', '\'', '+', '!', '@', '/', '\\', ',', '.', ';',
		'$', '<', '>', '(', ')', '[', ']', '^', '0', ':', '?':
		return true
	}
	return false
}

const fileTestLetters = "efdlpSbcugkrwxoRWXOszMATtn"

func isFileTestLetter(c byte) bool {
	return strings.IndexByte(fileTestLetters, c) >= 0
}

// LexOption configures Tokenize.
type LexOption func(*lexConfig)

type lexConfig struct {
	trivia bool
	budget LexerBudget
	cache  *CheckpointCache
}

// WithTriviaTokens keeps whitespace, comment and POD tokens in the output.
func WithTriviaTokens() LexOption {
	return func(c *lexConfig) { c.trivia = true }
}

func WithLexerBudget(b LexerBudget) LexOption {
	return func(c *lexConfig) { c.budget = b }
}

// WithCheckpointCache records lexer checkpoints at top-level statement
// boundaries into cache while tokenizing.
func WithCheckpointCache(cache *CheckpointCache) LexOption {
	return func(c *lexConfig) { c.cache = cache }
}

// Tokenize lexes src to EOF. The returned slice always ends with a
// TokenEOF. Trivia tokens are dropped unless WithTriviaTokens is given.
func Tokenize(src string, opts ...LexOption) []Token {
	cfg := lexConfig{budget: DefaultLexerBudget()}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := NewLexer(src)
	l.SetBudget(cfg.budget)

	var tokens []Token
	braceDepth := 0
	for {
		tok := l.NextToken()
		if tok.IsTrivia() {
			if cfg.trivia {
				tokens = append(tokens, tok)
			}
			continue
		}
		tokens = append(tokens, tok)
		switch tok.Kind {
		case TokenLBrace:
			braceDepth++
		case TokenRBrace:
			if braceDepth > 0 {
				braceDepth--
			}
		}
		if cfg.cache != nil && braceDepth == 0 &&
			(tok.Kind == TokenSemicolon || tok.Kind == TokenRBrace) {
			if cp := l.Checkpoint(); cp.isCleanBoundary() {
				cfg.cache.Record(cp)
			}
		}
		if tok.Kind == TokenEOF || tok.Kind == TokenUnknownRest {
			if tok.Kind == TokenUnknownRest {
				tokens = append(tokens, Token{Kind: TokenEOF, Start: len(src), End: len(src)})
			}
			return tokens
		}
	}
}
