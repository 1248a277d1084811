package parser

// Option configures a Parser.
type Option func(*Parser)

// WithBudget replaces the default recovery budget.
func WithBudget(b ParseBudget) Option {
	return func(p *Parser) { p.budget = b }
}

// WithLexBudget replaces the default lexer budget.
func WithLexBudget(b LexerBudget) Option {
	return func(p *Parser) { p.lexBudget = b }
}

// WithTrivia retains whitespace, comments and POD in the token stream and
// attaches leading trivia to nodes, enabling exact source reconstruction.
func WithTrivia() Option {
	return func(p *Parser) { p.trivia = true }
}

// WithCheckpoints records lexer checkpoints at statement boundaries into
// cache while tokenizing.
func WithCheckpoints(cache *CheckpointCache) Option {
	return func(p *Parser) { p.cache = cache }
}

// recoveryState tracks where the parser stands with respect to error
// recovery.
type recoveryState int

const (
	// stateSynchronized: parsing normally at a known-good position.
	stateSynchronized recoveryState = iota
	// stateScanning: an error was just reported and the parser is skipping
	// tokens looking for a synchronization point.
	stateScanning
	// stateBudgetExhausted: a recovery budget ran out; no further recovery
	// is attempted and the rest of the input becomes one Error node.
	stateBudgetExhausted
)

type Parser struct {
	src       string
	budget    ParseBudget
	lexBudget LexerBudget
	trivia    bool
	cache     *CheckpointCache

	tokens    []Token
	allTokens []Token
	bodies    []Token
	pos       int

	tracker     BudgetTracker
	errs        []*ParseError
	state       recoveryState
	terminated  bool
	heredocRefs []*Node
}

// ParseOutput is everything one parse invocation produces. A parse never
// fails outright: malformed input yields a tree with Error nodes plus the
// recorded errors.
type ParseOutput struct {
	Tree            *Node
	Errors          []*ParseError
	Usage           BudgetTracker
	TerminatedEarly bool
	Tokens          []Token
	Source          string
}

// Diagnostics renders the recorded errors with line, column, source line
// and fix suggestions.
func (o *ParseOutput) Diagnostics() []Diagnostic {
	return BuildDiagnostics(o.Errors, o.Source)
}

// Reconstruct rebuilds the original source from the retained token
// stream. Requires a parse with WithTrivia; a stream with coverage gaps
// (trivia dropped) returns "".
func (o *ParseOutput) Reconstruct() string {
	if len(o.Tokens) == 0 {
		return ""
	}
	var b []byte
	next := 0
	for _, tok := range o.Tokens {
		if tok.Start != next {
			return ""
		}
		b = append(b, tok.Text...)
		next = tok.End
	}
	if next != len(o.Source) {
		return ""
	}
	return string(b)
}

func New(src string, opts ...Option) *Parser {
	p := &Parser{
		src:       src,
		budget:    DefaultBudget(),
		lexBudget: DefaultLexerBudget(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse tokenizes and parses src in one call.
func Parse(src string, opts ...Option) *ParseOutput {
	return New(src, opts...).Run()
}

func (p *Parser) Run() *ParseOutput {
	p.tokenize()
	tree := p.parseProgram()
	p.attachHeredocBodies()
	if p.trivia {
		p.attachTrivia(tree)
	}
	return &ParseOutput{
		Tree:            tree,
		Errors:          p.errs,
		Usage:           p.tracker,
		TerminatedEarly: p.terminated,
		Tokens:          p.allTokens,
		Source:          p.src,
	}
}

// tokenize lexes the whole input up front. Heredoc body tokens land in
// the source after the line that opened them, so they interleave with the
// statement's own tokens; they are pulled out into a side list and
// reattached to their Heredoc nodes after parsing.
func (p *Parser) tokenize() {
	lexOpts := []LexOption{WithLexerBudget(p.lexBudget)}
	if p.trivia {
		lexOpts = append(lexOpts, WithTriviaTokens())
	}
	if p.cache != nil {
		lexOpts = append(lexOpts, WithCheckpointCache(p.cache))
	}
	all := Tokenize(p.src, lexOpts...)
	p.allTokens = all
	for _, tok := range all {
		if tok.Err != nil {
			p.errs = append(p.errs, tok.Err)
		}
		if tok.IsTrivia() {
			continue
		}
		if tok.Kind == TokenHeredocBody {
			p.bodies = append(p.bodies, tok)
			continue
		}
		p.tokens = append(p.tokens, tok)
	}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF, Start: len(p.src), End: len(p.src)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Kind: TokenEOF, Start: len(p.src), End: len(p.src)}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) checkOp(text string) bool {
	tok := p.peek()
	return tok.Kind == TokenOperator && tok.Text == text
}

func (p *Parser) expect(kind TokenKind) *Token {
	tok := p.peek()
	if tok.Kind == kind {
		p.advance()
		return &tok
	}
	return nil
}

func (p *Parser) match(kinds ...TokenKind) bool {
	for _, kind := range kinds {
		if p.check(kind) {
			return true
		}
	}
	return false
}

// mustProgress returns a function that checks if the parser has advanced.
// Call it at the start of a loop iteration, then call the returned function
// at the end to break if no progress was made.
func (p *Parser) mustProgress() func() bool {
	saved := p.pos
	return func() bool {
		if p.pos == saved {
			if !p.check(TokenEOF) {
				p.advance()
			}
			return false
		}
		return true
	}
}

func (p *Parser) startNode(kind NodeKind) *Node {
	return &Node{
		Kind: kind,
		Span: Span{Start: p.peek().Start},
	}
}

func (p *Parser) finishNode(n *Node) *Node {
	if p.pos > 0 && p.pos <= len(p.tokens) {
		n.Span.End = p.tokens[p.pos-1].End
	} else if len(p.tokens) > 0 {
		n.Span.End = p.tokens[len(p.tokens)-1].End
	}
	if n.Span.End < n.Span.Start {
		n.Span.End = n.Span.Start
	}
	return n
}

func (p *Parser) leaf(kind NodeKind) *Node {
	tok := p.advance()
	return &Node{Kind: kind, Span: tok.Span(), Token: &tok}
}

func (p *Parser) recordError(err *ParseError) {
	p.tracker.RecordError()
	p.errs = append(p.errs, err)
}

// errorNode reports an error at the current token, then scans forward to
// one of the recoverTo kinds. Budget exhaustion flips the parser into
// stateBudgetExhausted, after which no further recovery happens.
func (p *Parser) errorNode(msg string, recoverTo []TokenKind, expected ...TokenKind) *Node {
	tok := p.peek()
	kind := ErrUnexpectedToken
	if tok.Kind == TokenEOF {
		kind = ErrUnexpectedEOF
	}
	err := &ParseError{
		Kind:     kind,
		Message:  msg,
		Expected: expected,
		Found:    tok.Text,
		Span:     tok.Span(),
	}
	node := &Node{
		Kind: KindError,
		Span: tok.Span(),
		Error: &Error{
			Message:  msg,
			Expected: expected,
			Got:      &tok,
		},
	}
	if p.tracker.ErrorsExhausted(p.budget) {
		p.state = stateBudgetExhausted
		return node
	}
	p.recordError(err)
	p.recoverTo(recoverTo)
	return node
}

// errorNodePartial is errorNode carrying the fragment that was parsed
// before the failure, so tooling still sees the recognized prefix.
func (p *Parser) errorNodePartial(partial *Node, msg string, recoverTo []TokenKind, expected ...TokenKind) *Node {
	node := p.errorNode(msg, recoverTo, expected...)
	node.Error.Partial = partial
	if partial != nil && partial.Span.Start < node.Span.Start {
		node.Span.Start = partial.Span.Start
	}
	return node
}

// recoverTo discards tokens until one of kinds (or EOF) is next. Each
// call is one budgeted recovery attempt; every recovery consumes at least
// one token so the parser always makes progress.
func (p *Parser) recoverTo(kinds []TokenKind) {
	p.state = stateScanning
	if !p.tracker.BeginRecovery(p.budget) {
		p.state = stateBudgetExhausted
		return
	}
	if !p.check(TokenEOF) {
		p.advance()
		p.tracker.RecordSkip(1)
	}
	if len(kinds) == 0 {
		p.state = stateSynchronized
		return
	}
	for !p.check(TokenEOF) {
		for _, kind := range kinds {
			if p.check(kind) {
				p.state = stateSynchronized
				return
			}
		}
		if !p.tracker.CanSkipMore(p.budget, 1) {
			p.state = stateBudgetExhausted
			return
		}
		p.advance()
		p.tracker.RecordSkip(1)
	}
	p.state = stateSynchronized
}

// statementSync are the tokens recovery resynchronizes on: statement
// terminators and tokens that can only begin a new statement.
var statementSync = []TokenKind{
	TokenSemicolon, TokenRBrace, TokenLBrace,
	TokenMy, TokenOur, TokenLocal, TokenState,
	TokenSub, TokenPackage, TokenUse, TokenNo, TokenRequire,
	TokenIf, TokenUnless, TokenWhile, TokenUntil, TokenFor, TokenForeach,
	TokenReturn, TokenLast, TokenNext, TokenRedo, TokenFormat,
}

// enterDepth guards recursive descent. A false return means the depth
// budget would be exceeded; the caller must emit an error leaf instead of
// recursing.
func (p *Parser) enterDepth() bool {
	if p.tracker.DepthWouldExceed(p.budget) {
		return false
	}
	p.tracker.EnterDepth()
	return true
}

func (p *Parser) exitDepth() {
	p.tracker.ExitDepth()
}

func (p *Parser) depthError() *Node {
	tok := p.peek()
	err := &ParseError{
		Kind:    ErrRecursionLimit,
		Message: "nesting too deep",
		Found:   tok.Text,
		Span:    tok.Span(),
	}
	if !p.tracker.ErrorsExhausted(p.budget) {
		p.recordError(err)
	}
	node := &Node{
		Kind:  KindError,
		Span:  tok.Span(),
		Error: &Error{Message: "nesting too deep", Got: &tok},
	}
	// Skip the subtree that would have been parsed, balancing brackets,
	// so the caller resumes at the same level.
	p.skipBalanced()
	return node
}

func (p *Parser) skipBalanced() {
	depth := 0
	for !p.check(TokenEOF) {
		if !p.tracker.CanSkipMore(p.budget, 1) {
			p.state = stateBudgetExhausted
			return
		}
		switch p.peek().Kind {
		case TokenLParen, TokenLBrace, TokenLBracket:
			depth++
		case TokenRParen, TokenRBrace, TokenRBracket:
			if depth == 0 {
				return
			}
			depth--
		case TokenSemicolon:
			if depth == 0 {
				return
			}
		}
		p.advance()
		p.tracker.RecordSkip(1)
	}
}

func (p *Parser) parseProgram() *Node {
	node := p.startNode(KindProgram)
	for !p.check(TokenEOF) {
		if p.state == stateBudgetExhausted {
			node.AddChild(p.exhaustedRest())
			break
		}
		guard := p.mustProgress()
		node.AddChild(p.parseStatement())
		if !guard() {
			continue
		}
	}
	// The program covers the whole source, trailing trivia included, so a
	// spliced tree and a from-scratch tree agree on the root span.
	node.Span = Span{Start: 0, End: len(p.src)}
	return node
}

// exhaustedRest wraps everything from the current token to EOF in a
// single Error node and marks the parse as terminated early.
func (p *Parser) exhaustedRest() *Node {
	start := p.peek()
	node := &Node{
		Kind: KindError,
		Span: Span{Start: start.Start, End: len(p.src)},
		Error: &Error{
			Message: "parse budget exhausted",
			Got:     &start,
		},
	}
	p.pos = len(p.tokens)
	p.terminated = true
	return node
}

func (p *Parser) parseStatement() *Node {
	if !p.enterDepth() {
		return p.depthError()
	}
	defer p.exitDepth()
	p.state = stateSynchronized

	switch p.peek().Kind {
	case TokenSemicolon:
		node := p.startNode(KindEmptyStmt)
		p.advance()
		return p.finishNode(node)
	case TokenLBrace:
		return p.parseBlock()
	case TokenPackage:
		return p.parsePackageDecl()
	case TokenUse, TokenNo:
		return p.parseUseDecl()
	case TokenRequire:
		return p.parseRequireDecl()
	case TokenSub:
		if p.peekN(1).Kind == TokenIdent {
			return p.parseSubDecl()
		}
	case TokenFormat:
		return p.parseFormatDecl()
	case TokenMy, TokenOur, TokenLocal, TokenState:
		return p.parseVarDeclStatement()
	case TokenIf, TokenUnless:
		return p.parseIfStatement()
	case TokenWhile, TokenUntil:
		return p.parseWhileStatement()
	case TokenFor, TokenForeach:
		return p.parseForStatement()
	case TokenReturn:
		return p.parseReturnStatement()
	case TokenLast, TokenNext, TokenRedo:
		return p.parseLoopControlStatement()
	case TokenDataMarker:
		return p.parseDataSection()
	case TokenIdent:
		if p.peekN(1).Kind == TokenOperator && p.peekN(1).Text == ":" {
			return p.parseLabeledStatement()
		}
	case TokenError, TokenUnknownRest:
		tok := p.peek()
		p.advance()
		return &Node{
			Kind:  KindError,
			Span:  tok.Span(),
			Error: &Error{Message: "unrecognized input", Got: &tok},
		}
	}

	return p.parseExpressionStatement()
}

func (p *Parser) parseBlock() *Node {
	if !p.enterDepth() {
		return p.depthError()
	}
	defer p.exitDepth()

	node := p.startNode(KindBlock)
	if p.expect(TokenLBrace) == nil {
		return p.errorNode("expected '{'", statementSync, TokenLBrace)
	}
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		if p.state == stateBudgetExhausted {
			node.AddChild(p.exhaustedRest())
			return p.finishNode(node)
		}
		guard := p.mustProgress()
		node.AddChild(p.parseStatement())
		guard()
	}
	if p.expect(TokenRBrace) == nil {
		node.AddChild(p.errorNode("expected '}' to close block", nil, TokenRBrace))
	}
	return p.finishNode(node)
}

func (p *Parser) parsePackageDecl() *Node {
	node := p.startNode(KindPackageDecl)
	p.advance()
	if name := p.expect(TokenIdent); name != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: name.Span(), Token: name})
	} else {
		node.AddChild(p.errorNode("expected package name", statementSync, TokenIdent))
		return p.finishNode(node)
	}
	// package Foo { ... } block form
	if p.check(TokenLBrace) {
		node.AddChild(p.parseBlock())
		return p.finishNode(node)
	}
	if p.check(TokenNumber) || p.check(TokenString) {
		node.AddChild(p.leaf(KindLiteral))
	}
	p.expectSemicolon(node)
	return p.finishNode(node)
}

func (p *Parser) parseUseDecl() *Node {
	kind := KindUseDecl
	if p.check(TokenNo) {
		kind = KindNoDecl
	}
	node := p.startNode(kind)
	p.advance()
	switch {
	case p.check(TokenIdent):
		node.AddChild(p.leaf(KindIdentifier))
	case p.check(TokenNumber):
		node.AddChild(p.leaf(KindLiteral))
	default:
		node.AddChild(p.errorNode("expected module name or version", statementSync, TokenIdent, TokenNumber))
		return p.finishNode(node)
	}
	// Import list: anything up to the semicolon.
	if !p.check(TokenSemicolon) && !p.check(TokenEOF) {
		node.AddChild(p.parseExpression())
	}
	p.expectSemicolon(node)
	return p.finishNode(node)
}

func (p *Parser) parseRequireDecl() *Node {
	node := p.startNode(KindRequireDecl)
	p.advance()
	switch {
	case p.check(TokenIdent):
		node.AddChild(p.leaf(KindIdentifier))
	case p.check(TokenNumber):
		node.AddChild(p.leaf(KindLiteral))
	case p.check(TokenString):
		node.AddChild(p.leaf(KindLiteral))
	default:
		node.AddChild(p.parseExpression())
	}
	p.expectSemicolon(node)
	return p.finishNode(node)
}

func (p *Parser) parseSubDecl() *Node {
	node := p.startNode(KindSubDecl)
	p.advance()
	if name := p.expect(TokenIdent); name != nil {
		node.AddChild(&Node{Kind: KindIdentifier, Span: name.Span(), Token: name})
	} else {
		node.AddChild(p.errorNode("expected subroutine name", statementSync, TokenIdent))
		return p.finishNode(node)
	}
	// Prototype or signature.
	if p.check(TokenLParen) {
		node.AddChild(p.parseParenExpr())
	}
	// Attributes: ":" ident (args)?
	for p.checkOp(":") && p.peekN(1).Kind == TokenIdent {
		p.advance()
		p.advance()
		if p.check(TokenLParen) {
			p.skipParens()
		}
	}
	switch {
	case p.check(TokenLBrace):
		node.AddChild(p.parseBlock())
	case p.check(TokenSemicolon):
		// Forward declaration.
		p.advance()
	default:
		node.AddChild(p.errorNode("expected subroutine body", statementSync, TokenLBrace, TokenSemicolon))
	}
	return p.finishNode(node)
}

func (p *Parser) skipParens() {
	depth := 0
	for !p.check(TokenEOF) {
		switch p.peek().Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseFormatDecl() *Node {
	node := p.startNode(KindFormatDecl)
	p.advance()
	if p.check(TokenIdent) {
		node.AddChild(p.leaf(KindIdentifier))
	}
	if !p.checkOp("=") {
		node.AddChild(p.errorNode("expected '=' after format name", statementSync))
		return p.finishNode(node)
	}
	p.advance()
	if body := p.expect(TokenFormatBody); body != nil {
		node.AddChild(&Node{Kind: KindLiteral, Span: body.Span(), Token: body})
	} else {
		node.AddChild(p.errorNode("expected format template", statementSync, TokenFormatBody))
	}
	return p.finishNode(node)
}

func (p *Parser) parseDataSection() *Node {
	node := p.startNode(KindDataSection)
	marker := p.advance()
	node.Token = &marker
	if body := p.expect(TokenDataBody); body != nil {
		node.AddChild(&Node{Kind: KindLiteral, Span: body.Span(), Token: body})
	}
	return p.finishNode(node)
}

func (p *Parser) parseVarDeclStatement() *Node {
	node := p.parseVarDecl()
	p.parseStatementModifier(node)
	p.expectSemicolon(node)
	return p.finishNode(node)
}

// parseVarDecl parses my/our/local/state plus target and optional
// initializer, without the trailing semicolon. Also used in for-loop
// headers and expression position.
func (p *Parser) parseVarDecl() *Node {
	node := p.startNode(KindVarDecl)
	declarator := p.advance()
	node.Token = &declarator
	switch {
	case p.check(TokenVariable):
		node.AddChild(p.leaf(KindVariable))
	case p.check(TokenLParen):
		node.AddChild(p.parseParenExpr())
	default:
		node.AddChild(p.errorNode("expected variable after "+declarator.Text, statementSync, TokenVariable, TokenLParen))
		return p.finishNode(node)
	}
	if p.checkOp("=") {
		p.advance()
		node.AddChild(p.parseExpression())
	}
	return p.finishNode(node)
}

func (p *Parser) parseIfStatement() *Node {
	kind := KindIfStmt
	if p.check(TokenUnless) {
		kind = KindUnlessStmt
	}
	node := p.startNode(kind)
	p.advance()
	node.AddChild(p.parseCondition())
	node.AddChild(p.parseBlock())
	for p.check(TokenElsif) {
		clause := p.startNode(KindElsifClause)
		p.advance()
		clause.AddChild(p.parseCondition())
		clause.AddChild(p.parseBlock())
		node.AddChild(p.finishNode(clause))
	}
	if p.check(TokenElse) {
		clause := p.startNode(KindElseClause)
		p.advance()
		clause.AddChild(p.parseBlock())
		node.AddChild(p.finishNode(clause))
	}
	return p.finishNode(node)
}

func (p *Parser) parseCondition() *Node {
	if p.expect(TokenLParen) == nil {
		return p.errorNode("expected '(' before condition", []TokenKind{TokenLBrace, TokenSemicolon}, TokenLParen)
	}
	cond := p.parseExpression()
	if p.expect(TokenRParen) == nil {
		return p.errorNodePartial(cond, "expected ')' after condition", []TokenKind{TokenLBrace, TokenSemicolon}, TokenRParen)
	}
	return cond
}

func (p *Parser) parseWhileStatement() *Node {
	kind := KindWhileStmt
	if p.check(TokenUntil) {
		kind = KindUntilStmt
	}
	node := p.startNode(kind)
	p.advance()
	node.AddChild(p.parseCondition())
	node.AddChild(p.parseBlock())
	p.parseContinueBlock(node)
	return p.finishNode(node)
}

func (p *Parser) parseContinueBlock(node *Node) {
	if p.check(TokenIdent) && p.peek().Text == "continue" && p.peekN(1).Kind == TokenLBrace {
		p.advance()
		node.AddChild(p.parseBlock())
	}
}

func (p *Parser) parseForStatement() *Node {
	// foreach my $x (LIST) BLOCK, foreach $x (LIST) BLOCK, for (LIST) BLOCK
	// versus C-style for (init; cond; step) BLOCK. Disambiguated by
	// looking for the two semicolons inside the parens.
	isForeach := !p.cStyleHeaderFollows()

	if isForeach {
		node := p.startNode(KindForeachStmt)
		p.advance()
		switch {
		case p.match(TokenMy, TokenOur, TokenLocal, TokenState):
			decl := p.startNode(KindVarDecl)
			declarator := p.advance()
			decl.Token = &declarator
			if p.check(TokenVariable) {
				decl.AddChild(p.leaf(KindVariable))
			} else {
				decl.AddChild(p.errorNode("expected loop variable", []TokenKind{TokenLParen}, TokenVariable))
			}
			node.AddChild(p.finishNode(decl))
		case p.check(TokenVariable):
			node.AddChild(p.leaf(KindVariable))
		}
		node.AddChild(p.parseCondition())
		node.AddChild(p.parseBlock())
		p.parseContinueBlock(node)
		return p.finishNode(node)
	}

	node := p.startNode(KindForStmt)
	p.advance()
	p.expect(TokenLParen)
	if !p.check(TokenSemicolon) {
		if p.match(TokenMy, TokenOur, TokenLocal, TokenState) {
			node.AddChild(p.parseVarDecl())
		} else {
			node.AddChild(p.parseExpression())
		}
	} else {
		node.AddChild(&Node{Kind: KindEmptyStmt, Span: p.peek().Span()})
	}
	p.expect(TokenSemicolon)
	if !p.check(TokenSemicolon) {
		node.AddChild(p.parseExpression())
	} else {
		node.AddChild(&Node{Kind: KindEmptyStmt, Span: p.peek().Span()})
	}
	p.expect(TokenSemicolon)
	if !p.check(TokenRParen) {
		node.AddChild(p.parseExpression())
	} else {
		node.AddChild(&Node{Kind: KindEmptyStmt, Span: p.peek().Span()})
	}
	if p.expect(TokenRParen) == nil {
		node.AddChild(p.errorNode("expected ')' to close for header", []TokenKind{TokenLBrace}, TokenRParen))
	}
	node.AddChild(p.parseBlock())
	return p.finishNode(node)
}

// cStyleHeaderFollows looks ahead from a for/foreach token for the
// "(init; cond; step)" shape: an opening paren with two semicolons at
// paren depth one.
func (p *Parser) cStyleHeaderFollows() bool {
	i := p.pos + 1
	switch p.tokenAt(i).Kind {
	case TokenMy, TokenOur, TokenLocal, TokenState, TokenVariable:
		// A loop variable before the paren always means foreach.
		return false
	}
	if p.tokenAt(i).Kind != TokenLParen {
		return false
	}
	depth := 0
	semis := 0
	for ; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return semis == 2
			}
		case TokenSemicolon:
			if depth == 1 {
				semis++
			}
		case TokenLBrace, TokenEOF:
			return semis >= 2
		}
	}
	return false
}

func (p *Parser) tokenAt(i int) Token {
	if i >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[i]
}

func (p *Parser) parseReturnStatement() *Node {
	node := p.startNode(KindReturnStmt)
	p.advance()
	if !p.check(TokenSemicolon) && !p.check(TokenEOF) && !p.check(TokenRBrace) && !p.statementModifierNext() {
		node.AddChild(p.parseExpression())
	}
	p.parseStatementModifier(node)
	p.expectSemicolon(node)
	return p.finishNode(node)
}

func (p *Parser) parseLoopControlStatement() *Node {
	var kind NodeKind
	switch p.peek().Kind {
	case TokenLast:
		kind = KindLastStmt
	case TokenNext:
		kind = KindNextStmt
	default:
		kind = KindRedoStmt
	}
	node := p.startNode(kind)
	p.advance()
	if p.check(TokenIdent) {
		node.AddChild(p.leaf(KindIdentifier))
	}
	p.parseStatementModifier(node)
	p.expectSemicolon(node)
	return p.finishNode(node)
}

func (p *Parser) parseLabeledStatement() *Node {
	node := p.startNode(KindLabeledStmt)
	node.AddChild(p.leaf(KindIdentifier))
	p.advance() // ':'
	node.AddChild(p.parseStatement())
	return p.finishNode(node)
}

func (p *Parser) parseExpressionStatement() *Node {
	node := p.startNode(KindExprStmt)
	node.AddChild(p.parseExpression())
	p.parseStatementModifier(node)
	p.expectSemicolon(node)
	return p.finishNode(node)
}

func (p *Parser) statementModifierNext() bool {
	switch p.peek().Kind {
	case TokenIf, TokenUnless, TokenWhile, TokenUntil, TokenFor, TokenForeach:
		return true
	}
	return false
}

// parseStatementModifier handles the trailing EXPR if COND form shared by
// expression statements and loop controls.
func (p *Parser) parseStatementModifier(node *Node) {
	if !p.statementModifierNext() {
		return
	}
	mod := p.startNode(KindStatementModifier)
	keyword := p.advance()
	mod.Token = &keyword
	mod.AddChild(p.parseExpression())
	node.AddChild(p.finishNode(mod))
}

// expectSemicolon consumes the statement terminator. A missing semicolon
// is an error but never triggers token skipping: whatever follows is
// either a block closer or the start of the next statement, and both are
// already parseable positions.
func (p *Parser) expectSemicolon(node *Node) {
	if p.expect(TokenSemicolon) != nil {
		return
	}
	tok := p.peek()
	// Anchor the error where the semicolon belongs: at the end of the
	// last consumed token, not at whatever happens to follow.
	at := 0
	if p.pos > 0 && p.pos <= len(p.tokens) {
		at = p.tokens[p.pos-1].End
	}
	if !p.tracker.ErrorsExhausted(p.budget) {
		p.recordError(&ParseError{
			Kind:     ErrUnexpectedToken,
			Message:  "missing semicolon",
			Expected: []TokenKind{TokenSemicolon},
			Found:    tok.Text,
			Span:     Span{Start: at, End: at},
		})
	}
}

// attachHeredocBodies pairs heredoc body tokens with the Heredoc nodes
// created during the parse. Start tags and bodies are both encountered in
// source order, so the pairing is positional.
func (p *Parser) attachHeredocBodies() {
	for i, node := range p.heredocRefs {
		if i >= len(p.bodies) {
			break
		}
		body := p.bodies[i]
		node.AddChild(&Node{Kind: KindLiteral, Span: body.Span(), Token: &body})
	}
}

// attachTrivia assigns each run of trivia tokens to the node whose span
// starts at the first non-trivia token after the run. Pre-order ensures
// the outermost such node receives it.
func (p *Parser) attachTrivia(tree *Node) {
	byStart := make(map[int]*Node)
	tree.Walk(func(n *Node) bool {
		if _, seen := byStart[n.Span.Start]; !seen {
			byStart[n.Span.Start] = n
		}
		return true
	})
	var run []Token
	for _, tok := range p.allTokens {
		if tok.IsTrivia() {
			run = append(run, tok)
			continue
		}
		if len(run) > 0 {
			if node, ok := byStart[tok.Start]; ok {
				node.LeadingTrivia = append(node.LeadingTrivia, run...)
			}
			run = nil
		}
	}
}
