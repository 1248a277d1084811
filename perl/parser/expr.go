package parser

// Binding powers for precedence climbing. Left/right pairs: a right
// binding power below the left one makes the operator right-associative.
const (
	bpLowOr      = 2  // or xor
	bpLowAnd     = 4  // and
	bpLowNot     = 6  // not EXPR
	bpListArgs   = 7  // arguments to a list operator
	bpComma      = 8  // , =>
	bpAssign     = 12 // = += ||= ...
	bpTernary    = 14 // ?:
	bpRange      = 16 // .. ...
	bpOrOr       = 18 // || //
	bpAndAnd     = 20 // &&
	bpBitOr      = 22 // | ^
	bpBitAnd     = 24 // &
	bpEquality   = 26 // == != <=> eq ne cmp
	bpRelational = 28 // < > <= >= lt gt le ge
	bpNamedUnary = 30 // file tests, named unary operators
	bpShift      = 32 // << >>
	bpAdditive   = 34 // + - .
	bpMultiply   = 36 // * / % x
	bpBind       = 38 // =~ !~
	bpUnary      = 40 // ! ~ \ unary + unary -
	bpPower      = 43 // ** (right associative, binds inside unary minus)
)

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	".=": true, "x=": true, "**=": true, "||=": true, "&&=": true,
	"//=": true, "|=": true, "&=": true, "^=": true, "<<=": true, ">>=": true,
}

// infixBP returns the binding powers and node kind for an infix token.
func infixBP(tok Token) (lbp, rbp int, kind NodeKind, ok bool) {
	switch tok.Kind {
	case TokenOr, TokenXor:
		return bpLowOr, bpLowOr + 1, KindBinaryExpr, true
	case TokenAnd:
		return bpLowAnd, bpLowAnd + 1, KindBinaryExpr, true
	case TokenEq, TokenNe, TokenCmp:
		return bpEquality, bpEquality + 1, KindBinaryExpr, true
	case TokenLt, TokenGt, TokenLe, TokenGe:
		return bpRelational, bpRelational + 1, KindBinaryExpr, true
	case TokenX:
		return bpMultiply, bpMultiply + 1, KindBinaryExpr, true
	case TokenSlash:
		return bpMultiply, bpMultiply + 1, KindBinaryExpr, true
	case TokenOperator:
		switch tok.Text {
		case "..", "...":
			return bpRange, bpRange + 1, KindRangeExpr, true
		case "||", "//":
			return bpOrOr, bpOrOr + 1, KindBinaryExpr, true
		case "&&":
			return bpAndAnd, bpAndAnd + 1, KindBinaryExpr, true
		case "|", "^":
			return bpBitOr, bpBitOr + 1, KindBinaryExpr, true
		case "&":
			return bpBitAnd, bpBitAnd + 1, KindBinaryExpr, true
		case "==", "!=", "<=>":
			return bpEquality, bpEquality + 1, KindBinaryExpr, true
		case "<", ">", "<=", ">=":
			return bpRelational, bpRelational + 1, KindBinaryExpr, true
		case "<<", ">>":
			return bpShift, bpShift + 1, KindBinaryExpr, true
		case "+", "-", ".":
			return bpAdditive, bpAdditive + 1, KindBinaryExpr, true
		case "*", "%":
			return bpMultiply, bpMultiply + 1, KindBinaryExpr, true
		case "=~", "!~":
			return bpBind, bpBind + 1, KindMatchBind, true
		case "**":
			return bpPower, bpPower - 1, KindBinaryExpr, true
		}
		if assignOps[tok.Text] {
			return bpAssign, bpAssign - 1, KindAssignExpr, true
		}
	}
	return 0, 0, KindError, false
}

func (p *Parser) parseExpression() *Node {
	return p.parseExprBP(0)
}

func (p *Parser) parseExprBP(minBP int) *Node {
	if !p.enterDepth() {
		return p.depthError()
	}
	defer p.exitDepth()

	left := p.parseUnary()

	for {
		if p.state == stateBudgetExhausted {
			return left
		}
		tok := p.peek()

		if (tok.Kind == TokenComma || tok.Kind == TokenFatComma) && bpComma >= minBP {
			left = p.parseListTail(left)
			continue
		}

		if tok.Kind == TokenOperator && tok.Text == "?" && bpTernary >= minBP {
			left = p.parseTernaryTail(left)
			continue
		}

		lbp, rbp, kind, ok := infixBP(tok)
		if !ok || lbp < minBP {
			return left
		}
		op := p.advance()
		node := &Node{Kind: kind, Span: Span{Start: left.Span.Start}, Token: &op}
		node.AddChild(left)
		node.AddChild(p.parseExprBP(rbp))
		p.finishNode(node)
		left = node
	}
}

// parseListTail folds a comma-joined sequence into one ListExpr. A
// trailing comma before a closer is allowed.
func (p *Parser) parseListTail(first *Node) *Node {
	node := &Node{Kind: KindListExpr, Span: Span{Start: first.Span.Start}}
	node.AddChild(first)
	for p.check(TokenComma) || p.check(TokenFatComma) {
		p.advance()
		if !p.canStartTerm() {
			break
		}
		node.AddChild(p.parseExprBP(bpComma + 1))
	}
	return p.finishNode(node)
}

func (p *Parser) parseTernaryTail(cond *Node) *Node {
	node := &Node{Kind: KindTernaryExpr, Span: Span{Start: cond.Span.Start}}
	node.AddChild(cond)
	p.advance() // '?'
	node.AddChild(p.parseExprBP(bpComma + 1))
	if p.checkOp(":") {
		p.advance()
		node.AddChild(p.parseExprBP(bpTernary - 1))
	} else {
		node.AddChild(p.errorNode("expected ':' in ternary expression", statementSync))
	}
	return p.finishNode(node)
}

func (p *Parser) parseUnary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case TokenNot:
		op := p.advance()
		node := &Node{Kind: KindUnaryExpr, Span: Span{Start: op.Start}, Token: &op}
		node.AddChild(p.parseExprBP(bpLowNot))
		return p.finishNode(node)
	case TokenOperator:
		switch tok.Text {
		case "!", "~", "\\", "-", "+", "++", "--":
			op := p.advance()
			node := &Node{Kind: KindUnaryExpr, Span: Span{Start: op.Start}, Token: &op}
			node.AddChild(p.parseExprBP(bpUnary))
			return p.finishNode(node)
		}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary plus its postfix chain: arrow derefs,
// method calls, direct subscripts, and ++/--.
func (p *Parser) parsePostfix() *Node {
	left := p.parsePrimary()
	for {
		if p.state == stateBudgetExhausted {
			return left
		}
		switch {
		case p.check(TokenArrow):
			left = p.parseArrowTail(left)
		case p.check(TokenLBracket) && subscriptable(left):
			node := &Node{Kind: KindIndexExpr, Span: Span{Start: left.Span.Start}}
			node.AddChild(left)
			p.advance()
			if !p.check(TokenRBracket) {
				node.AddChild(p.parseExpression())
			}
			if p.expect(TokenRBracket) == nil {
				node.AddChild(p.errorNode("expected ']' to close index", statementSync, TokenRBracket))
			}
			left = p.finishNode(node)
		case p.check(TokenLBrace) && subscriptable(left):
			node := &Node{Kind: KindKeyExpr, Span: Span{Start: left.Span.Start}}
			node.AddChild(left)
			p.advance()
			node.AddChild(p.parseHashKey())
			if p.expect(TokenRBrace) == nil {
				node.AddChild(p.errorNode("expected '}' to close hash key", statementSync, TokenRBrace))
			}
			left = p.finishNode(node)
		case p.checkOp("++") || p.checkOp("--"):
			op := p.advance()
			node := &Node{Kind: KindPostfixExpr, Span: Span{Start: left.Span.Start}, Token: &op}
			node.AddChild(left)
			left = p.finishNode(node)
		default:
			return left
		}
	}
}

func subscriptable(n *Node) bool {
	switch n.Kind {
	case KindVariable, KindIndexExpr, KindKeyExpr, KindArrowDeref, KindCallExpr, KindMethodCall:
		return true
	}
	return false
}

func (p *Parser) parseArrowTail(left *Node) *Node {
	p.advance() // '->'
	switch {
	case p.check(TokenLBracket):
		node := &Node{Kind: KindIndexExpr, Span: Span{Start: left.Span.Start}}
		node.AddChild(left)
		p.advance()
		if !p.check(TokenRBracket) {
			node.AddChild(p.parseExpression())
		}
		if p.expect(TokenRBracket) == nil {
			node.AddChild(p.errorNode("expected ']' after arrow index", statementSync, TokenRBracket))
		}
		return p.finishNode(node)
	case p.check(TokenLBrace):
		node := &Node{Kind: KindKeyExpr, Span: Span{Start: left.Span.Start}}
		node.AddChild(left)
		p.advance()
		node.AddChild(p.parseHashKey())
		if p.expect(TokenRBrace) == nil {
			node.AddChild(p.errorNode("expected '}' after arrow key", statementSync, TokenRBrace))
		}
		return p.finishNode(node)
	case p.check(TokenLParen):
		node := &Node{Kind: KindCallExpr, Span: Span{Start: left.Span.Start}}
		node.AddChild(left)
		node.AddChild(p.parseParenExpr())
		return p.finishNode(node)
	case p.check(TokenIdent) || p.check(TokenVariable):
		node := &Node{Kind: KindMethodCall, Span: Span{Start: left.Span.Start}}
		node.AddChild(left)
		name := p.advance()
		kind := KindIdentifier
		if name.Kind == TokenVariable {
			kind = KindVariable
		}
		node.AddChild(&Node{Kind: kind, Span: name.Span(), Token: &name})
		if p.check(TokenLParen) {
			node.AddChild(p.parseParenExpr())
		}
		return p.finishNode(node)
	case p.checkOp("@") || p.checkOp("%") || p.checkOp("*"):
		// Postfix dereference: $ref->@*, $ref->%*.
		node := &Node{Kind: KindArrowDeref, Span: Span{Start: left.Span.Start}}
		node.AddChild(left)
		p.advance()
		if p.checkOp("*") {
			p.advance()
		}
		return p.finishNode(node)
	}
	node := &Node{Kind: KindArrowDeref, Span: Span{Start: left.Span.Start}}
	node.AddChild(left)
	node.AddChild(p.errorNode("expected method name or subscript after '->'", statementSync))
	return p.finishNode(node)
}

// parseHashKey allows the bareword shorthand $h{name} alongside full
// expressions.
func (p *Parser) parseHashKey() *Node {
	if p.check(TokenIdent) && p.peekN(1).Kind == TokenRBrace {
		return p.leaf(KindIdentifier)
	}
	if p.check(TokenRBrace) {
		tok := p.peek()
		return &Node{Kind: KindError, Span: tok.Span(), Error: &Error{Message: "empty hash key", Got: &tok}}
	}
	return p.parseExpression()
}

// canStartTerm reports whether the current token can begin a term, which
// drives list-operator argument parsing and trailing-comma detection.
func (p *Parser) canStartTerm() bool {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber, TokenString, TokenVariable, TokenIdent,
		TokenMatch, TokenSubstitution, TokenTransliterate, TokenQwList,
		TokenHeredocStart, TokenFileTest, TokenLParen, TokenLBracket, TokenLBrace,
		TokenMy, TokenOur, TokenLocal, TokenState,
		TokenSub, TokenDo, TokenNot, TokenReturn:
		return true
	case TokenOperator:
		switch tok.Text {
		case "!", "~", "\\", "-", "+", "++", "--":
			return true
		}
	}
	return false
}

// blockTakingFuncs take a block as their first argument, so a '{' after
// them is a block, not an anonymous hash.
var blockTakingFuncs = map[string]bool{
	"map": true, "grep": true, "sort": true,
}

func (p *Parser) parsePrimary() *Node {
	tok := p.peek()
	switch tok.Kind {
	case TokenNumber, TokenString:
		return p.leaf(KindLiteral)
	case TokenQwList:
		return p.leaf(KindQwList)
	case TokenMatch:
		return p.leaf(KindMatch)
	case TokenSubstitution:
		return p.parseSubstitutionLeaf()
	case TokenTransliterate:
		return p.leaf(KindTransliteration)
	case TokenHeredocStart:
		node := p.leaf(KindHeredoc)
		p.heredocRefs = append(p.heredocRefs, node)
		return node
	case TokenVariable:
		return p.leaf(KindVariable)
	case TokenFileTest:
		node := p.startNode(KindFileTest)
		op := p.advance()
		node.Token = &op
		if p.canStartTerm() {
			node.AddChild(p.parseExprBP(bpNamedUnary))
		}
		return p.finishNode(node)
	case TokenLParen:
		return p.parseParenExpr()
	case TokenLBracket:
		return p.parseAnonArray()
	case TokenLBrace:
		return p.parseAnonHash()
	case TokenMy, TokenOur, TokenLocal, TokenState:
		return p.parseVarDecl()
	case TokenSub:
		return p.parseAnonSub()
	case TokenDo:
		return p.parseDoExpr()
	case TokenReturn:
		node := p.startNode(KindReturnStmt)
		p.advance()
		if p.canStartTerm() {
			node.AddChild(p.parseExprBP(bpListArgs))
		}
		return p.finishNode(node)
	case TokenIdent:
		return p.parseIdentExpr()
	case TokenError, TokenUnknownRest:
		bad := p.advance()
		return &Node{
			Kind:  KindError,
			Span:  bad.Span(),
			Error: &Error{Message: "unrecognized input", Got: &bad},
		}
	}
	return p.errorNode("expected expression", statementSync)
}

// parseSubstitutionLeaf validates the substitution's modifiers and
// structure strictly; a malformed one still yields a node, plus an error.
func (p *Parser) parseSubstitutionLeaf() *Node {
	node := p.leaf(KindSubstitution)
	if _, _, _, err := ExtractSubstitutionPartsStrict(node.Token.Text); err != nil {
		if !p.tracker.ErrorsExhausted(p.budget) {
			p.recordError(&ParseError{
				Kind:    ErrInvalidRegex,
				Message: err.Error(),
				Found:   node.Token.Text,
				Span:    node.Span,
			})
		}
	}
	return node
}

func (p *Parser) parseParenExpr() *Node {
	node := p.startNode(KindParenExpr)
	p.advance()
	if !p.check(TokenRParen) {
		node.AddChild(p.parseExpression())
	}
	if p.expect(TokenRParen) == nil {
		node.AddChild(p.errorNode("expected ')'", statementSync, TokenRParen))
	}
	return p.finishNode(node)
}

func (p *Parser) parseAnonArray() *Node {
	node := p.startNode(KindAnonArray)
	p.advance()
	if !p.check(TokenRBracket) {
		node.AddChild(p.parseExpression())
	}
	if p.expect(TokenRBracket) == nil {
		node.AddChild(p.errorNode("expected ']'", statementSync, TokenRBracket))
	}
	return p.finishNode(node)
}

func (p *Parser) parseAnonHash() *Node {
	node := p.startNode(KindAnonHash)
	p.advance()
	if !p.check(TokenRBrace) {
		node.AddChild(p.parseExpression())
	}
	if p.expect(TokenRBrace) == nil {
		node.AddChild(p.errorNode("expected '}'", statementSync, TokenRBrace))
	}
	return p.finishNode(node)
}

func (p *Parser) parseAnonSub() *Node {
	node := p.startNode(KindAnonSub)
	p.advance()
	if p.check(TokenLParen) {
		node.AddChild(p.parseParenExpr())
	}
	if p.check(TokenLBrace) {
		node.AddChild(p.parseBlock())
	} else {
		node.AddChild(p.errorNode("expected body for anonymous sub", statementSync, TokenLBrace))
	}
	return p.finishNode(node)
}

func (p *Parser) parseDoExpr() *Node {
	node := p.startNode(KindDoBlock)
	p.advance()
	if p.check(TokenLBrace) {
		node.AddChild(p.parseBlock())
	} else if p.canStartTerm() {
		node.AddChild(p.parseExprBP(bpNamedUnary))
	} else {
		node.AddChild(p.errorNode("expected block or expression after 'do'", statementSync, TokenLBrace))
	}
	return p.finishNode(node)
}

// parseIdentExpr handles barewords: plain identifiers, parenthesized
// calls, and list-operator calls where the arguments follow without
// parentheses.
func (p *Parser) parseIdentExpr() *Node {
	name := p.advance()
	ident := &Node{Kind: KindIdentifier, Span: name.Span(), Token: &name}

	// A bareword before => is just a string.
	if p.check(TokenFatComma) {
		return ident
	}

	if p.check(TokenLParen) {
		node := &Node{Kind: KindCallExpr, Span: Span{Start: name.Start}}
		node.AddChild(ident)
		node.AddChild(p.parseParenExpr())
		return p.finishNode(node)
	}

	if p.check(TokenLBrace) && blockTakingFuncs[name.Text] {
		node := &Node{Kind: KindCallExpr, Span: Span{Start: name.Start}}
		node.AddChild(ident)
		node.AddChild(p.parseBlock())
		if p.canStartTerm() {
			node.AddChild(p.parseExprBP(bpListArgs))
		}
		return p.finishNode(node)
	}

	if p.canStartTerm() && !p.ambiguousAfterIdent() {
		node := &Node{Kind: KindCallExpr, Span: Span{Start: name.Start}}
		node.AddChild(ident)
		node.AddChild(p.parseExprBP(bpListArgs))
		return p.finishNode(node)
	}

	return ident
}

// ambiguousAfterIdent: "+" and "-" after a bareword read as binary
// arithmetic, not as a sign on the first list-operator argument.
func (p *Parser) ambiguousAfterIdent() bool {
	tok := p.peek()
	if tok.Kind != TokenOperator {
		return false
	}
	switch tok.Text {
	case "+", "-", "++", "--":
		return true
	}
	return false
}
