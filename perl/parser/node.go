package parser

import "strings"

type NodeKind int

const (
	KindError NodeKind = iota

	// Program level
	KindProgram
	KindPackageDecl
	KindUseDecl
	KindNoDecl
	KindRequireDecl
	KindSubDecl
	KindFormatDecl
	KindDataSection
	KindPod

	// Statements
	KindBlock
	KindEmptyStmt
	KindExprStmt
	KindVarDecl
	KindIfStmt
	KindElsifClause
	KindElseClause
	KindUnlessStmt
	KindWhileStmt
	KindUntilStmt
	KindForStmt
	KindForeachStmt
	KindDoBlock
	KindReturnStmt
	KindLastStmt
	KindNextStmt
	KindRedoStmt
	KindLabeledStmt
	KindStatementModifier

	// Expressions
	KindAssignExpr
	KindTernaryExpr
	KindBinaryExpr
	KindUnaryExpr
	KindPostfixExpr
	KindCallExpr
	KindMethodCall
	KindArrowDeref
	KindIndexExpr
	KindKeyExpr
	KindSliceExpr
	KindAnonArray
	KindAnonHash
	KindAnonSub
	KindListExpr
	KindParenExpr
	KindRangeExpr
	KindMatchBind
	KindLiteral
	KindIdentifier
	KindVariable
	KindFileTest
	KindHeredoc
	KindMatch
	KindSubstitution
	KindTransliteration
	KindQwList
)

var nodeKindNames = map[NodeKind]string{
	KindError:             "Error",
	KindProgram:           "Program",
	KindPackageDecl:       "PackageDecl",
	KindUseDecl:           "UseDecl",
	KindNoDecl:            "NoDecl",
	KindRequireDecl:       "RequireDecl",
	KindSubDecl:           "SubDecl",
	KindFormatDecl:        "FormatDecl",
	KindDataSection:       "DataSection",
	KindPod:               "Pod",
	KindBlock:             "Block",
	KindEmptyStmt:         "EmptyStmt",
	KindExprStmt:          "ExprStmt",
	KindVarDecl:           "VarDecl",
	KindIfStmt:            "IfStmt",
	KindElsifClause:       "ElsifClause",
	KindElseClause:        "ElseClause",
	KindUnlessStmt:        "UnlessStmt",
	KindWhileStmt:         "WhileStmt",
	KindUntilStmt:         "UntilStmt",
	KindForStmt:           "ForStmt",
	KindForeachStmt:       "ForeachStmt",
	KindDoBlock:           "DoBlock",
	KindReturnStmt:        "ReturnStmt",
	KindLastStmt:          "LastStmt",
	KindNextStmt:          "NextStmt",
	KindRedoStmt:          "RedoStmt",
	KindLabeledStmt:       "LabeledStmt",
	KindStatementModifier: "StatementModifier",
	KindAssignExpr:        "AssignExpr",
	KindTernaryExpr:       "TernaryExpr",
	KindBinaryExpr:        "BinaryExpr",
	KindUnaryExpr:         "UnaryExpr",
	KindPostfixExpr:       "PostfixExpr",
	KindCallExpr:          "CallExpr",
	KindMethodCall:        "MethodCall",
	KindArrowDeref:        "ArrowDeref",
	KindIndexExpr:         "IndexExpr",
	KindKeyExpr:           "KeyExpr",
	KindSliceExpr:         "SliceExpr",
	KindAnonArray:         "AnonArray",
	KindAnonHash:          "AnonHash",
	KindAnonSub:           "AnonSub",
	KindListExpr:          "ListExpr",
	KindParenExpr:         "ParenExpr",
	KindRangeExpr:         "RangeExpr",
	KindMatchBind:         "MatchBind",
	KindLiteral:           "Literal",
	KindIdentifier:        "Identifier",
	KindVariable:          "Variable",
	KindFileTest:          "FileTest",
	KindHeredoc:           "Heredoc",
	KindMatch:             "Match",
	KindSubstitution:      "Substitution",
	KindTransliteration:   "Transliteration",
	KindQwList:            "QwList",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error carries what the parser expected and what it found. Partial, when
// set, holds the incomplete node being built when the error struck, so
// tooling can still see the recognized prefix.
type Error struct {
	Message  string
	Expected []TokenKind
	Got      *Token
	Partial  *Node
}

type Node struct {
	Kind     NodeKind
	Span     Span
	Children []*Node
	Token    *Token
	Error    *Error

	// LeadingTrivia holds the whitespace, comment and POD tokens that
	// precede this node's first token. Only populated in trivia mode.
	LeadingTrivia []Token
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

func (n *Node) IsError() bool {
	return n.Kind == KindError
}

func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, child := range n.Children {
		if child.Kind == kind {
			return child
		}
	}
	return nil
}

func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Kind == kind {
			result = append(result, child)
		}
	}
	return result
}

func (n *Node) TokenText() string {
	if n.Token != nil {
		return n.Token.Text
	}
	return ""
}

// Walk calls fn on n and every descendant, pre-order. fn returning false
// prunes the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// NodeAt returns the deepest node whose span contains offset.
func (n *Node) NodeAt(offset int) *Node {
	if n == nil || !n.Span.Contains(offset) {
		return nil
	}
	for _, child := range n.Children {
		if found := child.NodeAt(offset); found != nil {
			return found
		}
	}
	return n
}

// Sexp renders the tree as a tree-sitter style S-expression:
// (kind field: (child ...)), with leaf token text quoted.
func (n *Node) Sexp() string {
	var b strings.Builder
	n.sexp(&b, false)
	return b.String()
}

// SexpWithSpans is Sexp with byte spans after each head:
// (kind [start-end] ...).
func (n *Node) SexpWithSpans() string {
	var b strings.Builder
	n.sexp(&b, true)
	return b.String()
}

func (n *Node) sexp(b *strings.Builder, spans bool) {
	b.WriteByte('(')
	b.WriteString(n.Kind.String())
	if spans {
		b.WriteString(" [")
		b.WriteString(itoa(n.Span.Start))
		b.WriteByte('-')
		b.WriteString(itoa(n.Span.End))
		b.WriteByte(']')
	}
	if n.Token != nil {
		b.WriteByte(' ')
		b.WriteString(quoteAtom(n.Token.Text))
	}
	if n.Error != nil {
		b.WriteString(" (message ")
		b.WriteString(quoteAtom(n.Error.Message))
		b.WriteByte(')')
		if n.Error.Partial != nil {
			b.WriteString(" partial: ")
			n.Error.Partial.sexp(b, spans)
		}
	}
	for i, child := range n.Children {
		b.WriteByte(' ')
		if label := fieldLabel(n.Kind, i, child.Kind); label != "" {
			b.WriteString(label)
			b.WriteString(": ")
		}
		child.sexp(b, spans)
	}
	b.WriteByte(')')
}

// fieldLabel names a positional child the way a tree-sitter grammar
// would. An empty string means the child is printed unlabeled; error
// children stay unlabeled so broken regions do not shift field names.
func fieldLabel(parent NodeKind, i int, child NodeKind) string {
	if child == KindError {
		return ""
	}
	switch parent {
	case KindIfStmt, KindUnlessStmt, KindElsifClause, KindWhileStmt, KindUntilStmt:
		if i == 0 {
			return "condition"
		}
		if child == KindBlock {
			return "body"
		}
	case KindElseClause:
		if child == KindBlock {
			return "body"
		}
	case KindForStmt:
		switch i {
		case 0:
			return "initializer"
		case 1:
			return "condition"
		case 2:
			return "update"
		}
		if child == KindBlock {
			return "body"
		}
	case KindForeachStmt:
		switch child {
		case KindVarDecl, KindVariable:
			return "variable"
		case KindBlock:
			return "body"
		default:
			return "list"
		}
	case KindVarDecl:
		if child == KindStatementModifier {
			return ""
		}
		if i == 0 {
			return "name"
		}
		return "value"
	case KindSubDecl:
		switch child {
		case KindIdentifier:
			return "name"
		case KindBlock:
			return "body"
		}
	case KindAssignExpr, KindBinaryExpr, KindRangeExpr, KindMatchBind:
		switch i {
		case 0:
			return "left"
		case 1:
			return "right"
		}
	case KindTernaryExpr:
		switch i {
		case 0:
			return "condition"
		case 1:
			return "consequence"
		case 2:
			return "alternative"
		}
	case KindUnaryExpr, KindPostfixExpr:
		return "operand"
	case KindCallExpr:
		if i == 0 {
			return "function"
		}
		return "arguments"
	case KindMethodCall:
		if i == 0 {
			return "invocant"
		}
		if i == 1 {
			return "method"
		}
		return "arguments"
	case KindIndexExpr:
		if i == 0 {
			return "argument"
		}
		return "index"
	case KindKeyExpr:
		if i == 0 {
			return "argument"
		}
		return "key"
	case KindLabeledStmt:
		if child == KindIdentifier && i == 0 {
			return "label"
		}
		return "statement"
	case KindStatementModifier:
		return "condition"
	}
	return ""
}

func quoteAtom(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (n *Node) String() string {
	return n.stringIndent(0, false)
}

func (n *Node) StringWithPositions() string {
	return n.stringIndent(0, true)
}

func (n *Node) stringIndent(indent int, showPositions bool) string {
	prefix := strings.Repeat("  ", indent)

	result := prefix + n.Kind.String()
	if showPositions {
		result += " [" + itoa(n.Span.Start) + "-" + itoa(n.Span.End) + "]"
	}
	if n.Token != nil {
		result += " " + n.Token.Text
	}
	if n.Error != nil {
		result += " ERROR: " + n.Error.Message
	}
	result += "\n"

	for _, child := range n.Children {
		result += child.stringIndent(indent+1, showPositions)
	}
	return result
}

// shift moves every span in the subtree by delta bytes, in place. The
// incremental parser uses it on reused statements after an edit.
func (n *Node) shift(delta int) {
	if n == nil {
		return
	}
	n.Span.Start += delta
	n.Span.End += delta
	if n.Token != nil {
		tok := *n.Token
		tok.Start += delta
		tok.End += delta
		n.Token = &tok
	}
	for i := range n.LeadingTrivia {
		n.LeadingTrivia[i].Start += delta
		n.LeadingTrivia[i].End += delta
	}
	if n.Error != nil {
		if n.Error.Got != nil {
			got := *n.Error.Got
			got.Start += delta
			got.End += delta
			n.Error.Got = &got
		}
		n.Error.Partial.shift(delta)
	}
	for _, child := range n.Children {
		child.shift(delta)
	}
}

// clone deep-copies the subtree. Reused statements are cloned before
// shifting so the previous tree stays valid.
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Token != nil {
		tok := *n.Token
		out.Token = &tok
	}
	if n.Error != nil {
		e := *n.Error
		if e.Got != nil {
			got := *e.Got
			e.Got = &got
		}
		e.Partial = n.Error.Partial.clone()
		out.Error = &e
	}
	out.LeadingTrivia = append([]Token(nil), n.LeadingTrivia...)
	out.Children = make([]*Node, len(n.Children))
	for i, child := range n.Children {
		out.Children[i] = child.clone()
	}
	return &out
}
