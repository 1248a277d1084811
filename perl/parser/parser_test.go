package parser

import (
	"strings"
	"testing"
)

func findKind(tree *Node, kind NodeKind) *Node {
	var found *Node
	tree.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == kind {
			found = n
			return false
		}
		return true
	})
	return found
}

func TestParseSimpleStatements(t *testing.T) {
	tests := []struct {
		input string
		kind  NodeKind
	}{
		{"my $x = 1;", KindVarDecl},
		{"our @list = (1, 2);", KindVarDecl},
		{"$x = 1;", KindExprStmt},
		{"use strict;", KindUseDecl},
		{"no warnings;", KindNoDecl},
		{"require Exporter;", KindRequireDecl},
		{"package Foo::Bar;", KindPackageDecl},
		{"sub foo { return 1; }", KindSubDecl},
		{"if ($x) { }", KindIfStmt},
		{"unless ($x) { }", KindUnlessStmt},
		{"while ($x) { }", KindWhileStmt},
		{"until ($x) { }", KindUntilStmt},
		{"foreach my $i (@list) { }", KindForeachStmt},
		{"for (my $i = 0; $i < 10; $i++) { }", KindForStmt},
		{"return;", KindReturnStmt},
		{"last;", KindLastStmt},
		{"next;", KindNextStmt},
		{";", KindEmptyStmt},
		{"{ 1; }", KindBlock},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := Parse(tt.input)
			if len(out.Errors) != 0 {
				t.Fatalf("errors = %v, want none", out.Errors)
			}
			if len(out.Tree.Children) != 1 {
				t.Fatalf("top statements = %d, want 1", len(out.Tree.Children))
			}
			if got := out.Tree.Children[0].Kind; got != tt.kind {
				t.Errorf("statement kind = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestParseNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"my",
		"my $x =",
		"if (",
		"sub {",
		"\x00\xff\xfe",
		"$x = ;;;",
		"\"unterminated",
		")))((",
		"@ % &",
	}

	for _, input := range inputs {
		out := Parse(input)
		if out.Tree == nil {
			t.Errorf("Parse(%q).Tree = nil", input)
			continue
		}
		if out.Tree.Kind != KindProgram {
			t.Errorf("Parse(%q) root = %v, want %v", input, out.Tree.Kind, KindProgram)
		}
	}
}

func TestSexpOutput(t *testing.T) {
	out := Parse("my $x = 1;")
	want := `(Program (VarDecl "my" name: (Variable "$x") value: (Literal "1")))`
	if got := out.Tree.Sexp(); got != want {
		t.Errorf("Sexp = %s, want %s", got, want)
	}
}

func TestSexpWithSpansFormat(t *testing.T) {
	out := Parse("my $x = 1;")
	want := `(Program [0-10] (VarDecl [0-10] "my" name: (Variable [3-5] "$x") value: (Literal [8-9] "1")))`
	if got := out.Tree.SexpWithSpans(); got != want {
		t.Errorf("SexpWithSpans = %s, want %s", got, want)
	}
}

func TestSexpFieldLabels(t *testing.T) {
	out := Parse("if ($x) { } else { }")
	sexp := out.Tree.Sexp()
	for _, label := range []string{"condition: ", "body: "} {
		if !strings.Contains(sexp, label) {
			t.Errorf("Sexp missing %q field: %s", label, sexp)
		}
	}
}

func TestDivisionParsesAsBinaryExpr(t *testing.T) {
	out := Parse("my $x = $total / $count;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	bin := findKind(out.Tree, KindBinaryExpr)
	if bin == nil {
		t.Fatalf("no BinaryExpr in %s", out.Tree.Sexp())
	}
	if bin.TokenText() != "/" {
		t.Errorf("operator = %q, want %q", bin.TokenText(), "/")
	}
	if findKind(out.Tree, KindMatch) != nil {
		t.Errorf("division misread as regex match: %s", out.Tree.Sexp())
	}
}

func TestMatchBindParsesAsRegex(t *testing.T) {
	out := Parse("$str =~ /foo/;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	bind := findKind(out.Tree, KindMatchBind)
	if bind == nil {
		t.Fatalf("no MatchBind in %s", out.Tree.Sexp())
	}
	match := findKind(bind, KindMatch)
	if match == nil {
		t.Fatalf("no Match under MatchBind in %s", bind.Sexp())
	}
	if match.TokenText() != "/foo/" {
		t.Errorf("match text = %q, want %q", match.TokenText(), "/foo/")
	}
}

func TestMissingSemicolonRecovery(t *testing.T) {
	out := Parse("my $x = 1\nmy $y = 2;")
	decls := out.Tree.ChildrenOfKind(KindVarDecl)
	if len(decls) != 2 {
		t.Fatalf("VarDecls = %d, want 2; tree %s", len(decls), out.Tree.Sexp())
	}
	if len(out.Errors) != 1 {
		t.Fatalf("errors = %d, want 1: %v", len(out.Errors), out.Errors)
	}
	err := out.Errors[0]
	if len(err.Expected) != 1 || err.Expected[0] != TokenSemicolon {
		t.Errorf("Expected = %v, want [Semicolon]", err.Expected)
	}
	diags := out.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	if !strings.Contains(diags[0].Suggestion, "semicolon") {
		t.Errorf("Suggestion = %q, want semicolon hint", diags[0].Suggestion)
	}
	// The error is anchored where the semicolon belongs: end of line 1.
	if diags[0].Line != 1 {
		t.Errorf("Line = %d, want 1", diags[0].Line)
	}
}

func TestNestedDelimiterSubstitution(t *testing.T) {
	out := Parse("$s =~ s{a{b}c}{replacement}g;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	sub := findKind(out.Tree, KindSubstitution)
	if sub == nil {
		t.Fatalf("no Substitution in %s", out.Tree.Sexp())
	}
	pattern, replacement, modifiers := ExtractSubstitutionParts(sub.TokenText())
	if pattern != "a{b}c" || replacement != "replacement" || modifiers != "g" {
		t.Errorf("parts = %q %q %q", pattern, replacement, modifiers)
	}
}

func TestInvalidSubstitutionModifier(t *testing.T) {
	out := Parse("$s =~ s/a/b/q;")
	var found bool
	for _, err := range out.Errors {
		if err.Kind == ErrInvalidRegex {
			found = true
		}
	}
	if !found {
		t.Errorf("no InvalidRegex error for bad modifier: %v", out.Errors)
	}
	if findKind(out.Tree, KindSubstitution) == nil {
		t.Errorf("malformed substitution produced no node: %s", out.Tree.Sexp())
	}
}

func TestDeepNestingHitsRecursionLimit(t *testing.T) {
	depth := 300
	src := strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + ";"

	out := Parse(src)
	var found bool
	for _, err := range out.Errors {
		if err.Kind == ErrRecursionLimit {
			found = true
		}
	}
	if !found {
		t.Fatalf("no RecursionLimit error at depth %d: %v", depth, out.Errors)
	}
	if out.TerminatedEarly {
		t.Errorf("TerminatedEarly = true, want recovery without termination")
	}
	if out.Usage.MaxDepthReached != DefaultBudget().MaxDepth {
		t.Errorf("MaxDepthReached = %d, want %d", out.Usage.MaxDepthReached, DefaultBudget().MaxDepth)
	}

	unlimited := Parse(src, WithBudget(UnlimitedBudget()))
	if len(unlimited.Errors) != 0 {
		t.Errorf("unlimited budget errors = %v, want none", unlimited.Errors)
	}
}

func TestBudgetExhaustionTerminatesEarly(t *testing.T) {
	src := strings.Repeat("@ ;\n", 50)
	out := Parse(src, WithBudget(StrictBudget()))

	if !out.TerminatedEarly {
		t.Fatalf("TerminatedEarly = false, want true")
	}
	if len(out.Errors) != StrictBudget().MaxErrors {
		t.Errorf("errors = %d, want %d", len(out.Errors), StrictBudget().MaxErrors)
	}
	last := out.Tree.Children[len(out.Tree.Children)-1]
	if last.Kind != KindError || last.Error == nil {
		t.Fatalf("last child = %v, want budget Error node", last.Kind)
	}
	if last.Span.End != len(src) {
		t.Errorf("error node end = %d, want %d", last.Span.End, len(src))
	}
}

func TestHeredocBodyAttached(t *testing.T) {
	out := Parse("print <<EOT;\nhello\nEOT\n")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	heredoc := findKind(out.Tree, KindHeredoc)
	if heredoc == nil {
		t.Fatalf("no Heredoc in %s", out.Tree.Sexp())
	}
	if len(heredoc.Children) != 1 {
		t.Fatalf("heredoc children = %d, want body literal", len(heredoc.Children))
	}
	if got := heredoc.Children[0].TokenText(); got != "hello\nEOT\n" {
		t.Errorf("body = %q, want %q", got, "hello\nEOT\n")
	}
}

func TestTwoHeredocsPairInOrder(t *testing.T) {
	out := Parse("print <<A, <<B;\none\nA\ntwo\nB\n")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	var heredocs []*Node
	out.Tree.Walk(func(n *Node) bool {
		if n.Kind == KindHeredoc {
			heredocs = append(heredocs, n)
		}
		return true
	})
	if len(heredocs) != 2 {
		t.Fatalf("heredocs = %d, want 2", len(heredocs))
	}
	if heredocs[0].Children[0].TokenText() != "one\nA\n" {
		t.Errorf("first body = %q", heredocs[0].Children[0].TokenText())
	}
	if heredocs[1].Children[0].TokenText() != "two\nB\n" {
		t.Errorf("second body = %q", heredocs[1].Children[0].TokenText())
	}
}

func TestIfElsifElseChain(t *testing.T) {
	out := Parse("if ($a) { 1; } elsif ($b) { 2; } else { 3; }")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	stmt := out.Tree.Children[0]
	if stmt.Kind != KindIfStmt {
		t.Fatalf("kind = %v, want IfStmt", stmt.Kind)
	}
	if stmt.FirstChildOfKind(KindElsifClause) == nil {
		t.Errorf("no ElsifClause in %s", stmt.Sexp())
	}
	if stmt.FirstChildOfKind(KindElseClause) == nil {
		t.Errorf("no ElseClause in %s", stmt.Sexp())
	}
}

func TestStatementModifier(t *testing.T) {
	out := Parse("print $x if $debug;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	mod := findKind(out.Tree, KindStatementModifier)
	if mod == nil {
		t.Fatalf("no StatementModifier in %s", out.Tree.Sexp())
	}
	if mod.TokenText() != "if" {
		t.Errorf("modifier keyword = %q, want %q", mod.TokenText(), "if")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	out := Parse("$x = 2 + 3 * 4;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	assign := findKind(out.Tree, KindAssignExpr)
	if assign == nil {
		t.Fatalf("no AssignExpr in %s", out.Tree.Sexp())
	}
	add := assign.Children[1]
	if add.Kind != KindBinaryExpr || add.TokenText() != "+" {
		t.Fatalf("rhs = %v %q, want + BinaryExpr", add.Kind, add.TokenText())
	}
	mul := add.Children[1]
	if mul.Kind != KindBinaryExpr || mul.TokenText() != "*" {
		t.Errorf("rhs of + = %v %q, want * BinaryExpr", mul.Kind, mul.TokenText())
	}
}

func TestPowerBindsInsideUnaryMinus(t *testing.T) {
	out := Parse("$x = -2 ** 2;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	assign := findKind(out.Tree, KindAssignExpr)
	neg := assign.Children[1]
	if neg.Kind != KindUnaryExpr || neg.TokenText() != "-" {
		t.Fatalf("rhs = %v %q, want unary minus outermost", neg.Kind, neg.TokenText())
	}
	if pow := neg.Children[0]; pow.Kind != KindBinaryExpr || pow.TokenText() != "**" {
		t.Errorf("operand = %v %q, want ** BinaryExpr", pow.Kind, pow.TokenText())
	}
}

func TestHashKeyAccess(t *testing.T) {
	out := Parse("$h->{key} = $a{name};")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	keys := 0
	out.Tree.Walk(func(n *Node) bool {
		if n.Kind == KindKeyExpr {
			keys++
		}
		return true
	})
	if keys != 2 {
		t.Errorf("KeyExprs = %d, want 2; tree %s", keys, out.Tree.Sexp())
	}
}

func TestLabeledLoop(t *testing.T) {
	out := Parse("LOOP: while (1) { last LOOP; }")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	labeled := out.Tree.Children[0]
	if labeled.Kind != KindLabeledStmt {
		t.Fatalf("kind = %v, want LabeledStmt", labeled.Kind)
	}
	if findKind(labeled, KindWhileStmt) == nil {
		t.Errorf("no WhileStmt under label: %s", labeled.Sexp())
	}
	lastStmt := findKind(labeled, KindLastStmt)
	if lastStmt == nil || lastStmt.FirstChildOfKind(KindIdentifier) == nil {
		t.Errorf("last LOOP missing label operand")
	}
}

func TestCStyleForLoop(t *testing.T) {
	out := Parse("for (my $i = 0; $i < 10; $i++) { print $i; }")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	forStmt := findKind(out.Tree, KindForStmt)
	if forStmt == nil {
		t.Fatalf("no ForStmt in %s", out.Tree.Sexp())
	}
	if findKind(out.Tree, KindForeachStmt) != nil {
		t.Errorf("C-style header parsed as foreach: %s", out.Tree.Sexp())
	}
	if forStmt.FirstChildOfKind(KindVarDecl) == nil {
		t.Errorf("for initializer is not a VarDecl: %s", forStmt.Sexp())
	}
}

func TestCStyleForEmptyClauses(t *testing.T) {
	out := Parse("for (;;) { last; }")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	forStmt := findKind(out.Tree, KindForStmt)
	if forStmt == nil {
		t.Fatalf("no ForStmt in %s", out.Tree.Sexp())
	}
	empties := 0
	for _, child := range forStmt.Children {
		if child.Kind == KindEmptyStmt {
			empties++
		}
	}
	if empties != 3 {
		t.Errorf("empty header clauses = %d, want 3", empties)
	}
}

func TestUnclosedConditionKeepsPartial(t *testing.T) {
	out := Parse("if ($x + 1 { }")
	if len(out.Errors) == 0 {
		t.Fatal("expected errors for unclosed condition")
	}
	var withPartial *Node
	out.Tree.Walk(func(n *Node) bool {
		if withPartial != nil {
			return false
		}
		if n.Kind == KindError && n.Error != nil && n.Error.Partial != nil {
			withPartial = n
			return false
		}
		return true
	})
	if withPartial == nil {
		t.Fatalf("no error node carries the parsed fragment: %s", out.Tree.Sexp())
	}
	if withPartial.Error.Partial.Kind != KindBinaryExpr {
		t.Errorf("partial = %v, want BinaryExpr", withPartial.Error.Partial.Kind)
	}
}

func TestDataSectionNode(t *testing.T) {
	out := Parse("my $x = 1;\n__END__\nanything goes here")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	data := out.Tree.FirstChildOfKind(KindDataSection)
	if data == nil {
		t.Fatalf("no DataSection in %s", out.Tree.Sexp())
	}
	if data.TokenText() != "__END__" {
		t.Errorf("marker = %q, want __END__", data.TokenText())
	}
}

func TestQwListAssignment(t *testing.T) {
	out := Parse("my @words = qw(alpha beta gamma);")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	qw := findKind(out.Tree, KindQwList)
	if qw == nil {
		t.Fatalf("no QwList in %s", out.Tree.Sexp())
	}
	words := SplitQwWords(qw.TokenText())
	if len(words) != 3 || words[0] != "alpha" {
		t.Errorf("words = %v", words)
	}
}

func TestFileTestExpression(t *testing.T) {
	out := Parse("if (-e $path) { }")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	ft := findKind(out.Tree, KindFileTest)
	if ft == nil {
		t.Fatalf("no FileTest in %s", out.Tree.Sexp())
	}
	if ft.TokenText() != "-e" {
		t.Errorf("operator = %q, want -e", ft.TokenText())
	}
	if ft.FirstChildOfKind(KindVariable) == nil {
		t.Errorf("file test missing operand: %s", ft.Sexp())
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	sources := []string{
		"my $x = 1; # trailing comment\nprint $x;\n",
		"=pod\ndocs here\n=cut\nsub f { return 42; }\n",
		"print <<EOT;\nline one\nline two\nEOT\nmy $after = 1;\n",
		"format REPORT =\n@<<<< @>>>>\n$a, $b\n.\n1;\n",
		"if ($x) {\n    $y++;\n}\n__DATA__\nrecord",
	}

	for _, src := range sources {
		out := Parse(src, WithTrivia())
		if got := out.Reconstruct(); got != src {
			t.Errorf("Reconstruct = %q, want %q", got, src)
		}
	}
}

func TestReconstructWithoutTrivia(t *testing.T) {
	out := Parse("my $x = 1;\n")
	if got := out.Reconstruct(); got != "" {
		t.Errorf("Reconstruct without trivia = %q, want empty", got)
	}
}

func TestDeterministicOutput(t *testing.T) {
	src := "my $x = 1\nsub f { if ($x { } }\nprint <<EOT\nbody\nEOT\n"
	first := Parse(src)
	second := Parse(src)
	if first.Tree.SexpWithSpans() != second.Tree.SexpWithSpans() {
		t.Errorf("two parses of the same input differ")
	}
	if len(first.Errors) != len(second.Errors) {
		t.Errorf("error counts differ: %d vs %d", len(first.Errors), len(second.Errors))
	}
}

func TestNodeAt(t *testing.T) {
	out := Parse("my $x = 1;\n")
	node := out.Tree.NodeAt(4)
	if node == nil || node.Kind != KindVariable {
		t.Errorf("NodeAt(4) = %v, want Variable", node)
	}
}

func TestMethodCallChain(t *testing.T) {
	out := Parse("my $row = $db->prepare($sql)->fetchrow;")
	if len(out.Errors) != 0 {
		t.Fatalf("errors = %v, want none", out.Errors)
	}
	methods := 0
	out.Tree.Walk(func(n *Node) bool {
		if n.Kind == KindMethodCall {
			methods++
		}
		return true
	})
	if methods != 2 {
		t.Errorf("MethodCalls = %d, want 2; tree %s", methods, out.Tree.Sexp())
	}
}

func TestUnclosedBlockRecovers(t *testing.T) {
	out := Parse("sub f {\nmy $x = 1;\n")
	if len(out.Errors) == 0 {
		t.Fatalf("no errors for unclosed block")
	}
	if findKind(out.Tree, KindVarDecl) == nil {
		t.Errorf("statement inside unclosed block lost: %s", out.Tree.Sexp())
	}
	var hasBraceHint bool
	for _, d := range out.Diagnostics() {
		if strings.Contains(d.Suggestion, "closing brace") {
			hasBraceHint = true
		}
	}
	if !hasBraceHint {
		t.Errorf("no closing-brace suggestion in diagnostics")
	}
}
