package parser

import (
	"strings"
	"testing"
)

// editReplace builds the Edit describing the first occurrence of old in
// src being replaced by new, plus the resulting source.
func editReplace(t *testing.T, src, old, replacement string) (Edit, string) {
	t.Helper()
	start := strings.Index(src, old)
	if start < 0 {
		t.Fatalf("%q not found in source", old)
	}
	edit := Edit{
		StartByte:  start,
		OldEndByte: start + len(old),
		NewEndByte: start + len(replacement),
	}
	return edit, edit.ApplyToSource(src, replacement)
}

func TestIncrementalSingleEdit(t *testing.T) {
	src := "my $x = 1;\nmy $y = 2;\nmy $z = 3;\n"
	ip := NewIncrementalParser(src)
	if len(ip.Output().Errors) != 0 {
		t.Fatalf("initial errors = %v", ip.Output().Errors)
	}

	edit, newSrc := editReplace(t, src, "2", "42")
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if result.FullReparse {
		t.Fatalf("FullReparse = true, want incremental splice")
	}
	if result.CheckpointOffset != 10 {
		t.Errorf("CheckpointOffset = %d, want 10", result.CheckpointOffset)
	}
	if result.ReusedHead != 1 || result.ReusedTail != 1 {
		t.Errorf("ReusedHead, ReusedTail = %d, %d; want 1, 1", result.ReusedHead, result.ReusedTail)
	}
	if result.CheckpointsUsed != 1 {
		t.Errorf("CheckpointsUsed = %d, want 1", result.CheckpointsUsed)
	}
	if result.ReusedTokens == 0 {
		t.Errorf("ReusedTokens = 0, want tokens carried over from both sides")
	}

	fresh := Parse(newSrc)
	if got, want := result.Output.Tree.SexpWithSpans(), fresh.Tree.SexpWithSpans(); got != want {
		t.Errorf("spliced tree = %s\nfull parse  = %s", got, want)
	}
	if len(result.Output.Errors) != 0 {
		t.Errorf("errors after edit = %v", result.Output.Errors)
	}
	if ip.Source() != newSrc {
		t.Errorf("Source not updated")
	}
}

func TestIncrementalEditSequence(t *testing.T) {
	src := "use strict;\nmy $a = 1;\nmy $b = $a + 2;\nprint $b;\nmy $c = 3;\n"
	ip := NewIncrementalParser(src)

	edit, newSrc := editReplace(t, src, "$a + 2", "42")
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if result.FullReparse {
		t.Fatalf("first edit fell back to full reparse")
	}
	if result.ReusedHead != 2 || result.ReusedTail != 2 {
		t.Errorf("ReusedHead, ReusedTail = %d, %d; want 2, 2", result.ReusedHead, result.ReusedTail)
	}
	if got, want := result.Output.Tree.SexpWithSpans(), Parse(newSrc).Tree.SexpWithSpans(); got != want {
		t.Fatalf("after first edit:\nspliced = %s\nfull    = %s", got, want)
	}

	// Edit in the region reused as tail; its boundary checkpoint was
	// re-recorded during the splice.
	edit, newSrc = editReplace(t, ip.Source(), "3", "300")
	result, err = ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if got, want := result.Output.Tree.SexpWithSpans(), Parse(newSrc).Tree.SexpWithSpans(); got != want {
		t.Errorf("after second edit:\nspliced = %s\nfull    = %s", got, want)
	}
	if len(result.Output.Errors) != 0 {
		t.Errorf("errors after edits = %v", result.Output.Errors)
	}
}

func TestIncrementalHeredocInEditedRegion(t *testing.T) {
	src := "my $a = 1;\nprint <<EOT;\nbody\nEOT\nmy $b = 2;\n"
	ip := NewIncrementalParser(src)

	edit, newSrc := editReplace(t, src, "2;", "9;")
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if result.FullReparse {
		t.Fatalf("FullReparse = true, want splice from checkpoint before heredoc")
	}
	if result.ReusedHead != 1 {
		t.Errorf("ReusedHead = %d, want 1", result.ReusedHead)
	}

	fresh := Parse(newSrc)
	if got, want := result.Output.Tree.SexpWithSpans(), fresh.Tree.SexpWithSpans(); got != want {
		t.Errorf("spliced = %s\nfull    = %s", got, want)
	}
	heredoc := findKind(result.Output.Tree, KindHeredoc)
	if heredoc == nil || len(heredoc.Children) != 1 {
		t.Fatalf("heredoc body lost in splice")
	}
	if heredoc.Children[0].TokenText() != "body\nEOT\n" {
		t.Errorf("body = %q", heredoc.Children[0].TokenText())
	}
}

func TestIncrementalEditAfterBlock(t *testing.T) {
	src := "sub f { return 1; }\nmy $x = 1;\nmy $y = 2;\n"
	ip := NewIncrementalParser(src)

	// The boundary right after the closing brace leaves the lexer
	// expecting an operator, so no checkpoint may be restored there; the
	// splice must start from the boundary after "my $x = 1;" instead.
	edit, newSrc := editReplace(t, src, "2", "5")
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if result.FullReparse {
		t.Fatalf("FullReparse = true, want splice from the statement boundary")
	}
	if result.CheckpointOffset != 30 {
		t.Errorf("CheckpointOffset = %d, want 30", result.CheckpointOffset)
	}
	if got, want := result.Output.Tree.SexpWithSpans(), Parse(newSrc).Tree.SexpWithSpans(); got != want {
		t.Errorf("spliced = %s\nfull    = %s", got, want)
	}
}

func TestIncrementalFallbackWithoutCheckpoint(t *testing.T) {
	src := "my $x = 1;\nmy $y = 2;\n"
	ip := NewIncrementalParser(src)

	// An edit inside the first statement has no checkpoint before it.
	edit, newSrc := editReplace(t, src, "$x", "$q")
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if !result.FullReparse {
		t.Errorf("FullReparse = false, want fallback")
	}
	if result.CheckpointsUsed != 0 || result.ReusedTokens != 0 {
		t.Errorf("CheckpointsUsed, ReusedTokens = %d, %d; want 0, 0 on full reparse",
			result.CheckpointsUsed, result.ReusedTokens)
	}
	if got, want := result.Output.Tree.SexpWithSpans(), Parse(newSrc).Tree.SexpWithSpans(); got != want {
		t.Errorf("fallback parse differs from fresh parse")
	}
}

func TestIncrementalLengthMismatchFallsBack(t *testing.T) {
	src := "my $x = 1;\nmy $y = 2;\n"
	ip := NewIncrementalParser(src)

	// The edit says one byte changed but the text grew by three.
	edit := Edit{StartByte: 19, OldEndByte: 20, NewEndByte: 20}
	newSrc := strings.Replace(src, "2", "2222", 1)
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if !result.FullReparse {
		t.Errorf("FullReparse = false for inconsistent edit")
	}
	if ip.Source() != newSrc {
		t.Errorf("Source = %q, want new text", ip.Source())
	}
}

func TestIncrementalInvalidEdit(t *testing.T) {
	ip := NewIncrementalParser("1;\n")
	if _, err := ip.ApplyEdit("1;\n", Edit{StartByte: -1, OldEndByte: 0, NewEndByte: 0}); err == nil {
		t.Errorf("ApplyEdit accepted an invalid edit")
	}
}

func TestIncrementalBatchEditsFullReparse(t *testing.T) {
	src := "my $x = 1;\nmy $y = 2;\n"
	ip := NewIncrementalParser(src)

	var set EditSet
	if err := set.Add(Edit{StartByte: 8, OldEndByte: 9, NewEndByte: 9}); err != nil {
		t.Fatal(err)
	}
	if err := set.Add(Edit{StartByte: 19, OldEndByte: 20, NewEndByte: 20}); err != nil {
		t.Fatal(err)
	}
	newSrc := "my $x = 7;\nmy $y = 8;\n"
	result, err := ip.ApplyEdits(newSrc, &set)
	if err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	if !result.FullReparse {
		t.Errorf("FullReparse = false for a batch")
	}
	if got, want := result.Output.Tree.SexpWithSpans(), Parse(newSrc).Tree.SexpWithSpans(); got != want {
		t.Errorf("batch result differs from fresh parse")
	}
}

func TestIncrementalErrorRepair(t *testing.T) {
	src := "my $x = 1;\nmy $y = ;\nmy $z = 3;\n"
	ip := NewIncrementalParser(src)
	if len(ip.Output().Errors) == 0 {
		t.Fatalf("broken source produced no errors")
	}

	edit, newSrc := editReplace(t, src, "= ;", "= 2;")
	result, err := ip.ApplyEdit(newSrc, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if len(result.Output.Errors) != 0 {
		t.Errorf("errors after repair = %v", result.Output.Errors)
	}
	if got, want := result.Output.Tree.SexpWithSpans(), Parse(newSrc).Tree.SexpWithSpans(); got != want {
		t.Errorf("repaired tree differs:\nspliced = %s\nfull    = %s", got, want)
	}
}
