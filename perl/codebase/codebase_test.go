package codebase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/perlyzer/perl/parser"
)

func TestUpdateFileParsesDocument(t *testing.T) {
	c := New("/tmp/cb_test")
	path := "/tmp/cb_test/lib/Foo.pm"
	c.UpdateFile(path, "my $x = 1;\n")

	doc := c.GetFile(path)
	if doc == nil {
		t.Fatal("GetFile returned nil")
	}
	if doc.Version != 1 {
		t.Errorf("Version = %d, want 1", doc.Version)
	}
	if doc.Tree() == nil {
		t.Fatal("Tree is nil")
	}
	if doc.Tree().Kind != parser.KindProgram {
		t.Errorf("root Kind = %v, want Program", doc.Tree().Kind)
	}
	if len(doc.Diagnostics()) != 0 {
		t.Errorf("Diagnostics = %d, want 0", len(doc.Diagnostics()))
	}
}

func TestApplyEditRepairsDiagnostics(t *testing.T) {
	c := New("/tmp/cb_test")
	path := "/tmp/cb_test/script.pl"
	src := "my $x = 1;\nmy $y = ;\n"
	c.UpdateFile(path, src)

	doc := c.GetFile(path)
	if doc == nil {
		t.Fatal("GetFile returned nil")
	}
	if len(doc.Diagnostics()) == 0 {
		t.Fatal("expected a diagnostic for the missing expression")
	}

	at := strings.Index(src, "= ;") + len("= ")
	edit := parser.Edit{StartByte: at, OldEndByte: at, NewEndByte: at + 1}
	newSrc := src[:at] + "2" + src[at:]
	if err := c.ApplyEdit(path, newSrc, edit); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	doc = c.GetFile(path)
	if doc.Source() != newSrc {
		t.Errorf("Source = %q, want %q", doc.Source(), newSrc)
	}
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}
	if len(doc.Diagnostics()) != 0 {
		t.Errorf("Diagnostics after repair = %d, want 0", len(doc.Diagnostics()))
	}
}

func TestApplyEditUnknownPathCreatesDocument(t *testing.T) {
	c := New("/tmp/cb_test")
	path := "/tmp/cb_test/new.pl"
	edit := parser.Edit{StartByte: 0, OldEndByte: 0, NewEndByte: 10}
	if err := c.ApplyEdit(path, "print 42;\n", edit); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	doc := c.GetFile(path)
	if doc == nil {
		t.Fatal("GetFile returned nil")
	}
	if doc.Source() != "print 42;\n" {
		t.Errorf("Source = %q", doc.Source())
	}
}

func TestScanAllPicksUpPerlFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"lib/Foo.pm": "package Foo;\n1;\n",
		"bin/run.pl": "print \"hi\";\n",
		"t/basic.t":  "use Test::More;\n",
		"README.md":  "not perl\n",
		"notes.txt":  "also not perl\n",
		"app.psgi":   "my $app = sub { };\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c := New(dir)
	if err := c.ScanAll(); err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if got := len(c.Files()); got != 4 {
		t.Errorf("Files = %d, want 4", got)
	}
	if c.GetFile(filepath.Join(dir, "README.md")) != nil {
		t.Error("README.md should not be tracked")
	}
}

func TestCloseFileRemovesDocument(t *testing.T) {
	c := New("/tmp/cb_test")
	path := "/tmp/cb_test/gone.pl"
	c.UpdateFile(path, "1;\n")
	c.CloseFile(path)
	if c.GetFile(path) != nil {
		t.Error("document still tracked after CloseFile")
	}
}
