package codebase

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/dhamidi/perlyzer/perl/parser"
)

// Codebase tracks the open Perl documents for one workspace. Each
// document keeps an incremental parser so edits reuse previous work.
type Codebase struct {
	mu      sync.RWMutex
	rootDir string
	files   map[string]*Document
}

type Document struct {
	Path    string
	Version int
	inc     *parser.IncrementalParser
}

func (d *Document) Source() string              { return d.inc.Source() }
func (d *Document) Tree() *parser.Node          { return d.inc.Tree() }
func (d *Document) Output() *parser.ParseOutput { return d.inc.Output() }

func (d *Document) Diagnostics() []parser.Diagnostic {
	return d.inc.Output().Diagnostics()
}

func New(rootDir string) *Codebase {
	return &Codebase{
		rootDir: rootDir,
		files:   make(map[string]*Document),
	}
}

func (c *Codebase) RootDir() string {
	return c.rootDir
}

var perlExtensions = map[string]bool{
	".pl": true, ".pm": true, ".t": true, ".psgi": true,
}

func (c *Codebase) ScanAll() error {
	return filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if perlExtensions[filepath.Ext(path)] {
			c.ScanFile(path)
		}
		return nil
	})
}

func (c *Codebase) ScanFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.UpdateFile(path, string(content))
}

// UpdateFile replaces a document's full content, reparsing from scratch.
func (c *Codebase) UpdateFile(path, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.files[path]
	if !ok {
		doc = &Document{Path: path}
		c.files[path] = doc
	}
	doc.Version++
	doc.inc = parser.NewIncrementalParser(content, parser.WithBudget(parser.IDEBudget()))
	return nil
}

// ApplyEdit applies one in-place change to an open document. Unknown
// paths get the new content as a fresh document.
func (c *Codebase) ApplyEdit(path, newContent string, edit parser.Edit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.files[path]
	if !ok {
		doc = &Document{Path: path}
		doc.inc = parser.NewIncrementalParser(newContent, parser.WithBudget(parser.IDEBudget()))
		c.files[path] = doc
		doc.Version++
		return nil
	}
	doc.Version++
	_, err := doc.inc.ApplyEdit(newContent, edit)
	return err
}

func (c *Codebase) CloseFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, path)
}

func (c *Codebase) GetFile(path string) *Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[path]
}

func (c *Codebase) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.files))
	for path := range c.files {
		paths = append(paths, path)
	}
	return paths
}
