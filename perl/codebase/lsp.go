package codebase

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dhamidi/perlyzer/perl/parser"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "perlyzer"

type LSPServer struct {
	codebase *Codebase
	handler  protocol.Handler
	server   *server.Server
	version  string
}

func NewLSPServer(version string) *LSPServer {
	ls := &LSPServer{
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	ls.codebase = New(rootDir)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindIncremental),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.codebase.UpdateFile(path, params.TextDocument.Text)
	ls.publishDiagnostics(ctx, params.TextDocument.URI, path)
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	for _, change := range params.ContentChanges {
		switch ev := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			ls.codebase.UpdateFile(path, ev.Text)
		case protocol.TextDocumentContentChangeEvent:
			ls.applyRangedChange(path, ev)
		}
	}
	ls.publishDiagnostics(ctx, params.TextDocument.URI, path)
	return nil
}

// applyRangedChange converts one LSP ranged change (UTF-16 positions)
// into a byte-level edit on the document.
func (ls *LSPServer) applyRangedChange(path string, ev protocol.TextDocumentContentChangeEvent) {
	doc := ls.codebase.GetFile(path)
	if doc == nil || ev.Range == nil {
		return
	}
	src := doc.Source()
	idx := parser.NewLineIndex(src)
	start := idx.PositionToByte(int(ev.Range.Start.Line), int(ev.Range.Start.Character))
	end := idx.PositionToByte(int(ev.Range.End.Line), int(ev.Range.End.Character))
	if end < start {
		start, end = end, start
	}
	edit := parser.Edit{
		StartByte:  start,
		OldEndByte: end,
		NewEndByte: start + len(ev.Text),
	}
	newSrc := edit.ApplyToSource(src, ev.Text)
	if err := ls.codebase.ApplyEdit(path, newSrc, edit); err != nil {
		ls.codebase.UpdateFile(path, newSrc)
	}
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	if path, err := uriToPath(params.TextDocument.URI); err == nil {
		ls.codebase.CloseFile(path)
	}
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if params.Text != nil {
		ls.codebase.UpdateFile(path, *params.Text)
	} else {
		ls.codebase.ScanFile(path)
	}
	ls.publishDiagnostics(ctx, params.TextDocument.URI, path)
	return nil
}

func (ls *LSPServer) publishDiagnostics(ctx *glsp.Context, uri, path string) {
	doc := ls.codebase.GetFile(path)
	if doc == nil {
		return
	}
	src := doc.Source()
	idx := parser.NewLineIndex(src)

	diags := doc.Output().Diagnostics()
	items := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == parser.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		source := lsName
		message := d.Message
		if d.Suggestion != "" {
			message += " (" + d.Suggestion + ")"
		}
		items = append(items, protocol.Diagnostic{
			Range:    spanToRange(idx, d.Span),
			Severity: &severity,
			Source:   &source,
			Message:  message,
		})
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: items,
	})
}

func spanToRange(idx *parser.LineIndex, span parser.Span) protocol.Range {
	startLine, startCol := idx.ByteToPosition(span.Start)
	endLine, endCol := idx.ByteToPosition(span.End)
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(startLine), Character: protocol.UInteger(startCol)},
		End:   protocol.Position{Line: protocol.UInteger(endLine), Character: protocol.UInteger(endCol)},
	}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
