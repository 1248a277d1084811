package parser

// IncrementalParser keeps a parsed document plus the lexer checkpoints
// needed to avoid reparsing the whole file on every keystroke. An edit
// splits the document into three regions: statements entirely before the
// restored checkpoint are reused as-is, the region from the checkpoint
// through the first clean statement boundary past the edit is reparsed,
// and statements entirely after that boundary are reused with shifted
// spans. Anything that cannot be spliced safely falls back to a full
// reparse, so the result always equals a from-scratch parse of the new
// source.
type IncrementalParser struct {
	src    string
	opts   []Option
	cache  *CheckpointCache
	output *ParseOutput
}

// UpdateResult reports what one ApplyEdit actually did.
type UpdateResult struct {
	Output *ParseOutput
	// FullReparse is true when no checkpoint or resync point could be
	// used and the whole source was parsed from scratch.
	FullReparse bool
	// CheckpointOffset is the byte offset of the restored checkpoint.
	CheckpointOffset int
	// CheckpointsUsed counts the checkpoints restored for this update:
	// one for a successful splice, zero for a full reparse.
	CheckpointsUsed int
	// ReusedHead and ReusedTail count the top-level statements carried
	// over unparsed from before and after the edited region.
	ReusedHead int
	ReusedTail int
	// ReusedTokens counts the tokens carried over without re-lexing.
	ReusedTokens int
}

func NewIncrementalParser(src string, opts ...Option) *IncrementalParser {
	ip := &IncrementalParser{opts: opts}
	ip.fullParse(src)
	return ip
}

func (ip *IncrementalParser) Source() string       { return ip.src }
func (ip *IncrementalParser) Output() *ParseOutput { return ip.output }
func (ip *IncrementalParser) Tree() *Node          { return ip.output.Tree }

func (ip *IncrementalParser) fullParse(src string) *UpdateResult {
	ip.cache = NewCheckpointCache()
	ip.src = src
	opts := append(append([]Option(nil), ip.opts...), WithCheckpoints(ip.cache))
	ip.output = Parse(src, opts...)
	return &UpdateResult{Output: ip.output, FullReparse: true}
}

// ApplyEdits applies a set of edits. A single edit goes through the
// incremental path; multiple edits in one batch force a full reparse.
func (ip *IncrementalParser) ApplyEdits(newSrc string, edits *EditSet) (*UpdateResult, error) {
	if edits.Len() == 1 {
		return ip.ApplyEdit(newSrc, edits.Edits()[0])
	}
	for _, e := range edits.Edits() {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return ip.fullParse(newSrc), nil
}

// ApplyEdit updates the document to newSrc, which must be the previous
// source with the edit applied.
func (ip *IncrementalParser) ApplyEdit(newSrc string, edit Edit) (*UpdateResult, error) {
	if err := edit.Validate(); err != nil {
		return nil, err
	}
	if len(newSrc)-len(ip.src) != edit.Delta() {
		// The edit does not describe the actual change; trust the text.
		return ip.fullParse(newSrc), nil
	}

	// Checkpoints strictly after the edit start describe state that may
	// have changed. A checkpoint exactly at the start is still valid:
	// lexer state at an offset depends only on the bytes before it.
	ip.cache.InvalidateFrom(edit.StartByte + 1)
	cp, ok := ip.cache.Before(edit.StartByte)
	if !ok {
		return ip.fullParse(newSrc), nil
	}

	resyncNew, ok := ip.findResync(newSrc, cp, edit.NewEndByte)
	if !ok {
		return ip.fullParse(newSrc), nil
	}
	delta := edit.Delta()
	resyncOld := resyncNew - delta
	if !ip.oldBoundaryAt(resyncOld) {
		return ip.fullParse(newSrc), nil
	}

	middle := Parse(newSrc[cp.Offset:resyncNew], ip.middleOptions()...)
	if middle.TerminatedEarly {
		return ip.fullParse(newSrc), nil
	}

	result := ip.splice(newSrc, cp, middle, resyncNew, resyncOld, delta)
	result.CheckpointOffset = cp.Offset
	result.CheckpointsUsed = 1
	return result, nil
}

func (ip *IncrementalParser) middleOptions() []Option {
	// The middle region is reparsed standalone; its checkpoints are
	// rebased and merged afterwards.
	return append([]Option(nil), ip.opts...)
}

// findResync lexes newSrc from the checkpoint looking for the first
// clean top-level statement boundary at or past minOffset.
func (ip *IncrementalParser) findResync(newSrc string, cp LexerCheckpoint, minOffset int) (int, bool) {
	l := NewLexer(newSrc)
	l.Restore(cp)
	braceDepth := 0
	for {
		tok := l.NextToken()
		switch tok.Kind {
		case TokenEOF:
			return 0, false
		case TokenUnknownRest:
			return 0, false
		case TokenLBrace:
			braceDepth++
		case TokenRBrace:
			if braceDepth > 0 {
				braceDepth--
				continue
			}
		}
		if braceDepth == 0 && (tok.Kind == TokenSemicolon || tok.Kind == TokenRBrace) {
			if boundary := l.Checkpoint(); boundary.isCleanBoundary() && boundary.Offset >= minOffset {
				return boundary.Offset, true
			}
		}
	}
}

// oldBoundaryAt reports whether offset falls between top-level
// statements of the previous tree, so the statements after it can be
// spliced in whole.
func (ip *IncrementalParser) oldBoundaryAt(offset int) bool {
	if offset < 0 || offset > len(ip.src) {
		return false
	}
	for _, stmt := range ip.output.Tree.Children {
		if stmt.Span.Start < offset && stmt.Span.End > offset {
			return false
		}
	}
	return true
}

func (ip *IncrementalParser) splice(newSrc string, cp LexerCheckpoint, middle *ParseOutput, resyncNew, resyncOld, delta int) *UpdateResult {
	old := ip.output
	tree := &Node{Kind: KindProgram, Span: Span{Start: 0, End: len(newSrc)}}
	result := &UpdateResult{}

	for _, stmt := range old.Tree.Children {
		if stmt.Span.End <= cp.Offset {
			tree.AddChild(stmt)
			result.ReusedHead++
		}
	}
	for _, stmt := range middle.Tree.Children {
		moved := stmt
		moved.shift(cp.Offset)
		tree.AddChild(moved)
	}
	var tailSpans []Span
	for _, stmt := range old.Tree.Children {
		if stmt.Span.Start >= resyncOld {
			moved := stmt.clone()
			moved.shift(delta)
			tree.AddChild(moved)
			tailSpans = append(tailSpans, stmt.Span)
			result.ReusedTail++
			ip.recordTailCheckpoint(moved)
		}
	}

	var errs []*ParseError
	for _, err := range old.Errors {
		if err.Span.End <= cp.Offset {
			errs = append(errs, err)
		}
	}
	for _, err := range middle.Errors {
		shifted := *err
		shifted.Span.Start += cp.Offset
		shifted.Span.End += cp.Offset
		errs = append(errs, &shifted)
	}
	// Tail errors travel with their statement. An old error recorded past
	// the resync point but belonging to the reparsed region (a missing
	// semicolon anchored at the edited statement's end) must not survive
	// the splice, so only errors inside a reused statement are kept.
	for _, err := range old.Errors {
		if !spanWithinAny(err.Span, tailSpans) {
			continue
		}
		shifted := *err
		shifted.Span.Start += delta
		shifted.Span.End += delta
		errs = append(errs, &shifted)
	}

	var tokens []Token
	for _, tok := range old.Tokens {
		if tok.Kind != TokenEOF && tok.End <= cp.Offset {
			tokens = append(tokens, tok)
			result.ReusedTokens++
		}
	}
	for _, tok := range middle.Tokens {
		if tok.Kind == TokenEOF {
			continue
		}
		tok.Start += cp.Offset
		tok.End += cp.Offset
		tokens = append(tokens, tok)
	}
	for _, tok := range old.Tokens {
		if tok.Start >= resyncOld {
			tok.Start += delta
			tok.End += delta
			tokens = append(tokens, tok)
			if tok.Kind != TokenEOF {
				result.ReusedTokens++
			}
		}
	}

	ip.mergeMiddleCheckpoints(newSrc, cp.Offset, resyncNew)

	ip.src = newSrc
	ip.output = &ParseOutput{
		Tree:            tree,
		Errors:          errs,
		Usage:           middle.Usage,
		TerminatedEarly: false,
		Tokens:          tokens,
		Source:          newSrc,
	}
	result.Output = ip.output
	return result
}

func spanWithinAny(s Span, spans []Span) bool {
	for _, outer := range spans {
		if s.Start >= outer.Start && s.End <= outer.End {
			return true
		}
	}
	return false
}

// mergeMiddleCheckpoints re-lexes the reparsed region against the live
// cache so future edits inside it have boundaries to restore.
func (ip *IncrementalParser) mergeMiddleCheckpoints(newSrc string, from, to int) {
	l := NewLexer(newSrc)
	cp, ok := ip.cache.Before(from)
	if ok {
		l.Restore(cp)
	}
	braceDepth := 0
	for l.pos < to {
		tok := l.NextToken()
		if tok.Kind == TokenEOF || tok.Kind == TokenUnknownRest {
			return
		}
		switch tok.Kind {
		case TokenLBrace:
			braceDepth++
		case TokenRBrace:
			if braceDepth > 0 {
				braceDepth--
				continue
			}
		}
		if braceDepth == 0 && (tok.Kind == TokenSemicolon || tok.Kind == TokenRBrace) {
			if boundary := l.Checkpoint(); boundary.isCleanBoundary() {
				ip.cache.Record(boundary)
			}
		}
	}
}

// recordTailCheckpoint restores the boundary after a reused statement.
// Statements containing heredocs are skipped: their terminator lines sit
// past the statement end, so the boundary there is not clean.
func (ip *IncrementalParser) recordTailCheckpoint(stmt *Node) {
	hasHeredoc := false
	stmt.Walk(func(n *Node) bool {
		if n.Kind == KindHeredoc {
			hasHeredoc = true
			return false
		}
		return true
	})
	if hasHeredoc {
		return
	}
	ip.cache.Record(LexerCheckpoint{
		Offset: stmt.Span.End,
		Mode:   ModeExpectTerm,
	})
}
