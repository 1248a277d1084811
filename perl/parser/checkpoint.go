package parser

import "sort"

// LexerCheckpoint is a full snapshot of lexer state at a byte offset.
// Restoring one and lexing forward produces exactly the tokens a fresh
// lexer would produce from that offset.
type LexerCheckpoint struct {
	Offset          int
	Mode            LexerMode
	DelimStack      []rune
	PendingHeredocs []pendingHeredoc
	FormatPending   bool
}

// clone deep-copies the checkpoint so later lexer mutation cannot reach
// back into a cached snapshot.
func (c LexerCheckpoint) clone() LexerCheckpoint {
	out := c
	out.DelimStack = append([]rune(nil), c.DelimStack...)
	out.PendingHeredocs = append([]pendingHeredoc(nil), c.PendingHeredocs...)
	return out
}

// isCleanBoundary reports whether the checkpoint sits at a position with
// no carried-over lexing obligations and the same mode a fresh lexer
// starts in. Only clean checkpoints are safe targets for incremental
// restart: the reparsed region is lexed standalone, so any state beyond
// the fresh-lexer default would make the splice diverge from a full
// parse. In particular a boundary right after a block-closing brace is
// not clean, because the brace leaves the lexer expecting an operator.
func (c LexerCheckpoint) isCleanBoundary() bool {
	return c.Mode == ModeExpectTerm &&
		len(c.DelimStack) == 0 &&
		len(c.PendingHeredocs) == 0 &&
		!c.FormatPending
}

// CheckpointCache holds checkpoints ordered by offset. The incremental
// parser records one per top-level statement boundary and restores the
// latest one at or before an edit.
type CheckpointCache struct {
	checkpoints []LexerCheckpoint
}

func NewCheckpointCache() *CheckpointCache {
	return &CheckpointCache{}
}

func (cc *CheckpointCache) Len() int { return len(cc.checkpoints) }

// Record inserts a checkpoint, keeping the slice ordered by offset. A
// checkpoint at an already-recorded offset replaces the old one.
func (cc *CheckpointCache) Record(cp LexerCheckpoint) {
	cp = cp.clone()
	i := sort.Search(len(cc.checkpoints), func(i int) bool {
		return cc.checkpoints[i].Offset >= cp.Offset
	})
	if i < len(cc.checkpoints) && cc.checkpoints[i].Offset == cp.Offset {
		cc.checkpoints[i] = cp
		return
	}
	cc.checkpoints = append(cc.checkpoints, LexerCheckpoint{})
	copy(cc.checkpoints[i+1:], cc.checkpoints[i:])
	cc.checkpoints[i] = cp
}

// Before returns the latest checkpoint with Offset <= offset, or false
// if none exists.
func (cc *CheckpointCache) Before(offset int) (LexerCheckpoint, bool) {
	i := sort.Search(len(cc.checkpoints), func(i int) bool {
		return cc.checkpoints[i].Offset > offset
	})
	if i == 0 {
		return LexerCheckpoint{}, false
	}
	return cc.checkpoints[i-1].clone(), true
}

// InvalidateFrom drops every checkpoint at or after offset. Called with
// an edit's start byte; checkpoints before the edit stay valid because
// lexer state at an offset depends only on preceding bytes.
func (cc *CheckpointCache) InvalidateFrom(offset int) {
	i := sort.Search(len(cc.checkpoints), func(i int) bool {
		return cc.checkpoints[i].Offset >= offset
	})
	cc.checkpoints = cc.checkpoints[:i]
}

// Shift moves every checkpoint at or after offset by delta bytes. Used
// when an edit strictly after a checkpoint region changes total length.
func (cc *CheckpointCache) Shift(offset, delta int) {
	for i := range cc.checkpoints {
		if cc.checkpoints[i].Offset >= offset {
			cc.checkpoints[i].Offset += delta
		}
	}
}
