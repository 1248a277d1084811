package parser

import (
	"fmt"
	"unicode/utf8"
)

// Position is a location in a source buffer. Offset is the byte offset,
// Line is 1-based, Column is a 1-based byte column within the line. For
// editor-protocol (UTF-16) columns use LineIndex.ByteToPosition.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open byte range [Start, End) in the source.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) IsEmpty() bool {
	return s.End <= s.Start
}

func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset < s.End
}

func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Extend grows the span to cover other.
func (s Span) Extend(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// LineEnding identifies the newline convention of a source snapshot.
type LineEnding int

const (
	EndingNone LineEnding = iota
	EndingLF
	EndingCR
	EndingCRLF
	EndingMixed
)

func (e LineEnding) String() string {
	switch e {
	case EndingNone:
		return "none"
	case EndingLF:
		return "\\n"
	case EndingCR:
		return "\\r"
	case EndingCRLF:
		return "\\r\\n"
	case EndingMixed:
		return "mixed"
	}
	return "unknown"
}

// LineIndex precomputes line-start byte offsets for a source snapshot and
// converts between byte offsets and (line, UTF-16 column) pairs. The parser
// works in bytes; LSP and DAP speak UTF-16 code units, so every boundary
// crossing goes through here.
//
// A LineIndex is immutable after construction and belongs to exactly one
// snapshot of the text; after an edit, build a new one.
type LineIndex struct {
	src        string
	lineStarts []int
	ending     LineEnding
}

// NewLineIndex scans the text once, recording line starts and detecting the
// newline convention. CR, LF and CRLF all terminate lines; a buffer that
// mixes them reports EndingMixed rather than silently picking one.
func NewLineIndex(src string) *LineIndex {
	idx := &LineIndex{src: src, lineStarts: []int{0}}
	sawLF, sawCR, sawCRLF := false, false, false
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			sawLF = true
			idx.lineStarts = append(idx.lineStarts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				sawCRLF = true
				idx.lineStarts = append(idx.lineStarts, i+2)
				i++
			} else {
				sawCR = true
				idx.lineStarts = append(idx.lineStarts, i+1)
			}
		}
	}
	switch {
	case sawLF && !sawCR && !sawCRLF:
		idx.ending = EndingLF
	case sawCR && !sawLF && !sawCRLF:
		idx.ending = EndingCR
	case sawCRLF && !sawLF && !sawCR:
		idx.ending = EndingCRLF
	case sawLF || sawCR || sawCRLF:
		idx.ending = EndingMixed
	default:
		idx.ending = EndingNone
	}
	return idx
}

// LineEnding reports the newline convention detected at construction.
func (idx *LineIndex) LineEnding() LineEnding {
	return idx.ending
}

// MixedLineEndings reports whether the snapshot mixes newline conventions.
func (idx *LineIndex) MixedLineEndings() bool {
	return idx.ending == EndingMixed
}

// LineCount returns the number of lines, counting a trailing newline as
// starting a final empty line.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// LineStart returns the byte offset at which line (0-based) begins.
func (idx *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(idx.lineStarts) {
		return len(idx.src)
	}
	return idx.lineStarts[line]
}

// lineFor returns the 0-based line containing the byte offset.
func (idx *LineIndex) lineFor(offset int) int {
	lo, hi := 0, len(idx.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if idx.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// lineEndContent returns the byte offset where the content of line ends,
// excluding the line terminator.
func (idx *LineIndex) lineEndContent(line int) int {
	end := len(idx.src)
	if line+1 < len(idx.lineStarts) {
		end = idx.lineStarts[line+1]
		for end > idx.lineStarts[line] && (idx.src[end-1] == '\n' || idx.src[end-1] == '\r') {
			end--
		}
	}
	return end
}

// ByteToPosition converts a byte offset into a (0-based line, UTF-16 column)
// pair. Offsets beyond the end of the text clamp to the final position. An
// offset inside a multi-byte character maps to the column after that
// character's start, mirroring PositionToByte which maps mid-character
// columns to the character start.
func (idx *LineIndex) ByteToPosition(offset int) (line, col int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > len(idx.src) {
		offset = len(idx.src)
	}
	line = idx.lineFor(offset)
	start := idx.lineStarts[line]
	col = 0
	for i := start; i < offset; {
		r, size := utf8.DecodeRuneInString(idx.src[i:])
		if r == utf8.RuneError && size == 1 {
			// Invalid byte: count as one code unit so positions stay monotonic.
			col++
			i++
			continue
		}
		if i+size > offset {
			// Offset lands inside this rune.
			col++
			break
		}
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
		i += size
	}
	return line, col
}

// PositionToByte converts a (0-based line, UTF-16 column) pair back to a
// byte offset. Columns inside a surrogate pair map to the start of the
// character; columns past the line end clamp to the end of the line content.
func (idx *LineIndex) PositionToByte(line, col int) int {
	if line < 0 {
		return 0
	}
	if line >= len(idx.lineStarts) {
		return len(idx.src)
	}
	start := idx.lineStarts[line]
	end := idx.lineEndContent(line)
	if col <= 0 {
		return start
	}
	units := 0
	for i := start; i < end; {
		r, size := utf8.DecodeRuneInString(idx.src[i:])
		width := 1
		if r >= 0x10000 {
			width = 2
		}
		if units+width > col {
			// Column falls inside this character.
			return i
		}
		units += width
		i += size
		if units == col {
			return i
		}
	}
	return end
}

// PositionAt returns the full engine Position (1-based line/byte column)
// for a byte offset, used for human-readable diagnostics.
func (idx *LineIndex) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(idx.src) {
		offset = len(idx.src)
	}
	line := idx.lineFor(offset)
	return Position{
		Offset: offset,
		Line:   line + 1,
		Column: offset - idx.lineStarts[line] + 1,
	}
}

// LineText returns the content of line (0-based) without its terminator.
func (idx *LineIndex) LineText(line int) string {
	if line < 0 || line >= len(idx.lineStarts) {
		return ""
	}
	return idx.src[idx.lineStarts[line]:idx.lineEndContent(line)]
}
