package parser

import "testing"

func TestSpan(t *testing.T) {
	s := Span{Start: 2, End: 8}
	if s.Len() != 6 {
		t.Errorf("Len = %d, want 6", s.Len())
	}
	if s.IsEmpty() {
		t.Errorf("IsEmpty = true, want false")
	}
	if !s.Contains(2) || !s.Contains(7) {
		t.Errorf("Contains endpoints wrong")
	}
	if s.Contains(8) {
		t.Errorf("Contains(8) = true, half-open span must exclude End")
	}
	if !s.Overlaps(Span{Start: 7, End: 10}) {
		t.Errorf("Overlaps(7..10) = false, want true")
	}
	if s.Overlaps(Span{Start: 8, End: 10}) {
		t.Errorf("Overlaps(8..10) = true, want false")
	}
}

func TestLineIndexBasics(t *testing.T) {
	idx := NewLineIndex("one\ntwo\nthree")
	if idx.LineCount() != 3 {
		t.Errorf("LineCount = %d, want 3", idx.LineCount())
	}
	if idx.LineStart(1) != 4 {
		t.Errorf("LineStart(1) = %d, want 4", idx.LineStart(1))
	}
	if idx.LineEnding() != EndingLF {
		t.Errorf("LineEnding = %v, want %v", idx.LineEnding(), EndingLF)
	}
	if idx.MixedLineEndings() {
		t.Errorf("MixedLineEndings = true, want false")
	}
	if got := idx.LineText(1); got != "two" {
		t.Errorf("LineText(1) = %q, want %q", got, "two")
	}
}

func TestMixedLineEndings(t *testing.T) {
	idx := NewLineIndex("a\r\nb\nc")
	if !idx.MixedLineEndings() {
		t.Errorf("MixedLineEndings = false, want true")
	}
}

func TestByteToPosition(t *testing.T) {
	// "aé😀b" is 1+2+4+1 bytes; é is one UTF-16 unit, 😀 is two.
	src := "aé\U0001F600b\nx"
	idx := NewLineIndex(src)

	tests := []struct {
		offset int
		line   int
		col    int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{3, 0, 2},
		{7, 0, 4},
		{8, 0, 5},
		{9, 1, 0},
		{2, 0, 2},
	}

	for _, tt := range tests {
		line, col := idx.ByteToPosition(tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("ByteToPosition(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
		}
	}
}

func TestPositionToByte(t *testing.T) {
	src := "aé\U0001F600b\nx"
	idx := NewLineIndex(src)

	tests := []struct {
		line   int
		col    int
		offset int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0, 2, 3},
		{0, 4, 7},
		{0, 5, 8},
		{1, 0, 9},
		{0, 3, 3},
		{0, 99, 8},
		{99, 0, len(src)},
	}

	for _, tt := range tests {
		if got := idx.PositionToByte(tt.line, tt.col); got != tt.offset {
			t.Errorf("PositionToByte(%d, %d) = %d, want %d", tt.line, tt.col, got, tt.offset)
		}
	}
}

func TestPositionRoundTrip(t *testing.T) {
	src := "my $x = \"aé\U0001F600\";\nprint $x;\n"
	idx := NewLineIndex(src)

	// Every rune boundary must survive the byte -> position -> byte trip.
	for offset := 0; offset <= len(src); offset++ {
		if offset < len(src) && src[offset]&0xC0 == 0x80 {
			continue
		}
		line, col := idx.ByteToPosition(offset)
		back := idx.PositionToByte(line, col)
		if back != offset {
			t.Errorf("round trip of %d gave %d (line %d col %d)", offset, back, line, col)
		}
	}
}

func TestPositionAt(t *testing.T) {
	idx := NewLineIndex("one\ntwo\n")
	pos := idx.PositionAt(5)
	if pos.Line != 2 || pos.Column != 2 {
		t.Errorf("PositionAt(5) = %d:%d, want 2:2", pos.Line, pos.Column)
	}
}
