package parser

import "testing"

func TestEditValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    Edit
		wantErr bool
	}{
		{"insert", Edit{StartByte: 5, OldEndByte: 5, NewEndByte: 8}, false},
		{"delete", Edit{StartByte: 5, OldEndByte: 8, NewEndByte: 5}, false},
		{"replace", Edit{StartByte: 5, OldEndByte: 8, NewEndByte: 10}, false},
		{"negative start", Edit{StartByte: -1, OldEndByte: 0, NewEndByte: 0}, true},
		{"old end before start", Edit{StartByte: 5, OldEndByte: 3, NewEndByte: 6}, true},
		{"new end before start", Edit{StartByte: 5, OldEndByte: 6, NewEndByte: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edit.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEditApplyToOffset(t *testing.T) {
	edit := Edit{StartByte: 10, OldEndByte: 15, NewEndByte: 12}

	tests := []struct {
		offset int
		want   int
		ok     bool
	}{
		{5, 5, true},
		{9, 9, true},
		{10, 0, false},
		{14, 0, false},
		{15, 12, true},
		{20, 17, true},
	}

	for _, tt := range tests {
		got, ok := edit.ApplyToOffset(tt.offset)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ApplyToOffset(%d) = %d, %v; want %d, %v", tt.offset, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEditApplyToSpan(t *testing.T) {
	edit := Edit{StartByte: 10, OldEndByte: 15, NewEndByte: 12}

	tests := []struct {
		span Span
		want Span
		ok   bool
	}{
		{Span{Start: 0, End: 10}, Span{Start: 0, End: 10}, true},
		{Span{Start: 15, End: 20}, Span{Start: 12, End: 17}, true},
		{Span{Start: 8, End: 12}, Span{}, false},
		{Span{Start: 12, End: 18}, Span{}, false},
	}

	for _, tt := range tests {
		got, ok := edit.ApplyToSpan(tt.span)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ApplyToSpan(%v) = %v, %v; want %v, %v", tt.span, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEditApplyToSource(t *testing.T) {
	edit := Edit{StartByte: 3, OldEndByte: 6, NewEndByte: 8}
	if got := edit.ApplyToSource("abcdefghi", "XYZZY"); got != "abcXYZZYghi" {
		t.Errorf("ApplyToSource = %q, want %q", got, "abcXYZZYghi")
	}
}

func TestEditSetSequence(t *testing.T) {
	var set EditSet
	if err := set.Add(Edit{StartByte: 0, OldEndByte: 0, NewEndByte: 4}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := set.Add(Edit{StartByte: 10, OldEndByte: 12, NewEndByte: 10}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2", set.Len())
	}

	// Offset 8 in the original: +4 from the insert lands it at 12, the old
	// end of the deletion, which then shifts it back by 2.
	got, ok := set.ApplyToOffset(8)
	if !ok || got != 10 {
		t.Errorf("ApplyToOffset(8) = %d, %v; want 10, true", got, ok)
	}
	// Offset 7 maps to 11, inside the second edit's replaced range.
	if _, ok := set.ApplyToOffset(7); ok {
		t.Errorf("ApplyToOffset(7) survived an edit that replaced it")
	}

	if err := set.Add(Edit{StartByte: -2, OldEndByte: 0, NewEndByte: 0}); err == nil {
		t.Errorf("Add accepted an invalid edit")
	}
	if set.Len() != 2 {
		t.Errorf("invalid edit changed Len to %d", set.Len())
	}
}
