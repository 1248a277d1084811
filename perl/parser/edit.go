package parser

import "fmt"

// Edit describes one source change in byte terms: the bytes from
// StartByte to OldEndByte were replaced by new content ending at
// NewEndByte. Position fields carry the same boundaries in line/column
// form for callers that track them.
type Edit struct {
	StartByte  int
	OldEndByte int
	NewEndByte int

	StartPos  Position
	OldEndPos Position
	NewEndPos Position
}

// Delta is the change in total length.
func (e Edit) Delta() int { return e.NewEndByte - e.OldEndByte }

func (e Edit) Validate() error {
	if e.StartByte < 0 {
		return fmt.Errorf("edit start %d is negative", e.StartByte)
	}
	if e.OldEndByte < e.StartByte {
		return fmt.Errorf("edit old end %d precedes start %d", e.OldEndByte, e.StartByte)
	}
	if e.NewEndByte < e.StartByte {
		return fmt.Errorf("edit new end %d precedes start %d", e.NewEndByte, e.StartByte)
	}
	return nil
}

// ApplyToOffset maps a pre-edit byte offset to its post-edit location.
// Offsets inside the replaced range are invalidated.
func (e Edit) ApplyToOffset(offset int) (int, bool) {
	if offset < e.StartByte {
		return offset, true
	}
	if offset < e.OldEndByte {
		return 0, false
	}
	return offset + e.Delta(), true
}

// ApplyToSpan maps a pre-edit span to its post-edit location. Any
// overlap with the replaced range invalidates the span.
func (e Edit) ApplyToSpan(s Span) (Span, bool) {
	if s.End <= e.StartByte {
		return s, true
	}
	if s.Start >= e.OldEndByte {
		return Span{Start: s.Start + e.Delta(), End: s.End + e.Delta()}, true
	}
	return Span{}, false
}

// EditSet accumulates edits in application order. Each edit's byte
// offsets are relative to the document state produced by the previous
// edits in the set.
type EditSet struct {
	edits []Edit
}

func (es *EditSet) Add(e Edit) error {
	if err := e.Validate(); err != nil {
		return err
	}
	es.edits = append(es.edits, e)
	return nil
}

func (es *EditSet) Len() int      { return len(es.edits) }
func (es *EditSet) Edits() []Edit { return es.edits }

// ApplyToOffset maps an offset through every edit in order.
func (es *EditSet) ApplyToOffset(offset int) (int, bool) {
	for _, e := range es.edits {
		mapped, ok := e.ApplyToOffset(offset)
		if !ok {
			return 0, false
		}
		offset = mapped
	}
	return offset, true
}

// ApplyToSpan maps a span through every edit in order.
func (es *EditSet) ApplyToSpan(s Span) (Span, bool) {
	for _, e := range es.edits {
		mapped, ok := e.ApplyToSpan(s)
		if !ok {
			return Span{}, false
		}
		s = mapped
	}
	return s, true
}

// ApplyToSource splices new text into src per the edit. newText must be
// exactly the replacement content.
func (e Edit) ApplyToSource(src, newText string) string {
	if e.StartByte > len(src) || e.OldEndByte > len(src) {
		return src
	}
	return src[:e.StartByte] + newText + src[e.OldEndByte:]
}
