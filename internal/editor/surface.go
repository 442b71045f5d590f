package editor

// Surface is the text-entry control the draft is typed into. Offsets are byte
// offsets into the draft.
type Surface interface {
	// Selection returns the current selection. start == end is a caret.
	Selection() (start, end int)
	Focus()
	SetCursor(pos int)
	// AfterRender schedules fn to run once the surface shows the new draft.
	AfterRender(fn func())
}

func clampSelection(start, end, size int) (int, int) {
	if start > end {
		start, end = end, start
	}
	start = min(max(start, 0), size)
	end = min(max(end, 0), size)
	return start, end
}
