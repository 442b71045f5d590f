package editor

import "unicode/utf8"

// Browsers report text positions in UTF-16 code units. The draft is UTF-8.

// unitLen is the number of UTF-16 code units r occupies. Invalid bytes decode
// to utf8.RuneError and count as one unit.
func unitLen(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}

// ByteOffset converts a UTF-16 offset into a byte offset in s. Offsets past
// the end map to len(s); an offset inside a surrogate pair maps to the start
// of that rune.
func ByteOffset(s []byte, units int) int {
	if units <= 0 {
		return 0
	}
	n := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRune(s[i:])
		w := unitLen(r)
		if n+w > units {
			return i
		}
		n += w
		i += size
	}
	return len(s)
}

// UnitOffset converts a byte offset in s into UTF-16 code units.
func UnitOffset(s []byte, offset int) int {
	offset = min(max(offset, 0), len(s))
	n := 0
	for i := 0; i < offset; {
		r, size := utf8.DecodeRune(s[i:])
		n += unitLen(r)
		i += size
	}
	return n
}
