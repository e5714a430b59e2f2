package message

import "unicode/utf8"

// ByteOffsetForRune converts a rune-indexed cursor_pos (what the protocol
// sends: front-ends count Unicode code points, not bytes) into a byte
// offset into code. A cursor_pos beyond the end of code clamps to len(code).
func ByteOffsetForRune(code string, cursorPos int) int {
	if cursorPos <= 0 {
		return 0
	}
	i := 0
	for n := 0; n < cursorPos; n++ {
		if i >= len(code) {
			return len(code)
		}
		_, size := utf8.DecodeRuneInString(code[i:])
		i += size
	}
	return i
}

// RuneOffsetForByte is the inverse of ByteOffsetForRune: it converts a byte
// offset back into a rune count, for building cursor_start/cursor_end in
// replies from byte-based slicing done internally.
func RuneOffsetForByte(code string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(code) {
		byteOffset = len(code)
	}
	return utf8.RuneCountInString(code[:byteOffset])
}
