package bytecursor

import "unicode/utf8"

// DecodeMUTF8 decodes the modified UTF-8 used by both class and dex files.
// Surrogate pairs are joined, the two byte NUL form decodes to U+0000, and
// malformed sequences decode byte by byte instead of failing.
func DecodeMUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, 0, len(b))
	i := 0
	for i < len(b) {
		r, n := decodeRune(b[i:])
		i += n
		if r >= 0xD800 && r <= 0xDBFF && i < len(b) {
			if low, m := decodeRune(b[i:]); low >= 0xDC00 && low <= 0xDFFF {
				r = 0x10000 + ((r - 0xD800) << 10) + (low - 0xDC00)
				i += m
			}
		}
		runes = append(runes, r)
	}
	return string(runes)
}

func decodeRune(b []byte) (rune, int) {
	c := b[0]
	switch {
	case c&0x80 == 0:
		return rune(c), 1
	case c&0xE0 == 0xC0 && len(b) >= 2:
		return rune(c&0x1F)<<6 | rune(b[1]&0x3F), 2
	case c&0xF0 == 0xE0 && len(b) >= 3:
		return rune(c&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), 3
	default:
		return rune(c), 1
	}
}
