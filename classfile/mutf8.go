package classfile

import (
	"strings"
	"unicode/utf8"
)

// decodeModifiedUtf8 decodes the JVM's modified UTF-8: NUL is encoded as
// two bytes and supplementary characters as surrogate pairs. Malformed
// sequences decode byte-wise to U+FFFD.
func decodeModifiedUtf8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			sb.WriteByte(c)
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b) && b[i+1]&0xC0 == 0x80:
			sb.WriteRune(rune(c&0x1F)<<6 | rune(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b) && b[i+1]&0xC0 == 0x80 && b[i+2]&0xC0 == 0x80:
			r := rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			if r >= 0xD800 && r <= 0xDBFF && i+5 < len(b) &&
				b[i+3] == 0xED && b[i+4]&0xF0 == 0xB0 && b[i+5]&0xC0 == 0x80 {
				low := rune(b[i+3]&0x0F)<<12 | rune(b[i+4]&0x3F)<<6 | rune(b[i+5]&0x3F)
				sb.WriteRune(0x10000 + (r-0xD800)<<10 + (low - 0xDC00))
				i += 6
				continue
			}
			sb.WriteRune(r)
			i += 3
		default:
			sb.WriteRune(utf8.RuneError)
			i++
		}
	}
	return sb.String()
}

func encodeModifiedUtf8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			out = appendThreeByte(out, r)
		default:
			r -= 0x10000
			out = appendThreeByte(out, 0xD800+(r>>10))
			out = appendThreeByte(out, 0xDC00+(r&0x3FF))
		}
	}
	return out
}

func appendThreeByte(out []byte, r rune) []byte {
	return append(out, 0xE0|byte(r>>12), 0x80|byte((r>>6)&0x3F), 0x80|byte(r&0x3F))
}
