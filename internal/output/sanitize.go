package output

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// SanitizeTerminal replaces control characters and invalid UTF-8 bytes with
// visible escapes so a hostile process name cannot drive the terminal.
// Newlines and tabs are kept.
//
//	"hi\x1b[31m" -> `hi\\x1b[31m`
//	"bad:\xff"   -> `bad:\\xff`
func SanitizeTerminal(s string) string {
	var b *strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		invalid := r == utf8.RuneError && size == 1
		if !invalid && (r == '\n' || r == '\t' || !unicode.IsControl(r)) {
			if b != nil {
				b.WriteString(s[i : i+size])
			}
			i += size
			continue
		}

		if b == nil {
			b = &strings.Builder{}
			b.Grow(len(s) + 8)
			b.WriteString(s[:i])
		}
		if invalid {
			writeEscape(b, 'x', uint32(s[i]), 2)
		} else {
			appendEscapedRune(b, r)
		}
		i += size
	}
	if b == nil {
		return s
	}
	return b.String()
}

// appendEscapedRune writes r as \xHH, \uHHHH or \UHHHHHHHH, whichever is the
// shortest that fits.
func appendEscapedRune(b *strings.Builder, r rune) {
	switch {
	case r <= 0xFF:
		writeEscape(b, 'x', uint32(r), 2)
	case r <= 0xFFFF:
		writeEscape(b, 'u', uint32(r), 4)
	default:
		writeEscape(b, 'U', uint32(r), 8)
	}
}

func writeEscape(b *strings.Builder, kind byte, v uint32, digits int) {
	b.WriteString(`\\`)
	b.WriteByte(kind)
	for shift := (digits - 1) * 4; shift >= 0; shift -= 4 {
		b.WriteByte(hexDigits[(v>>uint(shift))&0x0f])
	}
}
