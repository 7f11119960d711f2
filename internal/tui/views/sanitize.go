package views

import "strings"

// cellText flattens s onto one line and drops runes that tcell renders with
// the wrong width: skin tone modifiers, zero width joiners and variation
// selectors.
func cellText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		case r >= 0x1F3FB && r <= 0x1F3FF:
			return -1
		case r == 0x200D:
			return -1
		case r >= 0xFE00 && r <= 0xFE0F:
			return -1
		case r >= 0xE0100 && r <= 0xE01EF:
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
