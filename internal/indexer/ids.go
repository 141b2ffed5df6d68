package indexer

import (
	"strconv"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// RecordID derives the vector ID for chunk idx of the file at relPath.
// ASCII whitespace becomes "_" and every byte outside printable ASCII, plus
// "%" itself, is percent-encoded, so IDs are stable and accepted by any store.
func RecordID(relPath string, idx int) string {
	raw := relPath + "_" + strconv.Itoa(idx)

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			b.WriteByte('_')
		case c > 0x20 && c < 0x7f && c != '%':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0f])
		}
	}
	return b.String()
}
