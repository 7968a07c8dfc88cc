package issuemd

import "strings"

// Metadata values are embedded in HTML comments, so a raw value containing
// the comment terminator or a newline would break the block structure.
// EncodeMetadataValue escapes those sequences reversibly:
//
//	\   -> \\
//	LF  -> \n
//	CR  -> \r
//	--> -> --\>
//
// DecodeMetadataValue is its exact inverse.
func EncodeMetadataValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "-->", `--\>`)
	return s
}

// DecodeMetadataValue reverses EncodeMetadataValue. Unknown escape
// sequences are passed through verbatim so hand-edited values degrade
// gracefully.
func DecodeMetadataValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '>':
			b.WriteByte('>')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
