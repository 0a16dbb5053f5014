package engine

import "strings"

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot collide with user variables.
//  2. Hyphens inside identifiers become underscores (i-beam -> i_beam);
//     zygomys would otherwise read them as subtraction.
//  3. ; line comments become // comments.
//
// String literals ("..." and `...`) pass through untouched.
func preprocessSource(source string) string {
	var sb strings.Builder
	sb.Grow(len(source) + len(source)/4)
	b := source
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			j = min(j+1, len(b))
			sb.WriteString(b[i:j])
			i = j
		case c == '`':
			j := strings.IndexByte(b[i+1:], '`')
			if j < 0 {
				sb.WriteString(b[i:])
				return sb.String()
			}
			sb.WriteString(b[i : i+j+2])
			i += j + 2
		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			end := strings.IndexByte(b[i:], '\n')
			if end < 0 {
				end = len(b) - i
			}
			sb.WriteString("//")
			sb.WriteString(b[i : i+end])
			i += end
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			sb.WriteString(":=")
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			sb.WriteByte('"')
			sb.WriteString(kwPrefix)
			sb.WriteString(b[i+1 : j])
			sb.WriteByte('"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			sb.WriteByte('_')
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
