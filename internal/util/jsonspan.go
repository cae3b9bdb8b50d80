package util

import "strings"

// ExtractJSONSpan returns the first balanced span opened by open ('[' or '{') in s.
// Brackets inside JSON string literals are ignored, so prose or markdown fences
// around the payload do not matter.
func ExtractJSONSpan(s string, open byte) (string, bool) {
	var closeCh byte
	switch open {
	case '[':
		closeCh = ']'
	case '{':
		closeCh = '}'
	default:
		return "", false
	}

	for start := strings.IndexByte(s, open); start >= 0; {
		if end, ok := matchSpan(s, start, open, closeCh); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchSpan(s string, start int, open, closeCh byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
