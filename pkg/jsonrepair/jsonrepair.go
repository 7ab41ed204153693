// Package jsonrepair recovers truncated JSON documents produced by
// generative models that hit their output token limit. It is a bounded
// best-effort pass, not a general JSON fixer: it closes an unterminated
// string, removes a dangling trailing comma, colon or object key, and
// appends the closing brackets and braces that the truncation cut off.
package jsonrepair

import "strings"

// Repair returns a repaired copy of input. A document that already parses
// is returned unchanged.
func Repair(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return input
	}

	inString, danglingEscape, open := scan(trimmed)

	result := trimmed
	if danglingEscape {
		result = result[:len(result)-1]
	}
	if inString {
		result += `"`
	}

	result = trimDanglingSeparators(result)
	if len(open) > 0 && open[len(open)-1] == '{' {
		result = trimDanglingKey(result)
	}

	for i := len(open) - 1; i >= 0; i-- {
		switch open[i] {
		case '{':
			result += "}"
		case '[':
			result += "]"
		}
	}

	return result
}

// scan walks the document character by character tracking whether the end
// of input landed inside a string, whether the final character is an
// unfinished escape sequence, and which brackets are still open.
func scan(s string) (inString, danglingEscape bool, open []byte) {
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			open = append(open, c)
		case '}', ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}
	return inString, inString && escaped, open
}

// trimDanglingSeparators strips a trailing comma, or a trailing colon
// together with the key it belonged to, so the surrounding container can
// be closed cleanly. Runs in a loop because removing a key can expose a
// trailing comma underneath it.
func trimDanglingSeparators(s string) string {
	for {
		s = strings.TrimRight(s, " \t\r\n")
		if s == "" {
			return s
		}
		switch s[len(s)-1] {
		case ',':
			s = s[:len(s)-1]
		case ':':
			s = trimTrailingString(s[:len(s)-1])
		default:
			return s
		}
	}
}

// trimDanglingKey drops a trailing object key left without a colon and
// value by the truncation. A string directly inside an object with only
// '{' or ',' before it can only be a key, and a key with nothing after
// it cannot be closed into a valid member.
func trimDanglingKey(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if trimmed == "" || trimmed[len(trimmed)-1] != '"' {
		return s
	}

	withoutKey := trimTrailingString(trimmed)
	if withoutKey == trimmed {
		return s
	}

	head := strings.TrimRight(withoutKey, " \t\r\n")
	if head == "" {
		return s
	}
	switch head[len(head)-1] {
	case '{':
		return head
	case ',':
		return trimDanglingSeparators(head)
	}
	return s
}

// trimTrailingString removes a complete quoted string from the end of s,
// if one is there. Used to drop an object key whose value was truncated
// away entirely.
func trimTrailingString(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	if s == "" || s[len(s)-1] != '"' {
		return s
	}
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		if i > 0 && s[i-1] == '\\' {
			continue
		}
		return s[:i]
	}
	return s
}
