package intent

import "strings"

// Clean normalizes a model response into something encoding/json can parse.
// It strips markdown fences, surrounding prose, comments and trailing commas.
// Clean(Clean(s)) == Clean(s) for every input.
func Clean(raw string) string {
	s := raw
	// every pass either returns its input or a strictly shorter string
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = stripFences(strings.TrimSpace(s))
	s = extractObject(s)
	s = stripCommentsAndCommas(s)
	return strings.TrimSpace(s)
}

func stripFences(s string) string {
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject drops prose before the first '{' and after the last '}'.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// stripCommentsAndCommas removes // and /* */ comments and commas that
// directly precede a closing brace or bracket. String literals are left
// untouched.
func stripCommentsAndCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 3
			}
		case c == '}' || c == ']':
			out := trimTrailingCommas(b.String())
			b.Reset()
			b.WriteString(out)
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func trimTrailingCommas(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n,")
	if !strings.Contains(s[len(trimmed):], ",") {
		return s
	}
	return trimmed
}
