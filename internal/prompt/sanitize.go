package prompt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxFieldRunes caps every user-supplied string before it reaches a prompt.
const DefaultMaxFieldRunes = 2000

var structuralReplacer = strings.NewReplacer(
	"[", "(",
	"]", ")",
	"<", "(",
	">", ")",
	"{", "(",
	"}", ")",
)

// Sanitize rewrites value so that it cannot open code fences, tags, link or
// template syntax inside a prompt. Whitespace is collapsed to single spaces and
// the result is cut to maxRunes (no limit when maxRunes <= 0).
func Sanitize(value string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(value))

	space := false
	tick := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			tick = false
			continue
		}
		if r == '`' && tick {
			continue
		}
		if r != '`' && (unicode.IsControl(r) || r == utf8.RuneError) {
			continue
		}

		if space {
			b.WriteByte(' ')
			space = false
		}
		if r == '`' {
			b.WriteByte('\'')
			tick = true
			continue
		}
		tick = false
		b.WriteRune(r)
	}

	out := structuralReplacer.Replace(b.String())
	return truncate(out, maxRunes)
}

// sanitizeValue applies Sanitize to every string inside value.
func sanitizeValue(value any, maxRunes int) any {
	switch v := value.(type) {
	case string:
		return Sanitize(v, maxRunes)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = Sanitize(s, maxRunes)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item, maxRunes)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = sanitizeValue(item, maxRunes)
		}
		return out
	default:
		return v
	}
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes])) + "..."
}
