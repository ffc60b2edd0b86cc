package validation

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("response is empty")
	// ErrNoJSON is returned when no complete JSON object or array is present.
	ErrNoJSON = errors.New("response contains no JSON object or array")
)

// maxCandidates bounds how many opening brackets are tried before giving up.
const maxCandidates = 256

// Extract locates and decodes the first well-formed JSON object or array in
// raw. Fenced code blocks are tried first since models usually put the payload
// there; otherwise the text is scanned left to right.
func Extract(raw string) (any, error) {
	candidates, err := Candidates(raw)
	if err != nil {
		return nil, err
	}
	return candidates[0], nil
}

// Candidates decodes every well-formed JSON object or array in raw, in the
// order Extract prefers them: fenced blocks first, then the whole text left to
// right. A value is listed once, and values nested inside another candidate
// are not listed at all. The result is never empty when err is nil.
func Candidates(raw string) ([]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var candidates []any
	seen := map[string]bool{}
	collect := func(s string) {
		for _, segment := range jsonSegments(s) {
			if seen[segment] {
				continue
			}
			seen[segment] = true
			var v any
			_ = json.Unmarshal([]byte(segment), &v)
			candidates = append(candidates, v)
		}
	}
	for _, block := range fencedBlocks(text) {
		collect(block)
	}
	collect(text)

	if len(candidates) == 0 {
		return nil, ErrNoJSON
	}
	return candidates, nil
}

// fencedBlocks returns the bodies of ``` fenced blocks in order of appearance.
// The info string after the opening fence (e.g. "json") is dropped.
func fencedBlocks(text string) []string {
	var blocks []string
	rest := text
	for {
		start := strings.Index(rest, "```")
		if start == -1 {
			return blocks
		}
		body := rest[start+3:]
		end := strings.Index(body, "```")
		if end == -1 {
			// Unterminated fence: models sometimes stop before closing it.
			end = len(body)
		}
		block := body[:end]
		if nl := strings.IndexByte(block, '\n'); nl != -1 && !strings.ContainsAny(block[:nl], "{[") {
			block = block[nl+1:]
		}
		blocks = append(blocks, strings.TrimSpace(block))
		if end == len(body) {
			return blocks
		}
		rest = body[end+3:]
	}
}

// jsonSegments returns the top-level JSON values of text in order, as the
// source text of each. Scanning resumes after each value found.
func jsonSegments(text string) []string {
	var segments []string
	tried := 0
	for i := 0; i < len(text) && tried < maxCandidates; i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		tried++

		end, ok := matchingClose(text, i)
		if !ok {
			continue
		}

		segment := text[i : end+1]
		if json.Valid([]byte(segment)) {
			segments = append(segments, segment)
			i = end
		}
	}
	return segments
}

// matchingClose finds the bracket closing the one at start, skipping brackets
// inside JSON strings.
func matchingClose(text string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
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
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) == 0 {
				return 0, false
			}
			open := stack[len(stack)-1]
			if (open == '{' && ch != '}') || (open == '[' && ch != ']') {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
