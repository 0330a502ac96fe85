// Package decode repairs near-JSON text and parses it into a generic value.
//
// Upstream snapshot bodies vary between strict JSON, JSON-with-comments and
// malformed fragments. The decoder trades precision for availability: it
// applies an ordered ladder of repairs and never panics past this boundary.
package decode

import (
	"encoding/json"
	"strings"

	"github.com/tailscale/hujson"
)

// Decode parses text into a generic tree value (map[string]any, []any or
// scalar). Repair steps are attempted in order, each only if the previous
// did not yield a parseable result. On total failure it returns
// ErrUnparseable and the snapshot contributes zero records.
func Decode(text string) (any, error) {
	// Fast path: strict JSON as-is.
	if v, ok := tryStrict(text); ok {
		return v, nil
	}

	// JWCC pass: hujson standardizes comments and trailing commas exactly,
	// where the textual strip below is only best-effort.
	if b, err := hujson.Standardize([]byte(text)); err == nil {
		if v, ok := tryStrict(string(b)); ok {
			return v, nil
		}
	}

	cleaned := stripTrailingCommas(stripComments(skipToBracket(stripBOM(text))))
	if v, ok := tryStrict(cleaned); ok {
		return v, nil
	}

	if frag, ok := extractFragment(cleaned); ok {
		if v, ok := tryStrict(frag); ok {
			return v, nil
		}
		if b, err := hujson.Standardize([]byte(frag)); err == nil {
			if v, ok := tryStrict(string(b)); ok {
				return v, nil
			}
		}
		if v, ok := tryStrict(quoteBareKeys(frag)); ok {
			return v, nil
		}
	}

	if v, ok := tryStrict(quoteBareKeys(cleaned)); ok {
		return v, nil
	}
	return nil, ErrUnparseable
}

func tryStrict(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// skipToBracket drops leading bytes up to the first '{' or '['. This sheds
// HTML or log wrapper prefixes occasionally seen around snapshot bodies.
func skipToBracket(s string) string {
	if i := strings.IndexAny(s, "{["); i > 0 {
		return s[i:]
	}
	return s
}

// stripComments removes /* */ and // comments. It is a textual strip and
// does not respect string literals; a known limitation of this stage.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += 2 + end + 2
				continue
			case '/':
				end := strings.IndexByte(s[i:], '\n')
				if end < 0 {
					return b.String()
				}
				i += end
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket, ignoring whitespace in between.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// extractFragment scans from the first bracket and returns the first
// balanced top-level object or array.
func extractFragment(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// quoteBareKeys heuristically quotes identifier keys immediately followed
// by ':'. Like the comment strip, it does not respect string literals.
func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); {
		c := s[i]
		if isIdentStart(c) {
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			word := s[i:j]
			if k < len(s) && s[k] == ':' && !isJSONLiteral(word) {
				b.WriteByte('"')
				b.WriteString(word)
				b.WriteByte('"')
				i = j
				continue
			}
			b.WriteString(s[i:j])
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isJSONLiteral(w string) bool {
	return w == "true" || w == "false" || w == "null"
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
