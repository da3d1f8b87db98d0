package expand

import (
	"strconv"
	"strings"
)

// Braces expands a single literal string containing {a,b,c} or {1..5} brace
// syntax into the list of strings it denotes. It runs before any other
// expansion stage, operating on the word's literal text per spec.md §4.2;
// callers are responsible for only invoking it on words that contain no
// unescaped quoting (BraceCandidate reports that).
func Braces(s string) []string {
	out, ok := expandBraceTop(s)
	if !ok {
		return []string{s}
	}
	return out
}

// BraceCandidate reports whether s looks like it contains brace syntax
// worth attempting to expand (a cheap pre-filter before the recursive
// expansion, which bash itself also applies).
func BraceCandidate(s string) bool {
	return strings.Contains(s, "{") && strings.Contains(s, "}")
}

func expandBraceTop(s string) ([]string, bool) {
	pre, body, post, ok := findBraceGroup(s)
	if !ok {
		return nil, false
	}
	alts, isSeq := splitBraceBody(body)
	if len(alts) < 2 && !isSeq {
		return nil, false
	}
	var out []string
	for _, alt := range alts {
		combined := pre + alt + post
		if expanded, ok := expandBraceTop(combined); ok {
			out = append(out, expanded...)
		} else {
			out = append(out, combined)
		}
	}
	return out, true
}

// findBraceGroup locates the first top-level {...} group with balanced
// nesting, returning the text before it, its inner body, and the text
// after it.
func findBraceGroup(s string) (pre, body, post string, ok bool) {
	start := -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[:start], s[start+1 : i], s[i+1:], true
				}
			}
		}
	}
	return "", "", "", false
}

// splitBraceBody splits a brace body on top-level commas, or recognizes
// the {a..b} / {a..b..step} sequence form.
func splitBraceBody(body string) (alts []string, isSeq bool) {
	if seq, ok := expandSeq(body); ok {
		return seq, true
	}
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, body[last:])
	return parts, false
}

func expandSeq(body string) ([]string, bool) {
	fields := strings.Split(body, "..")
	if len(fields) < 2 || len(fields) > 3 {
		return nil, false
	}
	step := 1
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[2])
		if err != nil || n == 0 {
			return nil, false
		}
		step = n
	}
	if isAllDigits(fields[0]) && isAllDigits(fields[1]) {
		a, err1 := strconv.Atoi(fields[0])
		b, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return nil, false
		}
		return intSeq(a, b, step), true
	}
	if len(fields[0]) == 1 && len(fields[1]) == 1 {
		return charSeq(fields[0][0], fields[1][0], step), true
	}
	return nil, false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func intSeq(a, b, step int) []string {
	if step < 0 {
		step = -step
	}
	var out []string
	width := 0
	if a < 0 || b < 0 {
		width = 0
	}
	_ = width
	if a <= b {
		for v := a; v <= b; v += step {
			out = append(out, strconv.Itoa(v))
		}
	} else {
		for v := a; v >= b; v -= step {
			out = append(out, strconv.Itoa(v))
		}
	}
	return out
}

func charSeq(a, b byte, step int) []string {
	if step < 0 {
		step = -step
	}
	if step == 0 {
		step = 1
	}
	var out []string
	if a <= b {
		for v := a; v <= b; v += byte(step) {
			out = append(out, string(v))
		}
	} else {
		for v := a; v >= b; v -= byte(step) {
			out = append(out, string(v))
		}
	}
	return out
}
