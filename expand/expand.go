package expand

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// field is one expanded chunk of a word: text plus whether it came from a
// quoted context. Quoted fields never undergo word splitting or pathname
// expansion; unquoted ones do.
type field struct {
	s      string
	quoted bool
}

// Literal expands w and joins the result into a single string with no word
// splitting or pathname expansion applied -- the form used for redirection
// targets, case/[[ operands before pattern compilation, and arithmetic
// operands.
func Literal(cfg *Config, w *syntax.Word) (string, error) {
	fields, err := expandWordParts(cfg, w.Parts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.s)
	}
	return b.String(), nil
}

// Pattern is like Literal but returns the raw text with quoted runs marked
// so the caller can compile it with [pattern.Regexp] while still treating
// quoted metacharacters as literal; it does so by escaping glob
// metacharacters found inside quoted fields before concatenating.
func Pattern(cfg *Config, w *syntax.Word) (string, error) {
	fields, err := expandWordParts(cfg, w.Parts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range fields {
		if f.quoted {
			b.WriteString(escapeGlobMeta(f.s))
		} else {
			b.WriteString(f.s)
		}
	}
	return b.String(), nil
}

func escapeGlobMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fields expands a list of words into the final argv-style field list:
// brace expansion, tilde expansion, parameter/command/arithmetic expansion,
// word splitting on IFS, and pathname expansion, in that order, per
// spec.md §4.2.
func Fields(cfg *Config, words []*syntax.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		fs, err := expandOneWordToFields(cfg, w)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

func expandOneWordToFields(cfg *Config, w *syntax.Word) ([]string, error) {
	// Brace expansion operates on the raw literal text before any other
	// stage runs, and only when the word carries no quoting at all.
	if lit, ok := w.Lit(); ok && BraceCandidate(lit) {
		var results []string
		for _, alt := range Braces(lit) {
			results = append(results, alt)
		}
		return expandLiteralsFurther(cfg, results)
	}

	parts, err := expandWordPartsSplit(cfg, w.Parts)
	if err != nil {
		return nil, err
	}
	return splitAndGlob(cfg, parts)
}

// expandLiteralsFurther applies the stages that still remain for already
// brace-expanded literal strings: tilde expansion, then word splitting and
// pathname expansion, to each alternative.
func expandLiteralsFurther(cfg *Config, lits []string) ([]string, error) {
	var out []string
	for _, s := range lits {
		s = maybeTilde(cfg, s)
		fs, err := splitAndGlob(cfg, []field{{s: s, quoted: false}})
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

// maybeTilde expands a leading ~ or ~user at the start of s.
func maybeTilde(cfg *Config, s string) string {
	if !strings.HasPrefix(s, "~") || cfg.HomeDir == nil {
		return s
	}
	rest := s[1:]
	user := rest
	tail := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		user, tail = rest[:i], rest[i:]
	}
	home, err := cfg.HomeDir(user)
	if err != nil {
		return s
	}
	return home + tail
}

func expandWordPartsSplit(cfg *Config, parts []syntax.WordPart) ([]field, error) {
	var out []field
	for i, part := range parts {
		fs, err := expandPart(cfg, part)
		if err != nil {
			return nil, err
		}
		if i == 0 && !fs0Quoted(fs) {
			if len(fs) > 0 {
				fs[0].s = maybeTilde(cfg, fs[0].s)
			}
		}
		out = append(out, fs...)
	}
	return out, nil
}

func fs0Quoted(fs []field) bool {
	return len(fs) > 0 && fs[0].quoted
}

func expandWordParts(cfg *Config, parts []syntax.WordPart) ([]field, error) {
	var out []field
	for _, part := range parts {
		fs, err := expandPart(cfg, part)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

// expandPart expands one [syntax.WordPart] into one or more [field]s; a
// part only produces more than one field when it's an unquoted array
// parameter expansion or $@, each array element becoming its own field so
// that later splitting treats them independently.
func expandPart(cfg *Config, part syntax.WordPart) ([]field, error) {
	switch x := part.(type) {
	case *syntax.Lit:
		return []field{{s: decodeLit(x.Value), quoted: false}}, nil
	case *syntax.SglQuoted:
		return []field{{s: x.Value, quoted: true}}, nil
	case *syntax.DblQuoted:
		inner, err := expandWordParts(cfg, x.Parts)
		if err != nil {
			return nil, err
		}
		if isAtParam(x.Parts) {
			var out []field
			for _, f := range inner {
				out = append(out, field{s: f.s, quoted: true})
			}
			if len(out) == 0 {
				out = append(out, field{s: "", quoted: true})
			}
			return out, nil
		}
		var b strings.Builder
		for _, f := range inner {
			b.WriteString(f.s)
		}
		return []field{{s: b.String(), quoted: true}}, nil
	case *syntax.ParamExp:
		return expandParamExp(cfg, x)
	case *syntax.CmdSubst:
		if cfg.CmdSubst == nil {
			return []field{{s: "", quoted: false}}, nil
		}
		out, err := cfg.CmdSubst(x)
		if err != nil {
			return nil, err
		}
		return []field{{s: strings.TrimRight(out, "\n"), quoted: false}}, nil
	case *syntax.ArithmExp:
		v, err := Arithm(cfg, x.X)
		if err != nil {
			return nil, err
		}
		return []field{{s: itoa64(v), quoted: false}}, nil
	case *syntax.ExtGlob:
		return []field{{s: extGlobLiteral(x), quoted: false}}, nil
	case *syntax.ArrayExpr:
		// bare array literal outside of an assignment context: bash
		// treats this as a syntax curiosity we don't need to support as
		// a value-producing expansion; render it empty.
		return []field{{s: "", quoted: false}}, nil
	}
	return nil, nil
}

func extGlobLiteral(e *syntax.ExtGlob) string {
	var c byte
	switch e.Op {
	case syntax.GlobZeroOrOne:
		c = '?'
	case syntax.GlobZeroOrMore:
		c = '*'
	case syntax.GlobOneOrMore:
		c = '+'
	case syntax.GlobOne:
		c = '@'
	case syntax.GlobExcept:
		c = '!'
	}
	return string(c) + "(" + e.Pattern.Value + ")"
}

func isAtParam(parts []syntax.WordPart) bool {
	if len(parts) != 1 {
		return false
	}
	pe, ok := parts[0].(*syntax.ParamExp)
	return ok && pe.Param.Value == "@"
}

func decodeLit(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func itoa64(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// expandParamExp expands a ParamExp to its final field(s), applying
// length/slice/replace/strip/default/case operators in turn.
func expandParamExp(cfg *Config, pe *syntax.ParamExp) ([]field, error) {
	isArrayParam := false
	if vb := cfg.Env.Get(pe.Param.Value); vb.Kind == Indexed || vb.Kind == Associative {
		isArrayParam = pe.Index == nil
	}

	vals, isSet, err := paramValue(cfg, pe)
	if err != nil {
		return nil, err
	}

	if pe.Length {
		return []field{{s: applyLength(vals, isArrayParam), quoted: false}}, nil
	}

	if isArrayParam && pe.Index == nil {
		var out []field
		for _, v := range vals {
			out = append(out, field{s: v, quoted: false})
		}
		if len(out) == 0 {
			out = append(out, field{s: "", quoted: false})
		}
		return out, nil
	}

	s := ""
	if len(vals) > 0 {
		s = vals[0]
	}

	switch {
	case pe.Slice != nil:
		sliced, err := applySlice(cfg, s, pe.Slice)
		if err != nil {
			return nil, err
		}
		return []field{{s: sliced, quoted: false}}, nil
	case pe.Repl != nil:
		replaced, err := applyReplace(cfg, s, pe.Repl)
		if err != nil {
			return nil, err
		}
		return []field{{s: replaced, quoted: false}}, nil
	case pe.Exp != nil:
		return expandParamOp(cfg, pe, s, isSet)
	}

	if !isSet {
		return []field{{s: "", quoted: false}}, nil
	}
	return []field{{s: s, quoted: false}}, nil
}

func expandParamOp(cfg *Config, pe *syntax.ParamExp, s string, isSet bool) ([]field, error) {
	op := pe.Exp.Op
	empty := !isSet || s == ""
	switch op {
	case syntax.DefaultUnset, syntax.DefaultUnsetOrNull:
		useDefault := !isSet
		if op == syntax.DefaultUnsetOrNull {
			useDefault = empty
		}
		if useDefault {
			alt, err := Literal(cfg, pe.Exp.Word)
			if err != nil {
				return nil, err
			}
			return []field{{s: alt, quoted: false}}, nil
		}
		return []field{{s: s, quoted: false}}, nil
	case syntax.AlternateUnset, syntax.AlternateUnsetOrNull:
		useAlt := isSet
		if op == syntax.AlternateUnsetOrNull {
			useAlt = !empty
		}
		if useAlt {
			alt, err := Literal(cfg, pe.Exp.Word)
			if err != nil {
				return nil, err
			}
			return []field{{s: alt, quoted: false}}, nil
		}
		return []field{{s: "", quoted: false}}, nil
	case syntax.AssignUnset, syntax.AssignUnsetOrNull:
		mustAssign := !isSet
		if op == syntax.AssignUnsetOrNull {
			mustAssign = empty
		}
		if mustAssign {
			alt, err := Literal(cfg, pe.Exp.Word)
			if err != nil {
				return nil, err
			}
			if err := cfg.Env.Set(pe.Param.Value, Variable{Kind: String, Str: alt}); err != nil {
				return nil, err
			}
			return []field{{s: alt, quoted: false}}, nil
		}
		return []field{{s: s, quoted: false}}, nil
	case syntax.ErrorUnset, syntax.ErrorUnsetOrNull:
		mustErr := !isSet
		if op == syntax.ErrorUnsetOrNull {
			mustErr = empty
		}
		if mustErr {
			msg, _ := Literal(cfg, pe.Exp.Word)
			if msg == "" {
				msg = "parameter null or not set"
			}
			if cfg.UnsetErr != nil {
				cfg.UnsetErr(pe.Param.Value + ": " + msg)
			}
			return []field{{s: "", quoted: false}}, nil
		}
		return []field{{s: s, quoted: false}}, nil
	case syntax.RemSmallPrefix, syntax.RemLargePrefix, syntax.RemSmallSuffix, syntax.RemLargeSuffix:
		pat, err := Pattern(cfg, pe.Exp.Word)
		if err != nil {
			return nil, err
		}
		return []field{{s: stripPattern(s, pat, op), quoted: false}}, nil
	case syntax.UpperFirst, syntax.UpperAll, syntax.LowerFirst, syntax.LowerAll:
		return []field{{s: applyCase(s, op), quoted: false}}, nil
	}
	return []field{{s: s, quoted: false}}, nil
}

func stripPattern(s, pat string, op syntax.ParExpOperator) string {
	re, err := compileStripRegex(pat, op)
	if err != nil {
		return s
	}
	if op == syntax.RemSmallSuffix {
		// the shortest suffix is the one with the rightmost start
		for i := len(s); i >= 0; i-- {
			if i < len(s) && !utf8.RuneStart(s[i]) {
				continue
			}
			if loc := re.FindStringIndex(s[i:]); loc != nil && loc[0] == 0 {
				return s[:i]
			}
		}
		return s
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	switch op {
	case syntax.RemSmallPrefix, syntax.RemLargePrefix:
		return s[loc[1]:]
	default:
		return s[:loc[0]]
	}
}

func compileStripRegex(pat string, op syntax.ParExpOperator) (*regexp.Regexp, error) {
	body := globToRegex(pat)
	switch op {
	case syntax.RemSmallPrefix:
		return regexp.Compile("^(?:" + shortestFirst(body) + ")")
	case syntax.RemLargePrefix:
		return regexp.Compile("^(?:" + body + ")")
	case syntax.RemSmallSuffix:
		return regexp.Compile("(?:" + shortestFirst(body) + ")$")
	case syntax.RemLargeSuffix:
		return regexp.Compile("(?:" + body + ")$")
	}
	return regexp.Compile(body)
}

// shortestFirst rewrites greedy quantifiers to lazy ones. Go's regexp picks
// the leftmost match and prefers lazy quantifiers' shorter extent, so the
// anchored prefix pattern of # removes the shortest prefix. A lazy body does
// not move a match's start, so stripPattern finds %'s shortest suffix by
// trying start positions from the end; ## and %% keep the greedy body.
func shortestFirst(body string) string {
	return strings.NewReplacer(".*", ".*?", "[^/]*", "[^/]*?").Replace(body)
}

func globToRegex(pat string) string {
	var b strings.Builder
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(pat) {
				b.WriteString(regexp.QuoteMeta(string(pat[i+1])))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}

func applyReplace(cfg *Config, s string, r *syntax.Replace) (string, error) {
	pat, err := Pattern(cfg, r.Orig)
	if err != nil {
		return "", err
	}
	with := ""
	if r.With != nil {
		with, err = Literal(cfg, r.With)
		if err != nil {
			return "", err
		}
	}
	body := globToRegex(pat)
	switch r.Anchor {
	case '#':
		body = "^(?:" + body + ")"
	case '%':
		body = "(?:" + body + ")$"
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return s, nil
	}
	if r.All {
		return re.ReplaceAllString(s, regexp.QuoteMeta(with)), nil
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s, nil
	}
	return s[:loc[0]] + with + s[loc[1]:], nil
}

// splitAndGlob applies IFS word splitting to unquoted fields, then
// pathname expansion to the resulting words.
func splitAndGlob(cfg *Config, fields []field) ([]string, error) {
	words := splitFields(cfg, fields)
	if cfg.NoGlob || cfg.ReadDir == nil {
		return words, nil
	}
	var out []string
	for _, w := range words {
		matches, isGlob, matchedAny := globWord(cfg, w)
		if !isGlob {
			out = append(out, w)
			continue
		}
		if !matchedAny {
			switch {
			case cfg.FailGlob:
				return nil, fmt.Errorf("no match: %s", w)
			case cfg.NullGlob:
				// drop the word entirely
			default:
				out = append(out, w)
			}
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// isIFSWhitespace reports whether b is one of the three characters bash
// treats as whitespace-class IFS (space, tab, newline) regardless of where
// it appears in IFS; every other IFS byte is a non-whitespace delimiter.
func isIFSWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

func splitFields(cfg *Config, fields []field) []string {
	ifs := cfg.ifs()
	var words []string
	var cur strings.Builder
	started := false
	flush := func() {
		if started {
			words = append(words, cur.String())
			cur.Reset()
			started = false
		}
	}
	for _, f := range fields {
		if f.quoted {
			cur.WriteString(f.s)
			started = true
			continue
		}
		start := 0
		for i := 0; i < len(f.s); i++ {
			if strings.IndexByte(ifs, f.s[i]) >= 0 {
				cur.WriteString(f.s[start:i])
				if isIFSWhitespace(f.s[i]) {
					// runs of whitespace-class IFS collapse into one split.
					flush()
				} else {
					// each non-whitespace IFS byte delimits its own field,
					// even if that produces an empty one.
					words = append(words, cur.String())
					cur.Reset()
					started = false
				}
				start = i + 1
				continue
			}
			started = true
		}
		cur.WriteString(f.s[start:])
	}
	flush()
	if len(words) == 0 {
		return nil
	}
	return words
}

// globWord expands w as a pathname pattern if it contains glob
// metacharacters; matches are returned sorted, matching bash's default
// collation-free byte-order sort. The second return value reports whether w
// looked like a pattern at all; the third reports whether it actually
// matched any directory entry, letting the caller apply nullglob/failglob
// when it didn't.
func globWord(cfg *Config, w string) ([]string, bool, bool) {
	if !strings.ContainsAny(w, "*?[") {
		return nil, false, false
	}
	dir, base := path.Split(w)
	if dir == "" {
		dir = "."
	}
	entries, err := cfg.ReadDir(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return nil, true, false
	}
	body := "^" + globToRegex(base) + "$"
	if cfg.NoCaseGlob {
		body = "(?i)" + body
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, true, false
	}
	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if re.MatchString(e) {
			if dir == "." && !strings.HasPrefix(w, "./") {
				matches = append(matches, e)
			} else {
				matches = append(matches, dir+e)
			}
		}
	}
	if len(matches) == 0 {
		return nil, true, false
	}
	sort.Strings(matches)
	return matches, true, true
}

var _ = os.Getenv
