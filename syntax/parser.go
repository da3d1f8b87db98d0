package syntax

import (
	"fmt"
	"io"
	"strings"
)

// ParseError is returned when the source cannot be parsed into a [File].
// It matches spec.md §4.1/§7: a structured error carrying a 1-based line
// and column, surfaced by the interpreter as exit code 2.
type ParseError struct {
	Filename      string
	Line, Column  int
	Message       string
}

func (e *ParseError) Error() string {
	where := ""
	if e.Filename != "" {
		where = e.Filename + ":"
	}
	return fmt.Sprintf("%s%d:%d: %s", where, e.Line, e.Column, e.Message)
}

// LangVariant names a shell dialect. The interpreter only ever drives
// [LangBash]; the parser records the chosen variant but applies the same
// Bash grammar and the same diagnostics to every variant.
type LangVariant int

const (
	LangBash LangVariant = iota
	LangPOSIX
	LangMirBSDKorn
)

// ParserOption configures a [Parser].
type ParserOption func(*Parser)

// Variant selects the shell dialect. See [LangVariant].
func Variant(l LangVariant) ParserOption {
	return func(p *Parser) { p.lang = l }
}

// KeepPadding controls whether blank runs before comments are preserved;
// this parser does not track comments as AST nodes, so the option is
// accepted for API familiarity but has no effect beyond documentation.
func KeepPadding(keep bool) ParserOption { return func(*Parser) {} }

// Parser converts shell source into a [File]. A Parser can be reused
// across calls to [Parser.Parse]; it holds no state about the interpreter.
type Parser struct {
	lang LangVariant

	src      string
	name     string
	pos      int // byte offset, 0-based
	line     int
	lineStart int // byte offset of the start of the current line

	// pendingHeredocs accumulates heredoc redirects seen on the current
	// line; their bodies are read once the line's newline is reached,
	// mirroring spec.md §4.1's "Heredoc bodies are consumed after the
	// line containing the redirector".
	pendingHeredocs []*Redirect
}

// NewParser creates a [Parser] with the given options applied.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{lang: LangBash}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse reads all of r and parses it as a [File] named name (used only for
// diagnostics and [File.Name]).
func (p *Parser) Parse(r io.Reader, name string) (*File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.ParseString(string(b), name)
}

// ParseString is like [Parser.Parse] but takes the source directly.
func (p *Parser) ParseString(src, name string) (f *File, err error) {
	p.src = src
	p.name = name
	p.pos = 0
	p.line = 1
	p.lineStart = 0
	p.pendingHeredocs = nil

	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				f, err = nil, pe
				return
			}
			panic(r)
		}
	}()

	stmts := p.stmtList(nil)
	p.skipWS()
	if !p.atEnd() {
		p.errorf("unexpected token %q", string(p.cur()))
	}
	return &File{Name: name, Stmts: stmts}, nil
}

// stop is a closing keyword/operator family that ends a statement list.
type stop struct {
	words []string // reserved words that stop the list, e.g. "fi", "done"
	ops   []string // raw operator strings that stop the list, e.g. ")"
}

func (p *Parser) errorf(format string, args ...any) {
	panic(&ParseError{
		Filename: p.name,
		Line:     p.line,
		Column:   p.pos - p.lineStart + 1,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (p *Parser) pos_() Pos { return Pos(p.pos + 1) }

func (p *Parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *Parser) cur() byte {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *Parser) at(off int) byte {
	i := p.pos + off
	if i < 0 || i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *Parser) advance() byte {
	b := p.cur()
	if b == '\n' {
		p.line++
		p.pos++
		p.lineStart = p.pos
		p.consumeHeredocs()
	} else {
		p.pos++
	}
	return b
}

func (p *Parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.pos:], s)
}

// skipBlank skips spaces, tabs, and backslash-newline line continuations,
// but stops at an actual newline or comment.
func (p *Parser) skipBlank() {
	for !p.atEnd() {
		switch p.cur() {
		case ' ', '\t':
			p.pos++
		case '\\':
			if p.at(1) == '\n' {
				p.advance()
				p.advance()
				continue
			}
			return
		default:
			return
		}
	}
}

// skipWS skips blanks, comments, and newlines, i.e. everything that can
// separate two statements in a list.
func (p *Parser) skipWS() {
	for {
		p.skipBlank()
		switch {
		case p.cur() == '#':
			for !p.atEnd() && p.cur() != '\n' {
				p.pos++
			}
		case p.cur() == '\n':
			p.advance()
		default:
			return
		}
	}
}

// consumeHeredocs reads the bodies of any redirects queued by the line that
// was just terminated by a newline.
func (p *Parser) consumeHeredocs() {
	docs := p.pendingHeredocs
	p.pendingHeredocs = nil
	for _, r := range docs {
		delim, ok := r.Word.Lit()
		quoted := wordHasQuotes(r.Word)
		if !ok {
			delim = literalOf(r.Word)
		}
		stripTabs := r.Op == DashHdoc
		var lines []string
		for {
			lineStart := p.pos
			for !p.atEnd() && p.src[p.pos] != '\n' {
				p.pos++
			}
			line := p.src[lineStart:p.pos]
			term := line
			if stripTabs {
				term = strings.TrimLeft(term, "\t")
			}
			atEOF := p.atEnd()
			if term == delim {
				if !atEOF {
					p.pos++ // consume the newline after the delimiter line
					p.line++
					p.lineStart = p.pos
				}
				break
			}
			if stripTabs {
				line = strings.TrimLeft(line, "\t")
			}
			lines = append(lines, line)
			if atEOF {
				p.errorf("heredoc %q not terminated before end of input", delim)
			}
			p.pos++ // consume newline
			p.line++
			p.lineStart = p.pos
		}
		body := strings.Join(lines, "\n")
		if len(lines) > 0 {
			body += "\n"
		}
		if quoted {
			r.Hdoc = &Word{Parts: []WordPart{&Lit{ValuePos: r.Word.Pos(), Value: body}}}
		} else {
			r.Hdoc = p.subParseDocBody(body, r.Word.Pos())
		}
	}
}

// subParseDocBody re-lexes an unquoted heredoc body as a double-quoted-style
// word so that parameter/command/arithmetic expansion still applies to it.
func (p *Parser) subParseDocBody(body string, at Pos) *Word {
	sub := &Parser{lang: p.lang, src: body, name: p.name, line: 1}
	parts := sub.dquoteParts('\x00')
	return &Word{Parts: parts}
}

func wordHasQuotes(w *Word) bool {
	for _, part := range w.Parts {
		switch part.(type) {
		case *SglQuoted, *DblQuoted:
			return true
		}
		if l, ok := part.(*Lit); ok && strings.ContainsAny(l.Value, "\\") {
			return true
		}
	}
	return false
}

func literalOf(w *Word) string {
	var b strings.Builder
	for _, part := range w.Parts {
		switch x := part.(type) {
		case *Lit:
			b.WriteString(x.Value)
		case *SglQuoted:
			b.WriteString(x.Value)
		case *DblQuoted:
			for _, p2 := range x.Parts {
				if l, ok := p2.(*Lit); ok {
					b.WriteString(l.Value)
				}
			}
		}
	}
	return b.String()
}

// reservedInCommandPos reports whether s is a reserved word given that we're
// at the start of a command.
func reservedInCommandPos(s string) (Token, bool) {
	t, ok := reservedWords[s]
	return t, ok
}

func isWordTerminator(b byte, inArray bool) bool {
	switch b {
	case 0, ' ', '\t', '\n', ';', '&', '|', '<', '>', '(', ')':
		return true
	case '}':
		return false
	}
	if inArray && b == ')' {
		return true
	}
	return false
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isNameCont(b byte) bool {
	return isNameStart(b) || (b >= '0' && b <= '9')
}
