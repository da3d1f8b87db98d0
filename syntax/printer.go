package syntax

import (
	"bufio"
	"fmt"
	"io"
)

// Printer renders a [File] back into shell source. It is deliberately
// simple: the parse/print roundtrip only needs to be semantically
// equivalent, not byte-identical to arbitrary input formatting.
type Printer struct {
	indent int
}

// NewPrinter creates a [Printer] with default settings.
func NewPrinter() *Printer { return &Printer{indent: 2} }

// Print writes f to w.
func (pr *Printer) Print(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	for i, s := range f.Stmts {
		if i > 0 {
			bw.WriteByte('\n')
		}
		pr.stmt(bw, s, 0)
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

func (pr *Printer) pad(w *bufio.Writer, depth int) {
	for i := 0; i < depth*pr.indent; i++ {
		w.WriteByte(' ')
	}
}

func (pr *Printer) stmtList(w *bufio.Writer, stmts []*Stmt, depth int) {
	for _, s := range stmts {
		pr.stmt(w, s, depth)
	}
}

func (pr *Printer) stmt(w *bufio.Writer, s *Stmt, depth int) {
	pr.pad(w, depth)
	if s.Negated {
		fmt.Fprint(w, "! ")
	}
	for _, a := range s.Assigns {
		pr.assign(w, a)
		w.WriteByte(' ')
	}
	if s.Cmd != nil {
		pr.command(w, s.Cmd, depth)
	}
	for _, r := range s.Redirs {
		w.WriteByte(' ')
		pr.redirect(w, r)
	}
	if s.Background {
		fmt.Fprint(w, " &")
	}
	w.WriteByte('\n')
}

func (pr *Printer) assign(w *bufio.Writer, a *Assign) {
	fmt.Fprint(w, a.Name.Value)
	if a.Index != nil {
		w.WriteByte('[')
		pr.arithm(w, a.Index)
		w.WriteByte(']')
	}
	if a.Naked {
		return
	}
	if a.Append {
		fmt.Fprint(w, "+=")
	} else {
		w.WriteByte('=')
	}
	if a.Array != nil {
		w.WriteByte('(')
		for i, el := range a.Array.Elems {
			if i > 0 {
				w.WriteByte(' ')
			}
			if el.Index != nil {
				w.WriteByte('[')
				pr.arithm(w, el.Index)
				fmt.Fprint(w, "]=")
			}
			pr.word(w, el.Value)
		}
		w.WriteByte(')')
	} else if a.Value != nil {
		pr.word(w, a.Value)
	}
}

func (pr *Printer) redirect(w *bufio.Writer, r *Redirect) {
	if r.N != nil {
		fmt.Fprint(w, r.N.Value)
	}
	fmt.Fprint(w, r.Op.String())
	if r.Op == Hdoc || r.Op == DashHdoc {
		pr.word(w, r.Word)
		return
	}
	w.WriteByte(' ')
	pr.word(w, r.Word)
}

func (pr *Printer) command(w *bufio.Writer, c Command, depth int) {
	switch x := c.(type) {
	case *CallExpr:
		for i, a := range x.Args {
			if i > 0 {
				w.WriteByte(' ')
			}
			pr.word(w, a)
		}
	case *BinaryCmd:
		pr.stmtInline(w, x.X, depth)
		fmt.Fprintf(w, " %s ", x.Op)
		pr.stmtInline(w, x.Y, depth)
	case *Subshell:
		w.WriteByte('(')
		w.WriteByte('\n')
		pr.stmtList(w, x.Stmts, depth+1)
		pr.pad(w, depth)
		w.WriteByte(')')
	case *Block:
		fmt.Fprint(w, "{\n")
		pr.stmtList(w, x.Stmts, depth+1)
		pr.pad(w, depth)
		w.WriteByte('}')
	case *IfClause:
		fmt.Fprint(w, "if ")
		pr.stmtListInline(w, x.CondStmts)
		fmt.Fprint(w, "; then\n")
		pr.stmtList(w, x.ThenStmts, depth+1)
		for _, e := range x.Elifs {
			pr.pad(w, depth)
			fmt.Fprint(w, "elif ")
			pr.stmtListInline(w, e.CondStmts)
			fmt.Fprint(w, "; then\n")
			pr.stmtList(w, e.ThenStmts, depth+1)
		}
		if len(x.ElseStmts) > 0 {
			pr.pad(w, depth)
			fmt.Fprint(w, "else\n")
			pr.stmtList(w, x.ElseStmts, depth+1)
		}
		pr.pad(w, depth)
		fmt.Fprint(w, "fi")
	case *WhileClause:
		if x.IsUntil {
			fmt.Fprint(w, "until ")
		} else {
			fmt.Fprint(w, "while ")
		}
		pr.stmtListInline(w, x.CondStmts)
		fmt.Fprint(w, "; do\n")
		pr.stmtList(w, x.DoStmts, depth+1)
		pr.pad(w, depth)
		fmt.Fprint(w, "done")
	case *ForClause:
		fmt.Fprint(w, "for ")
		switch loop := x.Loop.(type) {
		case *WordIter:
			fmt.Fprintf(w, "%s", loop.Name.Value)
			if loop.List != nil {
				fmt.Fprint(w, " in ")
				for i, wd := range loop.List {
					if i > 0 {
						w.WriteByte(' ')
					}
					pr.word(w, wd)
				}
			}
		case *CStyleLoop:
			w.WriteByte('(')
			w.WriteByte('(')
			if loop.Init != nil {
				pr.arithm(w, loop.Init)
			}
			fmt.Fprint(w, "; ")
			if loop.Cond != nil {
				pr.arithm(w, loop.Cond)
			}
			fmt.Fprint(w, "; ")
			if loop.Post != nil {
				pr.arithm(w, loop.Post)
			}
			w.WriteByte(')')
			w.WriteByte(')')
		}
		fmt.Fprint(w, "; do\n")
		pr.stmtList(w, x.DoStmts, depth+1)
		pr.pad(w, depth)
		fmt.Fprint(w, "done")
	case *CaseClause:
		fmt.Fprint(w, "case ")
		pr.word(w, x.Word)
		fmt.Fprint(w, " in\n")
		for _, item := range x.Items {
			pr.pad(w, depth+1)
			for i, pat := range item.Patterns {
				if i > 0 {
					w.WriteByte('|')
				}
				pr.word(w, pat)
			}
			fmt.Fprint(w, ")\n")
			pr.stmtList(w, item.Stmts, depth+2)
			pr.pad(w, depth+1)
			fmt.Fprintln(w, item.Op.String())
		}
		pr.pad(w, depth)
		fmt.Fprint(w, "esac")
	case *FuncDecl:
		if x.BashStyle {
			fmt.Fprint(w, "function ")
		}
		fmt.Fprintf(w, "%s() ", x.Name.Value)
		pr.stmt(w, x.Body, depth)
	case *ArithmCmd:
		fmt.Fprint(w, "((")
		pr.arithm(w, x.X)
		fmt.Fprint(w, "))")
	case *TestClause:
		fmt.Fprint(w, "[[ ")
		pr.testExpr(w, x.X)
		fmt.Fprint(w, " ]]")
	case *DeclClause:
		fmt.Fprint(w, x.Variant)
		for _, o := range x.Opts {
			w.WriteByte(' ')
			pr.word(w, o)
		}
		for _, a := range x.Assigns {
			w.WriteByte(' ')
			pr.assign(w, a)
		}
	case *LetClause:
		fmt.Fprint(w, "let ")
		for i, e := range x.Exprs {
			if i > 0 {
				w.WriteByte(' ')
			}
			pr.arithm(w, e)
		}
	}
}

func (pr *Printer) stmtInline(w *bufio.Writer, s *Stmt, depth int) {
	if s.Negated {
		fmt.Fprint(w, "! ")
	}
	if s.Cmd != nil {
		pr.command(w, s.Cmd, depth)
	}
}

func (pr *Printer) stmtListInline(w *bufio.Writer, stmts []*Stmt) {
	for i, s := range stmts {
		if i > 0 {
			fmt.Fprint(w, "; ")
		}
		pr.stmtInline(w, s, 0)
	}
}

func (pr *Printer) word(w *bufio.Writer, wd *Word) {
	for _, part := range wd.Parts {
		pr.wordPart(w, part)
	}
}

func (pr *Printer) wordPart(w *bufio.Writer, part WordPart) {
	switch x := part.(type) {
	case *Lit:
		fmt.Fprint(w, x.Value)
	case *SglQuoted:
		if x.Dollar {
			fmt.Fprintf(w, "$'%s'", x.Value)
		} else {
			fmt.Fprintf(w, "'%s'", x.Value)
		}
	case *DblQuoted:
		if x.Dollar {
			w.WriteByte('$')
		}
		w.WriteByte('"')
		for _, p2 := range x.Parts {
			pr.wordPart(w, p2)
		}
		w.WriteByte('"')
	case *CmdSubst:
		if x.Backquotes {
			w.WriteByte('`')
			pr.stmtListInline(w, x.Stmts)
			w.WriteByte('`')
		} else {
			fmt.Fprint(w, "$(")
			pr.stmtListInline(w, x.Stmts)
			w.WriteByte(')')
		}
	case *ArithmExp:
		fmt.Fprint(w, "$((")
		pr.arithm(w, x.X)
		fmt.Fprint(w, "))")
	case *ParamExp:
		pr.paramExp(w, x)
	case *ExtGlob:
		var c byte
		switch x.Op {
		case GlobZeroOrOne:
			c = '?'
		case GlobZeroOrMore:
			c = '*'
		case GlobOneOrMore:
			c = '+'
		case GlobOne:
			c = '@'
		case GlobExcept:
			c = '!'
		}
		fmt.Fprintf(w, "%c(%s)", c, x.Pattern.Value)
	case *ArrayExpr:
		w.WriteByte('(')
		for i, el := range x.Elems {
			if i > 0 {
				w.WriteByte(' ')
			}
			pr.word(w, el.Value)
		}
		w.WriteByte(')')
	}
}

func (pr *Printer) paramExp(w *bufio.Writer, pe *ParamExp) {
	if pe.Short {
		fmt.Fprintf(w, "$%s", pe.Param.Value)
		return
	}
	w.WriteByte('$')
	w.WriteByte('{')
	if pe.Length {
		w.WriteByte('#')
	}
	if pe.Excl {
		w.WriteByte('!')
	}
	fmt.Fprint(w, pe.Param.Value)
	if pe.NamesOp != 0 {
		w.WriteByte(pe.NamesOp)
	}
	if pe.Index != nil {
		w.WriteByte('[')
		pr.arithm(w, pe.Index)
		w.WriteByte(']')
	}
	switch {
	case pe.Slice != nil:
		w.WriteByte(':')
		pr.word(w, pe.Slice.Offset)
		if pe.Slice.Length != nil {
			w.WriteByte(':')
			pr.word(w, pe.Slice.Length)
		}
	case pe.Repl != nil:
		w.WriteByte('/')
		if pe.Repl.All {
			w.WriteByte('/')
		} else if pe.Repl.Anchor != 0 {
			w.WriteByte(pe.Repl.Anchor)
		}
		pr.word(w, pe.Repl.Orig)
		if pe.Repl.With != nil {
			w.WriteByte('/')
			pr.word(w, pe.Repl.With)
		}
	case pe.Exp != nil:
		fmt.Fprint(w, expOpStr(pe.Exp.Op))
		pr.word(w, pe.Exp.Word)
	}
	w.WriteByte('}')
}

func expOpStr(op ParExpOperator) string {
	switch op {
	case DefaultUnset:
		return "-"
	case DefaultUnsetOrNull:
		return ":-"
	case AlternateUnset:
		return "+"
	case AlternateUnsetOrNull:
		return ":+"
	case ErrorUnset:
		return "?"
	case ErrorUnsetOrNull:
		return ":?"
	case AssignUnset:
		return "="
	case AssignUnsetOrNull:
		return ":="
	case RemSmallPrefix:
		return "#"
	case RemLargePrefix:
		return "##"
	case RemSmallSuffix:
		return "%"
	case RemLargeSuffix:
		return "%%"
	case UpperFirst:
		return "^"
	case UpperAll:
		return "^^"
	case LowerFirst:
		return ","
	case LowerAll:
		return ",,"
	}
	return ""
}

func (pr *Printer) arithm(w *bufio.Writer, x ArithmExpr) {
	switch e := x.(type) {
	case *Word:
		pr.word(w, e)
	case *BinaryArithm:
		pr.arithm(w, e.X)
		fmt.Fprintf(w, " %s ", e.Op)
		pr.arithm(w, e.Y)
	case *TernaryArithm:
		pr.arithm(w, e.Cond)
		fmt.Fprint(w, " ? ")
		pr.arithm(w, e.Then)
		fmt.Fprint(w, " : ")
		pr.arithm(w, e.Else)
	case *UnaryArithm:
		if e.Post {
			pr.arithm(w, e.X)
			fmt.Fprint(w, e.Op)
		} else {
			fmt.Fprint(w, e.Op)
			pr.arithm(w, e.X)
		}
	case *ParenArithm:
		w.WriteByte('(')
		pr.arithm(w, e.X)
		w.WriteByte(')')
	}
}

func (pr *Printer) testExpr(w *bufio.Writer, x TestExpr) {
	switch e := x.(type) {
	case *Word:
		pr.word(w, e)
	case *UnaryTest:
		if e.Op == TsNot {
			fmt.Fprint(w, "! ")
		} else {
			fmt.Fprintf(w, "%s ", unTestOpStr(e.Op))
		}
		pr.testExpr(w, e.X)
	case *BinaryTest:
		pr.testExpr(w, e.X)
		fmt.Fprintf(w, " %s ", binTestOpStr(e.Op))
		pr.testExpr(w, e.Y)
	case *ParenTest:
		w.WriteByte('(')
		pr.testExpr(w, e.X)
		w.WriteByte(')')
	}
}

func unTestOpStr(op UnTestOperator) string {
	for s, o := range unTestOps {
		if o == op {
			return s
		}
	}
	return "?"
}

func binTestOpStr(op BinTestOperator) string {
	switch op {
	case AndTest:
		return "&&"
	case OrTest:
		return "||"
	case TsBefore:
		return "<"
	case TsAfter:
		return ">"
	}
	for s, o := range binTestOps {
		if o == op {
			return s
		}
	}
	return "?"
}
