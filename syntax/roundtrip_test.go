package syntax

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
)

// TestParsePrintFixedpoint checks that printing a parsed script and
// re-parsing the result produces the same AST shape as the first parse,
// for a representative sample of constructs across the grammar.
func TestParsePrintFixedpoint(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	scripts := []string{
		"echo hello world\n",
		"echo $foo ${bar:-baz}\n",
		"if true; then echo yes; else echo no; fi\n",
		"for i in a b c; do echo $i; done\n",
		"while read -r line; do echo \"$line\"; done\n",
		"case $x in\n\tfoo) echo one ;;\n\tbar) echo two ;;\n\t*) echo other ;;\nesac\n",
		"foo() {\n\techo in func\n}\n",
		"a=1 b=2 env\n",
		"echo a | tr a-z A-Z | cat\n",
		"[[ -f $file && $x == y* ]] && echo match\n",
		"(( x = 1 + 2 * 3 ))\n",
		"arr=(one two three)\necho ${arr[1]}\n",
	}

	for _, src := range scripts {
		src := src
		c.Run(src, func(c *qt.C) {
			p := NewParser()
			f1, err := p.ParseString(src, "")
			c.Assert(err, qt.IsNil)

			var buf bytes.Buffer
			pr := NewPrinter()
			c.Assert(pr.Print(&buf, f1), qt.IsNil)

			f2, err := NewParser().ParseString(buf.String(), "")
			c.Assert(err, qt.IsNil)

			var buf2 bytes.Buffer
			c.Assert(NewPrinter().Print(&buf2, f2), qt.IsNil)

			c.Assert(buf2.String(), qt.Equals, buf.String())
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	_, err := NewParser().ParseString("if true; then echo hi\n", "")
	c.Assert(err, qt.Not(qt.IsNil))
	perr, ok := err.(*ParseError)
	c.Assert(ok, qt.Equals, true)
	c.Assert(perr.Line >= 1, qt.Equals, true)
}
