package interp

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vercel-labs/just-bash-sub005/vfs"
)

func TestDoubleBracketStringComparisons(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `[[ "abc" == a* ]] && echo yes`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "yes\n")

	out, _, code = runScript(t, `[[ "abc" == xyz* ]] && echo yes || echo no`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "no\n")

	out, _, code = runScript(t, `[[ "abc" != xyz* ]] && echo yes`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "yes\n")
}

func TestDoubleBracketAndOr(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `[[ -n "x" && "a" == "a" ]] && echo both`, Options{})
	c.Assert(out, qt.Equals, "both\n")

	out, _, _ = runScript(t, `[[ -z "x" || "a" == "a" ]] && echo either`, Options{})
	c.Assert(out, qt.Equals, "either\n")
}

func TestDoubleBracketRegexMatchSetsRematch(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `
		[[ "foo123bar" =~ ([a-z]+)([0-9]+) ]]
		echo "${BASH_REMATCH[0]}"
		echo "${BASH_REMATCH[1]}"
		echo "${BASH_REMATCH[2]}"
	`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "foo123\nfoo\n123\n")
}

func TestDoubleBracketRegexNoMatch(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `[[ "abc" =~ ^[0-9]+$ ]] && echo matched || echo nomatch`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "nomatch\n")
}

func TestDoubleBracketIntegerComparisons(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `[[ 5 -gt 3 ]] && echo yes`, Options{})
	c.Assert(out, qt.Equals, "yes\n")

	out, _, _ = runScript(t, `[[ 5 -lt 3 ]] && echo yes || echo no`, Options{})
	c.Assert(out, qt.Equals, "no\n")

	out, _, _ = runScript(t, `[[ 3 -eq 3 ]] && echo eq`, Options{})
	c.Assert(out, qt.Equals, "eq\n")
}

func TestDoubleBracketFileTests(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	fs := vfs.NewMemFS()
	c.Assert(fs.WriteFile("/exists.txt", []byte("hi")), qt.IsNil)
	c.Assert(fs.Mkdir("/adir", true), qt.IsNil)

	out, _, _ := runScript(t, `[[ -f /exists.txt ]] && echo isfile`, Options{FS: fs})
	c.Assert(out, qt.Equals, "isfile\n")

	out, _, _ = runScript(t, `[[ -d /adir ]] && echo isdir`, Options{FS: fs})
	c.Assert(out, qt.Equals, "isdir\n")

	out, _, _ = runScript(t, `[[ -e /missing.txt ]] && echo exists || echo absent`, Options{FS: fs})
	c.Assert(out, qt.Equals, "absent\n")

	out, _, _ = runScript(t, `[[ -s /exists.txt ]] && echo nonempty`, Options{FS: fs})
	c.Assert(out, qt.Equals, "nonempty\n")
}

func TestDoubleBracketNoCaseMatch(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `[[ "ABC" == abc ]] && echo yes || echo no`, Options{})
	c.Assert(out, qt.Equals, "no\n")

	out, _, _ = runScript(t, "shopt -s nocasematch\n"+`[[ "ABC" == abc ]] && echo yes || echo no`, Options{})
	c.Assert(out, qt.Equals, "yes\n")
}

func TestDoubleBracketStringEmptiness(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `x=""; [[ -z "$x" ]] && echo empty`, Options{})
	c.Assert(out, qt.Equals, "empty\n")

	out, _, _ = runScript(t, `x="hi"; [[ -n "$x" ]] && echo nonempty`, Options{})
	c.Assert(out, qt.Equals, "nonempty\n")
}
