package interp

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vercel-labs/just-bash-sub005/vfs"
)

func TestTrapExitFiresAtRunBoundary(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `
		trap 'echo cleanup' EXIT
		echo body
	`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "body\ncleanup\n")
}

func TestTrapExitFiresEvenOnNonzeroExit(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `
		trap 'echo cleanup' EXIT
		exit 3
	`, Options{})
	c.Assert(code, qt.Equals, 3)
	c.Assert(out, qt.Equals, "cleanup\n")
}

func TestTrapDashClearsHandler(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `
		trap 'echo cleanup' EXIT
		trap - EXIT
		echo body
	`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "body\n")
}

func TestShoptExtglob(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `[[ "abc" == @(abc|xyz) ]] && echo no_extglob || echo plain`, Options{})
	c.Assert(out, qt.Not(qt.Equals), "")

	out, _, _ = runScript(t, "shopt -s extglob\n"+`[[ "abc" == @(abc|xyz) ]] && echo matched`, Options{})
	c.Assert(out, qt.Equals, "matched\n")
}

func TestShoptNullglobDropsUnmatchedWord(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	fsys := vfs.NewMemFS()
	out, _, code := runScript(t, "shopt -s nullglob\nfor f in /nomatch*.txt; do echo got:$f; done\necho done\n", Options{FS: fsys})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "done\n")
}

func TestShoptFailglobErrorsOnUnmatchedWord(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	fsys := vfs.NewMemFS()
	_, _, code := runScript(t, "shopt -s failglob\necho /nomatch*.txt\n", Options{FS: fsys})
	c.Assert(code, qt.Not(qt.Equals), 0)
}

func TestShoptUnknownNameErrors(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	_, errOut, code := runScript(t, "shopt -s bogusopt\n", Options{})
	c.Assert(code, qt.Equals, 1)
	c.Assert(errOut, qt.Contains, "invalid shell option name")
}

func TestSetXTracesExpandedCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	var trace bytes.Buffer
	opts := Options{Logger: NewTracer(&trace, false)}
	out, _, code := runScript(t, "set -x\nx=hi\necho $x\n", opts)
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "hi\n")
	c.Assert(trace.String(), qt.Contains, "echo hi")
}
