package interp

import (
	"bytes"
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vercel-labs/just-bash-sub005/limits"
	"github.com/vercel-labs/just-bash-sub005/registry"
	"github.com/vercel-labs/just-bash-sub005/syntax"
	"github.com/vercel-labs/just-bash-sub005/vfs"
)

// runScript parses and runs src against a fresh Runner, returning captured
// stdout/stderr and the exit code.
func runScript(t *testing.T, src string, opts Options) (string, string, int) {
	t.Helper()
	f, err := syntax.NewParser().ParseString(src, "")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	if opts.FS == nil {
		opts.FS = vfs.NewMemFS()
	}
	r := New(opts)
	code, _ := r.Run(context.Background(), f)
	return out.String(), errOut.String(), code
}

func TestSimpleCommandsAndVars(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, "x=hello\necho $x world\n", Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "hello world\n")
}

func TestIfElse(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `
		if [ 1 -eq 2 ]; then
			echo no
		else
			echo yes
		fi
	`, Options{})
	c.Assert(out, qt.Equals, "yes\n")
}

func TestForLoop(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, "for i in a b c; do echo $i; done\n", Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "a\nb\nc\n")
}

func TestPipeline(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	reg := registry.Demo()
	out, _, code := runScript(t, "echo hello | upper\n", Options{Registry: reg})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "HELLO\n")
}

func TestPipelineExitStatusIsLastStage(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	reg := registry.Demo()
	_, _, code := runScript(t, "failwith 3 | failwith 0\n", Options{Registry: reg})
	c.Assert(code, qt.Equals, 0)
}

func TestPipefail(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	reg := registry.Demo()
	_, _, code := runScript(t, "set -o pipefail\nfailwith 3 | failwith 0\n", Options{Registry: reg})
	c.Assert(code, qt.Equals, 3)
}

func TestErrexit(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	reg := registry.Demo()
	out, _, code := runScript(t, "set -e\nfailwith 1\necho unreachable\n", Options{Registry: reg})
	c.Assert(code, qt.Equals, 1)
	c.Assert(out, qt.Equals, "")
}

func TestErrexitSkippedInCondition(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	reg := registry.Demo()
	out, _, code := runScript(t, "set -e\nif failwith 1; then echo yes; else echo no; fi\n", Options{Registry: reg})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "no\n")
}

func TestErrexitSkippedOnNegatedCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, "set -e\n! false\necho reached\n", Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "reached\n")

	// the inverted result can itself be nonzero without tripping errexit.
	out, _, code = runScript(t, "set -e\n! true\necho reached\n", Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "reached\n")
}

func TestErrexitSkippedLeftOfAndOr(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, "set -e\nfalse && true\necho reached\n", Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "reached\n")

	out, _, code = runScript(t, "set -e\ntrue || false\necho reached\n", Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "reached\n")

	// the right-hand side is NOT exempt: if it's the last command and
	// fails, errexit still fires.
	out, _, code = runScript(t, "set -e\ntrue && false\necho unreachable\n", Options{})
	c.Assert(code, qt.Equals, 1)
	c.Assert(out, qt.Equals, "")
}

func TestSubshellIsolation(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, "x=outer\n(x=inner; echo $x)\necho $x\n", Options{})
	c.Assert(out, qt.Equals, "inner\nouter\n")
}

func TestFunctionsAndReturn(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, code := runScript(t, `
		greet() {
			echo "hi $1"
			return 3
		}
		greet world
		echo "status=$?"
	`, Options{})
	c.Assert(code, qt.Equals, 0)
	c.Assert(out, qt.Equals, "hi world\nstatus=3\n")
}

func TestRedirection(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	fsys := vfs.NewMemFS()
	_, _, code := runScript(t, "echo hello > /out.txt\n", Options{FS: fsys})
	c.Assert(code, qt.Equals, 0)

	got, err := fsys.ReadFile("/out.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hello\n")
}

func TestAppendRedirection(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	fsys := vfs.NewMemFS()
	_, _, _ = runScript(t, "echo one > /out.txt\necho two >> /out.txt\n", Options{FS: fsys})

	got, err := fsys.ReadFile("/out.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "one\ntwo\n")
}

func TestCaseFallthrough(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `
		case foo in
		foo) echo one ;&
		bar) echo two ;;
		*) echo other ;;
		esac
	`, Options{})
	c.Assert(out, qt.Equals, "one\ntwo\n")
}

func TestArraysAndIndexing(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, "arr=(a b c)\necho ${arr[1]}\narr[1]=z\necho ${arr[1]}\n", Options{})
	c.Assert(out, qt.Equals, "b\nz\n")
}

func TestCommandCountLimit(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	_, _, code := runScript(t, "echo a\necho b\necho c\n", Options{
		Limits: limits.Config{MaxCommandCount: 2},
	})
	c.Assert(code, qt.Equals, 1)
}

func TestLoopIterationLimit(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	_, _, code := runScript(t, "while true; do :; done\n", Options{
		Limits: limits.Config{MaxLoopIterations: 5, MaxCommandCount: 0},
	})
	c.Assert(code, qt.Equals, 1)
}

func TestPositionalParams(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	out, _, _ := runScript(t, `
		f() {
			echo "$# $1 $2"
			shift
			echo "$# $1"
		}
		f one two three
	`, Options{})
	c.Assert(out, qt.Equals, "3 one two\n2 two\n")
}

func TestStdinThroughPipelineToRegisteredCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	reg := registry.Demo()
	out, _, _ := runScript(t, "echo HELLO | lower\n", Options{Registry: reg})
	c.Assert(out, qt.Equals, "hello\n")
}
