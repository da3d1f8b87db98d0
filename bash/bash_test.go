package bash

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pmezard/go-difflib/difflib"
)

// assertStdout compares multi-line output and, on mismatch, fails with a
// unified diff instead of a raw string dump.
func assertStdout(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("stdout mismatch (diff failed: %v)\nwant: %q\ngot:  %q", err, want, got)
	}
	t.Fatalf("stdout mismatch:\n%s", diff)
}

func TestExecBasic(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{})
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), `echo hello`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hello\n")
	c.Assert(res.ExitCode, qt.Equals, 0)
}

func TestExecPersistsStateAcrossCalls(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{})
	c.Assert(err, qt.IsNil)

	_, err = sh.Exec(context.Background(), `x=42`)
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), `echo $x`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "42\n")
}

func TestExecDedentsIndentedScriptByDefault(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{})
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), `
		echo one
		echo two
	`)
	c.Assert(err, qt.IsNil)
	assertStdout(t, res.Stdout, "one\ntwo\n")
}

func TestDedentStripsCommonIndentation(t *testing.T) {
	c := qt.New(t)

	got := dedent("\t\techo one\n\t\techo two\n")
	c.Assert(got, qt.Equals, "echo one\necho two\n")
}

func TestDedentLeavesUnindentedScriptAlone(t *testing.T) {
	c := qt.New(t)

	got := dedent("echo one\n  echo two\n")
	c.Assert(got, qt.Equals, "echo one\n  echo two\n")
}

func TestExecRawScriptSkipsDedent(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{})
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), "  echo one\n  echo two\n", ExecOptions{RawScript: true})
	c.Assert(err, qt.IsNil)
	assertStdout(t, res.Stdout, "one\ntwo\n")
}

func TestWriteAndReadFile(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{Cwd: "/"})
	c.Assert(err, qt.IsNil)

	c.Assert(sh.WriteFile("/hello.txt", []byte("world")), qt.IsNil)

	got, err := sh.ReadFile("/hello.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "world")
}

func TestAllowedCommandsRestrictsDispatch(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{AllowedCommands: []string{"upper"}})
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), `echo hi | upper`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "HI\n")

	res, err = sh.Exec(context.Background(), `lower hi`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Equals, 127)
}

func TestExecOptionsEnvOverlay(t *testing.T) {
	c := qt.New(t)
	sh, err := New(Options{})
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), `echo $GREETING`, ExecOptions{Env: map[string]string{"GREETING": "hi there"}})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hi there\n")

	res, err = sh.Exec(context.Background(), `echo $GREETING`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "\n")
}
