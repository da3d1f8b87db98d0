package registry

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDemoCommands(t *testing.T) {
	c := qt.New(t)
	reg := Demo()

	upper, ok := reg.Lookup("upper")
	c.Assert(ok, qt.Equals, true)
	res, err := upper.Execute(Context{Ctx: context.Background(), Stdin: "hello"})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "HELLO")

	echoargs, ok := reg.Lookup("echoargs")
	c.Assert(ok, qt.Equals, true)
	res, err = echoargs.Execute(Context{Args: []string{"echoargs", "a", "b"}})
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "echoargs a b\n")

	failwith, ok := reg.Lookup("failwith")
	c.Assert(ok, qt.Equals, true)
	res, err = failwith.Execute(Context{Args: []string{"failwith", "7"}})
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Equals, 7)
}

func TestMapLookupMiss(t *testing.T) {
	c := qt.New(t)
	m := Map{}
	_, ok := m.Lookup("nope")
	c.Assert(ok, qt.Equals, false)
}

func TestCommandFunc(t *testing.T) {
	c := qt.New(t)
	var called bool
	cmd := CommandFunc(func(cc Context) (Result, error) {
		called = true
		return Result{Stdout: "ran"}, nil
	})
	res, err := cmd.Execute(Context{})
	c.Assert(err, qt.IsNil)
	c.Assert(called, qt.Equals, true)
	c.Assert(res.Stdout, qt.Equals, "ran")
}
