// Package registry defines the pluggable external-command interface the
// interpreter dispatches to for any simple command that isn't a shell
// builtin or function, plus a small in-memory registry implementation.
// This is deliberately not a coreutils-style command library: spec.md
// scopes that out, and embedders are expected to register only the small,
// specific set of commands their application actually needs.
package registry

import "context"

// Result is what a [Command] returns: captured output plus an exit code,
// mirroring how the interpreter treats any external process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Context is what a [Command] receives when invoked: its arguments, its
// working directory, and its stdin, as the interpreter's current state has
// them at the point of the call.
type Context struct {
	Ctx    context.Context
	Args   []string
	Dir    string
	Stdin  string
	Env    map[string]string
}

// Command is a single named external command an embedder registers,
// matching spec.md §6's `execute(args, ctx) -> {stdout, stderr, exitCode}`.
type Command interface {
	Execute(cc Context) (Result, error)
}

// CommandFunc adapts a plain function to [Command].
type CommandFunc func(cc Context) (Result, error)

func (f CommandFunc) Execute(cc Context) (Result, error) { return f(cc) }

// Registry looks up commands by name. [Registry.Lookup] returning false
// means "no such external command"; the interpreter then reports the
// conventional "command not found" failure.
type Registry interface {
	Lookup(name string) (Command, bool)
	Names() []string
}

// Map is the simplest [Registry]: a name-to-[Command] table an embedder
// builds once at startup.
type Map map[string]Command

func (m Map) Lookup(name string) (Command, bool) {
	c, ok := m[name]
	return c, ok
}

func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	return names
}
