// Package bash is the embedding surface: construct a [Bash] once per
// sandboxed shell instance, then call [Bash.Exec] to run scripts against
// it, sharing filesystem state and environment across calls the way a
// real shell session would.
package bash

import (
	"context"
	"strings"
	"time"

	"github.com/vercel-labs/just-bash-sub005/interp"
	"github.com/vercel-labs/just-bash-sub005/limits"
	"github.com/vercel-labs/just-bash-sub005/registry"
	"github.com/vercel-labs/just-bash-sub005/syntax"
	"github.com/vercel-labs/just-bash-sub005/vfs"
)

// Options configures a [Bash] instance at construction time, per spec.md
// §6: initial files, initial env, initial cwd, filesystem override,
// execution limits, network config, allowed command names, custom
// commands, sleep injection, logger.
type Options struct {
	// InitialFiles seeds the filesystem before any script runs, keyed by
	// absolute path.
	InitialFiles map[string][]byte
	Env          map[string]string
	Cwd          string

	// FS overrides the default in-memory filesystem; pass a [vfs.DiskFS]
	// or [vfs.S3FS] to sandbox a script against a real backing store.
	FS vfs.FileSystem

	Limits limits.Config

	// SecureFetch backs a registered command that needs outbound network
	// access; the interpreter itself never dials out (spec.md Non-goals).
	SecureFetch interp.SecureFetcher

	// Commands are registered as external commands; when Commands is nil,
	// [registry.Demo]'s trivial test commands are used instead.
	Commands registry.Registry

	// AllowedCommands, when non-nil, restricts dispatch to this subset of
	// Commands' names, grounded on the teacher's deleted `shell/source.go`
	// pure-program allowlist idiom: anything not in the set is reported
	// as "command not found" even if Commands could otherwise serve it.
	AllowedCommands []string

	Sleep  func(ctx context.Context, d time.Duration) error
	Logger interp.Logger
}

// ExecOptions configures a single [Bash.Exec] call.
type ExecOptions struct {
	// Env overlays additional "NAME=value" pairs for this call only.
	Env map[string]string
	Cwd string

	// RawScript disables the default dedent, which removes the leading
	// whitespace common to every non-blank line so that an indented
	// multi-line script literal in the embedding program reads naturally.
	// Lines are not trimmed one by one: indentation beyond that common
	// prefix is kept, and a script with any unindented line is left
	// unchanged. Here-doc bodies are part of what
	// gets dedented, so scripts relying on exact heredoc indentation
	// should set this to true.
	RawScript bool
}

// ExecResult is what [Bash.Exec] returns: captured output, the script's
// exit code, and a snapshot of the exported environment afterward.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Env      map[string]string
}

// Bash is one sandboxed shell instance: a [vfs.FileSystem], an environment,
// and a working directory that persist across [Bash.Exec] calls.
type Bash struct {
	runner *interp.Runner
	fs     vfs.FileSystem
}

// New constructs a [Bash] instance per opts.
func New(opts Options) (*Bash, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = vfs.NewMemFS()
	}
	for path, data := range opts.InitialFiles {
		if err := fsys.WriteFile(path, data); err != nil {
			return nil, err
		}
	}

	reg := opts.Commands
	if reg == nil {
		reg = registry.Demo()
	}
	if opts.AllowedCommands != nil {
		reg = allowlistRegistry{inner: reg, allowed: toSet(opts.AllowedCommands)}
	}

	var env []string
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	cfg := opts.Limits
	if (cfg == limits.Config{}) {
		cfg = limits.Default()
	}

	runner := interp.New(interp.Options{
		FS:          fsys,
		Cwd:         opts.Cwd,
		Env:         env,
		Registry:    reg,
		Limits:      cfg,
		SecureFetch: opts.SecureFetch,
		Sleep:       opts.Sleep,
		Logger:      opts.Logger,
	})
	return &Bash{runner: runner, fs: fsys}, nil
}

// allowlistRegistry wraps a [registry.Registry], reporting every name
// outside the configured set as not found — the same "pure program" gate
// the teacher's deleted source-whitelisting code applied to external
// interpreters, repurposed here for registered command names.
type allowlistRegistry struct {
	inner   registry.Registry
	allowed map[string]bool
}

func (a allowlistRegistry) Lookup(name string) (registry.Command, bool) {
	if !a.allowed[name] {
		return nil, false
	}
	return a.inner.Lookup(name)
}

func (a allowlistRegistry) Names() []string {
	var out []string
	for _, n := range a.inner.Names() {
		if a.allowed[n] {
			out = append(out, n)
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Exec parses and runs script, honoring spec.md's default indentation
// dedent (disableable per-call via [ExecOptions.RawScript]) and any
// per-call env/cwd overlay.
func (b *Bash) Exec(ctx context.Context, script string, opts ...ExecOptions) (ExecResult, error) {
	var o ExecOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	src := script
	if !o.RawScript {
		src = dedent(src)
	}

	p := syntax.NewParser()
	f, err := p.ParseString(src, "")
	if err != nil {
		return ExecResult{ExitCode: 2}, err
	}

	restoreEnv := b.runner.OverlayEnv(o.Env)
	restoreCwd := b.runner.OverlayCwd(o.Cwd)
	defer restoreEnv()
	defer restoreCwd()

	var out, errOut strings.Builder
	restoreIO := b.runner.OverlayIO(&out, &errOut, nil)
	defer restoreIO()

	code, runErr := b.runner.Run(ctx, f)
	return ExecResult{
		Stdout:   out.String(),
		Stderr:   errOut.String(),
		ExitCode: code,
		Env:      b.GetEnv(),
	}, runErr
}

// ReadFile reads path from the sandboxed filesystem.
func (b *Bash) ReadFile(path string) (string, error) {
	return b.fs.ReadFile(b.runner.ResolvePath(path))
}

// WriteFile writes data to path in the sandboxed filesystem.
func (b *Bash) WriteFile(path string, data []byte) error {
	return b.fs.WriteFile(b.runner.ResolvePath(path), data)
}

// GetCwd returns the shell's current working directory.
func (b *Bash) GetCwd() string { return b.runner.Cwd() }

// GetEnv returns a NAME -> value map of every currently exported variable.
func (b *Bash) GetEnv() map[string]string {
	out := map[string]string{}
	for _, kv := range b.runner.Env() {
		name, val, ok := strings.Cut(kv, "=")
		if ok {
			out[name] = val
		}
	}
	return out
}

// dedent trims the longest common leading-whitespace run shared by every
// non-blank line, so an indented multi-line script literal in the
// embedding program reads naturally without carrying its host
// indentation into here-doc bodies and literal strings.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	havePrefix := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !havePrefix {
			prefix = indent
			havePrefix = true
			continue
		}
		prefix = commonPrefix(prefix, indent)
	}
	if prefix == "" {
		return s
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
