package interp

import (
	"io"

	"github.com/vercel-labs/just-bash-sub005/expand"
)

// ResolvePath exposes the runner's cwd-relative path resolution to
// embedders (used by [github.com/vercel-labs/just-bash-sub005/bash]'s
// ReadFile/WriteFile, which otherwise have no access to the interpreter's
// private path-joining rules).
func (r *Runner) ResolvePath(path string) string { return r.resolvePath(path) }

// OverlayEnv sets the given NAME->value pairs as exported variables for
// the duration of one Exec call, restoring each variable's prior value (or
// absence) when the returned func runs.
func (r *Runner) OverlayEnv(env map[string]string) func() {
	if len(env) == 0 {
		return func() {}
	}
	type saved struct {
		had bool
		vb  expand.Variable
	}
	prior := make(map[string]saved, len(env))
	for name, val := range env {
		cur := r.vars.Get(name)
		prior[name] = saved{had: cur.IsSet(), vb: cur}
		r.vars.Set(name, expand.Variable{Exported: true, Kind: expand.String, Str: val})
	}
	return func() {
		for name, s := range prior {
			if s.had {
				r.vars.Set(name, s.vb)
			} else {
				r.vars.Unset(name)
			}
		}
	}
}

// OverlayCwd sets the runner's working directory for one Exec call,
// restoring the previous cwd afterward. An empty cwd is a no-op.
func (r *Runner) OverlayCwd(cwd string) func() {
	if cwd == "" {
		return func() {}
	}
	prior := r.cwd
	r.cwd = r.resolvePath(cwd)
	return func() { r.cwd = prior }
}

// OverlayIO swaps stdout/stderr/stdin for one Exec call; a nil argument
// leaves that stream unchanged.
func (r *Runner) OverlayIO(stdout, stderr io.Writer, stdin io.Reader) func() {
	priorOut, priorErr, priorIn := r.stdout, r.stderr, r.stdin
	if stdout != nil {
		r.stdout = stdout
	}
	if stderr != nil {
		r.stderr = stderr
	}
	if stdin != nil {
		r.stdin = stdin
	}
	return func() {
		r.stdout, r.stderr, r.stdin = priorOut, priorErr, priorIn
	}
}
