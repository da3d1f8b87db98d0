package interp

import "context"

// ExecHandlerFunc runs a simple command's already-expanded argv; the
// default dispatches to shell functions, then builtins, then the
// [registry.Registry], and finally reports "command not found". Embedders
// can override it entirely via a future Runner option if they want to
// intercept every external call.
type ExecHandlerFunc func(ctx context.Context, args []string, stdin string) (stdout, stderr string, exitCode int)

// OpenHandlerFunc resolves a redirection target to file contents read or
// written through the configured [vfs.FileSystem]; kept as a named hook
// (rather than calling r.fs directly everywhere) so a future option can
// intercept special paths like /dev/null or /dev/stdin.
type OpenHandlerFunc func(path string) (resolved string, err error)

// DefaultExecHandler builds the ordinary dispatch chain: functions,
// builtins, registry, "not found".
func DefaultExecHandler(r *Runner) ExecHandlerFunc {
	return func(ctx context.Context, args []string, stdin string) (string, string, int) {
		if len(args) == 0 {
			return "", "", 0
		}
		name := args[0]
		if body, ok := r.functions[name]; ok {
			return r.callFunction(ctx, body, args, stdin)
		}
		if fn, ok := builtins[name]; ok {
			return r.runBuiltin(ctx, fn, args, stdin)
		}
		if cmd, ok := r.registry.Lookup(name); ok {
			return r.runRegistered(ctx, cmd, args, stdin)
		}
		return "", name + ": command not found\n", 127
	}
}

// DefaultOpenHandler resolves relative paths against the runner's cwd.
func DefaultOpenHandler(r *Runner) OpenHandlerFunc {
	return func(path string) (string, error) {
		return r.resolvePath(path), nil
	}
}
