// Package interp implements the tree-walking interpreter: it executes a
// parsed [syntax.File] against an [InterpreterState]-shaped [Runner],
// consulting [expand] for word expansion, [vfs] for filesystem access, and
// [registry] for any command that isn't a builtin or a shell function.
package interp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vercel-labs/just-bash-sub005/expand"
	"github.com/vercel-labs/just-bash-sub005/limits"
	"github.com/vercel-labs/just-bash-sub005/registry"
	"github.com/vercel-labs/just-bash-sub005/syntax"
	"github.com/vercel-labs/just-bash-sub005/vfs"
)

// Options configure a [Runner] at construction time.
type Options struct {
	FS          vfs.FileSystem
	Cwd         string
	Env         []string // "NAME=value" pairs seeding the initial environment
	Registry    registry.Registry
	Limits      limits.Config
	Stdout      io.Writer
	Stderr      io.Writer
	Stdin       io.Reader
	Sleep       func(ctx context.Context, d time.Duration) error
	SecureFetch SecureFetcher
	Logger      Logger
	HomeDir     func(user string) (string, error)
}

// SecureFetcher is the interpreter's sole network-reaching collaborator
// (backing a future `fetch`-style builtin); the base interpreter never
// calls it itself, matching spec.md's Non-goals around real networking,
// but embedders that register a command needing outbound HTTP can use it
// without the interpreter growing a net.Dial dependency of its own.
type SecureFetcher interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

// Runner is the interpreter: everything from spec.md's InterpreterState
// data model, plus the Go-side collaborators (filesystem, registry,
// limits, IO) it threads through every statement it executes.
type Runner struct {
	vars      *varStore
	fs        vfs.FileSystem
	cwd       string
	prevDir   string
	homeDir   func(string) (string, error)
	functions map[string]*syntax.Stmt

	positional []string
	lastExit   int
	lastArg    string
	lastBgPid  string

	opts     map[byte]bool // set -e/-u/-x/-v/-f, keyed by short flag
	pipefail bool          // set -o pipefail

	callDepth     int
	sourceDepth   int
	loopDepth     int
	commandCount  int
	startTime     time.Time
	inCondition   bool
	currentLine   int

	limits   limits.Config
	registry registry.Registry

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	sleep       func(ctx context.Context, d time.Duration) error
	secureFetch SecureFetcher
	logger      Logger

	aliases  map[string]string
	dirStack []string

	lastPipeStatus []int
	bgJobs         int64

	execHandler ExecHandlerFunc
	openHandler OpenHandlerFunc

	exitTrap    *syntax.Stmt
	trapExitSrc string

	shopts map[string]bool // extglob/globstar/nullglob/failglob/nocaseglob/nocasematch/expand_aliases
}

// New constructs a [Runner] ready to run scripts.
func New(opts Options) *Runner {
	r := &Runner{
		vars:      newVarStore(),
		fs:        opts.FS,
		cwd:       opts.Cwd,
		functions: map[string]*syntax.Stmt{},
		opts:      map[byte]bool{},
		limits:    opts.Limits,
		registry:  opts.Registry,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
		stdin:     opts.Stdin,
		sleep:     opts.Sleep,
		secureFetch: opts.SecureFetch,
		logger:    opts.Logger,
		aliases:   map[string]string{},
		homeDir:   opts.HomeDir,
		startTime: time.Now(),
		shopts:    map[string]bool{},
	}
	if r.fs == nil {
		r.fs = vfs.NewMemFS()
	}
	if r.cwd == "" {
		r.cwd = "/"
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}
	if r.stdin == nil {
		r.stdin = strings.NewReader("")
	}
	if r.registry == nil {
		r.registry = registry.Map{}
	}
	if (r.limits == limits.Config{}) {
		r.limits = limits.Default()
	}
	if r.logger == nil {
		r.logger = NewTracer(r.stderr, false)
	}
	r.execHandler = DefaultExecHandler(r)
	r.openHandler = DefaultOpenHandler(r)
	for _, kv := range opts.Env {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		r.vars.Set(kv[:i], expand.Variable{Exported: true, Kind: expand.String, Str: kv[i+1:]})
	}
	r.vars.Set("PWD", expand.Variable{Exported: true, Kind: expand.String, Str: r.cwd})
	r.vars.Set("IFS", expand.Variable{Kind: expand.String, Str: " \t\n"})
	r.vars.Set("?", expand.Variable{Kind: expand.String, Str: "0"})
	return r
}

// Logger is the interpreter's diagnostic sink: xtrace/verbose lines, and
// nothing else (ordinary command stdout/stderr never goes through it).
type Logger interface {
	Trace(line string)
}

// Run parses nothing itself; it executes an already-parsed [syntax.File]
// and returns the script's final exit code, unwinding an `exit` builtin's
// [ExitStatus] into a plain return rather than a panic.
func (r *Runner) Run(ctx context.Context, f *syntax.File) (code int, err error) {
	defer func() {
		rec := recover()
		r.runExitTrap(ctx)
		if rec == nil {
			return
		}
		switch v := rec.(type) {
		case ExitStatus:
			code = int(v)
			err = nil
		case *limits.ExecutionLimitError:
			code = 1
			err = v
		case error:
			code = 1
			err = v
		default:
			panic(rec)
		}
	}()
	code = r.runStmts(ctx, f.Stmts)
	err = nil
	return code, nil
}

func (r *Runner) runExitTrap(ctx context.Context) {
	if r.exitTrap == nil {
		return
	}
	trap := r.exitTrap
	r.exitTrap = nil
	defer func() { recover() }()
	r.execStmt(ctx, trap)
}

func (r *Runner) runStmts(ctx context.Context, stmts []*syntax.Stmt) int {
	code := 0
	for _, s := range stmts {
		code = r.execStmt(ctx, s)
	}
	return code
}

func (r *Runner) bumpCommandCount() {
	if r.limits.MaxCommandCount <= 0 {
		return
	}
	r.commandCount++
	if r.commandCount > r.limits.MaxCommandCount {
		panic(&limits.ExecutionLimitError{Kind: limits.Commands, Limit: r.limits.MaxCommandCount})
	}
}

func (r *Runner) setExit(code int) int {
	r.lastExit = code
	r.vars.Set("?", expand.Variable{Kind: expand.String, Str: strconv.Itoa(code)})
	if r.opts['e'] && code != 0 && !r.inCondition {
		panic(ExitStatus(code))
	}
	return code
}

func (r *Runner) nextBgJobID() string {
	n := atomic.AddInt64(&r.bgJobs, 1)
	id := ulid.Make()
	return fmt.Sprintf("%d:%s", n, id.String())
}

// Cwd returns the interpreter's current working directory.
func (r *Runner) Cwd() string { return r.cwd }

// drainStdin reads the runner's entire current stdin into a string for
// handing to a builtin or registered command, then replaces r.stdin with a
// fresh reader over the same bytes so anything reading the stream directly
// afterward (read, mapfile) still sees it.
func (r *Runner) drainStdin() string {
	data, _ := io.ReadAll(r.stdin)
	r.stdin = strings.NewReader(string(data))
	return string(data)
}

// Env returns a flat NAME=value snapshot of every exported variable,
// matching what a spawned external command would see.
func (r *Runner) Env() []string {
	var out []string
	r.vars.Each(func(name string, vb expand.Variable) bool {
		if vb.Exported && vb.Kind == expand.String {
			out = append(out, name+"="+vb.Str)
		}
		return true
	})
	sort.Strings(out)
	return out
}

func (r *Runner) expandConfig() *expand.Config {
	return &expand.Config{
		Env: runnerEnviron{r},
		CmdSubst: func(sub *syntax.CmdSubst) (string, error) {
			return r.captureCmdSubst(context.Background(), sub)
		},
		ReadDir: func(dir string) ([]string, error) {
			return r.fs.ReadDir(r.resolvePath(dir))
		},
		HomeDir: r.homeDirFn(),
		NoUnset:     r.opts['u'],
		NoGlob:      r.opts['f'],
		ExtGlob:     r.shopts["extglob"],
		GlobStar:    r.shopts["globstar"],
		NoCaseGlob:  r.shopts["nocaseglob"],
		NullGlob:    r.shopts["nullglob"],
		FailGlob:    r.shopts["failglob"],
		NoCaseMatch: r.shopts["nocasematch"],
		UnsetErr: func(name string) {
			fmt.Fprintf(r.stderr, "bash: %s: unbound variable\n", name)
			panic(ExitStatus(1))
		},
	}
}

func (r *Runner) homeDirFn() func(string) (string, error) {
	if r.homeDir != nil {
		return r.homeDir
	}
	return func(user string) (string, error) {
		if user == "" {
			if h := r.vars.Get("HOME"); h.IsSet() {
				return h.Str, nil
			}
			return "/", nil
		}
		return "", fmt.Errorf("no such user: %s", user)
	}
}

func (r *Runner) resolvePath(p string) string {
	return r.fs.ResolvePath(r.cwd, p)
}

// runnerEnviron adapts *Runner to expand.WriteEnviron.
type runnerEnviron struct{ r *Runner }

func (e runnerEnviron) Get(name string) expand.Variable { return e.r.getSpecial(name) }
func (e runnerEnviron) Set(name string, vb expand.Variable) error { return e.r.vars.Set(name, vb) }
func (e runnerEnviron) Each(f func(string, expand.Variable) bool) { e.r.vars.Each(f) }

func (r *Runner) getSpecial(name string) expand.Variable {
	switch name {
	case "?":
		return expand.Variable{Kind: expand.String, Str: strconv.Itoa(r.lastExit)}
	case "$":
		return expand.Variable{Kind: expand.String, Str: strconv.Itoa(os.Getpid())}
	case "!":
		return expand.Variable{Kind: expand.String, Str: r.lastBgPid}
	case "_":
		return expand.Variable{Kind: expand.String, Str: r.lastArg}
	case "0":
		return expand.Variable{Kind: expand.String, Str: "bash"}
	case "#":
		return expand.Variable{Kind: expand.String, Str: strconv.Itoa(len(r.positional))}
	case "@":
		return expand.Variable{Kind: expand.Indexed, List: append([]string{}, r.positional...)}
	case "*":
		return expand.Variable{Kind: expand.String, Str: strings.Join(r.positional, r.ifsFirstByte())}
	case "LINENO":
		return expand.Variable{Kind: expand.String, Str: strconv.Itoa(r.currentLine)}
	case "RANDOM":
		return expand.Variable{Kind: expand.String, Str: strconv.Itoa(int(ulid.Now() % 32768))}
	case "SECONDS":
		return expand.Variable{Kind: expand.String, Str: strconv.Itoa(int(time.Since(r.startTime).Seconds()))}
	case "PIPESTATUS":
		return expand.Variable{Kind: expand.Indexed, List: intsToStrs(r.lastPipeStatus)}
	}
	if len(name) == 1 && name[0] >= '1' && name[0] <= '9' {
		idx := int(name[0]-'1')
		if idx < len(r.positional) {
			return expand.Variable{Kind: expand.String, Str: r.positional[idx]}
		}
		return expand.Variable{Kind: expand.String, Str: ""}
	}
	return r.vars.Get(name)
}

// ifsFirstByte returns the separator "$*" joins positional parameters with:
// the first character of the current IFS, or a literal space if IFS is
// unset (bash's default), or no separator at all if IFS is set but empty.
func (r *Runner) ifsFirstByte() string {
	ifs := r.vars.Get("IFS")
	if !ifs.IsSet() {
		return " "
	}
	if ifs.Str == "" {
		return ""
	}
	return ifs.Str[:1]
}

func intsToStrs(xs []int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.Itoa(x)
	}
	return out
}

// captureCmdSubst runs sub's statements with stdout redirected to a
// buffer, in a forked variable/cwd scope (command substitution never
// writes mutations back to the caller, like a subshell).
func (r *Runner) captureCmdSubst(ctx context.Context, sub *syntax.CmdSubst) (string, error) {
	sub2 := r.forkSubshell()
	var buf bytes.Buffer
	sub2.stdout = &buf
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(ExitStatus); ok {
				return
			}
			panic(rec)
		}
	}()
	sub2.runStmts(ctx, sub.Stmts)
	return buf.String(), nil
}

// forkSubshell returns a Runner sharing this one's filesystem, registry,
// and limits configuration, but with an independent copy of variables and
// cwd, matching Subshell's isolation semantics (spec.md §8).
func (r *Runner) forkSubshell() *Runner {
	clone := *r
	clone.vars = r.vars.snapshot()
	clone.opts = copyOpts(r.opts)
	clone.shopts = copyStringBoolMap(r.shopts)
	return &clone
}

func copyOpts(o map[byte]bool) map[byte]bool {
	out := make(map[byte]bool, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

func copyStringBoolMap(o map[string]bool) map[string]bool {
	out := make(map[string]bool, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

func (v *varStore) snapshot() *varStore {
	out := newVarStore()
	for k, val := range v.globals {
		out.globals[k] = val
	}
	for _, frame := range v.locals {
		nf := newLocalFrame()
		for k, val := range frame.saved {
			nf.saved[k] = val
		}
		for k, val := range frame.had {
			nf.had[k] = val
		}
		out.locals = append(out.locals, nf)
	}
	return out
}
