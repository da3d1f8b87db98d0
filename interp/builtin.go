package interp

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/expand"
	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// builtinFunc is a shell builtin's signature: already-expanded argv in,
// captured stdout/stderr and an exit code out, matching how [ExecHandlerFunc]
// treats any other dispatch target.
type builtinFunc func(ctx context.Context, r *Runner, args []string, stdin string) (stdout, stderr string, exitCode int)

// builtins is the fixed set of commands the interpreter implements itself
// rather than forwarding to the [registry.Registry], per spec.md §4's core
// builtin list plus the supplemented ones (pushd/popd/mapfile/getopts/...).
var builtins = map[string]builtinFunc{
	"true":     func(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) { return "", "", 0 },
	"false":    func(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) { return "", "", 1 },
	":":        func(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) { return "", "", 0 },
	"cd":       biCd,
	"pwd":      biPwd,
	"echo":     biEcho,
	"printf":   biPrintf,
	"export":   biExport,
	"unset":    biUnset,
	"readonly": biReadonly,
	"return":   biReturn,
	"break":    biBreak,
	"continue": biContinue,
	"exit":     biExit,
	"test":     biTest,
	"[":        biTest,
	"read":     biRead,
	"shift":    biShift,
	"set":      biSet,
	"source":   biSource,
	".":        biSource,
	"eval":     biEval,
	"alias":    biAlias,
	"unalias":  biUnalias,
	"getopts":  biGetopts,
	"shopt":    biShopt,
	"mapfile":  biMapfile,
	"readarray": biMapfile,
	"pushd":    biPushd,
	"popd":     biPopd,
	"dirs":     biDirs,
	"local":    biLocal,
	"declare":  biDeclare,
	"typeset":  biDeclare,
	"trap":     biTrap,
}

func (r *Runner) runBuiltin(ctx context.Context, fn builtinFunc, args []string, stdin string) (string, string, int) {
	return fn(ctx, r, args, stdin)
}

func biCd(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	target := ""
	if len(args) > 1 {
		target = args[1]
	}
	switch target {
	case "":
		if h := r.vars.Get("HOME"); h.IsSet() {
			target = h.Str
		} else {
			target = "/"
		}
	case "-":
		if r.prevDir == "" {
			return "", "bash: cd: OLDPWD not set\n", 1
		}
		target = r.prevDir
	}
	resolved := r.resolvePath(target)
	fi, err := r.fs.Stat(resolved)
	if err != nil || !fi.IsDir {
		return "", fmt.Sprintf("bash: cd: %s: No such file or directory\n", target), 1
	}
	r.prevDir = r.cwd
	r.cwd = resolved
	r.vars.Set("OLDPWD", expand.Variable{Exported: true, Kind: expand.String, Str: r.prevDir})
	r.vars.Set("PWD", expand.Variable{Exported: true, Kind: expand.String, Str: r.cwd})
	return "", "", 0
}

func biPwd(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	return r.cwd + "\n", "", 0
}

func biEcho(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	rest := args[1:]
	newline := true
	interpret := false
	for len(rest) > 0 {
		switch rest[0] {
		case "-n":
			newline = false
		case "-e":
			interpret = true
		case "-E":
			interpret = false
		default:
			goto done
		}
		rest = rest[1:]
	}
done:
	out := strings.Join(rest, " ")
	if interpret {
		out = expandEchoEscapes(out)
	}
	if newline {
		out += "\n"
	}
	return out, "", 0
}

func expandEchoEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case 'a':
			b.WriteByte('\a')
		case 'c':
			return b.String()
		default:
			b.WriteByte(s[i])
			i--
		}
		i++
	}
	return b.String()
}

func biPrintf(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(args) < 2 {
		return "", "bash: printf: usage: printf format [arguments]\n", 1
	}
	format := args[1]
	vals := make([]any, 0, len(args)-2)
	for _, a := range args[2:] {
		vals = append(vals, a)
	}
	out, err := goPrintf(format, args[2:])
	if err != nil {
		return "", "bash: printf: " + err.Error() + "\n", 1
	}
	_ = vals
	return out, "", 0
}

// goPrintf implements the small subset of printf(1) conversions bash
// scripts actually rely on (%s %d %i %f %b %q %%), cycling the format
// string over any extra arguments the way bash's own printf does.
func goPrintf(format string, args []string) (string, error) {
	var b strings.Builder
	argi := 0
	nextArg := func() string {
		if argi < len(args) {
			v := args[argi]
			argi++
			return v
		}
		return ""
	}
	applyOnce := func() {
		for i := 0; i < len(format); i++ {
			c := format[i]
			if c != '%' || i+1 >= len(format) {
				b.WriteByte(c)
				continue
			}
			j := i + 1
			for j < len(format) && strings.IndexByte("-+0123456789.#", format[j]) >= 0 {
				j++
			}
			if j >= len(format) {
				b.WriteByte(c)
				continue
			}
			verb := format[j]
			spec := format[i : j+1]
			switch verb {
			case '%':
				b.WriteByte('%')
			case 's':
				fmt.Fprintf(&b, spec, nextArg())
			case 'd', 'i':
				n, _ := strconv.ParseInt(strings.TrimSpace(nextArg()), 0, 64)
				fmt.Fprintf(&b, spec[:len(spec)-1]+"d", n)
			case 'f', 'e', 'g':
				v, _ := strconv.ParseFloat(strings.TrimSpace(nextArg()), 64)
				fmt.Fprintf(&b, spec, v)
			case 'b':
				b.WriteString(expandEchoEscapes(nextArg()))
			case 'q':
				b.WriteString(strconv.Quote(nextArg()))
			default:
				b.WriteString(spec)
			}
			i = j
		}
	}
	if len(args) == 0 {
		applyOnce()
		return b.String(), nil
	}
	for argi < len(args) {
		start := argi
		applyOnce()
		if argi == start {
			break
		}
	}
	return b.String(), nil
}

func biExport(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(args) == 1 {
		var out strings.Builder
		r.vars.Each(func(name string, vb expand.Variable) bool {
			if vb.Exported {
				fmt.Fprintf(&out, "declare -x %s=%q\n", name, vb.Str)
			}
			return true
		})
		return out.String(), "", 0
	}
	for _, a := range args[1:] {
		name, val, has := strings.Cut(a, "=")
		vb := r.vars.Get(name)
		if has {
			vb = expand.Variable{Kind: expand.String, Str: val}
		}
		vb.Exported = true
		if err := r.vars.Set(name, vb); err != nil {
			return "", "bash: export: " + err.Error() + "\n", 1
		}
	}
	return "", "", 0
}

func biReadonly(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	for _, a := range args[1:] {
		name, val, has := strings.Cut(a, "=")
		vb := r.vars.Get(name)
		if has {
			vb = expand.Variable{Kind: expand.String, Str: val}
		}
		vb.ReadOnly = true
		r.vars.SetForce(name, vb)
	}
	return "", "", 0
}

func biUnset(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	for _, name := range args[1:] {
		r.vars.Unset(name)
	}
	return "", "", 0
}

func biReturn(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	code := r.lastExit
	if len(args) > 1 {
		code, _ = strconv.Atoi(args[1])
	}
	panic(ReturnStatus(code))
}

func biBreak(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	level := 1
	if len(args) > 1 {
		level, _ = strconv.Atoi(args[1])
	}
	panic(&LoopControlSignal{Kind: LoopBreak, Level: level})
}

func biContinue(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	level := 1
	if len(args) > 1 {
		level, _ = strconv.Atoi(args[1])
	}
	panic(&LoopControlSignal{Kind: LoopContinue, Level: level})
}

func biExit(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	code := r.lastExit
	if len(args) > 1 {
		code, _ = strconv.Atoi(args[1])
	}
	panic(ExitStatus(code))
}

func biTest(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	a := args[1:]
	if len(a) > 0 && args[0] == "[" {
		if a[len(a)-1] != "]" {
			return "", "bash: [: missing closing ]\n", 2
		}
		a = a[:len(a)-1]
	}
	ok, err := evalTestArgs(r, a)
	if err != nil {
		return "", "bash: test: " + err.Error() + "\n", 2
	}
	if ok {
		return "", "", 0
	}
	return "", "", 1
}

// evalTestArgs implements the classic `test`/`[` argument grammar, which is
// positional rather than the `[[ ]]` tokenizer's word-based one.
func evalTestArgs(r *Runner, a []string) (bool, error) {
	switch len(a) {
	case 0:
		return false, nil
	case 1:
		return a[0] != "", nil
	case 2:
		if a[0] == "!" {
			v, err := evalTestArgs(r, a[1:])
			return !v, err
		}
		if op, ok := unTestOpsByName[a[0]]; ok {
			v, err := r.evalUnaryTest(op, a[1])
			return v, err
		}
		return false, fmt.Errorf("unknown unary operator %q", a[0])
	case 3:
		if op, ok := binTestOpsByName[a[1]]; ok {
			cfg := r.expandConfig()
			w := &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: escapeLit(a[2])}}}
			v, err := r.evalBinaryTest(cfg, op, a[0], w)
			return v, err
		}
		return false, fmt.Errorf("unknown binary operator %q", a[1])
	}
	return false, fmt.Errorf("too many arguments")
}

func escapeLit(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '*', '?', '[', '$', '`', '"', '\'':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func biRead(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	names := args[1:]
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	reader := bufio.NewReader(r.stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", "", 1
	}
	line = strings.TrimRight(line, "\n")
	ifs := r.vars.Get("IFS")
	sep := " \t\n"
	if ifs.IsSet() {
		sep = ifs.Str
	}
	fields := strings.FieldsFunc(line, func(c rune) bool { return strings.ContainsRune(sep, c) })
	for i, name := range names {
		val := ""
		if i < len(fields) {
			if i == len(names)-1 {
				val = strings.Join(fields[i:], " ")
			} else {
				val = fields[i]
			}
		}
		r.vars.Set(name, expand.Variable{Kind: expand.String, Str: val})
	}
	return "", "", 0
}

func biShift(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	n := 1
	if len(args) > 1 {
		n, _ = strconv.Atoi(args[1])
	}
	if n > len(r.positional) {
		return "", "", 1
	}
	r.positional = r.positional[n:]
	return "", "", 0
}

func biSet(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			continue
		}
		enable := a[0] == '-'
		if a[1:] == "o" {
			if i+1 < len(rest) {
				i++
				if rest[i] == "pipefail" {
					r.pipefail = enable
				}
			}
			continue
		}
		for _, flag := range a[1:] {
			r.opts[byte(flag)] = enable
		}
	}
	return "", "", 0
}

func biSource(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(args) < 2 {
		return "", "bash: source: filename argument required\n", 1
	}
	path := r.resolvePath(args[1])
	data, err := r.fs.ReadFile(path)
	if err != nil {
		return "", fmt.Sprintf("bash: %s: No such file or directory\n", args[1]), 1
	}
	if r.limits.MaxSourceDepth > 0 && r.sourceDepth >= r.limits.MaxSourceDepth {
		return "", "bash: source: max source depth exceeded\n", 1
	}
	f, perr := syntax.NewParser().ParseString(data, args[1])
	if perr != nil {
		return "", "bash: " + args[1] + ": " + perr.Error() + "\n", 1
	}
	savedPositional := r.positional
	if len(args) > 2 {
		r.positional = args[2:]
	}
	r.sourceDepth++
	var code int
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				if rs, ok := rec.(ReturnStatus); ok {
					code = int(rs)
					return
				}
				panic(rec)
			}
		}()
		code = r.runStmts(ctx, f.Stmts)
	}()
	r.sourceDepth--
	r.positional = savedPositional
	return "", "", code
}

func biEval(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	src := strings.Join(args[1:], " ")
	f, err := syntax.NewParser().ParseString(src, "eval")
	if err != nil {
		return "", "bash: eval: " + err.Error() + "\n", 1
	}
	return "", "", r.runStmts(ctx, f.Stmts)
}

func biAlias(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(args) == 1 {
		var out strings.Builder
		names := make([]string, 0, len(r.aliases))
		for n := range r.aliases {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(&out, "alias %s=%q\n", n, r.aliases[n])
		}
		return out.String(), "", 0
	}
	var out strings.Builder
	for _, a := range args[1:] {
		name, val, has := strings.Cut(a, "=")
		if !has {
			if v, ok := r.aliases[name]; ok {
				fmt.Fprintf(&out, "alias %s=%q\n", name, v)
			}
			continue
		}
		r.aliases[name] = val
	}
	return out.String(), "", 0
}

func biUnalias(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	for _, name := range args[1:] {
		delete(r.aliases, name)
	}
	return "", "", 0
}

func biGetopts(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(args) < 3 {
		return "", "bash: getopts: usage: getopts optstring name [args]\n", 2
	}
	optstring := args[1]
	name := args[2]
	rest := args[3:]
	if len(rest) == 0 {
		rest = r.positional
	}
	optindVar := r.vars.Get("OPTIND")
	optind := 1
	if optindVar.IsSet() {
		optind, _ = strconv.Atoi(optindVar.Str)
	}
	if optind-1 >= len(rest) {
		return "", "", 1
	}
	arg := rest[optind-1]
	if len(arg) < 2 || arg[0] != '-' {
		return "", "", 1
	}
	opt := arg[1]
	idx := strings.IndexByte(optstring, opt)
	if idx < 0 {
		r.vars.Set(name, expand.Variable{Kind: expand.String, Str: "?"})
		r.vars.Set("OPTIND", expand.Variable{Kind: expand.String, Str: strconv.Itoa(optind + 1)})
		return "", "", 0
	}
	r.vars.Set(name, expand.Variable{Kind: expand.String, Str: string(opt)})
	optind++
	if idx+1 < len(optstring) && optstring[idx+1] == ':' {
		if optind-1 < len(rest) {
			r.vars.Set("OPTARG", expand.Variable{Kind: expand.String, Str: rest[optind-1]})
			optind++
		}
	}
	r.vars.Set("OPTIND", expand.Variable{Kind: expand.String, Str: strconv.Itoa(optind)})
	return "", "", 0
}

// biTrap implements `trap [action] signal...`. Only the EXIT pseudo-signal
// is honored, matching the "no real process/signal model" Non-goal: other
// signal names are accepted and silently ignored rather than rejected.
func biTrap(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	rest := args[1:]
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] == "-p" {
		if r.exitTrap != nil {
			return fmt.Sprintf("trap -- %q EXIT\n", r.trapExitSrc), "", 0
		}
		return "", "", 0
	}
	if len(rest) < 2 {
		return "", "bash: trap: usage: trap [-lp] [[arg] signal_spec ...]\n", 2
	}
	action := rest[0]
	for _, sig := range rest[1:] {
		switch strings.ToUpper(sig) {
		case "EXIT", "0":
			if action == "-" {
				r.exitTrap = nil
				r.trapExitSrc = ""
				continue
			}
			stmt, err := parseTrapAction(action)
			if err != nil {
				return "", fmt.Sprintf("bash: trap: %v\n", err), 1
			}
			r.exitTrap = stmt
			r.trapExitSrc = action
		default:
			// job-control/real-signal traps have no effect here.
		}
	}
	return "", "", 0
}

// parseTrapAction parses a trap's action string into a statement runnable
// by [Runner.runExitTrap]; a multi-statement action is wrapped in a Block so
// it executes as a unit.
func parseTrapAction(src string) (*syntax.Stmt, error) {
	f, err := syntax.NewParser().ParseString(src+"\n", "trap")
	if err != nil {
		return nil, err
	}
	return &syntax.Stmt{Cmd: &syntax.Block{Stmts: f.Stmts}}, nil
}

// shoptNames is the set of toggleable options this interpreter recognizes;
// they feed extglob/globstar/nullglob/failglob/nocaseglob/nocasematch into
// [expand.Config] and [pattern.Mode]. expand_aliases is stored and reported
// by shopt, but aliases defined with `alias` are not expanded when a
// command runs.
var shoptNames = map[string]bool{
	"extglob":        true,
	"globstar":       true,
	"nullglob":       true,
	"failglob":       true,
	"nocaseglob":     true,
	"nocasematch":    true,
	"expand_aliases": true,
}

func biShopt(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	mode := ""
	quiet := false
	var names []string
	for _, a := range args[1:] {
		switch a {
		case "-s", "-u":
			mode = a
		case "-q":
			quiet = true
		case "-p":
		default:
			names = append(names, a)
		}
	}

	list := func(names []string) (string, string, int) {
		var out strings.Builder
		code := 0
		for _, n := range names {
			on := r.shopts[n]
			if quiet {
				if !on {
					code = 1
				}
				continue
			}
			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintf(&out, "%s\t%s\n", n, state)
		}
		return out.String(), "", code
	}

	if mode == "" {
		if len(names) == 0 {
			all := make([]string, 0, len(shoptNames))
			for n := range shoptNames {
				all = append(all, n)
			}
			sort.Strings(all)
			return list(all)
		}
		return list(names)
	}

	for _, n := range names {
		if !shoptNames[n] {
			return "", fmt.Sprintf("bash: shopt: %s: invalid shell option name\n", n), 1
		}
		r.shopts[n] = mode == "-s"
	}
	return "", "", 0
}

func biMapfile(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	name := "MAPFILE"
	for _, a := range args[1:] {
		if !strings.HasPrefix(a, "-") {
			name = a
		}
	}
	scanner := bufio.NewScanner(r.stdin)
	var list []string
	for scanner.Scan() {
		list = append(list, scanner.Text())
	}
	r.vars.Set(name, expand.Variable{Kind: expand.Indexed, List: list})
	return "", "", 0
}

func biPushd(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(args) < 2 {
		return "", "bash: pushd: no other directory\n", 1
	}
	r.dirStack = append(r.dirStack, r.cwd)
	return biCd(ctx, r, args, stdin)
}

func biPopd(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	if len(r.dirStack) == 0 {
		return "", "bash: popd: directory stack empty\n", 1
	}
	last := r.dirStack[len(r.dirStack)-1]
	r.dirStack = r.dirStack[:len(r.dirStack)-1]
	r.cwd = last
	return "", "", 0
}

func biDirs(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	parts := append([]string{r.cwd}, reverseStrs(r.dirStack)...)
	return strings.Join(parts, " ") + "\n", "", 0
}

func reverseStrs(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}

func biLocal(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	for _, a := range args[1:] {
		name, val, has := strings.Cut(a, "=")
		vb := expand.Variable{Kind: expand.String}
		if has {
			vb.Str = val
		}
		r.vars.Local(name, vb)
	}
	return "", "", 0
}

func biDeclare(ctx context.Context, r *Runner, args []string, stdin string) (string, string, int) {
	exported := false
	for _, a := range args[1:] {
		if a == "-x" {
			exported = true
			continue
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		name, val, has := strings.Cut(a, "=")
		vb := r.vars.Get(name)
		if has {
			vb = expand.Variable{Kind: expand.String, Str: val}
		}
		vb.Exported = vb.Exported || exported
		r.vars.Set(name, vb)
	}
	return "", "", 0
}

var unTestOpsByName = map[string]syntax.UnTestOperator{
	"-e": syntax.TsExists, "-f": syntax.TsRegFile, "-d": syntax.TsDirect,
	"-c": syntax.TsCharSp, "-b": syntax.TsBlckSp, "-p": syntax.TsNmPipe,
	"-S": syntax.TsSocket, "-L": syntax.TsSmbLink, "-h": syntax.TsSmbLink,
	"-k": syntax.TsSticky, "-g": syntax.TsGIDSet, "-u": syntax.TsUIDSet,
	"-G": syntax.TsGrpOwn, "-O": syntax.TsUsrOwn, "-N": syntax.TsModif,
	"-r": syntax.TsRead, "-w": syntax.TsWrite, "-x": syntax.TsExec,
	"-s": syntax.TsNoEmpty, "-t": syntax.TsFdTerm, "-z": syntax.TsEmpStr,
	"-n": syntax.TsNempStr, "-o": syntax.TsOptSet, "-v": syntax.TsVarSet,
	"-R": syntax.TsRefVar,
}

var binTestOpsByName = map[string]syntax.BinTestOperator{
	"-nt": syntax.TsNewer, "-ot": syntax.TsOlder, "-ef": syntax.TsDevIno,
	"-eq": syntax.TsEql, "-ne": syntax.TsNeq, "-le": syntax.TsLeq,
	"-ge": syntax.TsGeq, "-lt": syntax.TsLss, "-gt": syntax.TsGtr,
	"=": syntax.TsMatch, "==": syntax.TsMatch, "!=": syntax.TsNoMatch,
}
