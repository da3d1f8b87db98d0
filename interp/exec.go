package interp

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/expand"
	"github.com/vercel-labs/just-bash-sub005/limits"
	"github.com/vercel-labs/just-bash-sub005/registry"
	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// execStmt executes one statement, honoring negation, background
// (best-effort: background jobs run synchronously since there's no real
// process model, matching the "no real process/job control" Non-goal) and
// attaches any redirections for the statement's duration.
func (r *Runner) execStmt(ctx context.Context, s *syntax.Stmt) int {
	r.currentLine = int(s.Position)
	r.bumpCommandCount()

	if r.opts['v'] {
		r.logger.Trace(printStmt(s))
	}

	for _, a := range s.Assigns {
		r.execAssign(ctx, a)
	}

	if s.Cmd == nil {
		return r.setExit(0)
	}

	restore, err := r.applyRedirects(ctx, s.Redirs)
	defer restore()
	if err != nil {
		fmt.Fprintln(r.stderr, err)
		return r.setExit(1)
	}

	if s.Background {
		r.lastBgPid = r.nextBgJobID()
	}

	if s.Negated {
		// a negated command's own failure is never fatal under set -e, and
		// neither is the inverted result: bash exempts the whole `! cmd`
		// statement from errexit, not just the pre-negation run.
		prevCond := r.inCondition
		r.inCondition = true
		code := r.execCommand(ctx, s.Cmd)
		if code == 0 {
			code = 1
		} else {
			code = 0
		}
		final := r.setExit(code)
		r.inCondition = prevCond
		return final
	}
	return r.execCommand(ctx, s.Cmd)
}

// printStmt renders s back to source for `set -v` diagnostics, trimmed of
// the printer's trailing blank line.
func printStmt(s *syntax.Stmt) string {
	var buf bytes.Buffer
	syntax.NewPrinter().Print(&buf, &syntax.File{Stmts: []*syntax.Stmt{s}})
	return strings.TrimRight(buf.String(), "\n")
}

func (r *Runner) execAssign(ctx context.Context, a *syntax.Assign) {
	name := a.Name.Value
	cfg := r.expandConfig()

	if a.Array != nil {
		vb := expand.Variable{Kind: expand.Indexed}
		for _, el := range a.Array.Elems {
			val, err := expand.Literal(cfg, el.Value)
			if err != nil {
				continue
			}
			if el.Index != nil {
				idx, ierr := expand.Arithm(cfg, el.Index)
				if ierr == nil {
					for int(idx) >= len(vb.List) {
						vb.List = append(vb.List, "")
					}
					vb.List[idx] = val
					continue
				}
			}
			vb.List = append(vb.List, val)
		}
		r.setVarChecked(name, vb)
		return
	}

	val := ""
	if a.Value != nil {
		v, err := expand.Literal(cfg, a.Value)
		if err == nil {
			val = v
		}
	}

	if a.Index != nil {
		idx, err := expand.Arithm(cfg, a.Index)
		if err == nil {
			cur := r.vars.Get(name)
			if cur.Kind != expand.Indexed {
				cur = expand.Variable{Kind: expand.Indexed}
			}
			for int(idx) >= len(cur.List) {
				cur.List = append(cur.List, "")
			}
			if a.Append {
				cur.List[idx] += val
			} else {
				cur.List[idx] = val
			}
			r.setVarChecked(name, cur)
			return
		}
	}

	if a.Append {
		cur := r.vars.Get(name)
		switch cur.Kind {
		case expand.Indexed:
			cur.List = append(cur.List, val)
			r.setVarChecked(name, cur)
			return
		default:
			val = cur.Str + val
		}
	}
	r.setVarChecked(name, expand.Variable{Kind: expand.String, Str: val})
}

func (r *Runner) setVarChecked(name string, vb expand.Variable) {
	if err := r.vars.Set(name, vb); err != nil {
		fmt.Fprintln(r.stderr, "bash: "+err.Error())
		panic(ExitStatus(1))
	}
}

func (r *Runner) execCommand(ctx context.Context, c syntax.Command) int {
	switch x := c.(type) {
	case *syntax.CallExpr:
		return r.execCall(ctx, x)
	case *syntax.BinaryCmd:
		return r.execBinaryCmd(ctx, x)
	case *syntax.Subshell:
		return r.execSubshell(ctx, x)
	case *syntax.Block:
		return r.setExit(r.runStmts(ctx, x.Stmts))
	case *syntax.IfClause:
		return r.execIf(ctx, x)
	case *syntax.WhileClause:
		return r.execWhile(ctx, x)
	case *syntax.ForClause:
		return r.execFor(ctx, x)
	case *syntax.CaseClause:
		return r.execCase(ctx, x)
	case *syntax.FuncDecl:
		r.functions[x.Name.Value] = x.Body
		return r.setExit(0)
	case *syntax.ArithmCmd:
		v, err := expand.Arithm(r.expandConfig(), x.X)
		if err != nil {
			fmt.Fprintln(r.stderr, "bash:", err)
			return r.setExit(1)
		}
		if v == 0 {
			return r.setExit(1)
		}
		return r.setExit(0)
	case *syntax.TestClause:
		ok, err := r.evalTest(x.X)
		if err != nil {
			fmt.Fprintln(r.stderr, "bash:", err)
			return r.setExit(2)
		}
		if ok {
			return r.setExit(0)
		}
		return r.setExit(1)
	case *syntax.DeclClause:
		return r.execDecl(ctx, x)
	case *syntax.LetClause:
		var last int64
		for _, e := range x.Exprs {
			v, err := expand.Arithm(r.expandConfig(), e)
			if err != nil {
				fmt.Fprintln(r.stderr, "bash: let:", err)
				return r.setExit(1)
			}
			last = v
		}
		if last == 0 {
			return r.setExit(1)
		}
		return r.setExit(0)
	}
	return r.setExit(0)
}

func (r *Runner) execCall(ctx context.Context, c *syntax.CallExpr) int {
	cfg := r.expandConfig()
	args, err := expand.Fields(cfg, c.Args)
	if err != nil {
		fmt.Fprintln(r.stderr, "bash:", err)
		return r.setExit(1)
	}
	if len(args) == 0 {
		return r.setExit(0)
	}
	if r.opts['x'] {
		r.logger.Trace(strings.Join(args, " "))
	}
	stdin := r.drainStdin()
	stdout, stderr, code := r.execHandler(ctx, args, stdin)
	if stdout != "" {
		fmt.Fprint(r.stdout, stdout)
	}
	if stderr != "" {
		fmt.Fprint(r.stderr, stderr)
	}
	r.lastArg = args[len(args)-1]
	return r.setExit(code)
}

func (r *Runner) execBinaryCmd(ctx context.Context, b *syntax.BinaryCmd) int {
	switch b.Op {
	case syntax.AndStmt:
		code := r.execCondStmt(ctx, b.X)
		if code != 0 {
			return code
		}
		return r.execStmt(ctx, b.Y)
	case syntax.OrStmt:
		code := r.execCondStmt(ctx, b.X)
		if code == 0 {
			return code
		}
		return r.execStmt(ctx, b.Y)
	case syntax.Pipe, syntax.PipeAll:
		return r.execPipeline(ctx, b)
	}
	return r.setExit(0)
}

// execCondStmt runs s with errexit suppressed, for the left side of && and
// ||: its own failure decides whether the right side runs at all, so it
// must never trip set -e on its own.
func (r *Runner) execCondStmt(ctx context.Context, s *syntax.Stmt) int {
	prev := r.inCondition
	r.inCondition = true
	code := r.execStmt(ctx, s)
	r.inCondition = prev
	return code
}

func (r *Runner) execSubshell(ctx context.Context, s *syntax.Subshell) int {
	sub := r.forkSubshell()
	code := sub.runStmts(ctx, s.Stmts)
	r.lastExit = sub.lastExit
	return code
}

func (r *Runner) execIf(ctx context.Context, c *syntax.IfClause) int {
	prevCond := r.inCondition
	r.inCondition = true
	condCode := r.runStmts(ctx, c.CondStmts)
	r.inCondition = prevCond
	if condCode == 0 {
		return r.setExit(r.runStmts(ctx, c.ThenStmts))
	}
	for _, e := range c.Elifs {
		r.inCondition = true
		ec := r.runStmts(ctx, e.CondStmts)
		r.inCondition = prevCond
		if ec == 0 {
			return r.setExit(r.runStmts(ctx, e.ThenStmts))
		}
	}
	if len(c.ElseStmts) > 0 {
		return r.setExit(r.runStmts(ctx, c.ElseStmts))
	}
	return r.setExit(0)
}

func (r *Runner) execWhile(ctx context.Context, w *syntax.WhileClause) (code int) {
	r.loopDepth++
	defer func() { r.loopDepth-- }()
	code = 0
	iterations := 0
	for {
		prevCond := r.inCondition
		r.inCondition = true
		condCode := r.runStmts(ctx, w.CondStmts)
		r.inCondition = prevCond
		cont := condCode == 0
		if w.IsUntil {
			cont = condCode != 0
		}
		if !cont {
			break
		}
		iterations++
		if r.limits.MaxLoopIterations > 0 && iterations > r.limits.MaxLoopIterations {
			panic(&limits.ExecutionLimitError{Kind: limits.Iterations, Limit: r.limits.MaxLoopIterations})
		}
		brk := r.runLoopBody(ctx, w.DoStmts, &code)
		if brk {
			break
		}
	}
	return r.setExit(code)
}

// runLoopBody executes one iteration's body, intercepting break/continue
// signals. It returns true if the caller's loop should stop iterating.
func (r *Runner) runLoopBody(ctx context.Context, stmts []*syntax.Stmt, code *int) (stop bool) {
	defer func() {
		if rec := recover(); rec != nil {
			sig, ok := rec.(*LoopControlSignal)
			if !ok {
				panic(rec)
			}
			if sig.Level > 1 {
				sig.Level--
				panic(sig)
			}
			if sig.Kind == LoopBreak {
				stop = true
			}
		}
	}()
	*code = r.runStmts(ctx, stmts)
	return false
}

func (r *Runner) execFor(ctx context.Context, f *syntax.ForClause) int {
	r.loopDepth++
	defer func() { r.loopDepth-- }()
	code := 0
	iterations := 0
	checkIter := func() {
		iterations++
		if r.limits.MaxLoopIterations > 0 && iterations > r.limits.MaxLoopIterations {
			panic(&limits.ExecutionLimitError{Kind: limits.Iterations, Limit: r.limits.MaxLoopIterations})
		}
	}
	switch loop := f.Loop.(type) {
	case *syntax.WordIter:
		var items []string
		if loop.List == nil {
			items = append([]string{}, r.positional...)
		} else {
			vals, err := expand.Fields(r.expandConfig(), loop.List)
			if err != nil {
				fmt.Fprintln(r.stderr, "bash:", err)
				return r.setExit(1)
			}
			items = vals
		}
		for _, item := range items {
			checkIter()
			r.setVarChecked(loop.Name.Value, expand.Variable{Kind: expand.String, Str: item})
			if r.runLoopBody(ctx, f.DoStmts, &code) {
				break
			}
		}
	case *syntax.CStyleLoop:
		cfg := r.expandConfig()
		if loop.Init != nil {
			expand.Arithm(cfg, loop.Init)
		}
		for {
			if loop.Cond != nil {
				v, err := expand.Arithm(cfg, loop.Cond)
				if err != nil || v == 0 {
					break
				}
			}
			checkIter()
			if r.runLoopBody(ctx, f.DoStmts, &code) {
				break
			}
			if loop.Post != nil {
				expand.Arithm(cfg, loop.Post)
			}
		}
	}
	return r.setExit(code)
}

func (r *Runner) execCase(ctx context.Context, c *syntax.CaseClause) int {
	cfg := r.expandConfig()
	subject, err := expand.Literal(cfg, c.Word)
	if err != nil {
		fmt.Fprintln(r.stderr, "bash:", err)
		return r.setExit(1)
	}
	for i, item := range c.Items {
		matched := false
		for _, pat := range item.Patterns {
			patStr, err := expand.Pattern(cfg, pat)
			if err != nil {
				continue
			}
			if r.globMatch(cfg, patStr, subject) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		code := r.runStmts(ctx, item.Stmts)
		switch item.Op {
		case syntax.CaseBreak:
			return r.setExit(code)
		case syntax.CaseFallthru:
			if i+1 < len(c.Items) {
				return r.setExit(r.runStmts(ctx, c.Items[i+1].Stmts))
			}
			return r.setExit(code)
		case syntax.CaseContinue:
			continue
		}
	}
	return r.setExit(0)
}

func (r *Runner) execDecl(ctx context.Context, d *syntax.DeclClause) int {
	local := d.Variant == "local"
	exported := d.Variant == "export"
	readonly := d.Variant == "readonly"
	var arrayKind expand.ValueKind
	for _, o := range d.Opts {
		lit, _ := o.Lit()
		switch lit {
		case "-x":
			exported = true
		case "-r":
			readonly = true
		case "-a":
			arrayKind = expand.Indexed
		case "-A":
			arrayKind = expand.Associative
		}
	}
	cfg := r.expandConfig()
	for _, a := range d.Assigns {
		name := a.Name.Value
		vb := r.vars.Get(name)
		switch {
		case a.Naked:
			if arrayKind != expand.Unset && vb.Kind == expand.Unset {
				vb = expand.Variable{Kind: arrayKind}
			}
		case a.Array != nil:
			vb = expand.Variable{Kind: expand.Indexed}
			for _, el := range a.Array.Elems {
				val, _ := expand.Literal(cfg, el.Value)
				vb.List = append(vb.List, val)
			}
		default:
			val := ""
			if a.Value != nil {
				val, _ = expand.Literal(cfg, a.Value)
			}
			vb = expand.Variable{Kind: expand.String, Str: val}
		}
		vb.Exported = vb.Exported || exported
		vb.ReadOnly = vb.ReadOnly || readonly
		if local {
			r.vars.Local(name, vb)
		} else if exported && a.Naked && vb.Kind == expand.Unset {
			cur := r.vars.Get(name)
			cur.Exported = true
			r.setVarChecked(name, cur)
		} else {
			r.setVarChecked(name, vb)
		}
	}
	return r.setExit(0)
}

func (r *Runner) callFunction(ctx context.Context, body *syntax.Stmt, args []string, stdin string) (string, string, int) {
	if r.limits.MaxCallDepth > 0 && r.callDepth >= r.limits.MaxCallDepth {
		panic(&limits.ExecutionLimitError{Kind: limits.Depth, Limit: r.limits.MaxCallDepth})
	}
	r.callDepth++
	r.vars.PushLocalFrame()
	savedPositional := r.positional
	r.positional = args[1:]
	defer func() {
		r.positional = savedPositional
		r.vars.PopLocalFrame()
		r.callDepth--
	}()

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
		code = r.execStmt(ctx, body)
	}()
	return "", "", code
}

func (r *Runner) runRegistered(ctx context.Context, cmd registry.Command, args []string, stdin string) (string, string, int) {
	env := map[string]string{}
	r.vars.Each(func(name string, vb expand.Variable) bool {
		if vb.Exported && vb.Kind == expand.String {
			env[name] = vb.Str
		}
		return true
	})
	res, err := cmd.Execute(registry.Context{Ctx: ctx, Args: args, Dir: r.cwd, Stdin: stdin, Env: env})
	if err != nil {
		return "", err.Error() + "\n", 1
	}
	return res.Stdout, res.Stderr, res.ExitCode
}
