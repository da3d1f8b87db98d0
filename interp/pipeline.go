package interp

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// flattenPipe unrolls a left-leaning chain of Pipe/PipeAll [syntax.BinaryCmd]
// nodes into its stage statements plus, for each connector, whether it was
// `|&` (stderr merged into the next stage's stdin alongside stdout).
func flattenPipe(b *syntax.BinaryCmd) (stmts []*syntax.Stmt, mergeErr []bool) {
	if lb, ok := b.X.Cmd.(*syntax.BinaryCmd); ok && (lb.Op == syntax.Pipe || lb.Op == syntax.PipeAll) {
		stmts, mergeErr = flattenPipe(lb)
	} else {
		stmts = []*syntax.Stmt{b.X}
	}
	stmts = append(stmts, b.Y)
	mergeErr = append(mergeErr, b.Op == syntax.PipeAll)
	return stmts, mergeErr
}

// execPipeline runs every stage of a pipeline concurrently, each in its own
// forked (variable-isolated) Runner, streaming one stage's stdout into the
// next's stdin via an [io.Pipe]. $PIPESTATUS is populated with every
// stage's exit code; the pipeline's own exit code is the last stage's,
// unless `set -o pipefail` is active, in which case it is the rightmost
// non-zero code (or 0 if all stages succeeded).
func (r *Runner) execPipeline(ctx context.Context, b *syntax.BinaryCmd) int {
	stmts, mergeErr := flattenPipe(b)
	n := len(stmts)
	codes := make([]int, n)

	stages := make([]*Runner, n)
	for i := range stages {
		stages[i] = r.forkSubshell()
	}
	stages[0].stdin = r.stdin
	stages[n-1].stdout = r.stdout
	stages[n-1].stderr = r.stderr

	var pipeReaders []*io.PipeReader
	var pipeWriters []*io.PipeWriter
	for i := 0; i < n-1; i++ {
		pr, pw := io.Pipe()
		pipeReaders = append(pipeReaders, pr)
		pipeWriters = append(pipeWriters, pw)
		stages[i].stdout = pw
		if mergeErr[i] {
			stages[i].stderr = pw
		} else {
			stages[i].stderr = r.stderr
		}
		stages[i+1].stdin = pr
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			defer func() {
				if i < n-1 {
					pipeWriters[i].Close()
				}
				if i > 0 {
					pipeReaders[i-1].Close()
				}
			}()
			codes[i] = runPipelineStage(gctx, stages[i], stmts[i])
			return nil
		})
	}
	g.Wait()

	r.lastPipeStatus = append([]int{}, codes...)
	last := codes[n-1]
	if r.pipefail {
		last = 0
		for i := n - 1; i >= 0; i-- {
			if codes[i] != 0 {
				last = codes[i]
				break
			}
		}
	}
	return r.setExit(last)
}

func runPipelineStage(ctx context.Context, sub *Runner, stmt *syntax.Stmt) (code int) {
	defer func() {
		if rec := recover(); rec != nil {
			if es, ok := rec.(ExitStatus); ok {
				code = int(es)
				return
			}
			panic(rec)
		}
	}()
	return sub.execStmt(ctx, stmt)
}
