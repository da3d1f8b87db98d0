package interp

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/expand"
	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// applyRedirects opens every redirection target against r.fs and swaps the
// runner's stdout/stderr/stdin for the statement's duration, returning a
// restore func the caller must always invoke (even on error, so a partial
// list of redirects doesn't leak a swapped stream).
func (r *Runner) applyRedirects(ctx context.Context, redirs []*syntax.Redirect) (func(), error) {
	if len(redirs) == 0 {
		return func() {}, nil
	}
	savedOut, savedErr, savedIn := r.stdout, r.stderr, r.stdin
	restore := func() {
		r.stdout, r.stderr, r.stdin = savedOut, savedErr, savedIn
	}
	cfg := r.expandConfig()
	for _, rd := range redirs {
		fd := defaultFd(rd.Op)
		if rd.N != nil {
			if n, err := strconv.Atoi(rd.N.Value); err == nil {
				fd = n
			}
		}
		if err := r.applyOneRedirect(cfg, fd, rd); err != nil {
			return restore, err
		}
	}
	return restore, nil
}

func defaultFd(op syntax.RedirOperator) int {
	switch op {
	case syntax.RdrIn, syntax.RdrInOut, syntax.Hdoc, syntax.DashHdoc, syntax.WordHdoc, syntax.DplIn:
		return 0
	}
	return 1
}

func (r *Runner) applyOneRedirect(cfg *expand.Config, fd int, rd *syntax.Redirect) error {
	switch rd.Op {
	case syntax.RdrOut, syntax.Clobber:
		path, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		w := &fileWriter{r: r, path: r.resolvePath(path)}
		r.setStream(fd, w, nil)
		return nil
	case syntax.AppOut:
		path, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		w := &fileWriter{r: r, path: r.resolvePath(path), appendMode: true}
		r.setStream(fd, w, nil)
		return nil
	case syntax.RdrAll:
		path, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		w := &fileWriter{r: r, path: r.resolvePath(path)}
		r.stdout, r.stderr = w, w
		return nil
	case syntax.AppAll:
		path, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		w := &fileWriter{r: r, path: r.resolvePath(path), appendMode: true}
		r.stdout, r.stderr = w, w
		return nil
	case syntax.RdrIn:
		path, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		data, rerr := r.fs.ReadFile(r.resolvePath(path))
		if rerr != nil {
			return &IOError{Context: path, Err: rerr}
		}
		r.stdin = strings.NewReader(data)
		return nil
	case syntax.RdrInOut:
		path, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		data, _ := r.fs.ReadFile(r.resolvePath(path))
		r.stdin = strings.NewReader(data)
		return nil
	case syntax.Hdoc, syntax.DashHdoc:
		body, err := expand.Literal(cfg, rd.Hdoc)
		if err != nil {
			return err
		}
		r.stdin = strings.NewReader(body)
		return nil
	case syntax.WordHdoc:
		body, err := expand.Literal(cfg, rd.Word)
		if err != nil {
			return err
		}
		r.stdin = strings.NewReader(body + "\n")
		return nil
	case syntax.DplOut:
		target, _ := rd.Word.Lit()
		if target == "-" {
			r.setStream(fd, io.Discard, nil)
			return nil
		}
		if target == "1" {
			r.setStream(fd, r.stdout, nil)
			return nil
		}
		if target == "2" {
			r.setStream(fd, r.stderr, nil)
			return nil
		}
		return fmt.Errorf("bash: %d>&%s: invalid file descriptor duplication", fd, target)
	case syntax.DplIn:
		target, _ := rd.Word.Lit()
		if target == "-" {
			r.stdin = strings.NewReader("")
			return nil
		}
		return nil
	}
	return nil
}

func (r *Runner) setStream(fd int, w io.Writer, _ io.Reader) {
	switch fd {
	case 1:
		r.stdout = w
	case 2:
		r.stderr = w
	default:
		r.stdout = w
	}
}

// fileWriter does no buffering: since the interpreter has no explicit
// fd-close event, it writes through to r.fs on every Write call,
// truncating only the first time for '>' semantics.
type fileWriter struct {
	r          *Runner
	path       string
	appendMode bool
	opened     bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	var err error
	if w.appendMode || w.opened {
		err = w.r.fs.AppendFile(w.path, p)
	} else {
		err = w.r.fs.WriteFile(w.path, p)
	}
	w.opened = true
	if err != nil {
		return 0, &IOError{Context: w.path, Err: err}
	}
	return len(p), nil
}
