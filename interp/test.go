package interp

import (
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/expand"
	"github.com/vercel-labs/just-bash-sub005/pattern"
	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// evalTest walks a [[ ]] expression tree, resolving file tests against
// r.fs and populating BASH_REMATCH for a successful =~ match.
func (r *Runner) evalTest(x syntax.TestExpr) (bool, error) {
	cfg := r.expandConfig()
	switch t := x.(type) {
	case *syntax.ParenTest:
		return r.evalTest(t.X)
	case *syntax.BinaryTest:
		switch t.Op {
		case syntax.AndTest:
			l, err := r.evalTest(t.X)
			if err != nil || !l {
				return false, err
			}
			return r.evalTest(t.Y)
		case syntax.OrTest:
			l, err := r.evalTest(t.X)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return r.evalTest(t.Y)
		}
		lw, _ := t.X.(*syntax.Word)
		rw, _ := t.Y.(*syntax.Word)
		left, err := expand.Literal(cfg, lw)
		if err != nil {
			return false, err
		}
		return r.evalBinaryTest(cfg, t.Op, left, rw)
	case *syntax.UnaryTest:
		if t.Op == syntax.TsNot {
			v, err := r.evalTest(t.X)
			return !v, err
		}
		w, _ := t.X.(*syntax.Word)
		operand, err := expand.Literal(cfg, w)
		if err != nil {
			return false, err
		}
		return r.evalUnaryTest(t.Op, operand)
	case *syntax.Word:
		s, err := expand.Literal(cfg, t)
		if err != nil {
			return false, err
		}
		return s != "", nil
	}
	return false, fmt.Errorf("unsupported test expression")
}

func (r *Runner) evalUnaryTest(op syntax.UnTestOperator, operand string) (bool, error) {
	path := r.resolvePath(operand)
	switch op {
	case syntax.TsExists:
		return r.fs.Exists(path), nil
	case syntax.TsRegFile:
		fi, err := r.fs.Stat(path)
		return err == nil && !fi.IsDir, nil
	case syntax.TsDirect:
		fi, err := r.fs.Stat(path)
		return err == nil && fi.IsDir, nil
	case syntax.TsSmbLink:
		fi, err := r.fs.Lstat(path)
		return err == nil && fi.Mode&fs.ModeSymlink != 0, nil
	case syntax.TsRead, syntax.TsWrite, syntax.TsExec:
		fi, err := r.fs.Stat(path)
		if err != nil {
			return false, nil
		}
		return fi.Mode.Perm()&0111 != 0 || op != syntax.TsExec, nil
	case syntax.TsNoEmpty:
		fi, err := r.fs.Stat(path)
		return err == nil && fi.Size > 0, nil
	case syntax.TsEmpStr:
		return operand == "", nil
	case syntax.TsNempStr:
		return operand != "", nil
	case syntax.TsVarSet:
		return r.vars.Get(operand).IsSet(), nil
	case syntax.TsOptSet:
		return len(operand) == 1 && r.opts[operand[0]], nil
	case syntax.TsCharSp, syntax.TsBlckSp, syntax.TsNmPipe, syntax.TsSocket,
		syntax.TsSticky, syntax.TsGIDSet, syntax.TsUIDSet, syntax.TsGrpOwn,
		syntax.TsUsrOwn, syntax.TsModif, syntax.TsFdTerm, syntax.TsRefVar:
		_, err := r.fs.Stat(path)
		return err == nil, nil
	}
	return false, nil
}

func (r *Runner) evalBinaryTest(cfg *expand.Config, op syntax.BinTestOperator, left string, rightWord *syntax.Word) (bool, error) {
	switch op {
	case syntax.TsReMatch:
		pat, err := expand.Literal(cfg, rightWord)
		if err != nil {
			return false, err
		}
		if cfg.NoCaseMatch {
			pat = "(?i)" + pat
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			// not a valid regular expression: report "no match" rather
			// than a script-ending error.
			return false, nil
		}
		loc := re.FindStringSubmatchIndex(left)
		if loc == nil {
			return false, nil
		}
		groups := re.FindStringSubmatch(left)
		r.setVarChecked("BASH_REMATCH", expand.Variable{Kind: expand.Indexed, List: groups})
		return true, nil
	case syntax.TsMatch, syntax.TsNoMatch:
		pat, err := expand.Pattern(cfg, rightWord)
		if err != nil {
			return false, err
		}
		matched := r.globMatch(cfg, pat, left)
		if op == syntax.TsNoMatch {
			return !matched, nil
		}
		return matched, nil
	case syntax.TsBefore:
		right, err := expand.Literal(cfg, rightWord)
		return left < right, err
	case syntax.TsAfter:
		right, err := expand.Literal(cfg, rightWord)
		return left > right, err
	case syntax.TsNewer, syntax.TsOlder, syntax.TsDevIno:
		right, err := expand.Literal(cfg, rightWord)
		if err != nil {
			return false, err
		}
		lfi, lerr := r.fs.Stat(r.resolvePath(left))
		rfi, rerr := r.fs.Stat(r.resolvePath(right))
		if lerr != nil || rerr != nil {
			return false, nil
		}
		switch op {
		case syntax.TsNewer:
			return lfi.ModTime.After(rfi.ModTime), nil
		case syntax.TsOlder:
			return lfi.ModTime.Before(rfi.ModTime), nil
		default:
			return lfi.Name == rfi.Name && lfi.Size == rfi.Size, nil
		}
	default:
		right, err := expand.Literal(cfg, rightWord)
		if err != nil {
			return false, err
		}
		li, lerr := strconv.ParseInt(strings.TrimSpace(left), 0, 64)
		ri, rerr := strconv.ParseInt(strings.TrimSpace(right), 0, 64)
		if lerr != nil || rerr != nil {
			return false, fmt.Errorf("integer expression expected")
		}
		switch op {
		case syntax.TsEql:
			return li == ri, nil
		case syntax.TsNeq:
			return li != ri, nil
		case syntax.TsLeq:
			return li <= ri, nil
		case syntax.TsGeq:
			return li >= ri, nil
		case syntax.TsLss:
			return li < ri, nil
		case syntax.TsGtr:
			return li > ri, nil
		}
	}
	return false, nil
}

// globMatch reports whether pattern p (already shell-escaped by
// expand.Pattern for its literal runs) matches s in its entirety, as used
// by case arms and [[ == ]]. extglob and nocasematch follow the runner's
// current shopt state rather than being hardcoded.
func (r *Runner) globMatch(cfg *expand.Config, p, s string) bool {
	mode := pattern.EntireString
	if cfg.NoCaseMatch {
		mode |= pattern.IgnoreCase
	}
	re, err := pattern.Regexp(p, mode, cfg.ExtGlob)
	if err != nil {
		return p == s
	}
	return re.MatchString(s)
}
