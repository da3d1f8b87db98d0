package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub005/syntax"
)

// ArithmError is returned by [Arithm] when an expression cannot be
// evaluated: division by zero, an unparseable operand, or an assignment to
// a read-only variable.
type ArithmError struct {
	Message string
}

func (e *ArithmError) Error() string { return e.Message }

// Arithm evaluates x as a bash arithmetic expression and returns an int64,
// matching spec.md's "64-bit signed, wraps silently on overflow" decision.
// Variable reads and assignments go through cfg.Env.
func Arithm(cfg *Config, x syntax.ArithmExpr) (int64, error) {
	v, err := arithEval(cfg, x)
	return v, err
}

func arithEval(cfg *Config, x syntax.ArithmExpr) (result int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*ArithmError); ok {
				err = ae
				return
			}
			panic(r)
		}
	}()
	return evalArith(cfg, x), nil
}

func arithPanic(format string, args ...any) {
	panic(&ArithmError{Message: fmt.Sprintf(format, args...)})
}

func evalArith(cfg *Config, x syntax.ArithmExpr) int64 {
	switch e := x.(type) {
	case *syntax.Word:
		return evalOperand(cfg, e)
	case *syntax.ParenArithm:
		return evalArith(cfg, e.X)
	case *syntax.UnaryArithm:
		return evalUnary(cfg, e)
	case *syntax.BinaryArithm:
		return evalBinary(cfg, e)
	case *syntax.TernaryArithm:
		if evalArith(cfg, e.Cond) != 0 {
			return evalArith(cfg, e.Then)
		}
		return evalArith(cfg, e.Else)
	}
	arithPanic("unsupported arithmetic expression")
	return 0
}

// evalOperand evaluates a bare Word operand: either a variable name (which
// recurses -- `x=y; y=2; ((x))` evaluates to 2) or a numeric literal.
func evalOperand(cfg *Config, w *syntax.Word) int64 {
	lit, ok := w.Lit()
	if ok && isArithName(lit) {
		vb := cfg.Env.Get(lit)
		if !vb.IsSet() {
			return 0
		}
		return parseArithOperand(cfg, vb.Str)
	}
	s, err := Literal(cfg, w)
	if err != nil {
		panic(err)
	}
	return parseArithOperand(cfg, s)
}

func parseArithOperand(cfg *Config, s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if isArithName(s) {
		vb := cfg.Env.Get(s)
		if !vb.IsSet() {
			return 0
		}
		if vb.Str == s {
			return 0
		}
		return parseArithOperand(cfg, vb.Str)
	}
	n, err := parseIntLiteral(s)
	if err != nil {
		arithPanic("value too great for base (error token is %q)", s)
	}
	return n
}

func parseIntLiteral(s string) (int64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	if i := strings.IndexByte(s, '#'); i > 0 {
		base, err := strconv.Atoi(s[:i])
		if err == nil {
			return strconv.ParseInt(s[i+1:], base, 64)
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return strconv.ParseInt(s, 8, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

func isArithName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9')
		if !ok {
			return false
		}
	}
	return true
}

func evalUnary(cfg *Config, u *syntax.UnaryArithm) int64 {
	// ++ and -- operate on an lvalue: the operand must be a bare name.
	switch u.Op {
	case syntax.ArithIncr, syntax.ArithDecr:
		name := lvalueName(u.X)
		cur := evalArith(cfg, u.X)
		next := cur + 1
		if u.Op == syntax.ArithDecr {
			next = cur - 1
		}
		if name != "" {
			assignArith(cfg, name, next)
		}
		if u.Post {
			return cur
		}
		return next
	}
	v := evalArith(cfg, u.X)
	switch u.Op {
	case syntax.ArithMinus:
		return -v
	case syntax.ArithPlus:
		return v
	case syntax.ArithNot:
		if v == 0 {
			return 1
		}
		return 0
	case syntax.ArithTilde:
		return ^v
	}
	arithPanic("unsupported unary operator")
	return 0
}

func lvalueName(x syntax.ArithmExpr) string {
	w, ok := x.(*syntax.Word)
	if !ok {
		return ""
	}
	lit, ok := w.Lit()
	if !ok || !isArithName(lit) {
		return ""
	}
	return lit
}

func assignArith(cfg *Config, name string, v int64) {
	if err := cfg.Env.Set(name, Variable{Kind: String, Str: strconv.FormatInt(v, 10)}); err != nil {
		arithPanic("%v", err)
	}
}

func evalBinary(cfg *Config, b *syntax.BinaryArithm) int64 {
	if isArithAssign(b.Op) {
		name := lvalueName(b.X)
		if name == "" {
			arithPanic("expected an lvalue before assignment operator")
		}
		rhs := evalArith(cfg, b.Y)
		cur := evalArith(cfg, b.X)
		result := combineAssign(b.Op, cur, rhs)
		assignArith(cfg, name, result)
		return result
	}

	if isLogical(b.Op) {
		l := evalArith(cfg, b.X)
		if b.Op == syntax.ArithLand {
			if l == 0 {
				return 0
			}
			if evalArith(cfg, b.Y) != 0 {
				return 1
			}
			return 0
		}
		if l != 0 {
			return 1
		}
		if evalArith(cfg, b.Y) != 0 {
			return 1
		}
		return 0
	}

	if b.Op == syntax.ArithComma {
		evalArith(cfg, b.X)
		return evalArith(cfg, b.Y)
	}

	l := evalArith(cfg, b.X)
	r := evalArith(cfg, b.Y)
	return applyBinOp(b.Op, l, r)
}

func isArithAssign(op syntax.Token) bool {
	switch op {
	case syntax.ArithAssign, syntax.ArithAddAssign, syntax.ArithSubAssign, syntax.ArithMulAssign,
		syntax.ArithDivAssign, syntax.ArithModAssign, syntax.ArithAndAssign, syntax.ArithOrAssign,
		syntax.ArithXorAssign, syntax.ArithShlAssign, syntax.ArithShrAssign:
		return true
	}
	return false
}

func isLogical(op syntax.Token) bool {
	return op == syntax.ArithLand || op == syntax.ArithLor
}

func combineAssign(op syntax.Token, cur, rhs int64) int64 {
	switch op {
	case syntax.ArithAssign:
		return rhs
	case syntax.ArithAddAssign:
		return cur + rhs
	case syntax.ArithSubAssign:
		return cur - rhs
	case syntax.ArithMulAssign:
		return cur * rhs
	case syntax.ArithDivAssign:
		return divOp(cur, rhs)
	case syntax.ArithModAssign:
		return modOp(cur, rhs)
	case syntax.ArithAndAssign:
		return cur & rhs
	case syntax.ArithOrAssign:
		return cur | rhs
	case syntax.ArithXorAssign:
		return cur ^ rhs
	case syntax.ArithShlAssign:
		return cur << uint64(rhs)
	case syntax.ArithShrAssign:
		return cur >> uint64(rhs)
	}
	arithPanic("unsupported assignment operator")
	return 0
}

func divOp(l, r int64) int64 {
	if r == 0 {
		arithPanic("division by zero")
	}
	return l / r
}

func modOp(l, r int64) int64 {
	if r == 0 {
		arithPanic("division by zero")
	}
	return l % r
}

func applyBinOp(op syntax.Token, l, r int64) int64 {
	switch op {
	case syntax.ArithPlus:
		return l + r
	case syntax.ArithMinus:
		return l - r
	case syntax.ArithMul:
		return l * r
	case syntax.ArithDiv:
		return divOp(l, r)
	case syntax.ArithMod:
		return modOp(l, r)
	case syntax.ArithPow:
		return intPow(l, r)
	case syntax.ArithShl:
		return l << uint64(r)
	case syntax.ArithShr:
		return l >> uint64(r)
	case syntax.ArithLt:
		return boolInt(l < r)
	case syntax.ArithGt:
		return boolInt(l > r)
	case syntax.ArithLeq:
		return boolInt(l <= r)
	case syntax.ArithGeq:
		return boolInt(l >= r)
	case syntax.ArithEq:
		return boolInt(l == r)
	case syntax.ArithNeq:
		return boolInt(l != r)
	case syntax.ArithBitAnd:
		return l & r
	case syntax.ArithBitOr:
		return l | r
	case syntax.ArithBitXor:
		return l ^ r
	}
	arithPanic("unsupported binary operator")
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}
