package syntax

// Exported aliases for the arithmetic-grammar Token constants that other
// packages (expand, in particular) need to switch on. Kept separate from
// the unexported lexer token set in token.go so that package's internal
// naming can stay terse.
const (
	ArithIncr  = incr
	ArithDecr  = decr
	ArithMinus = minus
	ArithPlus  = plus
	ArithNot   = not
	ArithTilde = tilde

	ArithPow = pow
	ArithMul = star
	ArithDiv = slash
	ArithMod = percent

	ArithShl = shl
	ArithShr = shr

	ArithLt  = rdrIn
	ArithGt  = rdrOut
	ArithLeq = leq
	ArithGeq = geq
	ArithEq  = eql
	ArithNeq = neq

	ArithBitAnd = and
	ArithBitXor = caret
	ArithBitOr  = or

	ArithLand = landArith
	ArithLor  = lorArith

	ArithQuest = quest
	ArithColon = colon
	ArithComma = comma

	ArithAssign    = assgn
	ArithAddAssign = addAssgn
	ArithSubAssign = subAssgn
	ArithMulAssign = mulAssgn
	ArithDivAssign = quoAssgn
	ArithModAssign = remAssgn
	ArithAndAssign = andAssgn
	ArithOrAssign  = orAssgn
	ArithXorAssign = xorAssgn
	ArithShlAssign = shlAssgn
	ArithShrAssign = shrAssgn
)
