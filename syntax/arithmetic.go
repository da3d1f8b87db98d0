package syntax

// arithmetic.go implements the operator-precedence parser for the
// arithmetic sub-language used by $((...)), ((...)), the C-style for loop
// header, array indices, and let. Precedence follows the C grammar bash
// itself borrows from, highest first: postfix ++/--, unary, **, * / %,
// binary + -, <</>>, relational, ==/!=, &, ^, |, &&, ||, ?:, assignment,
// comma.

var binPrec = map[Token]int{
	comma:     1,
	assgn:     2,
	addAssgn:  2, subAssgn: 2, mulAssgn: 2, quoAssgn: 2, remAssgn: 2,
	andAssgn:  2, orAssgn: 2, xorAssgn: 2, shlAssgn: 2, shrAssgn: 2,
	quest:     3,
	lorArith:  4,
	landArith: 5,
	or:        6,
	caret:     7,
	and:       8,
	eql:       9, neq: 9,
	rdrIn: 10, rdrOut: 10, leq: 10, geq: 10,
	shl: 11, shr: 11,
	plus: 12, minus: 12,
	star: 13, slash: 13, percent: 13,
	pow: 15,
}

var rightAssoc = map[Token]bool{
	assgn: true, addAssgn: true, subAssgn: true, mulAssgn: true, quoAssgn: true,
	remAssgn: true, andAssgn: true, orAssgn: true, xorAssgn: true, shlAssgn: true,
	shrAssgn: true, pow: true,
}

// arithmExprOrNil parses an arithmetic expression, or returns nil
// immediately if the next non-blank byte is the given terminator (used for
// the empty init/cond/post clauses of a C-style for loop).
func (p *Parser) arithmExprOrNil(term byte) ArithmExpr {
	p.skipBlank()
	if p.cur() == term {
		return nil
	}
	return p.arithmExpr(0, []byte{term})
}

// arithmExpr parses an arithmetic expression at minimum precedence minPrec,
// stopping at any byte in stopBytes (checked at the top level only, for
// array-index ']' and for-loop ';'/')' delimiters).
func (p *Parser) arithmExpr(minPrec int, stopBytes []byte) ArithmExpr {
	left := p.arithmUnary(stopBytes)
	for {
		p.skipBlank()
		if p.stopsArithm(stopBytes) {
			return left
		}
		op, opPos, width, ok := p.peekArithmOp()
		if !ok {
			return left
		}
		prec, known := binPrec[op]
		if !known || prec < minPrec {
			return left
		}
		p.pos += width

		if op == quest {
			then := p.arithmExpr(0, append(append([]byte{}, stopBytes...), ':'))
			p.skipBlank()
			if p.cur() != ':' {
				p.errorf("expected : in ternary arithmetic expression")
			}
			p.pos++
			els := p.arithmExpr(2, stopBytes)
			left = &TernaryArithm{Cond: left, Then: then, Else: els}
			continue
		}

		nextMin := prec + 1
		if rightAssoc[op] {
			nextMin = prec
		}
		right := p.arithmExpr(nextMin, stopBytes)
		left = &BinaryArithm{OpPos: opPos, Op: op, X: left, Y: right}
	}
}

func (p *Parser) stopsArithm(stopBytes []byte) bool {
	if p.atEnd() {
		return true
	}
	for _, b := range stopBytes {
		if p.cur() == b {
			return true
		}
	}
	return false
}

// peekArithmOp recognizes the operator at the current position without
// consuming it, longest match first.
func (p *Parser) peekArithmOp() (Token, Pos, int, bool) {
	at := p.pos_()
	three := map[string]Token{"<<=": shlAssgn, ">>=": shrAssgn}
	for s, t := range three {
		if p.hasPrefix(s) {
			return t, at, 3, true
		}
	}
	two := map[string]Token{
		"&&": landArith, "||": lorArith, "==": eql, "!=": neq, "<=": leq, ">=": geq,
		"<<": shl, ">>": shr, "**": pow,
		"+=": addAssgn, "-=": subAssgn, "*=": mulAssgn, "/=": quoAssgn, "%=": remAssgn,
		"&=": andAssgn, "|=": orAssgn, "^=": xorAssgn,
	}
	// try longer matches before single-char ones with shared prefixes
	for s, t := range two {
		if p.hasPrefix(s) {
			return t, at, 2, true
		}
	}
	one := map[byte]Token{
		'+': plus, '-': minus, '*': star, '/': slash, '%': percent,
		'<': rdrIn, '>': rdrOut, '&': and, '|': or, '^': caret,
		'=': assgn, '?': quest, ',': comma,
	}
	if t, ok := one[p.cur()]; ok {
		return t, at, 1, true
	}
	return 0, 0, 0, false
}

// arithmUnary parses unary prefix operators, primary expressions, and
// postfix ++/--.
func (p *Parser) arithmUnary(stopBytes []byte) ArithmExpr {
	p.skipBlank()
	opPos := p.pos_()
	switch {
	case p.hasPrefix("++"):
		p.pos += 2
		x := p.arithmUnary(stopBytes)
		return &UnaryArithm{OpPos: opPos, Op: incr, X: x}
	case p.hasPrefix("--"):
		p.pos += 2
		x := p.arithmUnary(stopBytes)
		return &UnaryArithm{OpPos: opPos, Op: decr, X: x}
	case p.cur() == '!':
		p.pos++
		x := p.arithmUnary(stopBytes)
		return &UnaryArithm{OpPos: opPos, Op: not, X: x}
	case p.cur() == '~':
		p.pos++
		x := p.arithmUnary(stopBytes)
		return &UnaryArithm{OpPos: opPos, Op: tilde, X: x}
	case p.cur() == '-':
		p.pos++
		x := p.arithmUnary(stopBytes)
		return &UnaryArithm{OpPos: opPos, Op: minus, X: x}
	case p.cur() == '+':
		p.pos++
		x := p.arithmUnary(stopBytes)
		return &UnaryArithm{OpPos: opPos, Op: plus, X: x}
	}
	return p.arithmPostfix(stopBytes)
}

func (p *Parser) arithmPostfix(stopBytes []byte) ArithmExpr {
	x := p.arithmPrimary(stopBytes)
	p.skipBlank()
	if p.hasPrefix("++") {
		opPos := p.pos_()
		p.pos += 2
		return &UnaryArithm{OpPos: opPos, Op: incr, Post: true, X: x}
	}
	if p.hasPrefix("--") {
		opPos := p.pos_()
		p.pos += 2
		return &UnaryArithm{OpPos: opPos, Op: decr, Post: true, X: x}
	}
	return x
}

func (p *Parser) arithmPrimary(stopBytes []byte) ArithmExpr {
	p.skipBlank()
	if p.cur() == '(' {
		lp := p.pos_()
		p.advance()
		inner := p.arithmExpr(0, []byte{')'})
		if p.cur() != ')' {
			p.errorf("expected ) to close arithmetic parenthesis")
		}
		rp := p.pos_()
		p.advance()
		return &ParenArithm{Lparen: lp, Rparen: rp, X: inner}
	}
	// everything else -- numbers, variables, $-expansions, quoted strings --
	// is represented uniformly as a Word, evaluated by the expander.
	w := p.arithmWord(stopBytes)
	return w
}

// arithmWord scans a single arithmetic operand as a [Word], stopping at
// whitespace, any stopBytes, or a recognized operator.
func (p *Parser) arithmWord(stopBytes []byte) *Word {
	start := p.pos
	w := &Word{}
	for {
		p.skipBlank()
		if p.atEnd() || p.stopsArithm(stopBytes) || p.cur() == '(' || p.cur() == ')' {
			break
		}
		if _, _, _, ok := p.peekArithmOp(); ok && p.pos != start {
			break
		}
		switch p.cur() {
		case '\'', '"', '`', '$':
			part := p.wordPart()
			if part == nil {
				return w
			}
			w.Parts = append(w.Parts, part)
			continue
		}
		lstart := p.pos_()
		i := p.pos
		for i < len(p.src) && isNameCont(p.src[i]) {
			i++
		}
		if i == p.pos {
			p.errorf("unexpected token %q in arithmetic expression", string(p.cur()))
		}
		w.Parts = append(w.Parts, &Lit{ValuePos: lstart, Value: p.src[p.pos:i]})
		p.pos = i
	}
	if len(w.Parts) == 0 {
		p.errorf("expected an arithmetic operand")
	}
	return w
}
