package compiler

import (
	"strconv"

	"github.com/mna/loxvm/lang/token"
	"github.com/mna/loxvm/lang/value"
)

// precedence orders Lox's binary operators from loosest to tightest binding,
// used by parsePrecedence to decide how far an expression parse should
// continue consuming infix operators (spec §4.3).
type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules = map[token.Kind]parseRule{}

// rule returns the parse rule for k, or the zero rule (no prefix, no infix,
// precNone) for tokens that never start or continue an expression.
func rule(k token.Kind) parseRule { return rules[k] }

func init() {
	set := func(k token.Kind, prefix, infix parseFn, prec precedence) {
		rules[k] = parseRule{prefix: prefix, infix: infix, prec: prec}
	}

	set(token.LPAREN, (*Compiler).grouping, (*Compiler).call, precCall)
	set(token.DOT, nil, (*Compiler).dot, precCall)
	set(token.MINUS, (*Compiler).unary, (*Compiler).binary, precTerm)
	set(token.PLUS, nil, (*Compiler).binary, precTerm)
	set(token.SLASH, nil, (*Compiler).binary, precFactor)
	set(token.STAR, nil, (*Compiler).binary, precFactor)
	set(token.BANG, (*Compiler).unary, nil, precNone)
	set(token.BANG_EQUAL, nil, (*Compiler).binary, precEquality)
	set(token.EQUAL_EQUAL, nil, (*Compiler).binary, precEquality)
	set(token.GREATER, nil, (*Compiler).binary, precComparison)
	set(token.GREATER_EQUAL, nil, (*Compiler).binary, precComparison)
	set(token.LESS, nil, (*Compiler).binary, precComparison)
	set(token.LESS_EQUAL, nil, (*Compiler).binary, precComparison)
	set(token.IDENT, (*Compiler).variable, nil, precNone)
	set(token.STRING, (*Compiler).stringLit, nil, precNone)
	set(token.NUMBER, (*Compiler).number, nil, precNone)
	set(token.AND, nil, (*Compiler).and_, precAnd)
	set(token.OR, nil, (*Compiler).or_, precOr)
	set(token.FALSE, (*Compiler).literal, nil, precNone)
	set(token.TRUE, (*Compiler).literal, nil, precNone)
	set(token.NIL, (*Compiler).literal, nil, precNone)
	set(token.THIS, (*Compiler).this_, nil, precNone)
	set(token.SUPER, (*Compiler).super_, nil, precNone)
}

// parsePrecedence parses the expression starting at the current token whose
// binding power is at least prec, via Pratt's prefix/infix-rule climbing
// algorithm (spec §4.3).
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := rule(c.prev.Kind).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= rule(c.cur.Kind).prec {
		c.advance()
		infixRule := rule(c.prev.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) number(_ bool) {
	n, err := strconv.ParseFloat(c.prev.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) stringLit(_ bool) {
	// Lexeme includes the surrounding quotes; strip them.
	raw := c.prev.Lexeme
	s := raw[1 : len(raw)-1]
	c.emitConstant(c.interner.Intern(s))
}

func (c *Compiler) literal(_ bool) {
	switch c.prev.Kind {
	case token.FALSE:
		c.emitOp(value.OpFalse)
	case token.TRUE:
		c.emitOp(value.OpTrue)
	case token.NIL:
		c.emitOp(value.OpNil)
	}
}

func (c *Compiler) unary(_ bool) {
	op := c.prev.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case token.BANG:
		c.emitOp(value.OpNot)
	case token.MINUS:
		c.emitOp(value.OpNegate)
	}
}

func (c *Compiler) binary(_ bool) {
	op := c.prev.Kind
	r := rule(op)
	c.parsePrecedence(r.prec + 1)

	switch op {
	case token.BANG_EQUAL:
		c.emitOp(value.OpEqual)
		c.emitOp(value.OpNot)
	case token.EQUAL_EQUAL:
		c.emitOp(value.OpEqual)
	case token.GREATER:
		c.emitOp(value.OpGreater)
	case token.GREATER_EQUAL:
		c.emitOp(value.OpLess)
		c.emitOp(value.OpNot)
	case token.LESS:
		c.emitOp(value.OpLess)
	case token.LESS_EQUAL:
		c.emitOp(value.OpGreater)
		c.emitOp(value.OpNot)
	case token.PLUS:
		c.emitOp(value.OpAdd)
	case token.MINUS:
		c.emitOp(value.OpSubtract)
	case token.STAR:
		c.emitOp(value.OpMultiply)
	case token.SLASH:
		c.emitOp(value.OpDivide)
	}
}

func (c *Compiler) call(_ bool) {
	argCount := c.argumentList()
	c.emitOpByte(value.OpCall, argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.prev)

	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emitOpByte(value.OpSetProperty, name)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emitOpByte(value.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(value.OpGetProperty, name)
	}
}

func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(_ bool) {
	elseJump := c.emitJump(value.OpJumpIfFalse)
	endJump := c.emitJump(value.OpJump)

	c.patchJump(elseJump)
	c.emitOp(value.OpPop)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev, canAssign)
}

func (c *Compiler) namedVariable(tok token.Token, canAssign bool) {
	var getOp, setOp value.OpCode
	arg := c.resolveLocal(c.fc, tok.Lexeme)
	if arg != -1 {
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	} else if up := c.resolveUpvalue(c.fc, tok.Lexeme); up != -1 {
		arg = up
		getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(tok))
		getOp, setOp = value.OpGetGlobal, value.OpSetGlobal
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) this_(_ bool) {
	if c.cc == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func (c *Compiler) super_(_ bool) {
	if c.cc == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.cc.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(c.prev)

	c.namedVariableByName("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariableByName("super", false)
		c.emitOpByte(value.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariableByName("super", false)
		c.emitOpByte(value.OpGetSuper, name)
	}
}
