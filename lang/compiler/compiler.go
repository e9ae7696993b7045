// Package compiler implements the single-pass Pratt-parsing compiler that
// turns Lox source directly into bytecode: no intermediate AST is built
// (spec §4.3, §9). A stack of per-function compiler records tracks lexical
// scopes, locals, captured upvalues and a class-nesting stack as parsing
// proceeds.
package compiler

import (
	"fmt"

	"github.com/mna/loxvm/lang/scanner"
	"github.com/mna/loxvm/lang/token"
	"github.com/mna/loxvm/lang/value"
	"golang.org/x/exp/slices"
)

const (
	maxLocals   = 256 // local slot indices are single bytes (spec §3)
	maxUpvalues = 256
	maxArgs     = 255
)

// funcType distinguishes the kind of function body currently being
// compiled, which changes how slot 0 and implicit returns are handled.
type funcType uint8

const (
	typeScript funcType = iota
	typeFunction
	typeMethod
	typeInitializer
)

type localVar struct {
	name       string
	depth      int // -1 while uninitialized
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// funcCompiler holds the compiler state for one function currently being
// compiled (the script, a function, a method or an initializer). It is
// linked to its lexically enclosing function compiler, forming a stack.
type funcCompiler struct {
	enclosing *funcCompiler
	function  *value.ObjFunction
	typ       funcType

	locals     []localVar
	upvalues   []upvalueRef
	scopeDepth int
}

// classCompiler tracks the class currently being compiled, forming a stack
// shared across the whole compilation (spec §4.3).
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Compiler drives single-pass compilation: scanning, recursive-descent
// parsing with Pratt precedence climbing for expressions, and direct
// bytecode emission.
type Compiler struct {
	sc   *scanner.Scanner
	cur  token.Token
	prev token.Token

	hadError  bool
	panicMode bool
	errs      []string

	interner *value.Interner
	fc       *funcCompiler
	cc       *classCompiler
}

// Compile compiles source into a top-level ObjFunction of arity 0. Every
// identifier and string literal is interned through interner. It returns an
// error (accumulating every diagnostic reported during compilation) if
// source contains any compile-time fault; in that case the returned
// function is nil, never partially built (spec §7).
func Compile(source string, interner *value.Interner) (*value.ObjFunction, error) {
	c := &Compiler{
		sc:       scanner.New(source),
		interner: interner,
	}
	c.fc = &funcCompiler{
		function: &value.ObjFunction{},
		typ:      typeScript,
		locals:   []localVar{{name: "", depth: 0}},
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn := c.endFunction()
	if c.hadError {
		return nil, c.compileError()
	}
	return fn, nil
}

func (c *Compiler) compileError() error {
	msg := "compile error"
	if len(c.errs) > 0 {
		msg = c.errs[0]
		for _, e := range c.errs[1:] {
			msg += "\n" + e
		}
	}
	return fmt.Errorf("%s", msg)
}

// --- token stream plumbing -------------------------------------------------

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.sc.Scan()
		if c.cur.Kind != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.cur.Lexeme)
	}
}

func (c *Compiler) check(kind token.Kind) bool { return c.cur.Kind == kind }

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind token.Kind, msg string) {
	if c.cur.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	line, col := tok.Pos.LineCol()
	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Kind == token.EOF {
		where = "at end"
	}
	c.errs = append(c.errs, fmt.Sprintf("[line %d, column %d] Error %s: %s", line, col, where, msg))
	c.hadError = true
}

// synchronize recovers from a parse error by skipping tokens until a likely
// statement boundary, so that a single compile error does not cascade into
// many spurious follow-on errors (spec §4.3, §7).
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.Kind != token.EOF {
		if c.prev.Kind == token.SEMICOLON {
			return
		}
		switch c.cur.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ------------------------------------------------------

func (c *Compiler) currentChunk() *value.Chunk { return &c.fc.function.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.prev.Pos.Line())
}

func (c *Compiler) emitOp(op value.OpCode) { c.emitByte(byte(op)) }

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

func (c *Compiler) emitOpByte(op value.OpCode, b byte) { c.emitBytes(byte(op), b) }

// emitJump emits a jump instruction with a placeholder 16-bit big-endian
// offset and returns the offset of the first placeholder byte, to be fixed
// up later by patchJump.
func (c *Compiler) emitJump(op value.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("too much code to jump over")
		return
	}
	code := c.currentChunk().Code
	code[offset] = byte((jump >> 8) & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(value.OpLoop)
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("loop body too large")
		return
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

func (c *Compiler) emitReturn() {
	if c.fc.typ == typeInitializer {
		// "return this;" -- local slot 0 holds the instance
		c.emitOpByte(value.OpGetLocal, 0)
	} else {
		c.emitOp(value.OpNil)
	}
	c.emitOp(value.OpReturn)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx, err := c.currentChunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOpByte(value.OpConstant, c.makeConstant(v))
}

// endFunction finalizes the function currently being compiled (always
// emitting an implicit return after the body) and pops back to the
// enclosing compiler, emitting the OP_CLOSURE there.
func (c *Compiler) endFunction() *value.ObjFunction {
	c.emitReturn()
	fn := c.fc.function
	enclosing := c.fc.enclosing
	upvalues := c.fc.upvalues
	c.fc = enclosing
	if c.fc != nil {
		idx := c.makeConstant(fn)
		c.emitOpByte(value.OpClosure, idx)
		for _, uv := range upvalues {
			isLocal := byte(0)
			if uv.isLocal {
				isLocal = 1
			}
			c.emitBytes(isLocal, uv.index)
		}
	}
	return fn
}

// --- scope handling ---------------------------------------------------------

func (c *Compiler) beginScope() { c.fc.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fc.scopeDepth--
	for len(c.fc.locals) > 0 && c.fc.locals[len(c.fc.locals)-1].depth > c.fc.scopeDepth {
		if c.fc.locals[len(c.fc.locals)-1].isCaptured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
		c.fc.locals = c.fc.locals[:len(c.fc.locals)-1]
	}
}

// --- variable declaration and resolution ------------------------------------

func (c *Compiler) identifierConstant(tok token.Token) byte {
	return c.makeConstant(c.interner.Intern(tok.Lexeme))
}

func (c *Compiler) resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(fc *funcCompiler, index uint8, isLocal bool) int {
	if i := slices.IndexFunc(fc.upvalues, func(uv upvalueRef) bool {
		return uv.index == index && uv.isLocal == isLocal
	}); i != -1 {
		return i
	}
	if len(fc.upvalues) >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fc.upvalues = append(fc.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fc.function.UpvalueCount++
	return len(fc.upvalues) - 1
}

func (c *Compiler) resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fc.enclosing, name); local != -1 {
		fc.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fc, uint8(local), true)
	}
	if up := c.resolveUpvalue(fc.enclosing, name); up != -1 {
		return c.addUpvalue(fc, uint8(up), false)
	}
	return -1
}

func (c *Compiler) addLocal(name string) {
	if len(c.fc.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fc.locals = append(c.fc.locals, localVar{name: name, depth: -1})
}

func (c *Compiler) declareVariable() {
	if c.fc.scopeDepth == 0 {
		return // globals are late-bound, no declaration bookkeeping needed
	}
	name := c.prev.Lexeme
	for i := len(c.fc.locals) - 1; i >= 0; i-- {
		local := c.fc.locals[i]
		if local.depth != -1 && local.depth < c.fc.scopeDepth {
			break
		}
		if local.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENT, errMsg)
	c.declareVariable()
	if c.fc.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.prev)
}

func (c *Compiler) markInitialized() {
	if c.fc.scopeDepth == 0 {
		return
	}
	c.fc.locals[len(c.fc.locals)-1].depth = c.fc.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(value.OpDefineGlobal, global)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count == maxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(count)
}

// --- declarations and statements --------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(value.OpNil)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

// function compiles the parameter list and body of a function/method
// currently positioned right after its name, pushing a new funcCompiler and
// popping it via endFunction.
func (c *Compiler) function(typ funcType) {
	name := c.prev.Lexeme
	enclosing := c.fc
	slot0Name := ""
	if typ == typeMethod || typ == typeInitializer {
		slot0Name = "this"
	}
	c.fc = &funcCompiler{
		enclosing: enclosing,
		typ:       typ,
		function:  &value.ObjFunction{Name: c.interner.Intern(name)},
		locals:    []localVar{{name: slot0Name, depth: 0}},
	}

	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.fc.function.Arity++
			if c.fc.function.Arity > maxArgs {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	c.endFunction()
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	className := c.prev
	nameConstant := c.identifierConstant(className)
	c.declareVariable()

	c.emitOpByte(value.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	classComp := &classCompiler{enclosing: c.cc}
	c.cc = classComp

	if c.match(token.LESS) {
		c.consume(token.IDENT, "Expect superclass name.")
		if c.prev.Lexeme == className.Lexeme {
			c.error("A class can't inherit from itself.")
		}
		c.variable(false) // push superclass value

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariableByName(className.Lexeme, false)
		c.emitOp(value.OpInherit)
		classComp.hasSuperclass = true
	}

	c.namedVariableByName(className.Lexeme, false) // push class value for METHOD emission
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitOp(value.OpPop) // pop the class

	if classComp.hasSuperclass {
		c.endScope()
	}
	c.cc = classComp.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	name := c.prev
	constant := c.identifierConstant(name)

	typ := typeMethod
	if name.Lexeme == "init" {
		typ = typeInitializer
	}
	c.function(typ)
	c.emitOpByte(value.OpMethod, constant)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(value.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(value.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()

	elseJump := c.emitJump(value.OpJump)
	c.patchJump(thenJump)
	c.emitOp(value.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)
	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(value.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(value.OpJumpIfFalse)
		c.emitOp(value.OpPop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(value.OpJump)
		incrementStart := len(c.currentChunk().Code)
		c.expression()
		c.emitOp(value.OpPop)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(value.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fc.typ == typeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.fc.typ == typeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(value.OpReturn)
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// namedVariableByName is a convenience wrapper used by classDeclaration,
// where the class name is re-read as a variable reference without an
// originating token.Token of its own (the identifier token was already
// consumed earlier).
func (c *Compiler) namedVariableByName(name string, canAssign bool) {
	c.namedVariable(token.Token{Kind: token.IDENT, Lexeme: name, Pos: c.prev.Pos}, canAssign)
}

