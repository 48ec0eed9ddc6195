package zeta

import (
	"os"
	"strconv"
	"strings"
)

// Input is the character stream the parsing functions consume.  It
// carries the source string, a cursor, and the current line/column
// position used in error nodes.
type Input struct {
	// Source string
	str *Str

	// Current index
	idx uint32

	// Source name
	srcName *Str

	// Current source position
	pos SrcPos
}

// NewInput wraps an interned source string for parsing
func NewInput(str, srcName *Str) *Input {
	return &Input{str: str, srcName: srcName}
}

// eof tells whether the whole input has been consumed
func (in *Input) eof() bool {
	return in.idx >= in.str.Len()
}

// peekCh returns the byte under the cursor, or 0 at the end of input
func (in *Input) peekCh() byte {
	if in.idx >= in.str.Len() {
		return 0
	}
	return in.str.data[in.idx]
}

// readCh consumes and returns one byte, tracking line/column
func (in *Input) readCh() byte {
	ch := in.peekCh()
	in.idx++

	if ch == '\n' {
		in.pos.Line++
		in.pos.Col = 0
	} else {
		in.pos.Col++
	}

	return ch
}

// matchCh consumes ch if it is under the cursor
func (in *Input) matchCh(ch byte) bool {
	if in.peekCh() == ch {
		in.readCh()
		return true
	}
	return false
}

// matchStr consumes str if the input starts with it
func (in *Input) matchStr(str string) bool {
	sub := *in

	for i := 0; i < len(str); i++ {
		if sub.eof() || !sub.matchCh(str[i]) {
			return false
		}
	}

	*in = sub
	return true
}

// matchKeyword consumes kw only when it is not the prefix of a longer
// identifier
func (in *Input) matchKeyword(kw string) bool {
	sub := *in
	if !sub.matchStr(kw) {
		return false
	}
	if isIdentCh(sub.peekCh()) {
		return false
	}
	*in = sub
	return true
}

// eatWS consumes whitespace and comments between tokens
func (in *Input) eatWS() {
	for {
		if isSpace(in.peekCh()) {
			in.readCh()
			continue
		}

		// Single-line comment
		if in.matchStr("//") {
			for {
				ch := in.readCh()
				if ch == '\n' || ch == 0 {
					break
				}
			}
			continue
		}

		// Multi-line comment, non-nested
		if beforeComment := *in; in.matchStr("/*") {
			closed := false
			for !in.eof() {
				ch := in.readCh()
				if ch == '*' && in.matchCh('/') {
					closed = true
					break
				}
			}
			if !closed {
				// Unterminated comment: leave it unconsumed so that
				// parsing fails at its start
				*in = beforeComment
				break
			}
			continue
		}

		break
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\v' || ch == '\f'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return isAlpha(ch) || ch == '_' || ch == '$'
}

func isIdentCh(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// opInfo describes one operator of the language
type opInfo struct {
	// Operator string (e.g. "+")
	str string

	// Closing string, where applicable (e.g. "]")
	closeStr string

	// Operator arity, -1 for variable arity
	arity int

	// Precedence level, higher binds tighter
	prec int

	// Associativity, left-to-right or right-to-left ('l' or 'r')
	assoc byte

	// Non-associative flag (e.g. - and / are not associative)
	nonAssoc bool
}

// The operator table is static and immutable.
var (
	// Member operator
	opMember = &opInfo{".", "", 2, 16, 'l', false}

	// Array indexing
	opIndex = &opInfo{"[", "]", 2, 16, 'l', false}

	// Function call, variable arity
	opCall = &opInfo{"(", ")", -1, 15, 'l', false}

	// Prefix unary operators
	opNeg = &opInfo{"-", "", 1, 13, 'r', false}
	opNot = &opInfo{"not", "", 1, 13, 'r', false}

	// Binary arithmetic operators
	opMul = &opInfo{"*", "", 2, 12, 'l', false}
	opDiv = &opInfo{"/", "", 2, 12, 'l', true}
	opMod = &opInfo{"mod", "", 2, 12, 'l', true}
	opAdd = &opInfo{"+", "", 2, 11, 'l', false}
	opSub = &opInfo{"-", "", 2, 11, 'l', true}

	// Relational operators
	opLt     = &opInfo{"<", "", 2, 9, 'l', false}
	opLe     = &opInfo{"<=", "", 2, 9, 'l', false}
	opGt     = &opInfo{">", "", 2, 9, 'l', false}
	opGe     = &opInfo{">=", "", 2, 9, 'l', false}
	opIn     = &opInfo{"in", "", 2, 9, 'l', false}
	opInstOf = &opInfo{"instanceof", "", 2, 9, 'l', false}

	// Equality comparison
	opEq = &opInfo{"==", "", 2, 8, 'l', false}
	opNe = &opInfo{"!=", "", 2, 8, 'l', false}

	// Bitwise operators
	opBitAnd = &opInfo{"&", "", 2, 7, 'l', false}
	opBitXor = &opInfo{"^", "", 2, 6, 'l', false}
	opBitOr  = &opInfo{"|", "", 2, 5, 'l', false}

	// Logical operators
	opAnd = &opInfo{"and", "", 2, 4, 'l', false}
	opOr  = &opInfo{"or", "", 2, 3, 'l', false}

	// Assignment
	opAssign = &opInfo{"=", "", 2, 1, 'r', false}
)

// parserInit allocates the shapes tagging AST nodes
func (vm *VM) parserInit() {
	vm.shapeASTError = vm.ShapeAllocEmpty()
	vm.shapeASTConst = vm.ShapeAllocEmpty()
	vm.shapeASTRef = vm.ShapeAllocEmpty()
	vm.shapeASTDecl = vm.ShapeAllocEmpty()
	vm.shapeASTBinOp = vm.ShapeAllocEmpty()
	vm.shapeASTUnOp = vm.ShapeAllocEmpty()
	vm.shapeASTSeq = vm.ShapeAllocEmpty()
	vm.shapeASTIf = vm.ShapeAllocEmpty()
	vm.shapeASTCall = vm.ShapeAllocEmpty()
	vm.shapeASTFun = vm.ShapeAllocEmpty()
	vm.shapeASTObj = vm.ShapeAllocEmpty()
}

// parseIdent parses an identifier and returns its interned string
func (vm *VM) parseIdent(in *Input) Expr {
	startIdx := in.idx

	if !isIdentStart(in.peekCh()) {
		return vm.astErrorAlloc(in, "invalid identifier start")
	}

	for isIdentCh(in.peekCh()) {
		in.readCh()
	}

	return vm.GetStr(in.str.data[startIdx:in.idx])
}

// parseNumber parses an integer literal: decimal, 0x hex or 0b binary
func (vm *VM) parseNumber(in *Input) Expr {
	base := 10
	digits := "0123456789"

	if in.matchStr("0x") {
		base = 16
		digits = "0123456789abcdefABCDEF"
	} else if in.matchStr("0b") {
		base = 2
		digits = "01"
	}

	startIdx := in.idx
	for in.peekCh() != 0 && strings.IndexByte(digits, in.peekCh()) >= 0 {
		in.readCh()
	}

	if in.idx == startIdx {
		return vm.astErrorAlloc(in, "invalid number literal")
	}

	intVal, err := strconv.ParseInt(in.str.data[startIdx:in.idx], base, 64)
	if err != nil {
		return vm.astErrorAlloc(in, "integer literal out of range")
	}

	return vm.astConstAlloc(Int64Value(intVal))
}

// parseStringLit parses a string literal.  The opening quote has been
// consumed; endCh closes the literal.  The result is the interned
// string object itself.
func (vm *VM) parseStringLit(in *Input, endCh byte) Expr {
	var buf strings.Builder

	for {
		if in.eof() {
			return vm.astErrorAlloc(in, "unterminated string literal")
		}

		ch := in.readCh()

		if ch == endCh {
			break
		}

		// Escape sequence
		if ch == '\\' {
			switch esc := in.readCh(); esc {
			case 'n':
				ch = '\n'
			case 'r':
				ch = '\r'
			case 't':
				ch = '\t'
			case '0':
				ch = 0
			default:
				return vm.astErrorAlloc(in, "invalid escape sequence")
			}
		}

		buf.WriteByte(ch)
	}

	return vm.GetStr(buf.String())
}

// parseIfExpr parses `if <test> then <then> else <else>`; the `if`
// keyword has been consumed and the else clause is optional
func (vm *VM) parseIfExpr(in *Input) Expr {
	testExpr := vm.ParseExpr(in)
	if vm.IsError(testExpr) {
		return testExpr
	}

	in.eatWS()
	if !in.matchKeyword("then") {
		return vm.astErrorAlloc(in, "expected 'then' keyword")
	}

	thenExpr := vm.ParseExpr(in)
	if vm.IsError(thenExpr) {
		return thenExpr
	}

	var elseExpr Expr
	in.eatWS()
	if in.matchKeyword("else") {
		elseExpr = vm.ParseExpr(in)
		if vm.IsError(elseExpr) {
			return elseExpr
		}
	} else {
		elseExpr = vm.astConstAlloc(False)
	}

	return vm.astIfAlloc(testExpr, thenExpr, elseExpr)
}

// parseExprList parses expressions until endCh.  When needSep is set
// the elements are comma-separated, trailing comma allowed.
func (vm *VM) parseExprList(in *Input, endCh byte, needSep bool) Expr {
	arr := vm.ArrayAlloc(4)

	for {
		in.eatWS()
		if in.matchCh(endCh) {
			break
		}

		expr := vm.ParseExpr(in)
		if vm.IsError(expr) {
			return expr
		}
		arr.AppendObj(expr, TagRawPtr)

		in.eatWS()
		if in.matchCh(endCh) {
			break
		}

		if needSep && !in.matchCh(',') {
			return vm.astErrorAlloc(in, "expected comma separator in list")
		}
	}

	return arr
}

// parseFunExpr parses `fun (x,y,z) <body>`; the `fun` keyword has
// been consumed
func (vm *VM) parseFunExpr(in *Input) Expr {
	in.eatWS()
	if !in.matchCh('(') {
		return vm.astErrorAlloc(in, "expected parameter list")
	}

	paramDecls := vm.ArrayAlloc(4)

	for {
		in.eatWS()
		if in.matchCh(')') {
			break
		}

		ident := vm.parseIdent(in)
		if vm.IsError(ident) {
			return ident
		}

		decl := vm.astDeclAlloc(ident.(*Str), false)
		paramDecls.AppendObj(decl, TagRawPtr)

		in.eatWS()
		if in.matchCh(')') {
			break
		}

		if !in.matchCh(',') {
			return vm.astErrorAlloc(in, "expected comma separator in parameter list")
		}
	}

	bodyExpr := vm.ParseExpr(in)
	if vm.IsError(bodyExpr) {
		return bodyExpr
	}

	return vm.astFunAlloc(paramDecls, bodyExpr)
}

// parseObjExpr parses the object literal stub `:{ ... }`.  The
// contents are consumed but the node carries no properties; the
// feature is not defined yet.
func (vm *VM) parseObjExpr(in *Input) Expr {
	nameStrs := vm.ArrayAlloc(4)
	valExprs := vm.ArrayAlloc(4)

	for {
		in.eatWS()
		if in.matchCh('}') {
			break
		}
		if in.eof() {
			return vm.astErrorAlloc(in, "unterminated object literal")
		}

		expr := vm.ParseExpr(in)
		if vm.IsError(expr) {
			return expr
		}
	}

	return vm.astObjAlloc(nil, nameStrs, valExprs)
}

// matchOp tries to match an operator with at least minPrec in the
// input.  In preUnary position only right-associative unary operators
// match.  Word operators require an identifier boundary.
func (in *Input) matchOp(minPrec int, preUnary bool) *opInfo {
	beforeOp := *in

	var op *opInfo

	// Switch on the first character of the operator to avoid a long
	// cascade of match tests
	switch in.peekCh() {
	case '.':
		if in.matchCh('.') {
			op = opMember
		}

	case '[':
		if in.matchCh('[') {
			op = opIndex
		}

	case '(':
		if in.matchCh('(') {
			op = opCall
		}

	case 'n':
		if in.matchKeyword("not") {
			op = opNot
		}

	case '*':
		if in.matchCh('*') {
			op = opMul
		}

	case '/':
		if in.matchCh('/') {
			op = opDiv
		}

	case 'm':
		if in.matchKeyword("mod") {
			op = opMod
		}

	case '+':
		if in.matchCh('+') {
			op = opAdd
		}

	case '-':
		if in.matchCh('-') {
			if preUnary {
				op = opNeg
			} else {
				op = opSub
			}
		}

	case '<':
		if in.matchStr("<=") {
			op = opLe
		} else if in.matchCh('<') {
			op = opLt
		}

	case '>':
		if in.matchStr(">=") {
			op = opGe
		} else if in.matchCh('>') {
			op = opGt
		}

	case 'i':
		if in.matchKeyword("instanceof") {
			op = opInstOf
		} else if in.matchKeyword("in") {
			op = opIn
		}

	case '=':
		if in.matchStr("==") {
			op = opEq
		} else if in.matchCh('=') {
			op = opAssign
		}

	case '!':
		if in.matchStr("!=") {
			op = opNe
		}

	case '&':
		if in.matchCh('&') {
			op = opBitAnd
		}

	case '^':
		if in.matchCh('^') {
			op = opBitXor
		}

	case '|':
		if in.matchCh('|') {
			op = opBitOr
		}

	case 'a':
		if in.matchKeyword("and") {
			op = opAnd
		}

	case 'o':
		if in.matchKeyword("or") {
			op = opOr
		}
	}

	if op != nil {
		// Not enough precedence, or the operator doesn't fit the
		// prefix position: backtrack so nothing is consumed
		if op.prec < minPrec ||
			(preUnary && op.arity != 1) ||
			(preUnary && op.assoc != 'r') {
			*in = beforeOp
			op = nil
		}
	}

	return op
}

// parseVarDecl parses a variable declaration; the `var` keyword has
// been consumed
func (vm *VM) parseVarDecl(in *Input) Expr {
	in.eatWS()

	ident := vm.parseIdent(in)
	if vm.IsError(ident) {
		return vm.astErrorAlloc(in, "expected identifier in variable declaration")
	}

	return vm.astDeclAlloc(ident.(*Str), false)
}

// parseCstDecl parses a constant declaration; the `let` keyword has
// been consumed.  A value must be assigned, so the node produced is
// the assignment of the value to the new declaration.
func (vm *VM) parseCstDecl(in *Input) Expr {
	in.eatWS()

	ident := vm.parseIdent(in)
	if vm.IsError(ident) {
		return vm.astErrorAlloc(in, "expected identifier in constant declaration")
	}

	in.eatWS()
	if !in.matchCh('=') {
		return vm.astErrorAlloc(in, "expected value assignment in let declaration")
	}

	val := vm.ParseExpr(in)
	if vm.IsError(val) {
		return val
	}

	return vm.astBinOpAlloc(opAssign, vm.astDeclAlloc(ident.(*Str), true), val)
}

// parseAtom parses an atomic expression
func (vm *VM) parseAtom(in *Input) Expr {
	in.eatWS()

	// Numerical constant
	if isDigit(in.peekCh()) {
		return vm.parseNumber(in)
	}

	// String literal
	if in.matchCh('\'') {
		return vm.parseStringLit(in, '\'')
	}
	if in.matchCh('"') {
		return vm.parseStringLit(in, '"')
	}

	// Array literal
	if in.matchCh('[') {
		return vm.parseExprList(in, ']', true)
	}

	// Object literal
	if in.matchStr(":{") {
		return vm.parseObjExpr(in)
	}

	// Parenthesized expression
	if in.matchCh('(') {
		expr := vm.ParseExpr(in)
		if vm.IsError(expr) {
			return vm.astErrorAlloc(in, "expected expression after '('")
		}

		if !in.matchCh(')') {
			return vm.astErrorAlloc(in, "expected closing parenthesis")
		}

		return expr
	}

	// Sequence/block expression, e.g. { a b c }
	if in.matchCh('{') {
		exprList := vm.parseExprList(in, '}', false)
		if vm.IsError(exprList) {
			return exprList
		}

		return vm.astSeqAlloc(exprList.(*Array))
	}

	// Prefix unary operator
	if op := in.matchOp(0, true); op != nil {
		expr := vm.parseAtom(in)
		if vm.IsError(expr) {
			return expr
		}

		return vm.astUnOpAlloc(op, expr)
	}

	// Keyword forms and identifier references
	if isIdentStart(in.peekCh()) {
		switch {
		case in.matchKeyword("var"):
			return vm.parseVarDecl(in)

		case in.matchKeyword("let"):
			return vm.parseCstDecl(in)

		case in.matchKeyword("if"):
			return vm.parseIfExpr(in)

		case in.matchKeyword("fun"):
			return vm.parseFunExpr(in)

		case in.matchKeyword("true"):
			return vm.astConstAlloc(True)

		case in.matchKeyword("false"):
			return vm.astConstAlloc(False)
		}

		ident := vm.parseIdent(in)
		if vm.IsError(ident) {
			return ident
		}
		return vm.astRefAlloc(ident.(*Str))
	}

	return vm.astErrorAlloc(in, "invalid expression")
}

// parseExprPrec implements precedence climbing.
//
// Each call loops to grab everything of the current precedence or
// greater and builds a left-sided subtree out of it.  An operator
// below the minimum precedence breaks the loop, handing the parsed
// subtree back to the enclosing level, which attaches it as the right
// operand of the pending operator.
func (vm *VM) parseExprPrec(in *Input, minPrec int) Expr {
	lhsExpr := vm.parseAtom(in)
	if vm.IsError(lhsExpr) {
		return lhsExpr
	}

	for {
		in.eatWS()

		op := in.matchOp(minPrec, false)
		if op == nil {
			break
		}

		// Minimal precedence for the recursive call, if any
		var nextMinPrec int
		if op.assoc == 'l' {
			if op.closeStr != "" {
				nextMinPrec = 0
			} else {
				nextMinPrec = op.prec + 1
			}
		} else {
			nextMinPrec = op.prec
		}

		switch {
		// Function call expression
		case op == opCall:
			argExprs := vm.parseExprList(in, ')', true)
			if vm.IsError(argExprs) {
				return argExprs
			}

			lhsExpr = vm.astCallAlloc(lhsExpr, argExprs.(*Array))

		// Member expression: the right operand is an identifier
		case op == opMember:
			ident := vm.parseIdent(in)
			if vm.IsError(ident) {
				return vm.astErrorAlloc(in, "expected identifier in member expression")
			}

			lhsExpr = vm.astBinOpAlloc(op, lhsExpr, ident)

		// Binary operator
		case op.arity == 2:
			rhsExpr := vm.parseExprPrec(in, nextMinPrec)
			if vm.IsError(rhsExpr) {
				return rhsExpr
			}

			lhsExpr = vm.astBinOpAlloc(op, lhsExpr, rhsExpr)

			if op.closeStr != "" && !in.matchStr(op.closeStr) {
				return vm.astErrorAlloc(in, "expected operator closing")
			}

		default:
			return vm.astErrorAlloc(in, "invalid operator")
		}
	}

	return lhsExpr
}

// ParseExpr parses one expression
func (vm *VM) ParseExpr(in *Input) Expr {
	return vm.parseExprPrec(in, 0)
}

// ParseUnit parses a whole source unit: a sequence of top-level
// expressions wrapped into a synthetic parameterless function
func (vm *VM) ParseUnit(in *Input) Expr {
	arr := vm.ArrayAlloc(32)

	for {
		in.eatWS()
		if in.eof() {
			break
		}

		expr := vm.ParseExpr(in)
		if vm.IsError(expr) {
			return expr
		}

		arr.AppendObj(expr, TagRawPtr)
	}

	return vm.astFunAlloc(vm.ArrayAlloc(0), vm.astSeqAlloc(arr))
}

// ParseString parses a source string as a unit
func (vm *VM) ParseString(src, srcName string) Expr {
	in := NewInput(vm.GetStr(src), vm.GetStr(srcName))
	return vm.ParseUnit(in)
}

// ParseFile parses a source file as a unit
func (vm *VM) ParseFile(fileName string) (Expr, error) {
	src, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return vm.ParseString(string(src), fileName), nil
}

// ParseCheckError checks that the parsing of a unit succeeded,
// converting an error node into a *SyntaxError
func (vm *VM) ParseCheckError(node Expr) (*FunExpr, error) {
	if errNode, ok := node.(*ErrorNode); ok {
		return nil, &SyntaxError{
			Message: errNode.Message(),
			Pos:     errNode.Pos(),
		}
	}
	return node.(*FunExpr), nil
}
