package zeta

// Expr is any heap object usable as an AST node.  String literals are
// the interned string objects themselves and array literals are array
// objects holding their element expressions, so expressions are
// identified by shape rather than by a dedicated node hierarchy.
type Expr = Shaped

// ErrorNode is a parse error carrying a diagnostic and the source
// position where parsing stopped
type ErrorNode struct {
	shape Shapeidx

	errorStr *Str

	srcPos SrcPos
}

func (n *ErrorNode) Shape() Shapeidx { return n.shape }

// Message returns the error diagnostic
func (n *ErrorNode) Message() string { return n.errorStr.Data() }

// Pos returns the source position where parsing stopped
func (n *ErrorNode) Pos() SrcPos { return n.srcPos }

// ConstExpr is a constant value node, used for integers and booleans
type ConstExpr struct {
	shape Shapeidx

	val Value
}

func (n *ConstExpr) Shape() Shapeidx { return n.shape }

// RefExpr is a variable reference
type RefExpr struct {
	shape Shapeidx

	// Stack or mutable cell index, set by the resolver
	idx uint32

	// Identifier name
	name *Str

	// Resolved declaration, nil until resolution
	decl *DeclExpr
}

func (n *RefExpr) Shape() Shapeidx { return n.shape }

// Decl returns the resolved declaration, nil before resolution
func (n *RefExpr) Decl() *DeclExpr { return n.decl }

// DeclExpr is a variable or constant declaration
type DeclExpr struct {
	shape Shapeidx

	// Local (stack) index
	idx uint32

	// Constant flag
	cst bool

	// Escaping variable (captured by a nested function)
	esc bool

	// Identifier name
	name *Str

	// Function the declaration belongs to
	fun *FunExpr
}

func (n *DeclExpr) Shape() Shapeidx { return n.shape }

// UnOpExpr is a unary operator node
type UnOpExpr struct {
	shape Shapeidx

	op *opInfo

	expr Expr
}

func (n *UnOpExpr) Shape() Shapeidx { return n.shape }

// BinOpExpr is a binary operator node
type BinOpExpr struct {
	shape Shapeidx

	op *opInfo

	leftExpr  Expr
	rightExpr Expr
}

func (n *BinOpExpr) Shape() Shapeidx { return n.shape }

// SeqExpr is a sequence or block of expressions
type SeqExpr struct {
	shape Shapeidx

	// List of expressions
	exprList *Array
}

func (n *SeqExpr) Shape() Shapeidx { return n.shape }

// IfExpr is an if/then/else expression
type IfExpr struct {
	shape Shapeidx

	testExpr Expr

	thenExpr Expr
	elseExpr Expr
}

func (n *IfExpr) Shape() Shapeidx { return n.shape }

// CallExpr is a function call
type CallExpr struct {
	shape Shapeidx

	// Function to be called
	funExpr Expr

	// Argument expressions
	argExprs *Array
}

func (n *CallExpr) Shape() Shapeidx { return n.shape }

// FunExpr is a function expression.  The declaration sets are filled
// in by the resolver: local declarations (parameters included),
// locals escaping into nested functions, and variables captured from
// enclosing functions.
type FunExpr struct {
	shape Shapeidx

	// Parent (outer) function
	parent *FunExpr

	// Ordered list of parameter declarations
	paramDecls *Array

	// Set of local variable declarations, parameters included
	localDecls *Array

	// Set of locals escaping into nested functions
	escLocals *Array

	// Set of variables captured from enclosing functions
	freeVars *Array

	// Function body expression
	bodyExpr Expr
}

func (n *FunExpr) Shape() Shapeidx { return n.shape }

// Parent returns the enclosing function set by the resolver: nil for
// a unit resolved without a parent scope, the global capture function
// for units evaluated after RuntimeInit
func (n *FunExpr) Parent() *FunExpr { return n.parent }

// NumParams returns the number of parameter declarations
func (n *FunExpr) NumParams() uint32 { return n.paramDecls.Len() }

// ObjExpr is an object literal.  The form parses but the feature is
// not defined yet: the node carries no properties and evaluates to an
// empty object.
type ObjExpr struct {
	shape Shapeidx

	protoExpr Expr

	nameStrs *Array
	valExprs *Array
}

func (n *ObjExpr) Shape() Shapeidx { return n.shape }

// IsError tells whether an AST node is a parse error node
func (vm *VM) IsError(node Expr) bool {
	return GetShape(node) == vm.shapeASTError.idx
}

func (vm *VM) astErrorAlloc(in *Input, errorStr string) *ErrorNode {
	vm.heap.alloc(astNodeSize, vm.shapeASTError.idx)
	return &ErrorNode{
		shape:    vm.shapeASTError.idx,
		errorStr: vm.GetStr(errorStr),
		srcPos:   in.pos,
	}
}

func (vm *VM) astConstAlloc(val Value) *ConstExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTConst.idx)
	return &ConstExpr{shape: vm.shapeASTConst.idx, val: val}
}

func (vm *VM) astRefAlloc(name *Str) *RefExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTRef.idx)
	return &RefExpr{
		shape: vm.shapeASTRef.idx,
		idx:   0xFFFF,
		name:  name,
	}
}

func (vm *VM) astDeclAlloc(name *Str, cst bool) *DeclExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTDecl.idx)
	return &DeclExpr{
		shape: vm.shapeASTDecl.idx,
		idx:   0xFFFF,
		cst:   cst,
		name:  name,
	}
}

func (vm *VM) astUnOpAlloc(op *opInfo, expr Expr) *UnOpExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTUnOp.idx)
	return &UnOpExpr{shape: vm.shapeASTUnOp.idx, op: op, expr: expr}
}

func (vm *VM) astBinOpAlloc(op *opInfo, leftExpr, rightExpr Expr) *BinOpExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTBinOp.idx)
	return &BinOpExpr{
		shape:     vm.shapeASTBinOp.idx,
		op:        op,
		leftExpr:  leftExpr,
		rightExpr: rightExpr,
	}
}

func (vm *VM) astSeqAlloc(exprList *Array) *SeqExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTSeq.idx)
	return &SeqExpr{shape: vm.shapeASTSeq.idx, exprList: exprList}
}

func (vm *VM) astIfAlloc(testExpr, thenExpr, elseExpr Expr) *IfExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTIf.idx)
	return &IfExpr{
		shape:    vm.shapeASTIf.idx,
		testExpr: testExpr,
		thenExpr: thenExpr,
		elseExpr: elseExpr,
	}
}

func (vm *VM) astCallAlloc(funExpr Expr, argExprs *Array) *CallExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTCall.idx)
	return &CallExpr{
		shape:    vm.shapeASTCall.idx,
		funExpr:  funExpr,
		argExprs: argExprs,
	}
}

func (vm *VM) astFunAlloc(paramDecls *Array, bodyExpr Expr) *FunExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTFun.idx)
	return &FunExpr{
		shape:      vm.shapeASTFun.idx,
		paramDecls: paramDecls,
		localDecls: vm.ArrayAlloc(4),
		escLocals:  vm.ArrayAlloc(4),
		freeVars:   vm.ArrayAlloc(4),
		bodyExpr:   bodyExpr,
	}
}

func (vm *VM) astObjAlloc(protoExpr Expr, nameStrs, valExprs *Array) *ObjExpr {
	vm.heap.alloc(astNodeSize, vm.shapeASTObj.idx)
	return &ObjExpr{
		shape:     vm.shapeASTObj.idx,
		protoExpr: protoExpr,
		nameStrs:  nameStrs,
		valExprs:  valExprs,
	}
}
