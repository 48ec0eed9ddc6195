package zeta

// Cell is a heap-allocated box holding one mutable value.  Escaping
// locals and captured variables live in cells so closures share them
// by reference.
type Cell struct {
	shape Shapeidx

	val Value
}

func (c *Cell) Shape() Shapeidx { return c.shape }

// Closure is a function value: a function node plus one cell pointer
// per entry of the function's free variable list
type Closure struct {
	shape Shapeidx

	// Function this is a closure of
	fun *FunExpr

	// Mutable cell pointers for the captured variables
	cells []*Cell
}

func (c *Closure) Shape() Shapeidx { return c.shape }

// Fun returns the function this closure was built from
func (c *Closure) Fun() *FunExpr { return c.fun }

// interpInit allocates the shapes tagging cells, closures and host
// function wrappers
func (vm *VM) interpInit() {
	vm.cellShape = vm.ShapeAllocEmpty()
	vm.closShape = vm.ShapeAllocEmpty()
	vm.hostFnShape = vm.ShapeAllocEmpty()
}

func (vm *VM) cellAlloc() *Cell {
	vm.heap.alloc(cellObjSize, vm.cellShape.idx)
	return &Cell{shape: vm.cellShape.idx}
}

func (vm *VM) closAlloc(fun *FunExpr) *Closure {
	vm.heap.alloc(closHdrSize+8*fun.freeVars.Len(), vm.closShape.idx)
	return &Closure{
		shape: vm.closShape.idx,
		fun:   fun,
		cells: make([]*Cell, fun.freeVars.Len()),
	}
}

// evalTruth evaluates the boolean value of a value.  The semantics
// are intentionally strict: nothing but the two boolean values is
// accepted at a boolean position.
func evalTruth(val Value) bool {
	if val.Tag != TagBool {
		fatalf("cannot use %s value as boolean", val.Tag)
	}
	return val.Int != 0
}

// evalAssign assigns a value to an lvalue expression: a declaration
// or a resolved reference.  Escaping variables are written through
// their cell; plain locals are written to the frame slot.
func (vm *VM) evalAssign(lhsExpr Expr, val Value, clos *Closure, locals []Value) Value {
	switch lhs := lhsExpr.(type) {
	case *DeclExpr:
		// A same-name redeclaration shares the slot of the first
		// declaration, which carries the escape flag
		lhs.fun.checkLocalIdx(lhs.idx)
		if lhs.fun.localDecls.GetObj(lhs.idx).(*DeclExpr).esc {
			// Escaping variables live in mutable cells stored in
			// the frame slot
			locals[lhs.idx].Obj.(*Cell).val = val
			return val
		}

		locals[lhs.idx] = val
		return val

	case *RefExpr:
		if lhs.decl == nil {
			fatalf("assignment to unresolved reference \"%s\"", lhs.name.Data())
		}

		// Variable from an enclosing function
		if lhs.decl.fun != clos.fun {
			if lhs.idx >= uint32(len(clos.cells)) {
				fatalf("assignment to invalid free variable index")
			}
			clos.cells[lhs.idx].val = val
			return val
		}

		clos.fun.checkLocalIdx(lhs.idx)

		// Escaping local of the current function
		if lhs.decl.esc {
			locals[lhs.idx].Obj.(*Cell).val = val
			return val
		}

		locals[lhs.idx] = val
		return val

	default:
		fatalf("invalid assignment target (shapeidx=%d)", GetShape(lhsExpr))
		return False
	}
}

// checkLocalIdx validates a frame slot index against the function's
// local declaration count
func (fun *FunExpr) checkLocalIdx(idx uint32) {
	if idx >= fun.localDecls.Len() {
		fatalf("invalid local index %d (function has %d locals)", idx, fun.localDecls.Len())
	}
}

// evalCall evaluates a closure call.
//
// Entry protocol: check arity, allocate the callee frame, allocate
// fresh cells for the escaping locals, evaluate the arguments in the
// caller's frame and assign them to the parameters in the callee's
// frame, then evaluate the body.
func (vm *VM) evalCall(callee *Closure, argExprs *Array, caller *Closure, callerLocals []Value) Value {
	fun := callee.fun

	if argExprs.Len() != fun.paramDecls.Len() {
		fatalf("argument count mismatch (%d given, %d expected)",
			argExprs.Len(), fun.paramDecls.Len())
	}

	// Space for the local variables of this frame
	calleeLocals := make([]Value, fun.localDecls.Len())

	// Allocate mutable cells for the escaping variables
	for i := uint32(0); i < fun.escLocals.Len(); i++ {
		decl := fun.escLocals.GetObj(i).(*DeclExpr)
		fun.checkLocalIdx(decl.idx)
		calleeLocals[decl.idx] = HeapValue(vm.cellAlloc(), TagRawPtr)
	}

	// Evaluate the arguments and bind the parameters
	for i := uint32(0); i < argExprs.Len(); i++ {
		argVal := vm.evalExpr(argExprs.GetObj(i), caller, callerLocals)
		vm.evalAssign(fun.paramDecls.GetObj(i), argVal, callee, calleeLocals)
	}

	return vm.evalExpr(fun.bodyExpr, callee, calleeLocals)
}

// evalExpr evaluates an expression in a given frame
func (vm *VM) evalExpr(expr Expr, clos *Closure, locals []Value) Value {
	switch node := expr.(type) {
	// Variable reference (read)
	case *RefExpr:
		if node.decl == nil {
			fatalf("unresolved reference to \"%s\"", node.name.Data())
		}

		// Variable from an enclosing function: read its cell on
		// the closure
		if node.decl.fun != clos.fun {
			if node.idx >= uint32(len(clos.cells)) {
				fatalf("invalid free variable reference \"%s\"", node.name.Data())
			}
			return clos.cells[node.idx].val
		}

		clos.fun.checkLocalIdx(node.idx)

		// Escaping local: read through the cell in the frame slot
		if node.decl.esc {
			return locals[node.idx].Obj.(*Cell).val
		}

		// Read directly from the frame
		return locals[node.idx]

	case *ConstExpr:
		return node.val

	// String literals are the interned string objects themselves
	case *Str:
		return StringValue(node)

	// Array literal expression
	case *Array:
		valArray := vm.ArrayAlloc(node.Len())
		for i := uint32(0); i < node.Len(); i++ {
			valArray.Append(vm.evalExpr(node.GetObj(i), clos, locals))
		}
		return ArrayValue(valArray)

	case *BinOpExpr:
		return vm.evalBinOp(node, clos, locals)

	case *UnOpExpr:
		v0 := vm.evalExpr(node.expr, clos, locals)

		switch node.op {
		case opNeg:
			if v0.Tag != TagInt64 {
				fatalf("unary '-' on %s value", v0.Tag)
			}
			return Int64Value(-v0.Int)

		case opNot:
			return BoolValue(!evalTruth(v0))
		}

		fatalf("unimplemented unary operator: %s", node.op.str)

	// Sequence/block expression: the value is the last expression's,
	// or true when the sequence is empty
	case *SeqExpr:
		val := True
		for i := uint32(0); i < node.exprList.Len(); i++ {
			val = vm.evalExpr(node.exprList.GetObj(i), clos, locals)
		}
		return val

	case *IfExpr:
		if evalTruth(vm.evalExpr(node.testExpr, clos, locals)) {
			return vm.evalExpr(node.thenExpr, clos, locals)
		}
		return vm.evalExpr(node.elseExpr, clos, locals)

	// Function expression: materialize a closure over the current
	// frame
	case *FunExpr:
		newClos := vm.closAlloc(node)

		for i := uint32(0); i < node.freeVars.Len(); i++ {
			decl := node.freeVars.GetObj(i).(*DeclExpr)

			if decl.fun == clos.fun {
				// Captured from this frame: the escaping local's
				// cell lives in the frame slot
				newClos.cells[i] = locals[decl.idx].Obj.(*Cell)
			} else {
				// Captured from an enclosing function: pass the
				// cell pointer through
				freeIdx := clos.fun.freeVars.IndexOfPtr(decl)
				if freeIdx >= uint32(len(clos.cells)) {
					fatalf("free variable \"%s\" not threaded", decl.name.Data())
				}
				newClos.cells[i] = clos.cells[freeIdx]
			}
		}

		return HeapValue(newClos, TagClos)

	case *CallExpr:
		calleeVal := vm.evalExpr(node.funExpr, clos, locals)

		switch calleeVal.Tag {
		case TagClos:
			return vm.evalCall(calleeVal.Obj.(*Closure), node.argExprs, clos, locals)
		case TagHostFn:
			return vm.evalHostCall(calleeVal.Obj.(*HostFn), node.argExprs, clos, locals)
		}

		fatalf("invalid callee in function call (%s value)", calleeVal.Tag)

	case *ObjExpr:
		// The object literal form is stubbed: it produces an empty
		// object of the empty shape
		return HeapValue(vm.ObjectAlloc(vm.emptyShape, 0), TagObject)
	}

	fatalf("unknown expression type in evaluation (shapeidx=%d)", GetShape(expr))
	return False
}

// evalBinOp evaluates a binary operator node
func (vm *VM) evalBinOp(node *BinOpExpr, clos *Closure, locals []Value) Value {
	// Assignment evaluates its right side only
	if node.op == opAssign {
		val := vm.evalExpr(node.rightExpr, clos, locals)
		return vm.evalAssign(node.leftExpr, val, clos, locals)
	}

	// Logical operators short-circuit on strict booleans
	if node.op == opAnd {
		if !evalTruth(vm.evalExpr(node.leftExpr, clos, locals)) {
			return False
		}
		return BoolValue(evalTruth(vm.evalExpr(node.rightExpr, clos, locals)))
	}
	if node.op == opOr {
		if evalTruth(vm.evalExpr(node.leftExpr, clos, locals)) {
			return True
		}
		return BoolValue(evalTruth(vm.evalExpr(node.rightExpr, clos, locals)))
	}

	v0 := vm.evalExpr(node.leftExpr, clos, locals)
	v1 := vm.evalExpr(node.rightExpr, clos, locals)

	// Equality falls through to structural comparison for
	// non-integer pairs
	switch node.op {
	case opEq:
		return BoolValue(ValueEquals(v0, v1))
	case opNe:
		return BoolValue(!ValueEquals(v0, v1))
	}

	// Array indexing
	if node.op == opIndex {
		if v0.Tag != TagArray {
			fatalf("indexing a %s value", v0.Tag)
		}
		if v1.Tag != TagInt64 {
			fatalf("array index must be an integer, got %s", v1.Tag)
		}

		arr := v0.Obj.(*Array)
		if v1.Int < 0 || v1.Int >= int64(arr.Len()) {
			fatalf("array index out of range (%d, len %d)", v1.Int, arr.Len())
		}
		return arr.Get(uint32(v1.Int))
	}

	// The remaining operators work on 64-bit integers
	if v0.Tag != TagInt64 || v1.Tag != TagInt64 {
		fatalf("operator '%s' on %s and %s values", node.op.str, v0.Tag, v1.Tag)
	}
	i0, i1 := v0.Int, v1.Int

	switch node.op {
	case opAdd:
		return Int64Value(i0 + i1)
	case opSub:
		return Int64Value(i0 - i1)
	case opMul:
		return Int64Value(i0 * i1)
	case opDiv:
		if i1 == 0 {
			fatalf("division by zero")
		}
		return Int64Value(i0 / i1)
	case opMod:
		if i1 == 0 {
			fatalf("modulo by zero")
		}
		return Int64Value(i0 % i1)

	case opBitAnd:
		return Int64Value(i0 & i1)
	case opBitXor:
		return Int64Value(i0 ^ i1)
	case opBitOr:
		return Int64Value(i0 | i1)

	case opLt:
		return BoolValue(i0 < i1)
	case opLe:
		return BoolValue(i0 <= i1)
	case opGt:
		return BoolValue(i0 > i1)
	case opGe:
		return BoolValue(i0 >= i1)
	}

	fatalf("unimplemented binary operator: %s", node.op.str)
	return False
}

// EvalUnit resolves and runs a parsed unit.  The unit is resolved
// with the global closure's function as its parent, so units can
// reference the runtime globals; its closure is then called with no
// arguments.
func (vm *VM) EvalUnit(unitFun *FunExpr) (val Value, err error) {
	defer recoverFatal(&err)

	var parent *FunExpr
	if vm.globalClos != nil {
		parent = vm.globalClos.fun
	}
	vm.VarResPass(unitFun, parent)

	return vm.evalUnitResolved(unitFun), nil
}

// evalUnitResolved runs an already-resolved unit: materialize the
// unit closure against the global closure, then call it with no
// arguments
func (vm *VM) evalUnitResolved(unitFun *FunExpr) Value {
	unitClos := vm.evalExpr(unitFun, vm.globalClos, nil)
	return vm.evalCall(unitClos.Obj.(*Closure), vm.ArrayAlloc(0), nil, nil)
}

// EvalString parses, resolves and runs a source string
func (vm *VM) EvalString(src, srcName string) (val Value, err error) {
	defer recoverFatal(&err)

	unitFun, err := vm.ParseCheckError(vm.ParseString(src, srcName))
	if err != nil {
		return False, err
	}
	return vm.EvalUnit(unitFun)
}

// EvalFile parses, resolves and runs a source file
func (vm *VM) EvalFile(fileName string) (val Value, err error) {
	defer recoverFatal(&err)

	node, err := vm.ParseFile(fileName)
	if err != nil {
		return False, err
	}
	unitFun, err := vm.ParseCheckError(node)
	if err != nil {
		return False, err
	}
	return vm.EvalUnit(unitFun)
}
