package zeta

// findDecls walks an AST subtree collecting the declarations that
// belong to fun.  Nested function bodies are skipped: their locals
// are not of this scope.
func (vm *VM) findDecls(expr Expr, fun *FunExpr) {
	switch node := expr.(type) {
	// Constants and string literals declare nothing
	case *ConstExpr, *Str:
		return

	// Array literal expression
	case *Array:
		for i := uint32(0); i < node.Len(); i++ {
			vm.findDecls(node.GetObj(i), fun)
		}

	case *DeclExpr:
		// Mark the declaration as belonging to this function
		node.fun = fun

		// Same-name redeclaration reuses the existing slot
		for i := uint32(0); i < fun.localDecls.Len(); i++ {
			local := fun.localDecls.GetObj(i).(*DeclExpr)
			if local.name == node.name {
				node.idx = local.idx
				return
			}
		}

		node.idx = fun.localDecls.Len()
		fun.localDecls.AppendObj(node, TagRawPtr)

	case *RefExpr:
		return

	case *SeqExpr:
		for i := uint32(0); i < node.exprList.Len(); i++ {
			vm.findDecls(node.exprList.GetObj(i), fun)
		}

	case *BinOpExpr:
		vm.findDecls(node.leftExpr, fun)
		vm.findDecls(node.rightExpr, fun)

	case *UnOpExpr:
		vm.findDecls(node.expr, fun)

	case *IfExpr:
		vm.findDecls(node.testExpr, fun)
		vm.findDecls(node.thenExpr, fun)
		vm.findDecls(node.elseExpr, fun)

	case *FunExpr:
		return

	case *CallExpr:
		vm.findDecls(node.funExpr, fun)
		for i := uint32(0); i < node.argExprs.Len(); i++ {
			vm.findDecls(node.argExprs.GetObj(i), fun)
		}

	case *ObjExpr:
		return

	default:
		fatalf("unsupported node in declaration discovery (shapeidx=%d)", GetShape(expr))
	}
}

// findDecl finds the declaration a reference resolves to, searching
// the local declarations of the current function and then its
// ancestors
func findDecl(ref *RefExpr, curFun *FunExpr) *DeclExpr {
	for i := uint32(0); i < curFun.localDecls.Len(); i++ {
		decl := curFun.localDecls.GetObj(i).(*DeclExpr)
		if decl.name == ref.name {
			return decl
		}
	}

	if curFun.parent == nil {
		return nil
	}

	return findDecl(ref, curFun.parent)
}

// threadEscVar threads an escaping variable through the functions
// between the referring function and the declaring one, so each
// closure on the path has direct access to the variable's cell
func threadEscVar(ref *RefExpr, refFun, curFun *FunExpr) {
	decl := ref.decl

	// The variable is an escaping local of this function
	if decl.fun == curFun && refFun != curFun {
		if curFun.escLocals.IndexOfPtr(decl) < curFun.escLocals.Len() {
			return
		}
		curFun.escLocals.AppendObj(decl, TagRawPtr)
	}

	// The variable comes from an enclosing function
	if decl.fun != curFun {
		if curFun.freeVars.IndexOfPtr(decl) < curFun.freeVars.Len() {
			return
		}
		curFun.freeVars.AppendObj(decl, TagRawPtr)

		threadEscVar(ref, refFun, curFun.parent)
	}
}

// varRes resolves the variable references of an AST subtree.  Nested
// functions get their own resolution pass.
func (vm *VM) varRes(expr Expr, fun *FunExpr) {
	switch node := expr.(type) {
	case *ConstExpr, *Str:
		return

	case *Array:
		for i := uint32(0); i < node.Len(); i++ {
			vm.varRes(node.GetObj(i), fun)
		}

	case *DeclExpr:
		return

	case *RefExpr:
		decl := findDecl(node, fun)
		if decl == nil {
			fatalf("unresolved reference to \"%s\"", node.name.Data())
		}

		node.decl = decl

		if decl.fun == fun {
			// Direct local access
			node.idx = decl.idx
		} else {
			// Mark the variable as escaping and thread it through
			// the nested functions; the reference then addresses
			// this function's free variable list
			decl.esc = true
			threadEscVar(node, fun, fun)

			node.idx = fun.freeVars.IndexOfPtr(decl)
		}

	case *SeqExpr:
		for i := uint32(0); i < node.exprList.Len(); i++ {
			vm.varRes(node.exprList.GetObj(i), fun)
		}

	case *BinOpExpr:
		vm.varRes(node.leftExpr, fun)
		vm.varRes(node.rightExpr, fun)

	case *UnOpExpr:
		vm.varRes(node.expr, fun)

	case *IfExpr:
		vm.varRes(node.testExpr, fun)
		vm.varRes(node.thenExpr, fun)
		vm.varRes(node.elseExpr, fun)

	case *FunExpr:
		vm.VarResPass(node, fun)

	case *CallExpr:
		vm.varRes(node.funExpr, fun)
		for i := uint32(0); i < node.argExprs.Len(); i++ {
			vm.varRes(node.argExprs.GetObj(i), fun)
		}

	case *ObjExpr:
		return

	default:
		fatalf("unsupported node in variable resolution (shapeidx=%d)", GetShape(expr))
	}
}

// VarResPass resolves the variables of a function: declaration
// discovery first (parameters take the low slot indices), then
// reference resolution
func (vm *VM) VarResPass(fun, parent *FunExpr) {
	fun.parent = parent

	// Add the function parameters to the local scope
	for i := uint32(0); i < fun.paramDecls.Len(); i++ {
		vm.findDecls(fun.paramDecls.GetObj(i), fun)
	}

	// Find declarations in the function body
	vm.findDecls(fun.bodyExpr, fun)

	// Resolve variable references
	vm.varRes(fun.bodyExpr, fun)
}
