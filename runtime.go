package zeta

// DefaultGlobalPath is where the runtime library is looked up at
// startup, relative to the working directory
const DefaultGlobalPath = "global.zeta"

// RuntimeInit loads the runtime library and builds the global scope:
// parse the global unit, prepend a `$name = <hostfn>` binding for
// every core API function, capture every top-level variable into a
// synthetic closure, and retain that closure as the VM's global
// scope.  Units evaluated afterwards resolve against it.
func (vm *VM) RuntimeInit(globalPath string) (err error) {
	defer recoverFatal(&err)

	node, err := vm.ParseFile(globalPath)
	if err != nil {
		return err
	}
	unitFun, err := vm.ParseCheckError(node)
	if err != nil {
		return err
	}

	exprs := unitFun.bodyExpr.(*SeqExpr).exprList

	// Prepend the host function bindings to the unit
	hostFns := vm.InitAPICore()
	for i := uint32(0); i < hostFns.Len(); i++ {
		fn := hostFns.GetObj(i).(*HostFn)

		decl := vm.astDeclAlloc(vm.GetStr("$"+fn.name.Data()), true)
		cst := vm.astConstAlloc(HeapValue(fn, TagHostFn))
		assg := vm.astBinOpAlloc(opAssign, decl, cst)
		exprs.Prepend(HeapValue(assg, TagRawPtr))
	}

	// Append the synthetic capture function; evaluating the unit
	// leaves its closure as the unit's value
	captureFun := vm.astFunAlloc(vm.ArrayAlloc(0), vm.astConstAlloc(True))
	exprs.AppendObj(captureFun, TagRawPtr)

	// Resolve all variables in the global unit
	vm.VarResPass(unitFun, nil)

	// The global closure must capture every top-level variable, not
	// just the ones the library itself closes over: user units
	// resolve their free variables against its cell vector
	for i := uint32(0); i < unitFun.localDecls.Len(); i++ {
		decl := unitFun.localDecls.GetObj(i).(*DeclExpr)
		decl.esc = true
		if unitFun.escLocals.IndexOfPtr(decl) == unitFun.escLocals.Len() {
			unitFun.escLocals.AppendObj(decl, TagRawPtr)
		}
		if captureFun.freeVars.IndexOfPtr(decl) == captureFun.freeVars.Len() {
			captureFun.freeVars.AppendObj(decl, TagRawPtr)
		}
	}

	// Run the global unit; its value is the capture closure
	val := vm.evalUnitResolved(unitFun)
	if val.Tag != TagClos {
		fatalf("global unit did not produce a closure")
	}

	vm.globalClos = val.Obj.(*Closure)
	return nil
}
