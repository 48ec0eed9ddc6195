package zeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolveUnit parses and resolves src as a unit with no parent scope
func resolveUnit(t *testing.T, vm *VM, src string) *FunExpr {
	t.Helper()
	unit := parseUnit(t, vm, src)
	vm.VarResPass(unit, nil)
	return unit
}

// collectFuns gathers every function node reachable from fun,
// including fun itself
func collectFuns(expr Expr, out *[]*FunExpr) {
	switch node := expr.(type) {
	case *FunExpr:
		*out = append(*out, node)
		collectFuns(node.bodyExpr, out)
	case *SeqExpr:
		for i := uint32(0); i < node.exprList.Len(); i++ {
			collectFuns(node.exprList.GetObj(i), out)
		}
	case *Array:
		for i := uint32(0); i < node.Len(); i++ {
			collectFuns(node.GetObj(i), out)
		}
	case *BinOpExpr:
		collectFuns(node.leftExpr, out)
		collectFuns(node.rightExpr, out)
	case *UnOpExpr:
		collectFuns(node.expr, out)
	case *IfExpr:
		collectFuns(node.testExpr, out)
		collectFuns(node.thenExpr, out)
		collectFuns(node.elseExpr, out)
	case *CallExpr:
		collectFuns(node.funExpr, out)
		for i := uint32(0); i < node.argExprs.Len(); i++ {
			collectFuns(node.argExprs.GetObj(i), out)
		}
	}
}

// collectRefs gathers every reference node reachable from expr
func collectRefs(expr Expr, out *[]*RefExpr) {
	switch node := expr.(type) {
	case *RefExpr:
		*out = append(*out, node)
	case *FunExpr:
		collectRefs(node.bodyExpr, out)
	case *SeqExpr:
		for i := uint32(0); i < node.exprList.Len(); i++ {
			collectRefs(node.exprList.GetObj(i), out)
		}
	case *Array:
		for i := uint32(0); i < node.Len(); i++ {
			collectRefs(node.GetObj(i), out)
		}
	case *BinOpExpr:
		collectRefs(node.leftExpr, out)
		collectRefs(node.rightExpr, out)
	case *UnOpExpr:
		collectRefs(node.expr, out)
	case *IfExpr:
		collectRefs(node.testExpr, out)
		collectRefs(node.thenExpr, out)
		collectRefs(node.elseExpr, out)
	case *CallExpr:
		collectRefs(node.funExpr, out)
		for i := uint32(0); i < node.argExprs.Len(); i++ {
			collectRefs(node.argExprs.GetObj(i), out)
		}
	}
}

// checkResolutionInvariants asserts the postconditions of the two
// resolver passes over every reachable function
func checkResolutionInvariants(t *testing.T, unit *FunExpr) {
	t.Helper()

	var funs []*FunExpr
	collectFuns(unit, &funs)

	for _, fun := range funs {
		// Local slot indices address their own declarations
		for i := uint32(0); i < fun.localDecls.Len(); i++ {
			decl := fun.localDecls.GetObj(i).(*DeclExpr)
			require.Less(t, decl.idx, fun.localDecls.Len())
			require.Same(t, decl, fun.localDecls.GetObj(decl.idx))
			require.Same(t, fun, decl.fun)
		}

		// Escaping locals are locals of exactly this function
		for i := uint32(0); i < fun.escLocals.Len(); i++ {
			decl := fun.escLocals.GetObj(i).(*DeclExpr)
			require.True(t, decl.esc)
			require.Same(t, fun, decl.fun)

			owners := 0
			for _, other := range funs {
				if other.escLocals.IndexOfPtr(decl) < other.escLocals.Len() {
					owners++
				}
			}
			require.Equal(t, 1, owners, "escaping decl %s", decl.name.Data())
		}

		// Free variables resolve transitively through the parents
		for i := uint32(0); i < fun.freeVars.Len(); i++ {
			decl := fun.freeVars.GetObj(i).(*DeclExpr)
			found := false
			for p := fun.parent; p != nil; p = p.parent {
				if p.localDecls.IndexOfPtr(decl) < p.localDecls.Len() {
					found = true
					break
				}
				if p.freeVars.IndexOfPtr(decl) == p.freeVars.Len() {
					break
				}
			}
			require.True(t, found, "free variable %s", decl.name.Data())
		}
	}

	// Every reference reachable from the unit is resolved
	var refs []*RefExpr
	collectRefs(unit, &refs)
	for _, ref := range refs {
		require.NotNil(t, ref.Decl(), "reference %s", ref.name.Data())
	}
}

func TestResolver(t *testing.T) {
	vm := NewVM()

	sources := []string{
		"var x = 3   x = x + 1   x",
		"let a = 3    let f = fun () a=2  f()   a",
		"let fib = fun (n) { if n < 2 then n else fib(n-1) + fib(n-2) }  fib(11)",
		"let f = fun (n) { fun () n }      let g = f(88)   g()",
		"let n = 5    let f = fun () { fun() n }     let g = f()     g()",
		"let x = 1 let y = 2 let f = fun (a) { fun (b) { a + b + x + y } }",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			unit := resolveUnit(t, vm, src)
			checkResolutionInvariants(t, unit)
		})
	}
}

func TestResolverClassification(t *testing.T) {
	vm := NewVM()

	t.Run("plain local stays on the stack", func(t *testing.T) {
		unit := resolveUnit(t, vm, "var x = 3   x")
		require.Equal(t, uint32(1), unit.localDecls.Len())

		decl := unit.localDecls.GetObj(0).(*DeclExpr)
		assert.False(t, decl.esc)
		assert.Equal(t, uint32(0), unit.escLocals.Len())
	})

	t.Run("captured local escapes", func(t *testing.T) {
		unit := resolveUnit(t, vm, "let a = 3    let f = fun () a")
		a := unit.localDecls.GetObj(0).(*DeclExpr)
		require.Equal(t, "a", a.name.Data())

		assert.True(t, a.esc)
		assert.Equal(t, uint32(0), unit.escLocals.IndexOfPtr(a))

		var funs []*FunExpr
		collectFuns(unit, &funs)
		require.Len(t, funs, 2)
		nested := funs[1]
		assert.Equal(t, uint32(0), nested.freeVars.IndexOfPtr(a))
	})

	t.Run("capture threads through intermediate functions", func(t *testing.T) {
		unit := resolveUnit(t, vm, "let n = 5    let f = fun () { fun() n }")

		var funs []*FunExpr
		collectFuns(unit, &funs)
		require.Len(t, funs, 3)

		n := unit.localDecls.GetObj(0).(*DeclExpr)
		outer, inner := funs[1], funs[2]

		// Both the intermediate and the innermost function list n
		// as a free variable; only the unit owns it as escaping
		assert.Less(t, outer.freeVars.IndexOfPtr(n), outer.freeVars.Len())
		assert.Less(t, inner.freeVars.IndexOfPtr(n), inner.freeVars.Len())
		assert.Less(t, unit.escLocals.IndexOfPtr(n), unit.escLocals.Len())
		assert.Equal(t, outer.escLocals.Len(), outer.escLocals.IndexOfPtr(n))
	})

	t.Run("parameters take the low slot indices", func(t *testing.T) {
		unit := resolveUnit(t, vm, "let f = fun (a, b) { var c = 1 a + b + c }")

		var funs []*FunExpr
		collectFuns(unit, &funs)
		require.Len(t, funs, 2)
		f := funs[1]

		require.Equal(t, uint32(3), f.localDecls.Len())
		assert.Equal(t, "a", f.localDecls.GetObj(0).(*DeclExpr).name.Data())
		assert.Equal(t, "b", f.localDecls.GetObj(1).(*DeclExpr).name.Data())
		assert.Equal(t, "c", f.localDecls.GetObj(2).(*DeclExpr).name.Data())
	})

	t.Run("same-name redeclaration reuses the slot", func(t *testing.T) {
		unit := resolveUnit(t, vm, "var x = 1   var x = 2   x")
		assert.Equal(t, uint32(1), unit.localDecls.Len())
	})

	t.Run("unresolved reference is fatal", func(t *testing.T) {
		unit := parseUnit(t, vm, "nowhere + 1")
		require.PanicsWithError(t, `unresolved reference to "nowhere"`, func() {
			vm.VarResPass(unit, nil)
		})
	})
}
