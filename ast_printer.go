package zeta

import (
	"fmt"
	"strings"
)

// PrettyString renders an AST subtree as an indented tree, one node
// per line
func (vm *VM) PrettyString(expr Expr) string {
	tp := &treePrinter{output: &strings.Builder{}}
	tp.visit(vm, expr)
	return tp.output.String()
}

type treePrinter struct {
	padStr []string
	output *strings.Builder
}

func (tp *treePrinter) indent(s string) {
	tp.padStr = append(tp.padStr, s)
}

func (tp *treePrinter) unindent() {
	tp.padStr = tp.padStr[:len(tp.padStr)-1]
}

func (tp *treePrinter) write(s string) {
	tp.output.WriteString(s)
}

func (tp *treePrinter) writel(s string) {
	tp.write(s)
	tp.output.WriteRune('\n')
}

func (tp *treePrinter) pwrite(s string) {
	for _, item := range tp.padStr {
		tp.write(item)
	}
	tp.write(s)
}

var literalSanitizer = strings.NewReplacer(
	`'`, `\'`,
	`\`, `\\`,
	string('\n'), `\n`,
	string('\r'), `\r`,
	string('\t'), `\t`,
)

// visitChildren prints each child on its own branch, the last one
// closing the box drawing
func (tp *treePrinter) visitChildren(vm *VM, children []Expr) {
	for i, child := range children {
		if i == len(children)-1 {
			tp.pwrite("└── ")
			tp.indent("    ")
		} else {
			tp.pwrite("├── ")
			tp.indent("│   ")
		}
		tp.visit(vm, child)
		tp.unindent()
	}
}

func exprListChildren(list *Array) []Expr {
	children := make([]Expr, 0, list.Len())
	for i := uint32(0); i < list.Len(); i++ {
		children = append(children, list.GetObj(i))
	}
	return children
}

func (tp *treePrinter) visit(vm *VM, expr Expr) {
	switch node := expr.(type) {
	case *ErrorNode:
		tp.writel(fmt.Sprintf("Error<%s> (%s)", node.Message(), node.Pos()))

	case *ConstExpr:
		tp.writel(fmt.Sprintf("Const[%s]", node.val))

	case *Str:
		tp.writel("String['" + literalSanitizer.Replace(node.Data()) + "']")

	case *Array:
		tp.writel(fmt.Sprintf("Array<%d>", node.Len()))
		tp.visitChildren(vm, exprListChildren(node))

	case *RefExpr:
		tp.writel("Ref[" + node.name.Data() + "]")

	case *DeclExpr:
		kw := "var"
		if node.cst {
			kw = "let"
		}
		tp.writel("Decl[" + kw + " " + node.name.Data() + "]")

	case *UnOpExpr:
		tp.writel("UnOp[" + node.op.str + "]")
		tp.visitChildren(vm, []Expr{node.expr})

	case *BinOpExpr:
		tp.writel("BinOp[" + node.op.str + "]")
		tp.visitChildren(vm, []Expr{node.leftExpr, node.rightExpr})

	case *SeqExpr:
		tp.writel(fmt.Sprintf("Seq<%d>", node.exprList.Len()))
		tp.visitChildren(vm, exprListChildren(node.exprList))

	case *IfExpr:
		tp.writel("If")
		tp.visitChildren(vm, []Expr{node.testExpr, node.thenExpr, node.elseExpr})

	case *CallExpr:
		tp.writel(fmt.Sprintf("Call<%d>", node.argExprs.Len()))
		tp.visitChildren(vm, append([]Expr{node.funExpr}, exprListChildren(node.argExprs)...))

	case *FunExpr:
		params := make([]string, 0, node.paramDecls.Len())
		for i := uint32(0); i < node.paramDecls.Len(); i++ {
			params = append(params, node.paramDecls.GetObj(i).(*DeclExpr).name.Data())
		}
		tp.writel("Fun(" + strings.Join(params, ", ") + ")")
		tp.visitChildren(vm, []Expr{node.bodyExpr})

	case *ObjExpr:
		tp.writel("Obj")

	default:
		tp.writel(fmt.Sprintf("Unknown(shapeidx=%d)", GetShape(expr)))
	}
}
