package zeta

import (
	"fmt"
	"io"
)

// The self-tests mirror the suites behind the CLI's --test flag: VM,
// parser, interpreter and runtime, in dependency order.  The first
// failure stops the run.

// SelfTest runs all built-in self-tests on a fresh VM.  globalPath
// and beerPath locate the runtime library and the end-to-end parse
// target.
func SelfTest(out io.Writer, globalPath, beerPath string) error {
	vm := NewVM(WithStdout(out))

	if err := vm.SelfTestVM(out); err != nil {
		return err
	}
	if err := vm.SelfTestParser(out, beerPath); err != nil {
		return err
	}
	if err := vm.SelfTestInterp(out); err != nil {
		return err
	}

	if err := vm.RuntimeInit(globalPath); err != nil {
		return err
	}
	if err := vm.SelfTestRuntime(out); err != nil {
		return err
	}

	fmt.Fprintf(out, "heap space allocated: %d bytes\n", vm.HeapUsed())
	return nil
}

// SelfTestVM exercises the value model, the interning table and the
// array container
func (vm *VM) SelfTestVM(out io.Writer) error {
	fmt.Fprintln(out, "core VM tests")

	check := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("VM self-test failed: %s", what)
		}
		return nil
	}

	for _, c := range []struct {
		ok   bool
		what string
	}{
		{ValueEquals(Int64Value(7), Int64Value(7)), "int64 equality"},
		{!ValueEquals(Int64Value(7), Int64Value(8)), "int64 inequality"},
		{ValueEquals(True, True), "boolean equality"},
		{!ValueEquals(True, False), "boolean inequality"},
		{!ValueEquals(True, Int64Value(1)), "tag mismatch inequality"},
		{vm.GetStr("foo") == vm.GetStr("foo"), "interned string identity"},
		{vm.GetStr("foo") != vm.GetStr("bar"), "distinct string identity"},
		{ValueEquals(StringValue(vm.GetStr("foo")), StringValue(vm.GetStr("foo"))), "string equality"},
	} {
		if err := check(c.ok, c.what); err != nil {
			return err
		}
	}

	arr := vm.ArrayAlloc(2)
	arr.Append(Int64Value(1))
	arr.Append(Int64Value(2))
	arr.Append(Int64Value(3))
	if err := check(arr.Len() == 3 && arr.Get(2).Int == 3, "array append and read"); err != nil {
		return err
	}

	s := vm.GetStr("quux")
	arr.AppendObj(s, TagString)
	if err := check(arr.IndexOfPtr(s) == 3, "array pointer search"); err != nil {
		return err
	}
	if err := check(arr.IndexOfPtr(vm.GetStr("absent")) == arr.Len(), "array pointer search miss"); err != nil {
		return err
	}

	// Shape tree: defining the same property twice reuses the node
	base := vm.ShapeAllocEmpty()
	name := vm.GetStr("x")
	s1 := vm.DefProp(base, name, TagInt64, AttrDefault, 8)
	s2 := vm.DefProp(base, name, TagInt64, AttrDefault, 8)
	if err := check(s1 == s2 && s1.parent == base, "shape property reuse"); err != nil {
		return err
	}

	return nil
}

func (vm *VM) testParse(out io.Writer, src string) error {
	fmt.Fprintln(out, src)

	unit := vm.ParseString(src, "parser_test")
	if vm.IsError(unit) {
		return fmt.Errorf("failed to parse:\n%q", src)
	}
	return nil
}

func (vm *VM) testParseFail(out io.Writer, src string) error {
	fmt.Fprintln(out, src)

	unit := vm.ParseString(src, "parser_fail_test")
	if !vm.IsError(unit) {
		return fmt.Errorf("parsing did not fail for:\n%q", src)
	}
	return nil
}

// SelfTestParser runs the parser accept/reject corpus and parses the
// end-to-end target file
func (vm *VM) SelfTestParser(out io.Writer, beerPath string) error {
	fmt.Fprintln(out, "core parser tests")

	accept := []string{
		// Identifiers
		"foobar",
		"  foo_bar  ",
		"_foo",
		"$foo",
		"$foo52",

		// Literals
		"123",
		"0xFF",
		"0b101",
		"'abc'",
		"\"double-quoted string!\"",
		"\"double-quoted string, 'hi'!\"",
		"'hi' // comment",
		"'new\\nline'",
		"true",
		"false",

		// Array literals
		"[]",
		"[1]",
		"[1,a]",
		"[1 , a]",
		"[1,a, ]",
		"[ 1,\na ]",

		// Object literals
		":{}",

		// Comments
		"1 // comment",
		"[ 1//comment\n,a ]",
		"1 /* comment */ + x",
		"1 /* // comment */ + x",

		// Arithmetic expressions
		"a + b",
		"a + b + c",
		"a + b - c",
		"a + b * c + d",
		"a or b or c",
		"(a)",
		"(a + b)",
		"(a + (b + c))",
		"((a + b) + c)",
		"(a + b) * (c + d)",

		// Member expression
		"a.b",
		"a.b + c",
		"$runtime.v0.add",
		"$api.file.v2.fopen",

		// Array indexing
		"a[0]",
		"a[b]",
		"a[b+2]",
		"a[2*b+1]",

		// If expression
		"if x then y",
		"if x then y + 1",
		"if x then y else z",
		"if x then a+c else d",
		"if a instanceof b then true",
		"if 'a' in b or 'c' in b then y",
		"if not x then y else z",
		"if x and not x then true else false",
		"if x <= 2 then y else z",
		"if x == 1 then y+z else z+d",
		"if true then y else z",
		"if true or false then y else z",

		// Assignment
		"x = 1",
		"x = -1",
		"a.b = x + y",
		"x = y = 1",
		"var x",
		"var x = 3",
		"let x=3",
		"let x= 3+y",

		// Call expressions
		"a()",
		"a(b)",
		"a(b,c)",
		"a(b,c+1)",
		"a(b,c+1,)",
		"x + a(b,c+1)",
		"x + a(b,c+1) + y",
		"a() b()",

		// Function expression
		"fun () 0",
		"fun (x) x",
		"fun (x,y) x",
		"fun (x,y,) x",
		"fun (x,y) x+y",
		"fun (x,y) if x then y else 0",
		"obj.method = fun (this, x) this.x = x",
		"let f = fun () 0\nf()",

		// Fibonacci
		"let fib = fun (n) if n < 2 then n else fib(n-1) + fib(n-2)",

		// Sequence/block expression
		"{ a b }",
		"fun (x) { println(x) println(y) }",
		"fun (x) { var y = x + 1 print(y) }",
		"if (x) then { println(x) } else { println(y) z }",
	}

	reject := []string{
		"'invalid\\iesc'",
		"'str' []",
		"[,]",
		"1 // comment\n#1",
		"1 /* */ */",
		"*a",
		"a*",
		"a # b",
		"a +",
		"a + b # c",
		"(a",
		"(a + b))",
		"((a + b)",
		"a.'b'",
		"a[]",
		"a[0 1]",
		"if x",
		"if x then",
		"if x then a if",
		"var",
		"let",
		"let x",
		"let x=",
		"var +",
		"var 3",
		"a(b c+1)",
		"fun (x,y)",
		"fun ('x') x",
		"fun (x+y) y",
		"{ a, }",
		"{ a, b }",
		"fun foo () { a, }",
	}

	for _, src := range accept {
		if err := vm.testParse(out, src); err != nil {
			return err
		}
	}
	for _, src := range reject {
		if err := vm.testParseFail(out, src); err != nil {
			return err
		}
	}

	node, err := vm.ParseFile(beerPath)
	if err != nil {
		return err
	}
	if _, err := vm.ParseCheckError(node); err != nil {
		return err
	}

	return nil
}

func (vm *VM) testEval(out io.Writer, src string, expected Value) error {
	fmt.Fprintln(out, src)

	val, err := vm.EvalString(src, "test")
	if err != nil {
		return fmt.Errorf("evaluation failed for input:\n%s\n%w", src, err)
	}
	if !ValueEquals(val, expected) {
		return fmt.Errorf("value doesn't match expected for input:\n%s\ngot value:\n%s", src, val)
	}
	return nil
}

// SelfTestInterp runs the evaluator corpus
func (vm *VM) SelfTestInterp(out io.Writer) error {
	fmt.Fprintln(out, "core interpreter tests")

	intCases := []struct {
		src      string
		expected int64
	}{
		// Literals and constants
		{"0", 0},
		{"1", 1},
		{"7", 7},
		{"0xFF", 255},
		{"0b101", 5},

		// Arithmetic
		{"3 + 2 * 5", 13},
		{"-7", -7},
		{"-(7 + 3)", -10},
		{"3 + -2 * 5", -7},

		// Arrays
		{"[7][0]", 7},
		{"[0,1,2][0]", 0},
		{"[7+3][0]", 10},

		// Sequence expression
		{"{ 2 3 }", 3},
		{"{ 2 3+7 }", 10},
		{"3 7", 7},

		// If expression
		{"if true then 1 else 0", 1},
		{"if false then 1 else 0", 0},
		{"if 0 < 10 then 7 else 3", 7},
		{"if not true then 1 else 0", 0},

		// Variable declarations
		{"var x = 3    x", 3},
		{"let x = 7    x+1", 8},
		{"var x = 3    x = 4       x", 4},
		{"var x = 3    x = x+1     x", 4},
		{"var x = 3    if x != 0 then 1", 1},

		// Closures and function calls
		{"fun () 1                   1", 1},
		{"let f = fun () 1           1", 1},
		{"let f = fun () 7           f()", 7},
		{"let f = fun (n) n          f(8)", 8},
		{"let f = fun (a, b) a - b   f(7, 2)", 5},

		// Unit-level variable captured by a closure
		{"let x = 3    let f = fun () x    1", 1},
		{"let x = 3    let f = fun () x    x = 4", 4},
		{"let x = 3    let f = fun () x    x", 3},

		// Reading and assigning to a captured variable
		{"let a = 3    let f = fun () a    f()", 3},
		{"let a = 3    let f = fun () a=2  f()   a", 2},

		// Recursive function
		{"let fib = fun (n) { if n < 2 then n else fib(n-1) + fib(n-2) } fib(11)", 89},

		// Two levels of nesting
		{"let f = fun () { let x = 7 fun() x }     let g = f()     g()", 7},

		// Capture by inner from outer
		{"let n = 5    let f = fun () { fun() n }     let g = f()     g()", 5},

		// Captured function parameter
		{"let f = fun (n) { fun () n }      let g = f(88)   g()", 88},
	}

	trueCases := []string{
		// Empty unit and empty sequence
		"",
		"{}",

		"true",

		// Comparisons
		"0 < 5",
		"0 <= 5",
		"0 <= 0",
		"0 == 0",
		"0 != 1",
		"not false",
		"not not true",
		"true == true",
		"'foo' == 'foo'",
		"'f' != 'b'",
	}

	falseCases := []string{
		"false",
		"true == false",
		"'foo' == 'bar'",
		"'f' != 'f'",
	}

	for _, c := range intCases {
		if err := vm.testEval(out, c.src, Int64Value(c.expected)); err != nil {
			return err
		}
	}
	for _, src := range trueCases {
		if err := vm.testEval(out, src, True); err != nil {
			return err
		}
	}
	for _, src := range falseCases {
		if err := vm.testEval(out, src, False); err != nil {
			return err
		}
	}

	return nil
}

// SelfTestRuntime checks that the runtime globals are bound and
// usable after RuntimeInit
func (vm *VM) SelfTestRuntime(out io.Writer) error {
	fmt.Fprintln(out, "core runtime tests")

	for _, src := range []string{
		"print != false",
		"println != false",
		"assert != false",
		"assert (true, '')   true",
	} {
		if err := vm.testEval(out, src, True); err != nil {
			return err
		}
	}

	return nil
}
