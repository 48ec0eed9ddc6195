package zeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalSrc evaluates src on a fresh frame and requires success
func evalSrc(t *testing.T, vm *VM, src string) Value {
	t.Helper()
	val, err := vm.EvalString(src, "test")
	require.NoError(t, err, "source: %q", src)
	return val
}

func TestEvalScenarios(t *testing.T) {
	vm := NewVM()

	tests := []struct {
		name     string
		src      string
		expected Value
	}{
		{"precedence", "3 + 2 * 5", Int64Value(13)},
		{"mutation", "var x = 3   x = x + 1   x", Int64Value(4)},
		{
			"recursive fibonacci",
			"let fib = fun (n) { if n < 2 then n else fib(n-1) + fib(n-2) }  fib(11)",
			Int64Value(89),
		},
		{
			"closure writes back",
			"let a = 3    let f = fun () a=2  f()   a",
			Int64Value(2),
		},
		{
			"parameter captured",
			"let f = fun (n) { fun () n }      let g = f(88)   g()",
			Int64Value(88),
		},
		{"interned equality", "'foo' == 'foo'", True},
		{"interned inequality", "'foo' == 'bar'", False},

		{"negation", "-(7 + 3)", Int64Value(-10)},
		{"division", "7 / 2", Int64Value(3)},
		{"modulo", "7 mod 2", Int64Value(1)},
		{"bitwise and", "0xF0 & 0xFF", Int64Value(0xF0)},
		{"bitwise or", "0xF0 | 0x0F", Int64Value(0xFF)},
		{"bitwise xor", "0xFF ^ 0x0F", Int64Value(0xF0)},
		{"short-circuit and", "false and 1", False},
		{"short-circuit or", "true or 1", True},
		{"and both true", "true and true", True},
		{"not", "not false", True},

		{"array literal indexing", "[7+3, 2][0]", Int64Value(10)},
		{"array structural equality", "[1, [2]] == [1, [2]]", True},
		{"array inequality", "[1, 2] == [1, 3]", False},

		{"empty block", "{}", True},
		{"empty source", "", True},
		{"block value", "{ 2 3+7 }", Int64Value(10)},
		{"if else", "if 0 < 10 then 7 else 3", Int64Value(7)},

		{"two-level nesting", "let f = fun () { let x = 7 fun() x }     let g = f()     g()", Int64Value(7)},
		{"shared cell between closures",
			"var c = 0   let inc = fun () c = c + 1   let get = fun () c   inc() inc()   get()",
			Int64Value(2)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			val := evalSrc(t, vm, test.src)
			assert.True(t, ValueEquals(val, test.expected),
				"got %s, expected %s", val, test.expected)
		})
	}
}

func TestEvalConstantRoundTrip(t *testing.T) {
	vm := NewVM()

	// Parse-then-evaluate is the identity on constants
	for _, c := range []struct {
		src      string
		expected Value
	}{
		{"0", Int64Value(0)},
		{"1", Int64Value(1)},
		{"42", Int64Value(42)},
		{"-7", Int64Value(-7)},
		{"0xFF", Int64Value(0xFF)},
		{"true", True},
		{"false", False},
		{"'foo'", StringValue(vm.GetStr("foo"))},
		{"''", StringValue(vm.GetStr(""))},
	} {
		t.Run(c.src, func(t *testing.T) {
			assert.True(t, ValueEquals(evalSrc(t, vm, c.src), c.expected))
		})
	}

	assert.True(t, ValueEquals(evalSrc(t, vm, "1234"), Int64Value(1234)))
	assert.True(t, ValueEquals(evalSrc(t, vm, "true"), True))
	assert.Same(t, vm.GetStr("foo"), evalSrc(t, vm, "'foo'").Obj)
}

func TestEvalFatalErrors(t *testing.T) {
	vm := NewVM()

	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"non-boolean test", "if 1 then 2", "cannot use int64 value as boolean"},
		{"non-boolean not", "not 1", "cannot use int64 value as boolean"},
		{"string as boolean", "if 'yes' then 1", "cannot use string value as boolean"},
		{"division by zero", "1 / 0", "division by zero"},
		{"modulo by zero", "1 mod 0", "modulo by zero"},
		{"index out of range", "[1, 2][5]", "array index out of range (5, len 2)"},
		{"negative index", "[1][-1]", "array index out of range (-1, len 1)"},
		{"indexing a non-array", "3[0]", "indexing a int64 value"},
		{"non-integer index", "[1]['x']", "array index must be an integer, got string"},
		{"arity mismatch", "let f = fun (x) x   f(1, 2)", "argument count mismatch (2 given, 1 expected)"},
		{"call of non-callable", "3()", "invalid callee in function call (int64 value)"},
		{"unresolved identifier", "nowhere", `unresolved reference to "nowhere"`},
		{"arithmetic on strings", "'a' + 'b'", "operator '+' on string and string values"},
		{"member access unimplemented", "[1].length", "operator '.' on array and string values"},
		{"negating a boolean", "-true", "unary '-' on bool value"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := vm.EvalString(test.src, "test")
			require.Error(t, err)

			var fatal *FatalError
			require.ErrorAs(t, err, &fatal)
			assert.Equal(t, test.message, fatal.Message)
		})
	}
}

func TestEvalSyntaxErrorsAreReturned(t *testing.T) {
	vm := NewVM()

	_, err := vm.EvalString("a +", "test")
	require.Error(t, err)

	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestEvalClosureSemantics(t *testing.T) {
	vm := NewVM()

	t.Run("captures are by reference", func(t *testing.T) {
		// The closure observes the assignment made after it was
		// constructed
		val := evalSrc(t, vm, "var x = 1   let f = fun () x   x = 9   f()")
		assert.True(t, ValueEquals(val, Int64Value(9)))
	})

	t.Run("each call gets fresh cells", func(t *testing.T) {
		val := evalSrc(t, vm,
			"let mk = fun (n) { fun () n = n + 1 }   let a = mk(0)   let b = mk(10)   a() a() b()")
		assert.True(t, ValueEquals(val, Int64Value(11)))
	})

	t.Run("unit value can be a closure", func(t *testing.T) {
		val := evalSrc(t, vm, "fun () 7")
		require.Equal(t, TagClos, val.Tag)

		clos := val.Obj.(*Closure)
		assert.Equal(t, uint32(0), clos.Fun().NumParams())
	})
}
