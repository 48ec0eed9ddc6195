package zeta

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEquals(t *testing.T) {
	vm := NewVM()

	foo := StringValue(vm.GetStr("foo"))
	bar := StringValue(vm.GetStr("bar"))

	mkArr := func(vals ...Value) Value {
		arr := vm.ArrayAlloc(uint32(len(vals)))
		for _, v := range vals {
			arr.Append(v)
		}
		return ArrayValue(arr)
	}

	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"int64 equal", Int64Value(7), Int64Value(7), true},
		{"int64 not equal", Int64Value(7), Int64Value(8), false},
		{"bool equal", True, True, true},
		{"bool not equal", True, False, false},
		{"tag mismatch", True, Int64Value(1), false},
		{"interned strings equal", foo, foo, true},
		{"interned strings not equal", foo, bar, false},
		{"arrays structurally equal", mkArr(Int64Value(1), foo), mkArr(Int64Value(1), foo), true},
		{"arrays different length", mkArr(Int64Value(1)), mkArr(Int64Value(1), Int64Value(2)), false},
		{"arrays different element", mkArr(Int64Value(1)), mkArr(Int64Value(2)), false},
		{"nested arrays equal", mkArr(mkArr(True)), mkArr(mkArr(True)), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ValueEquals(test.a, test.b))
		})
	}
}

func TestValueString(t *testing.T) {
	vm := NewVM()

	arr := vm.ArrayAlloc(2)
	arr.Append(Int64Value(1))
	arr.Append(StringValue(vm.GetStr("hi")))

	assert.Equal(t, "true", True.String())
	assert.Equal(t, "false", False.String())
	assert.Equal(t, "42", Int64Value(42).String())
	assert.Equal(t, "'hi'", StringValue(vm.GetStr("hi")).String())
	assert.Equal(t, "[1, 'hi']", ArrayValue(arr).String())
}

func TestStringInterning(t *testing.T) {
	t.Run("equal sequences share the heap pointer", func(t *testing.T) {
		vm := NewVM()

		for _, s := range []string{"", "a", "foo", "foo_bar", "$print", "日本語"} {
			a := vm.GetStr(s)
			b := vm.GetStr(s)
			require.Same(t, a, b, "string %q", s)
			assert.Equal(t, s, a.Data())
			assert.Equal(t, uint32(len(s)), a.Len())
		}
	})

	t.Run("distinct sequences get distinct pointers", func(t *testing.T) {
		vm := NewVM()

		a := vm.GetStr("foo")
		b := vm.GetStr("bar")
		assert.NotSame(t, a, b)
	})

	t.Run("identity survives table growth", func(t *testing.T) {
		vm := NewVM()

		// Push the table well past its growth threshold
		firstRound := make([]*Str, 0, 16000)
		for i := 0; i < 16000; i++ {
			firstRound = append(firstRound, vm.GetStr(fmt.Sprintf("str-%d", i)))
		}

		for i, s := range firstRound {
			require.Same(t, s, vm.GetStr(fmt.Sprintf("str-%d", i)))
		}
		assert.GreaterOrEqual(t, vm.NumStrings(), uint32(16000))
	})
}

func TestArray(t *testing.T) {
	vm := NewVM()

	t.Run("append and ordered access", func(t *testing.T) {
		arr := vm.ArrayAlloc(2)
		for i := int64(0); i < 10; i++ {
			arr.Append(Int64Value(i))
		}

		require.Equal(t, uint32(10), arr.Len())
		for i := uint32(0); i < 10; i++ {
			assert.Equal(t, int64(i), arr.Get(i).Int)
		}
	})

	t.Run("set appends at the length boundary", func(t *testing.T) {
		arr := vm.ArrayAlloc(0)
		arr.Set(0, Int64Value(7))
		require.Equal(t, uint32(1), arr.Len())
		assert.Equal(t, int64(7), arr.Get(0).Int)
	})

	t.Run("prepend shifts the elements", func(t *testing.T) {
		arr := vm.ArrayAlloc(2)
		arr.Append(Int64Value(2))
		arr.Prepend(Int64Value(1))

		require.Equal(t, uint32(2), arr.Len())
		assert.Equal(t, int64(1), arr.Get(0).Int)
		assert.Equal(t, int64(2), arr.Get(1).Int)
	})

	t.Run("linear search by pointer identity", func(t *testing.T) {
		arr := vm.ArrayAlloc(4)
		s := vm.GetStr("needle")
		arr.Append(Int64Value(0))
		arr.AppendObj(s, TagString)

		assert.Equal(t, uint32(1), arr.IndexOfPtr(s))
		assert.Equal(t, arr.Len(), arr.IndexOfPtr(vm.GetStr("absent")))
	})
}

func TestShapeTable(t *testing.T) {
	vm := NewVM()

	t.Run("every object carries a valid shape index", func(t *testing.T) {
		objs := []Shaped{
			vm.GetStr("s"),
			vm.ArrayAlloc(1),
			vm.cellAlloc(),
			vm.HostFnAlloc(func(t Tag) bool { return false }, "f", "bool(tag)"),
			vm.ObjectAlloc(vm.emptyShape, 0),
		}
		for _, obj := range objs {
			assert.True(t, vm.shapeIsValid(GetShape(obj)))
		}
	})

	t.Run("property definitions extend the shape tree", func(t *testing.T) {
		base := vm.ShapeAllocEmpty()
		name := vm.GetStr("x")

		s1 := vm.DefProp(base, name, TagInt64, AttrDefault, 8)
		require.Same(t, base, s1.Parent())

		// Same definition reuses the child node
		s2 := vm.DefProp(base, name, TagInt64, AttrDefault, 8)
		assert.Same(t, s1, s2)

		// A different attribute set forks a new child
		s3 := vm.DefProp(base, name, TagInt64, AttrReadOnly, 8)
		assert.NotSame(t, s1, s3)
	})
}

func TestHeapAccounting(t *testing.T) {
	t.Run("allocations advance the frontier", func(t *testing.T) {
		vm := NewVM()
		before := vm.HeapUsed()
		vm.GetStr("some fresh string")
		assert.Greater(t, vm.HeapUsed(), before)
	})

	t.Run("exhaustion is fatal", func(t *testing.T) {
		require.PanicsWithError(t, "heap space exhausted (48 bytes allocated)", func() {
			NewVM(WithHeapSize(16))
		})
	})
}
