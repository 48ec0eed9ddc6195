package zeta

// Array is the dynamically grown list heap object underlying runtime
// lists.  Element storage is reached through the slice header, which
// swings to a new table on reallocation without moving the array
// object itself.
type Array struct {
	shape Shapeidx

	elems []Value
}

func (a *Array) Shape() Shapeidx { return a.shape }

// Len returns the number of elements
func (a *Array) Len() uint32 { return uint32(len(a.elems)) }

// Cap returns the allocated capacity
func (a *Array) Cap() uint32 { return uint32(cap(a.elems)) }

// ArrayAlloc allocates an array with the given initial capacity
func (vm *VM) ArrayAlloc(cap uint32) *Array {
	vm.heap.alloc(arrayHdrSize+cap*16, vm.arrayShape.idx)
	return &Array{
		shape: vm.arrayShape.idx,
		elems: make([]Value, 0, cap),
	}
}

// Get reads the element at idx; out-of-range access is fatal
func (a *Array) Get(idx uint32) Value {
	if idx >= a.Len() {
		fatalf("array index out of range (%d, len %d)", idx, a.Len())
	}
	return a.elems[idx]
}

// Set writes the element at idx, appending when idx equals the
// current length
func (a *Array) Set(idx uint32, val Value) {
	switch {
	case idx < a.Len():
		a.elems[idx] = val
	case idx == a.Len():
		a.elems = append(a.elems, val)
	default:
		fatalf("array write out of range (%d, len %d)", idx, a.Len())
	}
}

// Append adds a value at the end of the array
func (a *Array) Append(val Value) {
	a.elems = append(a.elems, val)
}

// AppendObj adds a heap object at the end of the array
func (a *Array) AppendObj(obj Shaped, tag Tag) {
	a.Append(HeapValue(obj, tag))
}

// Prepend inserts a value at the front of the array
func (a *Array) Prepend(val Value) {
	a.elems = append([]Value{val}, a.elems...)
}

// GetObj reads the heap object stored at idx
func (a *Array) GetObj(idx uint32) Shaped {
	return a.Get(idx).Obj
}

// IndexOfPtr finds the position of a heap object by pointer identity,
// returning the array length when absent
func (a *Array) IndexOfPtr(obj Shaped) uint32 {
	for i, v := range a.elems {
		if v.Obj == obj {
			return uint32(i)
		}
	}
	return a.Len()
}
