package zeta

// Object is the embryonic prototype object: a shape index describing
// the layout of the payload bytes, a storage capacity, and an
// extension object used once the capacity is exceeded.
type Object struct {
	shape Shapeidx

	// Storage/payload capacity in bytes
	cap uint32

	// Object extension, used if capacity exceeded
	ext *Object

	payload []byte
}

func (o *Object) Shape() Shapeidx { return o.shape }

// Cap returns the payload capacity in bytes
func (o *Object) Cap() uint32 { return o.cap }

// ObjectAlloc allocates an object of the given shape with at least
// the minimum guaranteed capacity
func (vm *VM) ObjectAlloc(shape *Shape, cap uint32) *Object {
	if cap < ObjMinCap {
		cap = ObjMinCap
	}
	vm.heap.alloc(objHdrSize+cap, shape.idx)
	return &Object{
		shape:   shape.idx,
		cap:     cap,
		payload: make([]byte, cap),
	}
}
