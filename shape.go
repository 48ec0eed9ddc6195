package zeta

// Shapeidx indexes the per-VM shape table.  It occupies the first
// field of every heap object.
type Shapeidx uint32

// Shaped is implemented by every heap object; it exposes the shape
// index stamped into the object at allocation time.
type Shaped interface {
	Shape() Shapeidx
}

// Property and object attribute flags
const (
	// Constant property value
	AttrCstVal = 1 << 0

	// Read-only property
	AttrReadOnly = 1 << 1

	// Frozen object: shape cannot change, read-only, no new properties
	AttrObjFrozen = 1 << 2

	// Fixed layout: shape cannot change, no capacity or type tags
	AttrFixedLayout = 1 << 3

	AttrDefault = 0
)

// Shape is a layout descriptor node.  Property additions form a tree
// rooted at the empty shape: each node adds one named property at a
// byte offset within the object payload.
type Shape struct {
	shape Shapeidx

	// Index of this node in the shape table
	idx Shapeidx

	// Parent shape node, nil for roots
	parent *Shape

	// Property name, nil for opaque (empty) shapes
	propName *Str

	// Constant property word, if known constant
	cstWord int64

	// Offset in bytes for this property
	offset uint32

	// Property and object attributes
	attrs uint8

	// Property/field size in bytes
	fieldSize uint8

	// Property type tag, always encoded in the shape
	propTag Tag

	// Child shapes
	children []*Shape
}

func (s *Shape) Shape() Shapeidx { return s.shape }

// Idx returns the index of this shape node in the shape table
func (s *Shape) Idx() Shapeidx { return s.idx }

// Parent returns the parent shape node, nil for roots
func (s *Shape) Parent() *Shape { return s.parent }

// PropName returns the property name, nil for empty shapes
func (s *Shape) PropName() *Str { return s.propName }

// GetShape reads the shape index of a heap object
func GetShape(obj Shaped) Shapeidx {
	return obj.Shape()
}

// ShapeAlloc appends a new shape descriptor to the shape table.  The
// new node describes the addition of one property of the given tag
// and field size on top of parent.
func (vm *VM) ShapeAlloc(parent *Shape, propName *Str, propTag Tag, fieldSize uint8, attrs uint8) *Shape {
	s := &Shape{
		parent:    parent,
		propName:  propName,
		propTag:   propTag,
		fieldSize: fieldSize,
		attrs:     attrs,
	}

	if parent != nil {
		s.shape = parent.shape
		s.offset = parent.offset + uint32(parent.fieldSize)
		parent.children = append(parent.children, s)
	}

	s.idx = Shapeidx(len(vm.shapes))
	vm.shapes = append(vm.shapes, s)
	vm.heap.alloc(shapeObjSize, s.idx)

	return s
}

// ShapeAllocEmpty produces an opaque shape used as a pure type-kind tag
func (vm *VM) ShapeAllocEmpty() *Shape {
	return vm.ShapeAlloc(nil, nil, TagObject, 0, AttrDefault)
}

// DefProp extends a shape with a named property, reusing an existing
// child node when the same property was defined before
func (vm *VM) DefProp(s *Shape, propName *Str, tag Tag, attrs uint8, fieldSize uint8) *Shape {
	for _, child := range s.children {
		if child.propName == propName && child.propTag == tag && child.attrs == attrs {
			return child
		}
	}
	return vm.ShapeAlloc(s, propName, tag, fieldSize, attrs)
}

// shapeIsValid tells whether idx is a live entry of the shape table
func (vm *VM) shapeIsValid(idx Shapeidx) bool {
	return int(idx) < len(vm.shapes)
}
