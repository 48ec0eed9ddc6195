package zeta

import (
	"fmt"
	"strings"
)

// Tag identifies the runtime type of a Value.
type Tag uint8

const (
	TagBool Tag = iota
	TagInt64
	TagFloat64
	TagString
	TagArray
	TagRawPtr
	TagObject
	TagClos
	TagHostFn
)

var tagNames = map[Tag]string{
	TagBool:    "bool",
	TagInt64:   "int64",
	TagFloat64: "float64",
	TagString:  "string",
	TagArray:   "array",
	TagRawPtr:  "rawptr",
	TagObject:  "object",
	TagClos:    "closure",
	TagHostFn:  "hostfn",
}

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Value is a tagged value pair.  The word is split between an integer
// half (booleans, int64s) and an object half (heap objects); only one
// of the two is meaningful for a given tag.
type Value struct {
	Tag Tag
	Int int64
	Obj Shaped
}

// The only boolean values
var (
	False = Value{Tag: TagBool, Int: 0}
	True  = Value{Tag: TagBool, Int: 1}
)

// Int64Value wraps a 64-bit signed integer
func Int64Value(v int64) Value {
	return Value{Tag: TagInt64, Int: v}
}

// BoolValue maps a native bool onto True/False
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// HeapValue wraps a heap object pointer under the given tag
func HeapValue(obj Shaped, tag Tag) Value {
	return Value{Tag: tag, Obj: obj}
}

// StringValue wraps an interned string object
func StringValue(s *Str) Value {
	return Value{Tag: TagString, Obj: s}
}

// ArrayValue wraps an array object
func ArrayValue(a *Array) Value {
	return Value{Tag: TagArray, Obj: a}
}

// ValueEquals compares two values: equal tags, and either primitive
// word equality, interned-string identity, or structural recursion
// for arrays.
func ValueEquals(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}

	switch a.Tag {
	case TagBool, TagInt64, TagFloat64:
		return a.Int == b.Int

	case TagString:
		// interned strings: identity is equality
		return a.Obj == b.Obj

	case TagArray:
		x := a.Obj.(*Array)
		y := b.Obj.(*Array)
		if x.Len() != y.Len() {
			return false
		}
		for i := uint32(0); i < x.Len(); i++ {
			if !ValueEquals(x.Get(i), y.Get(i)) {
				return false
			}
		}
		return true

	default:
		return a.Obj == b.Obj
	}
}

// String renders a value the way the REPL prints it
func (v Value) String() string {
	switch v.Tag {
	case TagBool:
		if v.Int != 0 {
			return "true"
		}
		return "false"

	case TagInt64:
		return fmt.Sprintf("%d", v.Int)

	case TagString:
		return "'" + v.Obj.(*Str).Data() + "'"

	case TagArray:
		arr := v.Obj.(*Array)
		var s strings.Builder
		s.WriteRune('[')
		for i := uint32(0); i < arr.Len(); i++ {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(arr.Get(i).String())
		}
		s.WriteRune(']')
		return s.String()

	case TagClos:
		return "<closure>"

	case TagHostFn:
		return "<hostfn " + v.Obj.(*HostFn).Name().Data() + ">"

	default:
		return "<" + v.Tag.String() + ">"
	}
}
