package zeta

import "github.com/dchest/siphash"

// String table parameters
const (
	strTblInitSize   = 16384
	strTblMaxLoadNum = 3
	strTblMaxLoadDen = 5
)

// SipHash keys for string hashing.  Identity of interned strings only
// has to hold within one VM, so fixed keys are fine.
const (
	strHashK0 = 0
	strHashK1 = 1
)

// Str is an immutable UTF-8 string heap object with a precomputed
// hash and explicit length.  Strings handed out by the VM are
// interned: equal character sequences map to the same pointer, so
// identity comparison is equality.
type Str struct {
	shape Shapeidx

	// String hash
	hash uint32

	// Character data
	data string
}

func (s *Str) Shape() Shapeidx { return s.shape }

// Len returns the string length in bytes
func (s *Str) Len() uint32 { return uint32(len(s.data)) }

// Hash returns the precomputed string hash
func (s *Str) Hash() uint32 { return s.hash }

// Data returns the character data
func (s *Str) Data() string { return s.data }

func (s *Str) String() string { return s.data }

func hashString(data string) uint32 {
	return uint32(siphash.Hash(strHashK0, strHashK1, []byte(data)))
}

// stringAlloc allocates a new, not yet interned string object
func (vm *VM) stringAlloc(data string) *Str {
	vm.heap.alloc(strHdrSize+uint32(len(data))+1, vm.stringShape.idx)
	return &Str{
		shape: vm.stringShape.idx,
		hash:  hashString(data),
		data:  data,
	}
}

// GetTblStr looks up the candidate string in the interning table,
// comparing hash, length and bytes, and inserts it on a miss.  The
// returned pointer is the canonical object for that character
// sequence.
func (vm *VM) GetTblStr(str *Str) *Str {
	// Power-of-two capacity, hash used as the starting slot
	idx := str.hash & uint32(len(vm.strTbl)-1)

	for {
		entry := vm.strTbl[idx]

		// Open slot: the string is not yet interned
		if entry == nil {
			break
		}

		if entry.hash == str.hash &&
			entry.Len() == str.Len() &&
			entry.data == str.data {
			return entry
		}

		idx = (idx + 1) & uint32(len(vm.strTbl)-1)
	}

	vm.strTbl[idx] = str
	vm.numStrings++

	// Grow the table when the load factor gets too high
	if vm.numStrings*strTblMaxLoadDen >= uint32(len(vm.strTbl))*strTblMaxLoadNum {
		vm.growStrTbl()
	}

	return str
}

// GetStr allocates a string from a native Go string and interns it
func (vm *VM) GetStr(data string) *Str {
	return vm.GetTblStr(vm.stringAlloc(data))
}

// growStrTbl rehashes every interned string into a table of the next
// power of two.  The table grows but never shrinks.
func (vm *VM) growStrTbl() {
	oldTbl := vm.strTbl
	vm.strTbl = make([]*Str, 2*len(oldTbl))

	for _, entry := range oldTbl {
		if entry == nil {
			continue
		}

		idx := entry.hash & uint32(len(vm.strTbl)-1)
		for vm.strTbl[idx] != nil {
			idx = (idx + 1) & uint32(len(vm.strTbl)-1)
		}
		vm.strTbl[idx] = entry
	}
}
