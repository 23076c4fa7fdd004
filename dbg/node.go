package dbg

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mudesheng/dbgasm/bnt"
	"github.com/pkg/errors"
)

type NodeID uint32

type Side uint8

const (
	Left Side = iota
	Right
)

var Sides = [2]Side{Left, Right}

func (s Side) Opposite() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// ReverseSide gives the side of the neighbour that holds the entry pointing
// back for an extension found on side s
func ReverseSide(s Side, sameOrientation bool) Side {
	if sameOrientation {
		return s.Opposite()
	}
	return s
}

// Extension is an edge to a neighbour, SameOrientation is false when the
// neighbour is read as its reverse complement
type Extension struct {
	ID              NodeID
	SameOrientation bool
}

// at most BaseTypeNum extensions on a side, bit i of the invalid mask is left
// entry i and bit maxExtPerSide+i is right entry i
const maxExtPerSide = 8

const (
	flagMarked uint32 = 1 << iota
	flagDeleted
	flagVisited
)

type Node struct {
	ID    NodeID
	Kmer  uint64
	Count uint32

	mu      sync.Mutex
	ext     [2][]Extension
	invalid atomic.Uint32
	flag    atomic.Uint32
}

func (n *Node) String() string {
	return fmt.Sprintf("ID:%d Kmer:%x Count:%d Left:%v Right:%v", n.ID, n.Kmer, n.Count, n.ext[Left], n.ext[Right])
}

// Compare orders nodes by k-mer, ties broken by ID
func (n *Node) Compare(o *Node) int {
	switch {
	case n.Kmer > o.Kmer:
		return 1
	case n.Kmer < o.Kmer:
		return -1
	case n.ID > o.ID:
		return 1
	case n.ID < o.ID:
		return -1
	}
	return 0
}

func (n *Node) IsPalindrome(kmerlen int) bool {
	return bnt.IsPalindrome(n.Kmer, kmerlen)
}

// Extensions returns the raw slice, callers must not modify it
func (n *Node) Extensions(s Side) []Extension { return n.ext[s] }
func (n *Node) LeftExtensions() []Extension  { return n.ext[Left] }
func (n *Node) RightExtensions() []Extension { return n.ext[Right] }

func (n *Node) ExtensionCount(s Side) int { return len(n.ext[s]) }
func (n *Node) LeftExtensionCount() int   { return len(n.ext[Left]) }
func (n *Node) RightExtensionCount() int  { return len(n.ext[Right]) }
func (n *Node) ExtensionsCount() int      { return len(n.ext[Left]) + len(n.ext[Right]) }

func (n *Node) HasExtension(s Side, id NodeID) bool {
	for _, e := range n.ext[s] {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (n *Node) AddExtension(s Side, id NodeID, same bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.ext[s] {
		if e.ID == id && e.SameOrientation == same {
			return nil
		}
	}
	if len(n.ext[s]) >= bnt.BaseTypeNum {
		return errors.Errorf("node %d already has %d %s extensions", n.ID, len(n.ext[s]), s)
	}
	n.ext[s] = append(n.ext[s], Extension{ID: id, SameOrientation: same})
	return nil
}

// RemoveExtension drops every entry pointing at id on both sides and
// returns how many were removed
func (n *Node) RemoveExtension(id NodeID) int {
	return n.removeExtensionsIf(func(e Extension) bool { return e.ID == id })
}

func (n *Node) removeExtensionsIf(drop func(Extension) bool) (removed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range Sides {
		kept := n.ext[s][:0]
		for _, e := range n.ext[s] {
			if drop(e) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		n.ext[s] = kept
	}
	return removed
}

func invalidBit(s Side, idx int) uint32 {
	return 1 << (uint(s)*maxExtPerSide + uint(idx))
}

func (n *Node) MarkExtensionInvalid(s Side, idx int) {
	bit := invalidBit(s, idx)
	for {
		old := n.invalid.Load()
		if old&bit != 0 || n.invalid.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

func (n *Node) IsExtensionValid(s Side, idx int) bool {
	return n.invalid.Load()&invalidBit(s, idx) == 0
}

func (n *Node) ResetInvalidExtensions() {
	n.invalid.Store(0)
}

func (n *Node) ValidExtensions(s Side) []Extension {
	mask := n.invalid.Load()
	if mask == 0 {
		return n.ext[s]
	}
	var valid []Extension
	for i, e := range n.ext[s] {
		if mask&invalidBit(s, i) == 0 {
			valid = append(valid, e)
		}
	}
	return valid
}

func (n *Node) ValidExtensionCount(s Side) (c int) {
	mask := n.invalid.Load()
	for i := range n.ext[s] {
		if mask&invalidBit(s, i) == 0 {
			c++
		}
	}
	return c
}

func (n *Node) setFlag(f uint32) (changed bool) {
	for {
		old := n.flag.Load()
		if old&f != 0 {
			return false
		}
		if n.flag.CompareAndSwap(old, old|f) {
			return true
		}
	}
}

func (n *Node) clearFlag(f uint32) {
	for {
		old := n.flag.Load()
		if old&f == 0 || n.flag.CompareAndSwap(old, old&^f) {
			return
		}
	}
}

// MarkForDelete is idempotent, it reports whether this call did the marking
func (n *Node) MarkForDelete() bool {
	return n.setFlag(flagMarked)
}

func (n *Node) IsMarkedForDelete() bool {
	return n.flag.Load()&(flagMarked|flagDeleted) != 0
}

func (n *Node) IsDeleted() bool {
	return n.flag.Load()&flagDeleted != 0
}

func (n *Node) SetVisited(visited bool) {
	if visited {
		n.setFlag(flagVisited)
	} else {
		n.clearFlag(flagVisited)
	}
}

// TrySetVisited returns false when the node was visited already
func (n *Node) TrySetVisited() bool {
	return n.setFlag(flagVisited)
}

func (n *Node) IsVisited() bool {
	return n.flag.Load()&flagVisited != 0
}
