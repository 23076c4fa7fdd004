package dbg

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/mudesheng/dbgasm/bnt"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("dbg")

var (
	ErrNilGraph     = errors.New("graph is nil")
	ErrNilPathList  = errors.New("path list is nil")
	ErrNilNode      = errors.New("node is nil")
	ErrInvalidGraph = errors.New("graph is not consistent")
)

// Graph owns every node in an arena indexed by NodeID. Deleted nodes keep
// their slot so ids stay stable for the life of the graph.
type Graph struct {
	NumCPU int

	kmerLen int
	nodes   []*Node
	live    atomic.Int64

	mu    sync.Mutex
	cache []*Node
	dirty bool
}

func NewGraph(kmerLen int) *Graph {
	return &Graph{NumCPU: runtime.NumCPU(), kmerLen: kmerLen, dirty: true}
}

func (g *Graph) KmerLength() int { return g.kmerLen }

// NodeCount is the number of nodes not yet deleted
func (g *Graph) NodeCount() int64 { return g.live.Load() }

// AddNode appends a node to the arena, it is not safe for concurrent use
func (g *Graph) AddNode(kmer uint64, count uint32) *Node {
	n := &Node{ID: NodeID(len(g.nodes)), Kmer: kmer, Count: count}
	g.nodes = append(g.nodes, n)
	g.live.Add(1)
	g.setDirty()
	return n
}

// Node returns nil for ids outside the arena
func (g *Graph) Node(id NodeID) *Node {
	if int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// AddLink wires a.s to b and the matching reverse entry on b
func (g *Graph) AddLink(a NodeID, s Side, b NodeID, same bool) error {
	na, nb := g.Node(a), g.Node(b)
	if na == nil || nb == nil {
		return errors.Wrapf(ErrNilNode, "[AddLink] %d -> %d", a, b)
	}
	if err := na.AddExtension(s, b, same); err != nil {
		return err
	}
	return nb.AddExtension(ReverseSide(s, same), a, same)
}

func (g *Graph) setDirty() {
	g.mu.Lock()
	g.dirty = true
	g.mu.Unlock()
}

// GetNodes returns a snapshot of the live nodes in id order. The slice is
// shared, callers must not modify it.
func (g *Graph) GetNodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dirty {
		cache := make([]*Node, 0, g.live.Load())
		for _, n := range g.nodes {
			if !n.IsDeleted() {
				cache = append(cache, n)
			}
		}
		g.cache = cache
		g.dirty = false
	}
	return g.cache
}

func (g *Graph) GetUnvisitedNodes() []*Node {
	var nodes []*Node
	for _, n := range g.GetNodes() {
		if !n.IsVisited() {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (g *Graph) SetNodeVisitState(visited bool) {
	ParallelForEach(g.GetNodes(), g.NumCPU, func(n *Node) {
		n.SetVisited(visited)
	})
}

func (g *Graph) ResetInvalidExtensions() {
	ParallelForEach(g.GetNodes(), g.NumCPU, func(n *Node) {
		n.ResetInvalidExtensions()
	})
}

// MarkExtensionInvalid flags n's idx-th extension on side s and the entry on
// the neighbour pointing back at n
func (g *Graph) MarkExtensionInvalid(n *Node, s Side, idx int) {
	e := n.ext[s][idx]
	n.MarkExtensionInvalid(s, idx)
	m := g.Node(e.ID)
	rs := ReverseSide(s, e.SameOrientation)
	for j, re := range m.ext[rs] {
		if re.ID == n.ID && re.SameOrientation == e.SameOrientation {
			m.MarkExtensionInvalid(rs, j)
		}
	}
}

// GetNodeSequence returns the canonical k-mer of n as ACGT text
func (g *Graph) GetNodeSequence(n *Node) []byte {
	return bnt.KmerToSeq(n.Kmer, g.kmerLen)
}

// GetNextSymbolFrom gives the base n contributes when a walk reaches it,
// the last base of the oriented k-mer when moving forward else the first
func (g *Graph) GetNextSymbolFrom(n *Node, forward, sameOrientation bool) byte {
	kb := n.Kmer
	if !sameOrientation {
		kb = bnt.ReverseComplet(kb, g.kmerLen)
	}
	if forward {
		return bnt.LastBase(kb)
	}
	return bnt.FirstBase(kb, g.kmerLen)
}

// RemoveNodes flips the given nodes to deleted. Extensions of survivors are
// not touched, see RemovePathNodes and RemoveMarkedNodes.
func (g *Graph) RemoveNodes(nodes []*Node) (removed int) {
	for _, n := range nodes {
		n.MarkForDelete()
		if n.setFlag(flagDeleted) {
			removed++
		}
	}
	if removed > 0 {
		g.live.Add(-int64(removed))
		g.setDirty()
	}
	return removed
}

// RemoveMarkedNodes deletes every node marked for deletion and drops the
// extensions survivors hold to them
func (g *Graph) RemoveMarkedNodes() int {
	removed, _ := g.RemoveMarkedNodesExposed(g.NumCPU)
	return removed
}

// RemoveMarkedNodesExposed also returns the survivors that lost an
// extension in the compaction
func (g *Graph) RemoveMarkedNodesExposed(numCPU int) (removed int, exposed []*Node) {
	nodes := g.GetNodes()
	var marked []*Node
	for _, n := range nodes {
		if n.IsMarkedForDelete() {
			marked = append(marked, n)
		}
	}
	if len(marked) == 0 {
		return 0, nil
	}
	var mu sync.Mutex
	ParallelForEach(nodes, numCPU, func(n *Node) {
		if n.IsMarkedForDelete() {
			return
		}
		c := n.removeExtensionsIf(func(e Extension) bool {
			return g.nodes[e.ID].IsMarkedForDelete()
		})
		if c > 0 {
			mu.Lock()
			exposed = append(exposed, n)
			mu.Unlock()
		}
	})
	removed = g.RemoveNodes(marked)
	log.Debugf("[RemoveMarkedNodes] removed %d nodes, %d survivors exposed", removed, len(exposed))
	return removed, exposed
}

// Validate checks that every extension of a live node points at a live node
// holding the matching reverse entry
func (g *Graph) Validate() error {
	for _, n := range g.GetNodes() {
		for _, s := range Sides {
			for _, e := range n.ext[s] {
				m := g.Node(e.ID)
				if m == nil || m.IsDeleted() {
					return errors.Wrapf(ErrInvalidGraph, "node %d has %s extension to missing node %d", n.ID, s, e.ID)
				}
				rs := ReverseSide(s, e.SameOrientation)
				found := false
				for _, re := range m.ext[rs] {
					if re.ID == n.ID && re.SameOrientation == e.SameOrientation {
						found = true
						break
					}
				}
				if !found {
					return errors.Wrapf(ErrInvalidGraph, "node %d %s extension to %d has no reverse entry on %s", n.ID, s, e.ID, rs)
				}
			}
		}
	}
	return nil
}

func ValidateGraph(g *Graph) error {
	if g == nil {
		return ErrNilGraph
	}
	return g.Validate()
}
