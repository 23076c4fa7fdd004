package dbg

import (
	"gonum.org/v1/gonum/stat"
)

// Path is an ordered run of nodes, consecutive nodes are linked by an
// extension. Forward records the direction the path was traced in.
type Path struct {
	Nodes   []*Node
	Forward bool
}

func NewPath(nodes ...*Node) *Path {
	p := &Path{Forward: true}
	p.Nodes = append(p.Nodes, nodes...)
	return p
}

func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Nodes)
}

func (p *Path) First() *Node { return p.Nodes[0] }
func (p *Path) Last() *Node  { return p.Nodes[len(p.Nodes)-1] }

func (p *Path) Append(n *Node) { p.Nodes = append(p.Nodes, n) }

func (p *Path) IndexOf(n *Node) int {
	for i, pn := range p.Nodes {
		if pn.ID == n.ID {
			return i
		}
	}
	return -1
}

func (p *Path) Contains(n *Node) bool { return p.IndexOf(n) >= 0 }

// Remove drops every occurrence of n
func (p *Path) Remove(n *Node) {
	p.RemoveAll(func(pn *Node) bool { return pn.ID == n.ID })
}

func (p *Path) RemoveAll(drop func(*Node) bool) {
	kept := p.Nodes[:0]
	for _, n := range p.Nodes {
		if !drop(n) {
			kept = append(kept, n)
		}
	}
	p.Nodes = kept
}

func (p *Path) IDs() []NodeID {
	ids := make([]NodeID, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Coverage is the mean k-mer count along the path
func (p *Path) Coverage() float64 {
	if p.Len() == 0 {
		return 0
	}
	counts := make([]float64, len(p.Nodes))
	for i, n := range p.Nodes {
		counts[i] = float64(n.Count)
	}
	return stat.Mean(counts, nil)
}

type PathList struct {
	Paths []*Path
}

func NewPathList(paths ...*Path) *PathList {
	return &PathList{Paths: paths}
}

func (pl *PathList) Len() int {
	if pl == nil {
		return 0
	}
	return len(pl.Paths)
}

func (pl *PathList) Add(p *Path) { pl.Paths = append(pl.Paths, p) }

// NodeIDs lists each path as its node ids
func (pl *PathList) NodeIDs() [][]NodeID {
	ids := make([][]NodeID, 0, pl.Len())
	for _, p := range pl.Paths {
		ids = append(ids, p.IDs())
	}
	return ids
}

// PathWithOrientation is a path being grown from a branch point, the next
// node is looked up on the left side of the last node when
// GrabNextNodesOnLeft is set
type PathWithOrientation struct {
	Path
	GrabNextNodesOnLeft bool
	EndReached          bool

	seen map[NodeID]struct{}
}

func NewPathWithOrientation(start, next *Node, grabNextNodesOnLeft bool) *PathWithOrientation {
	po := &PathWithOrientation{GrabNextNodesOnLeft: grabNextNodesOnLeft, seen: make(map[NodeID]struct{})}
	po.Forward = !grabNextNodesOnLeft
	po.Append(start)
	po.Append(next)
	return po
}

func (po *PathWithOrientation) Append(n *Node) {
	po.Nodes = append(po.Nodes, n)
	po.seen[n.ID] = struct{}{}
}

func (po *PathWithOrientation) Contains(n *Node) bool {
	_, ok := po.seen[n.ID]
	return ok
}
