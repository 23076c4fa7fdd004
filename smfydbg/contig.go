package smfydbg

import (
	"sync"

	"github.com/mudesheng/dbgasm/dbg"
	"github.com/pkg/errors"
)

// SimplePathContigBuilder emits one contig per maximal unambiguous path.
// Links at branch points and palindromic nodes are cut before walking.
type SimplePathContigBuilder struct {
	NumCPU int
}

func NewSimplePathContigBuilder(numCPU int) *SimplePathContigBuilder {
	if numCPU < 1 {
		numCPU = 1
	}
	return &SimplePathContigBuilder{NumCPU: numCPU}
}

// Build returns the contig sequences, the graph is left as it was found
func (b *SimplePathContigBuilder) Build(g *dbg.Graph) ([][]byte, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return nil, errors.Wrap(err, "[Build]")
	}
	b.excludeAmbiguousExtensions(g)
	w := &contigWalker{g: g, coverageThreshold: -1}
	w.getSimplePaths(b.NumCPU)
	g.ResetInvalidExtensions()
	log.Infof("[Build] %d contigs from %d nodes", len(w.contigs), g.NodeCount())
	return w.contigs, nil
}

// RemoveLowCoverageContigs deletes every contig whose mean node count is
// below threshold and returns the number of nodes removed
func (b *SimplePathContigBuilder) RemoveLowCoverageContigs(g *dbg.Graph, threshold float64) (int, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return 0, errors.Wrap(err, "[RemoveLowCoverageContigs]")
	}
	if threshold <= 0 {
		return 0, errors.Errorf("[RemoveLowCoverageContigs] coverage threshold %v must be positive", threshold)
	}
	b.excludeAmbiguousExtensions(g)
	w := &contigWalker{g: g, coverageThreshold: threshold}
	w.getSimplePaths(b.NumCPU)
	g.ResetInvalidExtensions()
	removed, _ := g.RemoveMarkedNodesExposed(b.NumCPU)
	log.Infof("[RemoveLowCoverageContigs] removed %d nodes below coverage %.2f", removed, threshold)
	return removed, nil
}

// excludeAmbiguousExtensions invalidates both directions of every link on a
// side with more than one extension, on palindromes and on self loops
func (b *SimplePathContigBuilder) excludeAmbiguousExtensions(g *dbg.Graph) {
	kmerLen := g.KmerLength()
	dbg.ParallelForEach(g.GetNodes(), b.NumCPU, func(n *dbg.Node) {
		pal := n.IsPalindrome(kmerLen)
		for _, s := range dbg.Sides {
			exts := n.Extensions(s)
			for i, e := range exts {
				if pal || len(exts) > 1 || e.ID == n.ID {
					g.MarkExtensionInvalid(n, s, i)
				}
			}
		}
	})
}

type contigWalker struct {
	g                 *dbg.Graph
	coverageThreshold float64

	mu      sync.Mutex
	contigs [][]byte
}

func (w *contigWalker) filtering() bool { return w.coverageThreshold > 0 }

func (w *contigWalker) emit(seq []byte) {
	w.mu.Lock()
	w.contigs = append(w.contigs, seq)
	w.mu.Unlock()
}

// getSimplePaths walks from every path end in parallel, then picks up the
// cycles that have no end one at a time
func (w *contigWalker) getSimplePaths(numCPU int) {
	g := w.g
	g.SetNodeVisitState(false)
	dbg.ParallelForEach(g.GetNodes(), numCPU, func(n *dbg.Node) {
		l, r := n.ValidExtensionCount(dbg.Left), n.ValidExtensionCount(dbg.Right)
		switch {
		case l == 0 && r == 0:
			n.SetVisited(true)
			if w.filtering() {
				if float64(n.Count) < w.coverageThreshold {
					n.MarkForDelete()
				}
			} else {
				w.emit(g.GetNodeSequence(n))
			}
		case l == 1 && r == 0:
			w.traceSimplePath(n, false, true)
		case l == 0 && r == 1:
			w.traceSimplePath(n, true, true)
		}
	})
	for _, n := range g.GetUnvisitedNodes() {
		if n.IsVisited() {
			continue
		}
		w.traceSimplePath(n, true, false)
	}
	g.SetNodeVisitState(false)
}

// traceSimplePath follows valid extensions from start until the path ends or
// closes on itself. A path reachable from both ends is emitted only from the
// end with the larger k-mer when duplicatesPossible is set.
func (w *contigWalker) traceSimplePath(start *dbg.Node, forward, duplicatesPossible bool) {
	g := w.g
	start.SetVisited(true)
	path := []*dbg.Node{start}
	inPath := map[dbg.NodeID]struct{}{start.ID: {}}
	var tail, head []byte
	if !w.filtering() {
		tail = g.GetNodeSequence(start)
	}

	var exts []dbg.Extension
	if forward {
		exts = start.ValidExtensions(dbg.Right)
	} else {
		exts = start.ValidExtensions(dbg.Left)
	}
	if len(exts) > 0 {
		node, same := g.Node(exts[0].ID), exts[0].SameOrientation
		for {
			if _, ok := inPath[node.ID]; ok {
				break
			}
			node.SetVisited(true)
			path = append(path, node)
			inPath[node.ID] = struct{}{}
			if !w.filtering() {
				sym := g.GetNextSymbolFrom(node, forward, same)
				if forward {
					tail = append(tail, sym)
				} else {
					head = append(head, sym)
				}
			}
			var next []dbg.Extension
			if forward != same {
				next = node.ValidExtensions(dbg.Left)
			} else {
				next = node.ValidExtensions(dbg.Right)
			}
			if len(next) == 0 {
				break
			}
			node = g.Node(next[0].ID)
			same = same == next[0].SameOrientation
		}
	}

	if duplicatesPossible && path[0].Compare(path[len(path)-1]) < 0 {
		return
	}
	if w.filtering() {
		if dbg.NewPath(path...).Coverage() < w.coverageThreshold {
			for _, n := range path {
				n.MarkForDelete()
			}
		}
		return
	}
	seq := make([]byte, 0, len(head)+len(tail))
	for i := len(head) - 1; i >= 0; i-- {
		seq = append(seq, head[i])
	}
	seq = append(seq, tail...)
	w.emit(seq)
}
