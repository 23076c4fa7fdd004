package smfydbg

import (
	"sort"
	"sync"

	"github.com/mudesheng/dbgasm/dbg"
	"github.com/pkg/errors"
)

// DanglingLinksPurger removes tips: linear runs of nodes hanging off the
// graph with one free end, shorter than the length threshold
type DanglingLinksPurger struct {
	NumCPU          int
	lengthThreshold int
}

func NewDanglingLinksPurger(lengthThreshold, numCPU int) *DanglingLinksPurger {
	if numCPU < 1 {
		numCPU = 1
	}
	return &DanglingLinksPurger{NumCPU: numCPU, lengthThreshold: lengthThreshold}
}

func (p *DanglingLinksPurger) Name() string              { return "dangling links purger" }
func (p *DanglingLinksPurger) LengthThreshold() int      { return p.lengthThreshold }
func (p *DanglingLinksPurger) SetLengthThreshold(th int) { p.lengthThreshold = th }

// danglingCont is a trace parked at an ambiguous node while erosion may
// still change the graph around it
type danglingCont struct {
	forward    bool
	same       bool
	removeLast bool
	link       *dbg.Path
	node       *dbg.Node
}

type danglingTracer struct {
	g               *dbg.Graph
	lengthThreshold int
	erodeThreshold  int

	mu    sync.Mutex
	conts []danglingCont
}

func (t *danglingTracer) eroding() bool { return t.erodeThreshold >= 0 }

func (t *danglingTracer) park(c danglingCont) {
	t.mu.Lock()
	t.conts = append(t.conts, c)
	t.mu.Unlock()
}

func (t *danglingTracer) takeContinuations() []danglingCont {
	t.mu.Lock()
	defer t.mu.Unlock()
	conts := t.conts
	t.conts = nil
	return conts
}

// scanEnd traces the dangling link starting at n if n is a graph end
func (t *danglingTracer) scanEnd(n *dbg.Node) *dbg.Path {
	switch {
	case n.ExtensionsCount() == 0:
		if t.eroding() && int(n.Count) < t.erodeThreshold {
			n.MarkForDelete()
			return nil
		}
		if 1 >= t.lengthThreshold {
			return nil
		}
		return dbg.NewPath(n)
	case n.RightExtensionCount() == 0:
		link := dbg.NewPath()
		link.Forward = false
		return t.trace(false, link, n, true)
	case n.LeftExtensionCount() == 0:
		return t.trace(true, dbg.NewPath(), n, true)
	}
	return nil
}

// checkAndAdd appends node to link, end is true when the trace must stop.
// While eroding, low coverage nodes at the free end are marked instead.
func (t *danglingTracer) checkAndAdd(link *dbg.Path, node *dbg.Node) (*dbg.Path, bool) {
	if t.eroding() && link.Len() == 0 && int(node.Count) < t.erodeThreshold {
		if !node.MarkForDelete() {
			// marked from the other end
			return link, true
		}
		return link, false
	}
	if link.Contains(node) {
		return nil, true
	}
	if link.Len()+1 >= t.lengthThreshold {
		return nil, true
	}
	link.Append(node)
	return link, false
}

func (t *danglingTracer) trace(forward bool, link *dbg.Path, node *dbg.Node, same bool) *dbg.Path {
	for {
		var sameDir, oppDir []dbg.Extension
		if forward != same {
			sameDir, oppDir = node.LeftExtensions(), node.RightExtensions()
		} else {
			sameDir, oppDir = node.RightExtensions(), node.LeftExtensions()
		}
		if len(sameDir) == 0 {
			link, _ = t.checkAndAdd(link, node)
			return link
		}
		if len(oppDir) > 1 {
			if t.eroding() && !node.IsMarkedForDelete() {
				t.park(danglingCont{forward: forward, same: same, link: link, node: node})
				return nil
			}
			return link
		}
		if len(sameDir) > 1 {
			var end bool
			link, end = t.checkAndAdd(link, node)
			if link != nil && !end && t.eroding() && !node.IsMarkedForDelete() {
				t.park(danglingCont{forward: forward, same: same, removeLast: true, link: link, node: node})
				return nil
			}
			return link
		}
		var end bool
		if link, end = t.checkAndAdd(link, node); end {
			return link
		}
		next := sameDir[0]
		node = t.g.Node(next.ID)
		same = same == next.SameOrientation
	}
}

// resume picks a parked trace up again and returns the length of the link
// it completes, 0 when it is dropped or parked again
func (t *danglingTracer) resume(c danglingCont) int {
	if c.node.IsDeleted() {
		return 0
	}
	for _, n := range c.link.Nodes {
		if n.IsDeleted() {
			return 0
		}
	}
	link := c.link
	if c.removeLast {
		link.Remove(c.node)
	}
	if link.Len() == 0 {
		link = t.scanEnd(c.node)
	} else {
		link = t.trace(c.forward, link, c.node, c.same)
	}
	return link.Len()
}

func sortPaths(pl *dbg.PathList) {
	sort.Slice(pl.Paths, func(i, j int) bool {
		if c := pl.Paths[i].First().Compare(pl.Paths[j].First()); c != 0 {
			return c < 0
		}
		return pl.Paths[i].Len() < pl.Paths[j].Len()
	})
}

// DetectErroneousNodes traces a link from every graph end and keeps those
// shorter than the length threshold. Each path starts at the free end.
func (p *DanglingLinksPurger) DetectErroneousNodes(g *dbg.Graph) (*dbg.PathList, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return nil, errors.Wrap(err, "[DetectErroneousNodes]")
	}
	t := &danglingTracer{g: g, lengthThreshold: p.lengthThreshold, erodeThreshold: -1}
	var mu sync.Mutex
	pl := dbg.NewPathList()
	dbg.ParallelForEach(g.GetNodes(), p.NumCPU, func(n *dbg.Node) {
		if link := t.scanEnd(n); link.Len() > 0 {
			mu.Lock()
			pl.Add(link)
			mu.Unlock()
		}
	})
	sortPaths(pl)
	log.Debugf("[DetectErroneousNodes] found %d dangling links shorter than %d", pl.Len(), p.lengthThreshold)
	return pl, nil
}

func (p *DanglingLinksPurger) RemoveErroneousNodes(g *dbg.Graph, pl *dbg.PathList) (int, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return 0, errors.Wrap(err, "[RemoveErroneousNodes]")
	}
	removed, err := dbg.RemovePathNodes(g, pl, p.NumCPU)
	if err != nil {
		return 0, errors.Wrap(err, "[RemoveErroneousNodes]")
	}
	return removed, nil
}

// ErodeGraphEnds repeatedly deletes nodes below erosionThreshold from the
// free ends of the graph until a round removes nothing. It returns the
// lengths, ascending, of the dangling links traced along the way.
func (p *DanglingLinksPurger) ErodeGraphEnds(g *dbg.Graph, erosionThreshold int) ([]int, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return nil, errors.Wrap(err, "[ErodeGraphEnds]")
	}
	lc := make(chan int, p.NumCPU*16)
	var lengths []int
	done := make(chan struct{})
	go func() {
		for l := range lc {
			lengths = append(lengths, l)
		}
		close(done)
	}()

	t := &danglingTracer{g: g, lengthThreshold: p.lengthThreshold, erodeThreshold: erosionThreshold}
	frontier := g.GetNodes()
	for round := 1; ; round++ {
		dbg.ParallelForEach(frontier, p.NumCPU, func(n *dbg.Node) {
			if n.IsMarkedForDelete() {
				return
			}
			if link := t.scanEnd(n); link.Len() > 0 {
				lc <- link.Len()
			}
		})
		removed, exposed := g.RemoveMarkedNodesExposed(p.NumCPU)
		conts := t.takeContinuations()
		log.Debugf("[ErodeGraphEnds] round %d: scanned %d nodes, eroded %d, %d parked traces", round, len(frontier), removed, len(conts))
		if removed == 0 {
			final := &danglingTracer{g: g, lengthThreshold: p.lengthThreshold, erodeThreshold: -1}
			for _, c := range conts {
				if l := final.resume(c); l > 0 {
					lc <- l
				}
			}
			break
		}
		for _, c := range conts {
			if l := t.resume(c); l > 0 {
				lc <- l
			}
		}
		frontier = exposed
	}
	close(lc)
	<-done
	sort.Ints(lengths)
	return lengths, nil
}
