package smfydbg

import (
	"sort"
	"sync"

	"github.com/mudesheng/dbgasm/dbg"
	"github.com/pkg/errors"
)

// RedundantPathsPurger collapses bubbles: two or more paths that leave a
// node on the same side and meet again, keeping the best covered one
type RedundantPathsPurger struct {
	NumCPU              int
	pathLengthThreshold int
}

func NewRedundantPathsPurger(pathLengthThreshold, numCPU int) *RedundantPathsPurger {
	if numCPU < 1 {
		numCPU = 1
	}
	return &RedundantPathsPurger{NumCPU: numCPU, pathLengthThreshold: pathLengthThreshold}
}

func (p *RedundantPathsPurger) Name() string              { return "redundant paths purger" }
func (p *RedundantPathsPurger) LengthThreshold() int      { return p.pathLengthThreshold }
func (p *RedundantPathsPurger) SetLengthThreshold(th int) { p.pathLengthThreshold = th }

// DetectErroneousNodes returns, for every bubble, the nodes of the losing
// paths that are not shared with the winning path
func (p *RedundantPathsPurger) DetectErroneousNodes(g *dbg.Graph) (*dbg.PathList, error) {
	clusters, err := p.DetectRedundantPathClusters(g)
	if err != nil {
		return nil, err
	}
	pl := detachBestPath(clusters)
	log.Debugf("[DetectErroneousNodes] %d bubbles, %d redundant paths", len(clusters), pl.Len())
	return pl, nil
}

// DetectRedundantPathClusters lists each bubble once as the group of paths
// running from its divergence node to its convergence node
func (p *RedundantPathsPurger) DetectRedundantPathClusters(g *dbg.Graph) ([]*dbg.PathList, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return nil, errors.Wrap(err, "[DetectRedundantPathClusters]")
	}
	var mu sync.Mutex
	var clusters []*dbg.PathList
	dbg.ParallelForEach(g.GetNodes(), p.NumCPU, func(n *dbg.Node) {
		var found []*dbg.PathList
		if n.RightExtensionCount() > 1 {
			found = append(found, p.traceDivergingExtensionPaths(g, n, n.RightExtensions(), true)...)
		}
		if n.LeftExtensionCount() > 1 {
			found = append(found, p.traceDivergingExtensionPaths(g, n, n.LeftExtensions(), false)...)
		}
		if len(found) > 0 {
			mu.Lock()
			clusters = append(clusters, found...)
			mu.Unlock()
		}
	})
	clusters = removeDuplicates(clusters)
	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i].Paths[0], clusters[j].Paths[0]
		if c := a.First().Compare(b.First()); c != 0 {
			return c < 0
		}
		return a.Last().Compare(b.Last()) < 0
	})
	return clusters, nil
}

func (p *RedundantPathsPurger) RemoveErroneousNodes(g *dbg.Graph, pl *dbg.PathList) (int, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return 0, errors.Wrap(err, "[RemoveErroneousNodes]")
	}
	removed, err := dbg.RemovePathNodes(g, pl, p.NumCPU)
	if err != nil {
		return 0, errors.Wrap(err, "[RemoveErroneousNodes]")
	}
	return removed, nil
}

// traceDivergingExtensionPaths grows one path per diverging extension in
// lock step until two of them enter the same node from the same side
func (p *RedundantPathsPurger) traceDivergingExtensionPaths(g *dbg.Graph, start *dbg.Node, diverging []dbg.Extension, isForward bool) []*dbg.PathList {
	branches := make([]*dbg.PathWithOrientation, 0, len(diverging))
	for _, e := range diverging {
		branches = append(branches, dbg.NewPathWithOrientation(start, g.Node(e.ID), isForward != e.SameOrientation))
	}
	possibleEnds := make(map[dbg.NodeID]struct{})
	rejected := make(map[dbg.NodeID]struct{})
	finished := 0
	for length := 2; length <= p.pathLengthThreshold && finished < len(branches); length++ {
		var convergent *dbg.Node
		for _, b := range branches {
			if b.EndReached {
				continue
			}
			end := b.Last()
			var exts []dbg.Extension
			if b.GrabNextNodesOnLeft {
				exts = end.LeftExtensions()
			} else {
				exts = end.RightExtensions()
			}
			if len(exts) != 1 {
				b.EndReached = true
				finished++
				continue
			}
			next := g.Node(exts[0].ID)
			if b.Contains(next) {
				b.EndReached = true
				finished++
				continue
			}
			b.GrabNextNodesOnLeft = b.GrabNextNodesOnLeft == exts[0].SameOrientation
			b.Append(next)

			var entering int
			if b.GrabNextNodesOnLeft {
				entering = next.RightExtensionCount()
			} else {
				entering = next.LeftExtensionCount()
			}
			if entering < 2 {
				continue
			}
			if _, ok := possibleEnds[next.ID]; !ok {
				possibleEnds[next.ID] = struct{}{}
			} else if _, bad := rejected[next.ID]; !bad && convergent == nil {
				convergent = next
			}
		}
		if convergent == nil {
			continue
		}
		if found := confirmRedundantPaths(convergent, branches); len(found) > 0 {
			return found
		}
		rejected[convergent.ID] = struct{}{}
	}
	return nil
}

// confirmRedundantPaths trims every branch holding convergent down to it and
// groups the copies by the side of convergent they enter through
func confirmRedundantPaths(convergent *dbg.Node, branches []*dbg.PathWithOrientation) []*dbg.PathList {
	var converging []*dbg.Path
	for _, b := range branches {
		idx := b.IndexOf(convergent)
		if idx < 1 {
			continue
		}
		converging = append(converging, dbg.NewPath(b.Nodes[:idx+1]...))
	}
	var clusters []*dbg.PathList
	for _, s := range dbg.Sides {
		var group []*dbg.Path
		for _, path := range converging {
			prev := path.Nodes[len(path.Nodes)-2]
			if convergent.HasExtension(s, prev.ID) {
				group = append(group, path)
			}
		}
		if len(group) > 1 {
			clusters = append(clusters, dbg.NewPathList(group...))
		}
	}
	return clusters
}

type clusterKey struct {
	start, end dbg.NodeID
}

func keyOf(c *dbg.PathList) clusterKey {
	p := c.Paths[0]
	return clusterKey{start: p.First().ID, end: p.Last().ID}
}

// removeDuplicates drops the copy of a bubble found from its other end,
// the one kept starts at the larger k-mer
func removeDuplicates(clusters []*dbg.PathList) []*dbg.PathList {
	keys := make(map[clusterKey]struct{}, len(clusters))
	for _, c := range clusters {
		keys[keyOf(c)] = struct{}{}
	}
	kept := clusters[:0]
	for _, c := range clusters {
		k := keyOf(c)
		if _, dup := keys[clusterKey{start: k.end, end: k.start}]; dup && k.start != k.end {
			p := c.Paths[0]
			if p.First().Compare(p.Last()) < 0 {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// detachBestPath keeps the path with the highest mean coverage of each
// cluster and returns the other paths minus the nodes they share with it
func detachBestPath(clusters []*dbg.PathList) *dbg.PathList {
	pl := dbg.NewPathList()
	for _, c := range clusters {
		best := 0
		bestCov := c.Paths[0].Coverage()
		for i, path := range c.Paths[1:] {
			if cov := path.Coverage(); cov > bestCov {
				best, bestCov = i+1, cov
			}
		}
		bp := c.Paths[best]
		for i, path := range c.Paths {
			if i == best {
				continue
			}
			rp := dbg.NewPath(path.Nodes...)
			rp.RemoveAll(bp.Contains)
			if rp.Len() > 0 {
				pl.Add(rp)
			}
		}
	}
	return pl
}
