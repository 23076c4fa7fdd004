package smfydbg

import (
	"testing"

	"github.com/mudesheng/dbgasm/dbg"
)

// bubbleGraph: prefix -> s -> (a | b) -> e -> suffix, branch b is the less
// covered one
func bubbleGraph(t *testing.T, aLen, bLen int) (g *dbg.Graph, s, e *dbg.Node, a, b []*dbg.Node) {
	g = dbg.NewGraph(15)
	prefix := addChain(t, g, 10, 10, 10)
	s = addChain(t, g, 10)[0]
	a = addChain(t, g, repeatCount(10, aLen)...)
	b = addChain(t, g, repeatCount(2, bLen)...)
	e = addChain(t, g, 10)[0]
	suffix := addChain(t, g, 10, 10, 10)
	link(t, g, prefix[2], s)
	link(t, g, s, a[0])
	link(t, g, s, b[0])
	link(t, g, a[aLen-1], e)
	link(t, g, b[bLen-1], e)
	link(t, g, e, suffix[0])
	return g, s, e, a, b
}

func TestDetectBubble(t *testing.T) {
	g, s, e, _, b := bubbleGraph(t, 3, 3)
	mustValidate(t, g)
	p := NewRedundantPathsPurger(20, 2)
	clusters, err := p.DetectRedundantPathClusters(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 1 {
		t.Fatalf("found %d clusters, want 1", len(clusters))
	}
	if clusters[0].Len() != 2 {
		t.Fatalf("cluster has %d paths, want 2", clusters[0].Len())
	}
	for _, path := range clusters[0].Paths {
		ends := map[dbg.NodeID]bool{path.First().ID: true, path.Last().ID: true}
		if !ends[s.ID] || !ends[e.ID] || path.Len() != 5 {
			t.Errorf("bubble path %v does not run between %d and %d", path.IDs(), s.ID, e.ID)
		}
	}

	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 1 || pl.Paths[0].Len() != 3 {
		t.Fatalf("redundant paths = %v, want the 3 inner nodes of b", pl.NodeIDs())
	}
	for _, n := range pl.Paths[0].Nodes {
		if n.Count != 2 {
			t.Errorf("node %d of the well covered branch marked redundant", n.ID)
		}
	}
	removed, err := p.RemoveErroneousNodes(g, pl)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Errorf("removed %d nodes, want 3", removed)
	}
	for _, n := range b {
		if !n.IsDeleted() {
			t.Errorf("node %d of the weak branch survived", n.ID)
		}
	}
	mustValidate(t, g)

	contigs, err := NewSimplePathContigBuilder(2).Build(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(contigs) != 1 {
		t.Errorf("%d contigs after bubble removal, want 1", len(contigs))
	}
}

func TestDetectBubbleUnequalBranches(t *testing.T) {
	g, _, _, _, b := bubbleGraph(t, 3, 4)
	p := NewRedundantPathsPurger(20, 1)
	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 1 || pl.Paths[0].Len() != len(b) {
		t.Errorf("redundant paths = %v, want branch b", pl.NodeIDs())
	}
}

func TestDetectBubbleLengthThreshold(t *testing.T) {
	g, _, _, _, _ := bubbleGraph(t, 3, 3)
	clusters, err := NewRedundantPathsPurger(3, 1).DetectRedundantPathClusters(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 0 {
		t.Errorf("bubble longer than the threshold detected")
	}
}

func TestNoBubbleOnTip(t *testing.T) {
	g, _, _ := tipGraph(t, 20, 3, 10, 10, 10)
	pl, err := NewRedundantPathsPurger(20, 1).DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 0 {
		t.Errorf("tip reported as redundant: %v", pl.NodeIDs())
	}
}

func TestRedundantPathsFromReads(t *testing.T) {
	reads := append(copies(majorityRead, 6), copies(minorityRead, 4)...)
	g := buildGraph(t, reads, 17)
	if g.NodeCount() != 59 {
		t.Fatalf("NodeCount = %d, want 59", g.NodeCount())
	}
	p := NewRedundantPathsPurger(54, 2)
	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 1 || pl.Paths[0].Len() != 17 {
		t.Fatalf("redundant paths = %v, want one path of 17 nodes", pl.NodeIDs())
	}
	for _, n := range pl.Paths[0].Nodes {
		if n.Count != 4 {
			t.Errorf("node %d with count %d marked redundant", n.ID, n.Count)
		}
	}
}

// oppositeSidesGraph: s diverges to x1 and x2 which both reach c, x1 through
// the left side of c and x2 through its right side. Each side of c has a
// second neighbour so both look like convergence points.
func oppositeSidesGraph(t *testing.T) (*dbg.Graph, *dbg.Node) {
	g := dbg.NewGraph(15)
	nodes := addChain(t, g, 10, 10)
	s, x1 := nodes[0], nodes[1]
	x2 := addChain(t, g, 10)[0]
	c := addChain(t, g, 10)[0]
	left := addChain(t, g, 10)[0]
	right := addChain(t, g, 10)[0]
	link(t, g, s, x2)
	link(t, g, x1, c)
	if err := g.AddLink(x2.ID, dbg.Right, c.ID, false); err != nil {
		t.Fatal(err)
	}
	link(t, g, left, c)
	link(t, g, c, right)
	return g, c
}

func TestNoBubbleThroughOppositeSides(t *testing.T) {
	g, c := oppositeSidesGraph(t)
	mustValidate(t, g)
	if c.LeftExtensionCount() != 2 || c.RightExtensionCount() != 2 {
		t.Fatalf("c extensions %d/%d, want 2/2", c.LeftExtensionCount(), c.RightExtensionCount())
	}
	p := NewRedundantPathsPurger(20, 2)
	clusters, err := p.DetectRedundantPathClusters(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 0 {
		for _, cl := range clusters {
			t.Logf("cluster %v", cl.NodeIDs())
		}
		t.Errorf("found %d clusters, branches entering c from opposite sides are no bubble", len(clusters))
	}
	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 0 {
		t.Errorf("redundant paths = %v, want none", pl.NodeIDs())
	}
}
