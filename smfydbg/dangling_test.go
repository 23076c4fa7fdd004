package smfydbg

import (
	"testing"

	"github.com/mudesheng/dbgasm/dbg"
	"github.com/pkg/errors"
)

// tipGraph is a chain of mainLen nodes with a tip of tipLen nodes joining
// the main chain at main[joinAt] from the left
func tipGraph(t *testing.T, mainLen, tipLen, joinAt int, mainCount, tipCount uint32) (*dbg.Graph, []*dbg.Node, []*dbg.Node) {
	g := dbg.NewGraph(15)
	main := addChain(t, g, repeatCount(mainCount, mainLen)...)
	tip := addChain(t, g, repeatCount(tipCount, tipLen)...)
	link(t, g, tip[len(tip)-1], main[joinAt])
	return g, main, tip
}

func TestDetectDanglingTip(t *testing.T) {
	g, main, tip := tipGraph(t, 20, 3, 10, 10, 10)
	p := NewDanglingLinksPurger(5, 2)
	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 1 {
		t.Fatalf("found %d dangling links, want 1: %v", pl.Len(), pl.NodeIDs())
	}
	got := pl.Paths[0]
	if got.Len() != 3 || got.First().ID != tip[0].ID || got.Last().ID != tip[2].ID {
		t.Errorf("dangling link = %v, want the tip", got.IDs())
	}
	removed, err := p.RemoveErroneousNodes(g, pl)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 || g.NodeCount() != 20 {
		t.Errorf("removed %d, %d nodes left", removed, g.NodeCount())
	}
	if main[10].LeftExtensionCount() != 1 {
		t.Errorf("join node still has %d left extensions", main[10].LeftExtensionCount())
	}
	mustValidate(t, g)
}

func TestDetectDanglingBounds(t *testing.T) {
	for _, tipLen := range []int{1, 4, 5, 8} {
		g, _, _ := tipGraph(t, 30, tipLen, 12, 10, 10)
		const threshold = 5
		p := NewDanglingLinksPurger(threshold, 1)
		pl, err := p.DetectErroneousNodes(g)
		if err != nil {
			t.Fatal(err)
		}
		want := 0
		if tipLen < threshold {
			want = 1
		}
		if pl.Len() != want {
			t.Errorf("tip of %d: found %d links, want %d", tipLen, pl.Len(), want)
		}
		for _, path := range pl.Paths {
			if path.Len() >= threshold {
				t.Errorf("link of length %d not below threshold %d", path.Len(), threshold)
			}
			first := path.First()
			if first.LeftExtensionCount() != 0 && first.RightExtensionCount() != 0 {
				t.Errorf("link does not start at a graph end: %v", first)
			}
		}
	}
}

func TestDetectDanglingIsland(t *testing.T) {
	g := dbg.NewGraph(15)
	addChain(t, g, 3, 3)
	addChain(t, g, 4)
	p := NewDanglingLinksPurger(5, 1)
	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	// the pair is found from both ends
	if pl.Len() != 3 {
		t.Errorf("found %d links, want 3: %v", pl.Len(), pl.NodeIDs())
	}
	if _, err := p.RemoveErroneousNodes(g, pl); err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 0 {
		t.Errorf("%d nodes left", g.NodeCount())
	}
}

func TestDetectDanglingCycle(t *testing.T) {
	g := dbg.NewGraph(15)
	ring := addChain(t, g, repeatCount(5, 6)...)
	link(t, g, ring[5], ring[0])
	pl, err := NewDanglingLinksPurger(10, 1).DetectErroneousNodes(g)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Len() != 0 {
		t.Errorf("ring has no ends, found %v", pl.NodeIDs())
	}
}

func TestDanglingNilInputs(t *testing.T) {
	p := NewDanglingLinksPurger(5, 1)
	if _, err := p.DetectErroneousNodes(nil); errors.Cause(err) != dbg.ErrNilGraph {
		t.Errorf("nil graph error = %v", err)
	}
	if _, err := p.RemoveErroneousNodes(dbg.NewGraph(15), nil); errors.Cause(err) != dbg.ErrNilPathList {
		t.Errorf("nil path list error = %v", err)
	}
	g := dbg.NewGraph(15)
	a := addChain(t, g, 1, 1)
	a[1].RemoveExtension(a[0].ID)
	if _, err := p.DetectErroneousNodes(g); errors.Cause(err) != dbg.ErrInvalidGraph {
		t.Errorf("asymmetric graph error = %v", err)
	}
}

func TestErodeIsland(t *testing.T) {
	g := dbg.NewGraph(15)
	main := addChain(t, g, repeatCount(10, 20)...)
	addChain(t, g, 1, 1, 1)
	lengths, err := NewDanglingLinksPurger(10, 2).ErodeGraphEnds(g, 3)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 20 {
		t.Errorf("%d nodes left, want the 20 of the main chain", g.NodeCount())
	}
	for _, n := range main {
		if n.IsDeleted() {
			t.Errorf("main chain node %d eroded", n.ID)
		}
	}
	if len(lengths) != 0 {
		t.Errorf("lengths = %v, want none", lengths)
	}
	mustValidate(t, g)
}

func TestErodeLowCoverageTip(t *testing.T) {
	g, main, tip := tipGraph(t, 20, 3, 10, 10, 1)
	if _, err := NewDanglingLinksPurger(10, 2).ErodeGraphEnds(g, 3); err != nil {
		t.Fatal(err)
	}
	for _, n := range tip {
		if !n.IsDeleted() {
			t.Errorf("tip node %d survived erosion", n.ID)
		}
	}
	if g.NodeCount() != 20 || main[10].LeftExtensionCount() != 1 {
		t.Errorf("%d nodes left, join node left extensions %d", g.NodeCount(), main[10].LeftExtensionCount())
	}
	mustValidate(t, g)
}

func TestErodeReportsParkedLinks(t *testing.T) {
	g, _, _ := tipGraph(t, 30, 2, 15, 10, 10)
	lengths, err := NewDanglingLinksPurger(10, 1).ErodeGraphEnds(g, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(lengths) != 1 || lengths[0] != 2 {
		t.Errorf("lengths = %v, want [2]", lengths)
	}
	if g.NodeCount() != 32 {
		t.Errorf("well covered tip should not be eroded, %d nodes left", g.NodeCount())
	}
}

func TestErodeDisabled(t *testing.T) {
	g, _, _ := tipGraph(t, 20, 3, 10, 10, 1)
	lengths, err := NewDanglingLinksPurger(10, 1).ErodeGraphEnds(g, -1)
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 23 {
		t.Errorf("erosion threshold -1 removed nodes, %d left", g.NodeCount())
	}
	if len(lengths) != 1 || lengths[0] != 3 {
		t.Errorf("lengths = %v, want [3]", lengths)
	}
}

func TestErodeSingleNodeIsland(t *testing.T) {
	g := dbg.NewGraph(15)
	main := addChain(t, g, repeatCount(10, 20)...)
	low := g.AddNode(1000, 1)
	high := g.AddNode(1001, 8)
	lengths, err := NewDanglingLinksPurger(10, 2).ErodeGraphEnds(g, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !low.IsDeleted() {
		t.Errorf("island below the erosion threshold survived")
	}
	if high.IsDeleted() {
		t.Errorf("island above the erosion threshold eroded")
	}
	if len(lengths) != 1 || lengths[0] != 1 {
		t.Errorf("lengths = %v, want [1] for the kept island", lengths)
	}
	if g.NodeCount() != int64(len(main)+1) {
		t.Errorf("%d nodes left", g.NodeCount())
	}
	mustValidate(t, g)

	contigs, err := NewSimplePathContigBuilder(2).Build(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(contigs) != 2 {
		t.Fatalf("%d contigs, want the main chain and the island", len(contigs))
	}
	found := false
	for _, c := range contigs {
		if sameStrand(c, g.GetNodeSequence(high)) {
			found = true
		}
	}
	if !found {
		t.Errorf("island %s not emitted as a 1-node contig", g.GetNodeSequence(high))
	}
}

func TestSingleNodeIslandWithoutErosion(t *testing.T) {
	g := dbg.NewGraph(15)
	low := g.AddNode(1000, 1)
	if _, err := NewDanglingLinksPurger(10, 1).ErodeGraphEnds(g, -1); err != nil {
		t.Fatal(err)
	}
	if low.IsDeleted() {
		t.Fatalf("island deleted with erosion disabled")
	}
	contigs, err := NewSimplePathContigBuilder(1).Build(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(contigs) != 1 || len(contigs[0]) != 15 {
		t.Errorf("contigs = %q, want one k-mer long contig", contigs)
	}
}
