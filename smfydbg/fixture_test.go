package smfydbg

import (
	"bytes"
	"testing"

	"github.com/mudesheng/dbgasm/bnt"
	"github.com/mudesheng/dbgasm/constructdbg"
	"github.com/mudesheng/dbgasm/dbg"
)

const (
	majorityRead = "ACGTACCCGATAGACACGATACGACAACCCTTTCACGAATCGATACGCAGTACAGATA"
	// majorityRead with C->G at position 33
	minorityRead = "ACGTACCCGATAGACACGATACGACAACCCTTTGACGAATCGATACGCAGTACAGATA"
)

// addChain appends nodes with the given counts linked left to right, k-mers
// follow insertion order
func addChain(t *testing.T, g *dbg.Graph, counts ...uint32) []*dbg.Node {
	t.Helper()
	nodes := make([]*dbg.Node, len(counts))
	for i, c := range counts {
		nodes[i] = g.AddNode(uint64(g.NodeCount()+1), c)
		if i > 0 {
			link(t, g, nodes[i-1], nodes[i])
		}
	}
	return nodes
}

func link(t *testing.T, g *dbg.Graph, a, b *dbg.Node) {
	t.Helper()
	if err := g.AddLink(a.ID, dbg.Right, b.ID, true); err != nil {
		t.Fatalf("AddLink %d -> %d: %v", a.ID, b.ID, err)
	}
}

func repeatCount(c uint32, n int) []uint32 {
	counts := make([]uint32, n)
	for i := range counts {
		counts[i] = c
	}
	return counts
}

func buildGraph(t *testing.T, reads [][]byte, kmerLen int) *dbg.Graph {
	t.Helper()
	g, err := constructdbg.BuildFromReads(reads, kmerLen, 1, 2)
	if err != nil {
		t.Fatalf("BuildFromReads: %v", err)
	}
	return g
}

func copies(read string, n int) [][]byte {
	reads := make([][]byte, n)
	for i := range reads {
		reads[i] = []byte(read)
	}
	return reads
}

// sameStrand reports whether a equals b or its reverse complement
func sameStrand(a, b []byte) bool {
	return bytes.Equal(a, b) || bytes.Equal(a, bnt.ReverseCompletSeq(b))
}

func mustValidate(t *testing.T, g *dbg.Graph) {
	t.Helper()
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
