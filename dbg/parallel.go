package dbg

import (
	"sync"

	"github.com/mudesheng/dbgasm/utils"
)

const nodeBlockSize = 1 << 10

// ParallelForEach feeds nodes in blocks to numCPU goroutines and returns
// once fn has run on every node
func ParallelForEach(nodes []*Node, numCPU int, fn func(n *Node)) {
	if numCPU < 1 {
		numCPU = 1
	}
	if numCPU == 1 || len(nodes) <= nodeBlockSize {
		for _, n := range nodes {
			fn(n)
		}
		return
	}
	bc := make(chan []*Node, numCPU)
	var wg sync.WaitGroup
	for i := 0; i < numCPU; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for block := range bc {
				for _, n := range block {
					fn(n)
				}
			}
		}()
	}
	for i := 0; i < len(nodes); i += nodeBlockSize {
		bc <- nodes[i:utils.MinInt(i+nodeBlockSize, len(nodes))]
	}
	close(bc)
	wg.Wait()
}
