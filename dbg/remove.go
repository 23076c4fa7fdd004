package dbg

// RemovePathNodes deletes the union of nodes across pl with numCPU workers.
// Survivors linked to a deleted node lose that extension before the nodes
// leave the graph.
func RemovePathNodes(g *Graph, pl *PathList, numCPU int) (int, error) {
	if g == nil {
		return 0, ErrNilGraph
	}
	if pl == nil {
		return 0, ErrNilPathList
	}
	del := make(map[NodeID]*Node)
	for _, p := range pl.Paths {
		for _, n := range p.Nodes {
			if n == nil {
				return 0, ErrNilNode
			}
			if !n.IsDeleted() {
				del[n.ID] = n
			}
		}
	}
	if len(del) == 0 {
		return 0, nil
	}
	nodes := make([]*Node, 0, len(del))
	for _, n := range del {
		nodes = append(nodes, n)
	}
	ParallelForEach(nodes, numCPU, func(n *Node) {
		for _, s := range Sides {
			for _, e := range n.ext[s] {
				if _, ok := del[e.ID]; ok {
					continue
				}
				g.nodes[e.ID].RemoveExtension(n.ID)
			}
		}
	})
	removed := g.RemoveNodes(nodes)
	log.Debugf("[RemovePathNodes] %d paths, removed %d nodes", pl.Len(), removed)
	return removed, nil
}
