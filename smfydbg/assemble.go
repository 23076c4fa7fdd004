package smfydbg

import (
	"math"
	"sort"

	"github.com/mudesheng/dbgasm/config"
	"github.com/mudesheng/dbgasm/dbg"
	"github.com/pkg/errors"
)

const defaultCoverageThreshold = 2

// AssemblyStats counts what each stage of Run took out of the graph
type AssemblyStats struct {
	InputNodes              int64
	DanglingNodesRemoved    int
	RedundantNodesRemoved   int
	LowCoverageNodesRemoved int
	DanglingLinkLengths     []int
	OutputNodes             int64
	Contigs                 int
}

// Assembler runs the cleaning stages over a graph and builds the contigs:
// undangle, collapse bubbles, undangle again, drop low coverage contigs
type Assembler struct {
	Opt                  config.Options
	DanglingLinksPurger  GraphErrorPurger
	RedundantPathsPurger GraphErrorPurger
	ContigBuilder        ContigBuilder
	Stats                AssemblyStats

	// ends are eroded by the first UnDangleGraph of a Run only
	eroded bool
}

// NewAssembler fills in the kmer derived thresholds left at -1
func NewAssembler(opt config.Options) *Assembler {
	if opt.DanglingLinksThreshold < 0 {
		opt.DanglingLinksThreshold = opt.KmerLen + 1
	}
	if opt.RedundantPathLengthThreshold < 0 {
		opt.RedundantPathLengthThreshold = 3 * (opt.KmerLen + 1)
	}
	return &Assembler{
		Opt:                  opt,
		DanglingLinksPurger:  NewDanglingLinksPurger(opt.DanglingLinksThreshold, opt.NumCPU),
		RedundantPathsPurger: NewRedundantPathsPurger(opt.RedundantPathLengthThreshold, opt.NumCPU),
		ContigBuilder:        NewSimplePathContigBuilder(opt.NumCPU),
	}
}

// EstimateCoverageThreshold is the square root of the median count of nodes
// seen more than twice
func EstimateCoverageThreshold(g *dbg.Graph) float64 {
	var counts []float64
	for _, n := range g.GetNodes() {
		if n.Count > 2 {
			counts = append(counts, float64(n.Count))
		}
	}
	if len(counts) == 0 {
		return defaultCoverageThreshold
	}
	sort.Float64s(counts)
	mid := len(counts) / 2
	median := counts[mid]
	if len(counts)%2 == 0 {
		median = (counts[mid-1] + counts[mid]) / 2
	}
	return math.Sqrt(median)
}

// EstimateDefaultThresholds sets the erosion and contig coverage thresholds
// the options left unset
func (a *Assembler) EstimateDefaultThresholds(g *dbg.Graph) {
	th := EstimateCoverageThreshold(g)
	if a.Opt.ErosionThreshold < 0 {
		a.Opt.ErosionThreshold = int(math.Round(th))
	}
	if a.Opt.ContigCoverageThreshold < 0 {
		a.Opt.ContigCoverageThreshold = th
	}
	log.Infof("[EstimateDefaultThresholds] erosion threshold: %d, contig coverage threshold: %.2f", a.Opt.ErosionThreshold, a.Opt.ContigCoverageThreshold)
}

func purge(g *dbg.Graph, p GraphErrorPurger) (int, error) {
	pl, err := p.DetectErroneousNodes(g)
	if err != nil {
		return 0, err
	}
	removed, err := p.RemoveErroneousNodes(g, pl)
	if err != nil {
		return 0, err
	}
	log.Debugf("[purge] %s threshold %d: %d paths, %d nodes removed", p.Name(), p.LengthThreshold(), pl.Len(), removed)
	return removed, nil
}

// UnDangleGraph erodes the graph ends when allowed, purges dangling links
// length by length from the shortest up and sweeps at the full threshold
// until nothing is left to remove
func (a *Assembler) UnDangleGraph(g *dbg.Graph) (removed int, err error) {
	p := a.DanglingLinksPurger
	th := a.Opt.DanglingLinksThreshold
	defer p.SetLengthThreshold(th)

	var lengths []int
	eroder, canErode := p.(GraphEndsEroder)
	if a.Opt.AllowErosion && canErode && !a.eroded {
		a.eroded = true
		before := g.NodeCount()
		p.SetLengthThreshold(th)
		if lengths, err = eroder.ErodeGraphEnds(g, a.Opt.ErosionThreshold); err != nil {
			return removed, errors.Wrap(err, "[UnDangleGraph]")
		}
		removed += int(before - g.NodeCount())
		a.Stats.DanglingLinkLengths = append(a.Stats.DanglingLinkLengths, lengths...)
	} else {
		for l := 1; l < th; l++ {
			lengths = append(lengths, l)
		}
	}

	last := 0
	for _, l := range lengths {
		if l == last || l >= th {
			continue
		}
		last = l
		p.SetLengthThreshold(l + 1)
		c, err := purge(g, p)
		if err != nil {
			return removed, errors.Wrap(err, "[UnDangleGraph]")
		}
		removed += c
	}
	p.SetLengthThreshold(th)
	for {
		c, err := purge(g, p)
		if err != nil {
			return removed, errors.Wrap(err, "[UnDangleGraph]")
		}
		if c == 0 {
			break
		}
		removed += c
	}
	a.Stats.DanglingNodesRemoved += removed
	log.Infof("[UnDangleGraph] removed %d nodes, %d left", removed, g.NodeCount())
	return removed, nil
}

// RemoveRedundancy collapses bubbles until none is found
func (a *Assembler) RemoveRedundancy(g *dbg.Graph) (removed int, err error) {
	p := a.RedundantPathsPurger
	p.SetLengthThreshold(a.Opt.RedundantPathLengthThreshold)
	for {
		c, err := purge(g, p)
		if err != nil {
			return removed, errors.Wrap(err, "[RemoveRedundancy]")
		}
		if c == 0 {
			break
		}
		removed += c
	}
	a.Stats.RedundantNodesRemoved += removed
	log.Infof("[RemoveRedundancy] removed %d nodes, %d left", removed, g.NodeCount())
	return removed, nil
}

// Run cleans g in place and returns the contigs
func (a *Assembler) Run(g *dbg.Graph) ([][]byte, error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return nil, errors.Wrap(err, "[Run]")
	}
	a.Stats = AssemblyStats{InputNodes: g.NodeCount()}
	a.eroded = false
	if (a.Opt.AllowErosion && a.Opt.ErosionThreshold < 0) || (a.Opt.AllowLowCoverageContigRemoval && a.Opt.ContigCoverageThreshold < 0) {
		a.EstimateDefaultThresholds(g)
	}
	if _, err := a.UnDangleGraph(g); err != nil {
		return nil, err
	}
	if _, err := a.RemoveRedundancy(g); err != nil {
		return nil, err
	}
	if _, err := a.UnDangleGraph(g); err != nil {
		return nil, err
	}
	if a.Opt.AllowLowCoverageContigRemoval {
		lp, ok := a.ContigBuilder.(LowCoverageContigPurger)
		if !ok {
			return nil, errors.New("[Run] contig builder cannot remove low coverage contigs")
		}
		c, err := lp.RemoveLowCoverageContigs(g, a.Opt.ContigCoverageThreshold)
		if err != nil {
			return nil, errors.Wrap(err, "[Run]")
		}
		a.Stats.LowCoverageNodesRemoved = c
	}
	contigs, err := a.ContigBuilder.Build(g)
	if err != nil {
		return nil, errors.Wrap(err, "[Run]")
	}
	a.Stats.OutputNodes = g.NodeCount()
	a.Stats.Contigs = len(contigs)
	log.Noticef("[Run] %d nodes in, %d nodes out, %d contigs", a.Stats.InputNodes, a.Stats.OutputNodes, a.Stats.Contigs)
	return contigs, nil
}
