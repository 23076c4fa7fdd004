package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/jwaldrip/odin/cli"
	"github.com/mudesheng/dbgasm/config"
	"github.com/mudesheng/dbgasm/constructdbg"
	"github.com/mudesheng/dbgasm/dbg"
	"github.com/mudesheng/dbgasm/smfydbg"
	"github.com/mudesheng/dbgasm/utils"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

var log = logging.MustGetLogger("dbgasm")

// startStage parses the global flags, sets up logging and profiling and
// returns the options merged from the configure file
func startStage(c cli.Command) (utils.ArgsOpt, config.Options, func()) {
	gOpt, err := utils.CheckGlobalArgs(c.Parent())
	if err != nil {
		log.Fatalf("%v", err)
	}
	utils.SetupLogging(gOpt.Verbose)
	stop := func() {}
	if gOpt.Cpuprofile != "" {
		fp, err := os.Create(gOpt.Cpuprofile)
		if err != nil {
			log.Fatalf("[startStage] create cpuprofile: %s, err: %v", gOpt.Cpuprofile, err)
		}
		if err := pprof.StartCPUProfile(fp); err != nil {
			log.Fatalf("[startStage] start cpuprofile: %v", err)
		}
		stop = func() {
			pprof.StopCPUProfile()
			fp.Close()
		}
	}

	opt := config.Default(gOpt.Kmer)
	if gOpt.CfgFn != "" {
		if opt, err = config.Load(gOpt.CfgFn, gOpt.Kmer); err != nil {
			log.Fatalf("%v", err)
		}
	}
	flagOpt := config.Unset()
	flagOpt.KmerLen = gOpt.Kmer
	flagOpt.NumCPU = gOpt.NumCPU
	opt.Merge(flagOpt)
	return gOpt, opt, stop
}

func checkArgsCDBG(c cli.Command, opt *config.Options) (readfns []string, graph bool) {
	reads := c.Flag("reads").String()
	if reads == "" {
		log.Fatalf("[checkArgsCDBG] args 'reads' not set")
	}
	readfns = strings.Split(reads, ",")
	if freq, ok := c.Flag("MinKmerFreq").Get().(int); ok && freq > 0 {
		opt.MinKmerFreq = freq
	}
	if g, ok := c.Flag("Graph").Get().(bool); ok && g {
		graph = true
	}
	return readfns, graph
}

func checkArgsSmfy(c cli.Command, opt *config.Options) {
	o := config.Unset()
	var ok bool
	if o.DanglingLinksThreshold, ok = c.Flag("DanglingThreshold").Get().(int); !ok {
		log.Fatalf("[checkArgsSmfy] args 'DanglingThreshold': %v set error", c.Flag("DanglingThreshold").String())
	}
	if o.ErosionThreshold, ok = c.Flag("ErosionThreshold").Get().(int); !ok {
		log.Fatalf("[checkArgsSmfy] args 'ErosionThreshold': %v set error", c.Flag("ErosionThreshold").String())
	}
	if o.RedundantPathLengthThreshold, ok = c.Flag("RedundantPathLen").Get().(int); !ok {
		log.Fatalf("[checkArgsSmfy] args 'RedundantPathLen': %v set error", c.Flag("RedundantPathLen").String())
	}
	if o.ContigCoverageThreshold, ok = c.Flag("ContigCoverage").Get().(float64); !ok {
		log.Fatalf("[checkArgsSmfy] args 'ContigCoverage': %v set error", c.Flag("ContigCoverage").String())
	}
	if o.MinContigLen, ok = c.Flag("MinContigLen").Get().(int); !ok {
		log.Fatalf("[checkArgsSmfy] args 'MinContigLen': %v set error", c.Flag("MinContigLen").String())
	}
	o.AllowErosion, _ = c.Flag("Erosion").Get().(bool)
	o.AllowLowCoverageContigRemoval, _ = c.Flag("LowCovContig").Get().(bool)
	o.GraphDot, _ = c.Flag("Graph").Get().(bool)
	opt.Merge(o)
	if err := opt.Validate(); err != nil {
		log.Fatalf("[checkArgsSmfy] %v", err)
	}
}

func buildGraph(opt config.Options, readfns []string) *dbg.Graph {
	reads, err := constructdbg.LoadReadsFiles(readfns)
	if err != nil {
		log.Fatalf("%v", err)
	}
	g, err := constructdbg.BuildFromReads(reads, opt.KmerLen, opt.MinKmerFreq, opt.NumCPU)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return g
}

func simplify(prefix string, opt config.Options, g *dbg.Graph) {
	a := smfydbg.NewAssembler(opt)
	contigs, err := a.Run(g)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := dbg.WriteSnapshotFile(g, prefix+".smfy.dbg.zst"); err != nil {
		log.Fatalf("%v", err)
	}
	// thresholds derived during the run are recorded with the graph
	if err := a.Opt.Save(prefix + ".smfy.toml"); err != nil {
		log.Fatalf("%v", err)
	}
	if a.Opt.GraphDot {
		if err := dbg.WriteGraphviz(g, prefix+".smfy.dot"); err != nil {
			log.Fatalf("%v", err)
		}
	}
	n, err := smfydbg.WriteContigsFile(prefix+".contig.fa.zst", contigs, a.Opt.MinContigLen)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Noticef("[simplify] dangling removed: %d, redundant removed: %d, low coverage removed: %d, contigs written: %d",
		a.Stats.DanglingNodesRemoved, a.Stats.RedundantNodesRemoved, a.Stats.LowCoverageNodesRemoved, n)
}

func CDBG(c cli.Command) {
	gOpt, opt, stop := startStage(c)
	defer stop()
	readfns, graph := checkArgsCDBG(c, &opt)
	if err := opt.Validate(); err != nil {
		log.Fatalf("[CDBG] %v", err)
	}
	g := buildGraph(opt, readfns)
	if err := dbg.WriteSnapshotFile(g, gOpt.Prefix+".dbg.zst"); err != nil {
		log.Fatalf("%v", err)
	}
	if err := opt.Save(gOpt.Prefix + ".cdbg.toml"); err != nil {
		log.Fatalf("%v", err)
	}
	if graph {
		if err := dbg.WriteGraphviz(g, gOpt.Prefix+".dot"); err != nil {
			log.Fatalf("%v", err)
		}
	}
	log.Noticef("[CDBG] %d nodes written to %s", g.NodeCount(), gOpt.Prefix+".dbg.zst")
}

func Smfy(c cli.Command) {
	gOpt, opt, stop := startStage(c)
	defer stop()
	checkArgsSmfy(c, &opt)
	g, err := dbg.ReadSnapshotFile(gOpt.Prefix + ".dbg.zst")
	if err != nil {
		log.Fatalf("%v", err)
	}
	if g.KmerLength() != opt.KmerLen {
		log.Warningf("[Smfy] graph kmer length %d differs from 'K' %d, using the graph's", g.KmerLength(), opt.KmerLen)
		opt.KmerLen = g.KmerLength()
	}
	g.NumCPU = opt.NumCPU
	simplify(gOpt.Prefix, opt, g)
}

func Asm(c cli.Command) {
	gOpt, opt, stop := startStage(c)
	defer stop()
	readfns, _ := checkArgsCDBG(c, &opt)
	checkArgsSmfy(c, &opt)
	simplify(gOpt.Prefix, opt, buildGraph(opt, readfns))
}

type graphStat struct {
	Nodes          int64
	Ends           int
	Islands        int
	Branches       int
	MeanCoverage   float64
	MedianCoverage float64
}

func collectGraphStat(g *dbg.Graph) (gs graphStat, err error) {
	if err := dbg.ValidateGraph(g); err != nil {
		return gs, errors.Wrap(err, "[collectGraphStat]")
	}
	nodes := g.GetNodes()
	gs.Nodes = int64(len(nodes))
	if len(nodes) == 0 {
		return gs, nil
	}
	counts := make([]float64, len(nodes))
	for i, n := range nodes {
		counts[i] = float64(n.Count)
		l, r := n.LeftExtensionCount(), n.RightExtensionCount()
		switch {
		case l == 0 && r == 0:
			gs.Islands++
		case l == 0 || r == 0:
			gs.Ends++
		}
		if l > 1 || r > 1 {
			gs.Branches++
		}
	}
	sort.Float64s(counts)
	gs.MeanCoverage = stat.Mean(counts, nil)
	gs.MedianCoverage = stat.Quantile(0.5, stat.Empirical, counts, nil)
	return gs, nil
}

func Stat(c cli.Command) {
	gOpt, _, stop := startStage(c)
	defer stop()
	fn := c.Flag("graph").String()
	if fn == "" {
		fn = gOpt.Prefix + ".dbg.zst"
	}
	g, err := dbg.ReadSnapshotFile(fn)
	if err != nil {
		log.Fatalf("%v", err)
	}
	gs, err := collectGraphStat(g)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("graph:\t%s\nkmer:\t%d\nnodes:\t%d\nends:\t%d\nislands:\t%d\nbranches:\t%d\nmean coverage:\t%.2f\nmedian coverage:\t%.2f\n",
		fn, g.KmerLength(), gs.Nodes, gs.Ends, gs.Islands, gs.Branches, gs.MeanCoverage, gs.MedianCoverage)
}
