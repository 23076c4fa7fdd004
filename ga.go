package main

import (
	"github.com/jwaldrip/odin/cli"
)

const Kmerdef = 31

var app = cli.New("1.0.0", "de Bruijn graph cleaning and contig assembly", func(c cli.Command) {})

func init() {
	app.DefineStringFlag("C", "", "configure file [*.toml]")
	app.DefineStringFlag("cpuprofile", "", "write cpu profile to file")
	app.DefineIntFlag("K", Kmerdef, "kmer length (odd, <= 31)")
	app.DefineStringFlag("p", "./dbgasm", "prefix of the output file")
	app.DefineIntFlag("t", 1, "number of CPU used")
	app.DefineBoolFlag("v", false, "verbose log")

	cdbg := app.DefineSubCommand("cdbg", "construct De bruijn Graph from reads", CDBG)
	{
		cdbg.DefineStringFlag("reads", "", "comma separated read files [*.fa|*.fq][.zst|.br|.gz] or *.bam")
		cdbg.DefineIntFlag("MinKmerFreq", 0, "Min Kmer Freq allowed as node, default[0] from configure file")
		cdbg.DefineBoolFlag("Graph", false, "output dot graph file")
	}
	smfy := app.DefineSubCommand("smfy", "Simplify De bruijn Graph and build contigs", Smfy)
	defineSmfyFlags(smfy)

	asm := app.DefineSubCommand("asm", "construct, simplify and build contigs in one run", Asm)
	{
		asm.DefineStringFlag("reads", "", "comma separated read files [*.fa|*.fq][.zst|.br|.gz] or *.bam")
		asm.DefineIntFlag("MinKmerFreq", 0, "Min Kmer Freq allowed as node, default[0] from configure file")
	}
	defineSmfyFlags(asm)

	stat := app.DefineSubCommand("stat", "print node, end and coverage statistics of a graph", Stat)
	{
		stat.DefineStringFlag("graph", "", "graph file, default[prefix.dbg.zst]")
	}
}

func defineSmfyFlags(c *cli.SubCommand) {
	c.DefineIntFlag("DanglingThreshold", -1, "Maximum dangling link length + 1, default[-1] for K+1")
	c.DefineIntFlag("ErosionThreshold", -1, "erode graph end nodes with count below, default[-1] estimate from coverage")
	c.DefineIntFlag("RedundantPathLen", -1, "Maximum bubble path length, default[-1] for 3*(K+1)")
	c.DefineFloat64Flag("ContigCoverage", -1, "remove contigs with mean coverage below, default[-1] estimate from coverage")
	c.DefineBoolFlag("Erosion", false, "erode low coverage graph ends")
	c.DefineBoolFlag("LowCovContig", false, "remove low coverage contigs")
	c.DefineIntFlag("MinContigLen", 0, "Minimum contig length written")
	c.DefineBoolFlag("Graph", false, "output dot graph file")
}

func main() {
	app.Start()
}
