package config

import (
	"os"

	"github.com/mudesheng/dbgasm/bnt"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Options are the assembly parameters. A negative threshold means it is
// derived from the kmer length or the graph when the pipeline starts.
type Options struct {
	KmerLen                       int     `toml:"kmer_len"`
	NumCPU                        int     `toml:"num_cpu"`
	MinKmerFreq                   int     `toml:"min_kmer_freq"`
	DanglingLinksThreshold        int     `toml:"dangling_links_threshold"`
	AllowErosion                  bool    `toml:"allow_erosion"`
	ErosionThreshold              int     `toml:"erosion_threshold"`
	RedundantPathLengthThreshold  int     `toml:"redundant_path_length_threshold"`
	AllowLowCoverageContigRemoval bool    `toml:"allow_low_coverage_contig_removal"`
	ContigCoverageThreshold       float64 `toml:"contig_coverage_threshold"`
	MinContigLen                  int     `toml:"min_contig_len"`
	GraphDot                      bool    `toml:"graph_dot"`
}

func Default(kmerLen int) Options {
	return Options{
		KmerLen:                      kmerLen,
		NumCPU:                       1,
		MinKmerFreq:                  1,
		DanglingLinksThreshold:       -1,
		ErosionThreshold:             -1,
		RedundantPathLengthThreshold: -1,
		ContigCoverageThreshold:      -1,
	}
}

// Load reads a toml file over the defaults for kmerLen, keys missing from
// the file keep their default value
func Load(fn string, kmerLen int) (Options, error) {
	opt := Default(kmerLen)
	data, err := os.ReadFile(fn)
	if err != nil {
		return opt, errors.Wrapf(err, "[Load] read config: %s", fn)
	}
	if err := toml.Unmarshal(data, &opt); err != nil {
		return opt, errors.Wrapf(err, "[Load] parse config: %s", fn)
	}
	return opt, nil
}

func (opt Options) Save(fn string) error {
	data, err := toml.Marshal(opt)
	if err != nil {
		return errors.Wrap(err, "[Save]")
	}
	return errors.Wrapf(os.WriteFile(fn, data, 0644), "[Save] write config: %s", fn)
}

// Merge overrides opt with the fields of o that are set, -1 and false
// count as unset
func (opt *Options) Merge(o Options) {
	if o.KmerLen > 0 {
		opt.KmerLen = o.KmerLen
	}
	if o.NumCPU > 0 {
		opt.NumCPU = o.NumCPU
	}
	if o.MinKmerFreq > 0 {
		opt.MinKmerFreq = o.MinKmerFreq
	}
	if o.DanglingLinksThreshold >= 0 {
		opt.DanglingLinksThreshold = o.DanglingLinksThreshold
	}
	if o.ErosionThreshold >= 0 {
		opt.ErosionThreshold = o.ErosionThreshold
	}
	if o.RedundantPathLengthThreshold >= 0 {
		opt.RedundantPathLengthThreshold = o.RedundantPathLengthThreshold
	}
	if o.ContigCoverageThreshold >= 0 {
		opt.ContigCoverageThreshold = o.ContigCoverageThreshold
	}
	if o.MinContigLen > 0 {
		opt.MinContigLen = o.MinContigLen
	}
	opt.AllowErosion = opt.AllowErosion || o.AllowErosion
	opt.AllowLowCoverageContigRemoval = opt.AllowLowCoverageContigRemoval || o.AllowLowCoverageContigRemoval
	opt.GraphDot = opt.GraphDot || o.GraphDot
}

// Unset returns Options whose fields are all ignored by Merge
func Unset() Options {
	return Options{
		DanglingLinksThreshold:       -1,
		ErosionThreshold:             -1,
		RedundantPathLengthThreshold: -1,
		ContigCoverageThreshold:      -1,
	}
}

func (opt Options) Validate() error {
	if opt.KmerLen < 1 || opt.KmerLen > bnt.MaxKmerLen {
		return errors.Errorf("kmer_len %d out of range [1, %d]", opt.KmerLen, bnt.MaxKmerLen)
	}
	if opt.KmerLen%2 == 0 {
		return errors.Errorf("kmer_len %d must be odd", opt.KmerLen)
	}
	if opt.NumCPU < 1 {
		return errors.Errorf("num_cpu %d must be positive", opt.NumCPU)
	}
	if opt.MinKmerFreq < 1 {
		return errors.Errorf("min_kmer_freq %d must be positive", opt.MinKmerFreq)
	}
	if opt.DanglingLinksThreshold < -1 || opt.ErosionThreshold < -1 || opt.RedundantPathLengthThreshold < -1 {
		return errors.New("thresholds must be -1 or non-negative")
	}
	if opt.AllowLowCoverageContigRemoval && opt.ContigCoverageThreshold == 0 {
		return errors.New("contig_coverage_threshold must be positive when low coverage contig removal is on")
	}
	if opt.MinContigLen < 0 {
		return errors.Errorf("min_contig_len %d must be non-negative", opt.MinContigLen)
	}
	return nil
}
