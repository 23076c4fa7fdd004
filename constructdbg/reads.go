package constructdbg

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/google/brotli/go/cbrotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mudesheng/dbgasm/bnt"
	"github.com/pkg/errors"
)

const readBufSize = 1 << 20

// LoadReadsFiles concatenates the reads of every file
func LoadReadsFiles(fns []string) (reads [][]byte, err error) {
	for _, fn := range fns {
		rs, err := LoadReadsFile(fn)
		if err != nil {
			return nil, err
		}
		log.Infof("[LoadReadsFiles] %s: %d reads", fn, len(rs))
		reads = append(reads, rs...)
	}
	return reads, nil
}

// LoadReadsFile reads *.bam or fasta/fastq, optionally compressed with
// .zst, .br or .gz
func LoadReadsFile(fn string) ([][]byte, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "[LoadReadsFile] open file: %s", fn)
	}
	defer fp.Close()
	if strings.HasSuffix(fn, ".bam") {
		return readBam(fp)
	}

	var r io.Reader = bufio.NewReaderSize(fp, readBufSize)
	name := fn
	switch {
	case strings.HasSuffix(fn, ".zst"):
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrapf(err, "[LoadReadsFile] zstd reader: %s", fn)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(fn, ".zst")
	case strings.HasSuffix(fn, ".br"):
		brfp := cbrotli.NewReader(r)
		defer brfp.Close()
		r = brfp
		name = strings.TrimSuffix(fn, ".br")
	case strings.HasSuffix(fn, ".gz"):
		gzfp, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "[LoadReadsFile] gzip reader: %s", fn)
		}
		defer gzfp.Close()
		r = gzfp
		name = strings.TrimSuffix(fn, ".gz")
	}

	var reads [][]byte
	if strings.HasSuffix(name, ".fq") || strings.HasSuffix(name, ".fastq") {
		reads, err = readFastq(r)
	} else {
		reads, err = readFasta(r)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[LoadReadsFile] %s", fn)
	}
	return reads, nil
}

func readFasta(r io.Reader) ([][]byte, error) {
	fafp := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA))
	var reads [][]byte
	for {
		s, err := fafp.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		l := s.(*linear.Seq)
		seq := make([]byte, len(l.Seq))
		for i, c := range l.Seq {
			seq[i] = byte(c)
		}
		reads = append(reads, seq)
	}
	return reads, nil
}

func readFastq(r io.Reader) ([][]byte, error) {
	fqfp := fastq.NewReader(r, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	var reads [][]byte
	for {
		s, err := fqfp.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		q := s.(*linear.QSeq)
		seq := make([]byte, len(q.Seq))
		for i, ql := range q.Seq {
			seq[i] = byte(ql.L)
		}
		reads = append(reads, seq)
	}
	return reads, nil
}

// readBam keeps primary records only, unmapped ones included
func readBam(r io.Reader) ([][]byte, error) {
	bamfp, err := bam.NewReader(r, 1)
	if err != nil {
		return nil, errors.Wrap(err, "[readBam] create bam reader")
	}
	defer bamfp.Close()
	var reads [][]byte
	for {
		rec, err := bamfp.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "[readBam]")
		}
		if rec.Flags&(sam.Secondary|sam.Supplementary) != 0 {
			continue
		}
		seq := rec.Seq.Expand()
		if rec.Flags&sam.Reverse != 0 {
			// stored on the forward strand of the reference
			seq = bnt.ReverseCompletSeq(seq)
		}
		reads = append(reads, seq)
	}
	return reads, nil
}
