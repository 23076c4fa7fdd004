package smfydbg

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const fastaLineWidth = 80

// WriteContigs writes the contigs of at least minLen bases as fasta, longest
// first, and returns how many were written
func WriteContigs(w io.Writer, contigs [][]byte, minLen int) (int, error) {
	sorted := make([][]byte, 0, len(contigs))
	for _, c := range contigs {
		if len(c) >= minLen {
			sorted = append(sorted, c)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})
	fafp := fasta.NewWriter(w, fastaLineWidth)
	for i, c := range sorted {
		s := linear.NewSeq("contig_"+strconv.Itoa(i+1), alphabet.BytesToLetters(c), alphabet.DNA)
		s.Desc = "len:" + strconv.Itoa(len(c))
		if _, err := fafp.Write(s); err != nil {
			return i, errors.Wrap(err, "[WriteContigs]")
		}
	}
	return len(sorted), nil
}

// WriteContigsFile compresses with zstd when fn ends in .zst
func WriteContigsFile(fn string, contigs [][]byte, minLen int) (n int, err error) {
	fp, err := os.Create(fn)
	if err != nil {
		return 0, errors.Wrapf(err, "[WriteContigsFile] create file: %s", fn)
	}
	defer func() {
		if cerr := fp.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "[WriteContigsFile] close file: %s", fn)
		}
	}()
	buffp := bufio.NewWriterSize(fp, 1<<16)
	var w io.Writer = buffp
	var zw *zstd.Encoder
	if strings.HasSuffix(fn, ".zst") {
		zw, err = zstd.NewWriter(buffp, zstd.WithEncoderCRC(false), zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(1))
		if err != nil {
			return 0, errors.Wrapf(err, "[WriteContigsFile] zstd writer: %s", fn)
		}
		w = zw
	}
	n, err = WriteContigs(w, contigs, minLen)
	if err != nil {
		return n, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return n, errors.Wrapf(err, "[WriteContigsFile] %s", fn)
		}
	}
	if err := buffp.Flush(); err != nil {
		return n, errors.Wrapf(err, "[WriteContigsFile] %s", fn)
	}
	log.Infof("[WriteContigsFile] wrote %d contigs to %s", n, fn)
	return n, nil
}
