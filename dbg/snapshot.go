package dbg

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

type snapshotHeader struct {
	KmerLen int
	NodeNum int
}

type nodeRecord struct {
	Kmer  uint64
	Count uint32
	Left  []Extension
	Right []Extension
}

// WriteSnapshot stores the live nodes gob encoded inside a zstd stream.
// Ids are renumbered densely in arena order.
func WriteSnapshot(g *Graph, w io.Writer) error {
	if g == nil {
		return ErrNilGraph
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderCRC(false), zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(1))
	if err != nil {
		return errors.Wrap(err, "[WriteSnapshot] create zstd writer")
	}
	nodes := g.GetNodes()
	remap := make(map[NodeID]NodeID, len(nodes))
	for i, n := range nodes {
		remap[n.ID] = NodeID(i)
	}
	enc := gob.NewEncoder(zw)
	if err := enc.Encode(snapshotHeader{KmerLen: g.kmerLen, NodeNum: len(nodes)}); err != nil {
		zw.Close()
		return errors.Wrap(err, "[WriteSnapshot] encode header")
	}
	convert := func(exts []Extension) []Extension {
		out := make([]Extension, 0, len(exts))
		for _, e := range exts {
			if id, ok := remap[e.ID]; ok {
				out = append(out, Extension{ID: id, SameOrientation: e.SameOrientation})
			}
		}
		return out
	}
	for _, n := range nodes {
		rec := nodeRecord{Kmer: n.Kmer, Count: n.Count, Left: convert(n.ext[Left]), Right: convert(n.ext[Right])}
		if err := enc.Encode(&rec); err != nil {
			zw.Close()
			return errors.Wrapf(err, "[WriteSnapshot] encode node %d", n.ID)
		}
	}
	return zw.Close()
}

func ReadSnapshot(r io.Reader) (*Graph, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "[ReadSnapshot] create zstd reader")
	}
	defer zr.Close()
	dec := gob.NewDecoder(zr)
	var hdr snapshotHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, errors.Wrap(err, "[ReadSnapshot] decode header")
	}
	g := NewGraph(hdr.KmerLen)
	g.nodes = make([]*Node, 0, hdr.NodeNum)
	for i := 0; i < hdr.NodeNum; i++ {
		var rec nodeRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrapf(err, "[ReadSnapshot] decode node %d", i)
		}
		n := g.AddNode(rec.Kmer, rec.Count)
		n.ext[Left] = rec.Left
		n.ext[Right] = rec.Right
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, "[ReadSnapshot]")
	}
	return g, nil
}

func WriteSnapshotFile(g *Graph, fn string) (err error) {
	fp, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "[WriteSnapshotFile] create file: %s", fn)
	}
	defer func() {
		if cerr := fp.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "[WriteSnapshotFile] close file: %s", fn)
		}
	}()
	buffp := bufio.NewWriterSize(fp, 1<<16)
	if err := WriteSnapshot(g, buffp); err != nil {
		return err
	}
	return buffp.Flush()
}

func ReadSnapshotFile(fn string) (*Graph, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "[ReadSnapshotFile] open file: %s", fn)
	}
	defer fp.Close()
	return ReadSnapshot(bufio.NewReaderSize(fp, 1<<16))
}
