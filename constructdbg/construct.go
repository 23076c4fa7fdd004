package constructdbg

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/mudesheng/dbgasm/bnt"
	"github.com/mudesheng/dbgasm/dbg"
	"github.com/mudesheng/dbgasm/utils"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("constructdbg")

const shardsPerCPU = 4

type KmerCount struct {
	Kmer  uint64
	Count uint32
}

type kmerShard struct {
	sync.Mutex
	counts map[uint64]uint32
}

// KmerCounter tallies canonical k-mers in shards picked by xxhash so that
// workers rarely contend on the same lock
type KmerCounter struct {
	kmerLen int
	shards  []kmerShard
}

func NewKmerCounter(kmerLen, numCPU int) *KmerCounter {
	numCPU = utils.MaxInt(numCPU, 1)
	kc := &KmerCounter{kmerLen: kmerLen, shards: make([]kmerShard, numCPU*shardsPerCPU)}
	for i := range kc.shards {
		kc.shards[i].counts = make(map[uint64]uint32)
	}
	return kc
}

func (kc *KmerCounter) shardIdx(kb uint64) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], kb)
	return int(xxhash.Sum64(buf[:]) % uint64(len(kc.shards)))
}

// ReadKmers returns the canonical k-mers of seq, windows holding a base
// outside ACGT are skipped
func ReadKmers(seq []byte, kmerLen int, ks []uint64) []uint64 {
	ks = ks[:0]
	for start := 0; start+kmerLen <= len(seq); {
		kb, ok := bnt.GetReadKmer(seq, start, kmerLen)
		if !ok {
			start++
			continue
		}
		ck, _ := bnt.Canonical(kb, kmerLen)
		ks = append(ks, ck)
		i := start + kmerLen
		for ; i < len(seq); i++ {
			b := bnt.Base2Bnt[seq[i]]
			if b == bnt.InvalidBnt {
				break
			}
			kb = bnt.GetNextKmer(kb, uint64(b), kmerLen)
			ck, _ = bnt.Canonical(kb, kmerLen)
			ks = append(ks, ck)
		}
		start = i + 1
	}
	return ks
}

func (kc *KmerCounter) AddRead(seq []byte, buckets [][]uint64) {
	for i := range buckets {
		buckets[i] = buckets[i][:0]
	}
	for _, ck := range ReadKmers(seq, kc.kmerLen, nil) {
		idx := kc.shardIdx(ck)
		buckets[idx] = append(buckets[idx], ck)
	}
	for i, b := range buckets {
		if len(b) == 0 {
			continue
		}
		sh := &kc.shards[i]
		sh.Lock()
		for _, ck := range b {
			sh.counts[ck]++
		}
		sh.Unlock()
	}
}

// Solid lists the k-mers seen at least minFreq times sorted by k-mer
func (kc *KmerCounter) Solid(minFreq int) []KmerCount {
	var kcArr []KmerCount
	for i := range kc.shards {
		for k, c := range kc.shards[i].counts {
			if int(c) >= minFreq {
				kcArr = append(kcArr, KmerCount{Kmer: k, Count: c})
			}
		}
	}
	sort.Slice(kcArr, func(i, j int) bool { return kcArr[i].Kmer < kcArr[j].Kmer })
	return kcArr
}

func CountKmers(reads [][]byte, kmerLen, numCPU int) *KmerCounter {
	kc := NewKmerCounter(kmerLen, numCPU)
	rc := make(chan []byte, numCPU*2)
	var wg sync.WaitGroup
	for i := 0; i < numCPU; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buckets := make([][]uint64, len(kc.shards))
			for seq := range rc {
				kc.AddRead(seq, buckets)
			}
		}()
	}
	for _, r := range reads {
		rc <- r
	}
	close(rc)
	wg.Wait()
	return kc
}

// BuildFromReads counts canonical k-mers, keeps the solid ones as nodes with
// ids in k-mer order and links every pair overlapping by kmerLen-1 bases
func BuildFromReads(reads [][]byte, kmerLen, minKmerFreq, numCPU int) (*dbg.Graph, error) {
	if kmerLen < 1 || kmerLen > bnt.MaxKmerLen {
		return nil, errors.Errorf("[BuildFromReads] kmer length %d out of range [1, %d]", kmerLen, bnt.MaxKmerLen)
	}
	numCPU = utils.MaxInt(numCPU, 1)
	kc := CountKmers(reads, kmerLen, numCPU)
	solid := kc.Solid(minKmerFreq)
	log.Infof("[BuildFromReads] %d reads, %d solid %d-mers (min freq %d)", len(reads), len(solid), kmerLen, minKmerFreq)

	g := dbg.NewGraph(kmerLen)
	g.NumCPU = numCPU
	for _, k := range solid {
		g.AddNode(k.Kmer, k.Count)
	}
	if err := GenerateLinks(g, numCPU); err != nil {
		return nil, err
	}
	return g, nil
}

func lookupKmer(nodes []*dbg.Node, kb uint64) (*dbg.Node, bool) {
	i := sort.Search(len(nodes), func(i int) bool { return nodes[i].Kmer >= kb })
	if i < len(nodes) && nodes[i].Kmer == kb {
		return nodes[i], true
	}
	return nil, false
}

// GenerateLinks expects the live nodes sorted by k-mer, each worker only
// writes the extensions of the node it holds
func GenerateLinks(g *dbg.Graph, numCPU int) error {
	nodes := g.GetNodes()
	kmerLen := g.KmerLength()
	var mu sync.Mutex
	var linkErr error
	dbg.ParallelForEach(nodes, numCPU, func(n *dbg.Node) {
		for b := uint64(0); b < bnt.BaseTypeNum; b++ {
			next, nsame := bnt.Canonical(bnt.GetNextKmer(n.Kmer, b, kmerLen), kmerLen)
			if m, ok := lookupKmer(nodes, next); ok {
				if err := n.AddExtension(dbg.Right, m.ID, nsame); err != nil {
					mu.Lock()
					linkErr = err
					mu.Unlock()
				}
			}
			prev, psame := bnt.Canonical(bnt.GetPreviousKmer(n.Kmer, b, kmerLen), kmerLen)
			if m, ok := lookupKmer(nodes, prev); ok {
				if err := n.AddExtension(dbg.Left, m.ID, psame); err != nil {
					mu.Lock()
					linkErr = err
					mu.Unlock()
				}
			}
		}
	})
	if linkErr != nil {
		return errors.Wrap(linkErr, "[GenerateLinks]")
	}
	return g.Validate()
}
