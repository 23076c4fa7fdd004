package bnt

// 2-bit nucleotide encoding, A:0 C:1 G:2 T:3
const (
	BaseTypeNum     = 4
	NumBitsInBase   = 2
	NumBaseInByte   = 8 / NumBitsInBase
	NumBaseInUint64 = 64 / NumBitsInBase
	BaseMask        = (1 << NumBitsInBase) - 1
	MaxKmerLen      = NumBaseInUint64 - 1
	InvalidBnt      = BaseTypeNum
)

var BitNtCharUp = []byte{'A', 'C', 'G', 'T'}
var BntRev = []byte{3, 2, 1, 0}

// Base2Bnt maps an ASCII base to its 2-bit code, InvalidBnt for anything that is not ACGT
var Base2Bnt [256]byte

func init() {
	for i := range Base2Bnt {
		Base2Bnt[i] = InvalidBnt
	}
	for i, c := range BitNtCharUp {
		Base2Bnt[c] = byte(i)
		Base2Bnt[c+'a'-'A'] = byte(i)
	}
}

func KmerMask(kmerlen int) uint64 {
	if kmerlen >= NumBaseInUint64 {
		return ^uint64(0)
	}
	return (uint64(1) << (uint(kmerlen) * NumBitsInBase)) - 1
}

// GetReadKmer packs seq[startPos:startPos+kmerlen] into a uint64, ok is false
// when the window holds a base outside ACGT
func GetReadKmer(seq []byte, startPos, kmerlen int) (kb uint64, ok bool) {
	for i := 0; i < kmerlen; i++ {
		b := Base2Bnt[seq[startPos+i]]
		if b == InvalidBnt {
			return 0, false
		}
		kb = (kb << NumBitsInBase) | uint64(b)
	}
	return kb, true
}

func ReverseComplet(kb uint64, kmerlen int) (rs uint64) {
	for i := 0; i < kmerlen; i++ {
		rs = (rs << NumBitsInBase) | uint64(BntRev[kb&BaseMask])
		kb >>= NumBitsInBase
	}
	return rs
}

// Canonical returns max(kb, rc(kb)), same is true when kb itself is the canonical form
func Canonical(kb uint64, kmerlen int) (ck uint64, same bool) {
	rs := ReverseComplet(kb, kmerlen)
	if kb >= rs {
		return kb, true
	}
	return rs, false
}

func IsPalindrome(kb uint64, kmerlen int) bool {
	return kb == ReverseComplet(kb, kmerlen)
}

// GetNextKmer drops the first base and appends base at the end
func GetNextKmer(kb uint64, base uint64, kmerlen int) uint64 {
	return ((kb << NumBitsInBase) | base) & KmerMask(kmerlen)
}

// GetPreviousKmer drops the last base and puts base in front
func GetPreviousKmer(kb uint64, base uint64, kmerlen int) uint64 {
	return (kb >> NumBitsInBase) | (base << (uint(kmerlen-1) * NumBitsInBase))
}

func FirstBase(kb uint64, kmerlen int) byte {
	return BitNtCharUp[(kb>>(uint(kmerlen-1)*NumBitsInBase))&BaseMask]
}

func LastBase(kb uint64) byte {
	return BitNtCharUp[kb&BaseMask]
}

func KmerToSeq(kb uint64, kmerlen int) []byte {
	seq := make([]byte, kmerlen)
	for i := kmerlen - 1; i >= 0; i-- {
		seq[i] = BitNtCharUp[kb&BaseMask]
		kb >>= NumBitsInBase
	}
	return seq
}

func ReverseCompletSeq(seq []byte) []byte {
	rs := make([]byte, len(seq))
	for i, c := range seq {
		b := Base2Bnt[c]
		if b == InvalidBnt {
			rs[len(seq)-1-i] = 'N'
			continue
		}
		rs[len(seq)-1-i] = BitNtCharUp[BntRev[b]]
	}
	return rs
}
