package bnt

import (
	"bytes"
	"testing"
)

func TestGetReadKmer(t *testing.T) {
	seq := []byte("ACGTacgt")
	kb, ok := GetReadKmer(seq, 0, 8)
	if !ok {
		t.Fatalf("kmer of %s not ok", seq)
	}
	if got := KmerToSeq(kb, 8); !bytes.Equal(got, []byte("ACGTACGT")) {
		t.Errorf("KmerToSeq = %s", got)
	}
	if _, ok := GetReadKmer([]byte("ACGNACG"), 0, 5); ok {
		t.Errorf("kmer with N should be rejected")
	}
	if _, ok := GetReadKmer([]byte("ACGNACGTT"), 4, 5); !ok {
		t.Errorf("kmer after N should be accepted")
	}
}

func TestReverseComplet(t *testing.T) {
	cases := []struct{ seq, rc string }{
		{"AAAAC", "GTTTT"},
		{"ACGTA", "TACGT"},
		{"GATTACA", "TGTAATC"},
	}
	for _, c := range cases {
		kb, _ := GetReadKmer([]byte(c.seq), 0, len(c.seq))
		rs := ReverseComplet(kb, len(c.seq))
		if got := string(KmerToSeq(rs, len(c.seq))); got != c.rc {
			t.Errorf("ReverseComplet(%s) = %s, want %s", c.seq, got, c.rc)
		}
		if ReverseComplet(rs, len(c.seq)) != kb {
			t.Errorf("ReverseComplet is not an involution for %s", c.seq)
		}
		if got := string(ReverseCompletSeq([]byte(c.seq))); got != c.rc {
			t.Errorf("ReverseCompletSeq(%s) = %s", c.seq, got)
		}
	}
}

func TestCanonical(t *testing.T) {
	kb, _ := GetReadKmer([]byte("AAAAC"), 0, 5)
	ck, same := Canonical(kb, 5)
	if same || string(KmerToSeq(ck, 5)) != "GTTTT" {
		t.Errorf("Canonical(AAAAC) = %s,%v", KmerToSeq(ck, 5), same)
	}
	ck2, same2 := Canonical(ck, 5)
	if !same2 || ck2 != ck {
		t.Errorf("canonical kmer should be its own canonical form")
	}
	pal, _ := GetReadKmer([]byte("ACGT"), 0, 4)
	if !IsPalindrome(pal, 4) {
		t.Errorf("ACGT is a palindrome")
	}
}

func TestNextPreviousKmer(t *testing.T) {
	kb, _ := GetReadKmer([]byte("ACGTT"), 0, 5)
	next := GetNextKmer(kb, uint64(Base2Bnt['G']), 5)
	if got := string(KmerToSeq(next, 5)); got != "CGTTG" {
		t.Errorf("GetNextKmer = %s", got)
	}
	prev := GetPreviousKmer(kb, uint64(Base2Bnt['T']), 5)
	if got := string(KmerToSeq(prev, 5)); got != "TACGT" {
		t.Errorf("GetPreviousKmer = %s", got)
	}
	if FirstBase(kb, 5) != 'A' || LastBase(kb) != 'T' {
		t.Errorf("FirstBase/LastBase = %c/%c", FirstBase(kb, 5), LastBase(kb))
	}
	full, _ := GetReadKmer(bytes.Repeat([]byte("T"), MaxKmerLen), 0, MaxKmerLen)
	if full != KmerMask(MaxKmerLen) {
		t.Errorf("poly-T of max length should fill the mask")
	}
}

func Benchmark_ReverseComplet(b *testing.B) {
	kb, _ := GetReadKmer([]byte("ACGTACCCGATAGACACGATACGACAACCCT"), 0, MaxKmerLen)
	for i := 0; i < b.N; i++ {
		Canonical(kb, MaxKmerLen)
	}
}
