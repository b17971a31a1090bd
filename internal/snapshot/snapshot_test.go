package snapshot

import (
	"bytes"
	"reflect"
	"testing"
)

type fakeIndex struct {
	s Snapshot
}

func (f *fakeIndex) ExportSnapshot() Snapshot  { return f.s }
func (f *fakeIndex) ImportSnapshot(s Snapshot) { f.s = s }

func TestSaveLoadRoundTripZstd(t *testing.T) {
	src := &fakeIndex{s: Snapshot{
		Lowercase: true,
		Stoplist:  []string{"a", "b"},
		NextDocid: 2,
		NameToID:  map[string]int{"doc1": 0, "doc2": 1},
		Vectors:   map[int]map[string]int{0: {"hello": 2}, 1: {"world": 1}},
		DF:        map[string]int{"hello": 1, "world": 1},
		Doclen:    map[int]float64{0: 2, 1: 1},
		N:         2,
	}}

	var buf bytes.Buffer
	if err := Save(&buf, src, AlgorithmZstd); err != nil {
		t.Fatal(err)
	}

	dst := &fakeIndex{}
	if err := Load(&buf, dst, AlgorithmZstd); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(src.s, dst.s) {
		t.Errorf("round trip mismatch: got %+v, want %+v", dst.s, src.s)
	}
}

func TestSaveLoadRoundTripGzip(t *testing.T) {
	src := &fakeIndex{s: Snapshot{N: 0, NameToID: map[string]int{}, Vectors: map[int]map[string]int{}, DF: map[string]int{}, Doclen: map[int]float64{}}}

	var buf bytes.Buffer
	if err := Save(&buf, src, AlgorithmGzip); err != nil {
		t.Fatal(err)
	}
	dst := &fakeIndex{}
	if err := Load(&buf, dst, AlgorithmGzip); err != nil {
		t.Fatal(err)
	}
	if dst.s.N != 0 {
		t.Errorf("got %+v", dst.s)
	}
}
