package simindex

import (
	"sort"
	"testing"

	"github.com/simsearch/simsearch/internal/termvec"
)

func scenarioStoreIndex(t *testing.T) *StoreIndex {
	t.Helper()
	idx := NewStoreIndex(NewStores())
	if err := idx.SetConfig("stoplist", termvec.NewStoplist("stopword1", "stopword2")); err != nil {
		t.Fatal(err)
	}
	buffers := []NamedBuffer{
		{Name: "doc1", Text: "hello there world hello stopword1"},
		{Name: "doc2", Text: "hello world stopword2"},
		{Name: "doc3", Text: "hello there bob"},
	}
	if err := idx.IndexStringBuffers(buffers); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestStoreIndexScenario(t *testing.T) {
	idx := scenarioStoreIndex(t)

	postings, err := idx.PostingsList("hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 3 {
		t.Fatalf("postings_list(hello) = %v, want 3 entries", postings)
	}

	names, err := idx.DocnamesWithTerms([]string{"hello", "there"})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if !equalStrings(names, []string{"doc1", "doc3"}) {
		t.Errorf("got %v, want [doc1 doc3]", names)
	}

	if err := idx.SetQueryScorer("simple_count"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Query("hello world")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %v", results)
	}
}

func TestStoreIndexDeleteAndN(t *testing.T) {
	idx := scenarioStoreIndex(t)
	n, _ := idx.GetLocalN()
	if n != 3 {
		t.Fatalf("N = %d, want 3", n)
	}
	docid, err := idx.NameToDocid("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.DelDocids(docid); err != nil {
		t.Fatal(err)
	}
	n, _ = idx.GetLocalN()
	if n != 2 {
		t.Errorf("N after delete = %d, want 2", n)
	}
	if err := idx.DelDocids(docid); err != nil { // idempotent
		t.Fatal(err)
	}
	n, _ = idx.GetLocalN()
	if n != 2 {
		t.Errorf("N after double-delete = %d, want 2", n)
	}
}

func TestStoreIndexClose(t *testing.T) {
	idx := scenarioStoreIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreIndexFeatures(t *testing.T) {
	idx := scenarioStoreIndex(t)
	docid, err := idx.NameToDocid("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.SetFeatures(docid, map[string]any{"lang": "en"}); err != nil {
		t.Fatal(err)
	}
	f, err := idx.Features(docid)
	if err != nil {
		t.Fatal(err)
	}
	if f["lang"] != "en" {
		t.Errorf("got %v", f)
	}
}
