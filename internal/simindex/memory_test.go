package simindex

import (
	"math"
	"sort"
	"testing"

	"github.com/simsearch/simsearch/internal/termvec"
)

func scenarioIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	stop := termvec.NewStoplist("stopword1", "stopword2")
	if err := idx.SetConfig("stoplist", stop); err != nil {
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

func assertScenario(t *testing.T, idx *MemoryIndex) {
	t.Helper()

	postings, err := idx.PostingsList("hello")
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int{}
	for _, p := range postings {
		name, err := idx.DocidToName(p.DocID)
		if err != nil {
			t.Fatal(err)
		}
		got[name] = p.Freq
	}
	want := map[string]int{"doc1": 2, "doc2": 1, "doc3": 1}
	if len(got) != len(want) {
		t.Fatalf("postings_list(hello) = %v, want %v", got, want)
	}
	for name, freq := range want {
		if got[name] != freq {
			t.Errorf("postings_list(hello)[%s] = %d, want %d", name, got[name], freq)
		}
	}

	stopPostings, err := idx.PostingsList("stopword1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stopPostings) != 0 {
		t.Errorf("postings_list(stopword1) should be empty, got %v", stopPostings)
	}

	names, err := idx.DocnamesWithTerms([]string{"hello", "there"})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if !equalStrings(names, []string{"doc1", "doc3"}) {
		t.Errorf("docnames_with_terms(hello, there) = %v, want [doc1 doc3]", names)
	}

	names2, err := idx.DocnamesWithTerms([]string{"there", "world"})
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(names2, []string{"doc1"}) {
		t.Errorf("docnames_with_terms(there, world) = %v, want [doc1]", names2)
	}

	if err := idx.SetQueryScorer("simple_count"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Query("hello world")
	if err != nil {
		t.Fatal(err)
	}
	wantScores := map[string]float64{"doc1": 3, "doc2": 2, "doc3": 1}
	if len(results) != 3 {
		t.Fatalf("query(hello world) = %v, want 3 results", results)
	}
	for _, r := range results {
		if r.Score != wantScores[r.Name] {
			t.Errorf("query result %s score = %v, want %v", r.Name, r.Score, wantScores[r.Name])
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Errorf("results not descending: %v", results)
		}
	}

	if err := idx.SetQueryScorer("tfidf"); err != nil {
		t.Fatal(err)
	}
	results, err = idx.Query("hello there")
	if err != nil {
		t.Fatal(err)
	}
	want1 := (1 * math.Log(1.5)) / math.Sqrt(6)
	found := false
	for _, r := range results {
		if r.Name == "doc1" {
			found = true
			if math.Abs(r.Score-want1) > 1e-3 {
				t.Errorf("doc1 tfidf score = %v, want %v", r.Score, want1)
			}
		}
	}
	if !found {
		t.Fatalf("doc1 missing from tfidf results: %v", results)
	}
}

func TestScenarioBaseline(t *testing.T) {
	idx := scenarioIndex(t)
	assertScenario(t, idx)
}

// TestScenarioSurvivesInsertThenDelete verifies that indexing and then
// deleting an extra document leaves every other assertion unchanged.
func TestScenarioSurvivesInsertThenDelete(t *testing.T) {
	idx := scenarioIndex(t)
	if err := idx.IndexStringBuffers([]NamedBuffer{{Name: "extra", Text: "hello world"}}); err != nil {
		t.Fatal(err)
	}
	docid, err := idx.NameToDocid("extra")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.DelDocids(docid); err != nil {
		t.Fatal(err)
	}
	assertScenario(t, idx)
}

func TestQueryEmptyIndex(t *testing.T) {
	idx := NewMemoryIndex()
	results, err := idx.Query("anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
}

func TestPostingsListUnknownTerm(t *testing.T) {
	idx := NewMemoryIndex()
	postings, err := idx.PostingsList("nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 0 {
		t.Errorf("expected empty postings, got %v", postings)
	}
}

func TestNameToDocidUnknown(t *testing.T) {
	idx := NewMemoryIndex()
	_, err := idx.NameToDocid("ghost")
	if err == nil {
		t.Fatal("expected NotFoundError")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected *NotFoundError, got %T", err)
	}
}

func TestDocidsWithTermsEmpty(t *testing.T) {
	idx := scenarioIndex(t)
	ids, err := idx.DocidsWithTerms(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty, got %v", ids)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	idx := scenarioIndex(t)
	docid, err := idx.NameToDocid("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.DelDocids(docid); err != nil {
		t.Fatal(err)
	}
	if err := idx.DelDocids(docid); err != nil {
		t.Fatal(err)
	}
	n, _ := idx.GetLocalN()
	if n != 2 {
		t.Errorf("N after double-delete = %d, want 2", n)
	}
}

func TestDeleteThenEmptyRestoresZeroState(t *testing.T) {
	idx := NewMemoryIndex()
	if err := idx.IndexStringBuffers([]NamedBuffer{{Name: "only", Text: "t"}}); err != nil {
		t.Fatal(err)
	}
	docid, err := idx.NameToDocid("only")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.DelDocids(docid); err != nil {
		t.Fatal(err)
	}
	n, _ := idx.GetLocalN()
	if n != 0 {
		t.Errorf("N = %d, want 0", n)
	}
	dfMap, _ := idx.GetLocalDFMap()
	if len(dfMap) != 0 {
		t.Errorf("df map = %v, want empty", dfMap)
	}
	postings, _ := idx.PostingsList("t")
	if len(postings) != 0 {
		t.Errorf("postings = %v, want empty", postings)
	}
}

func TestTFIDFEmptyCorpusViaGlobalOverride(t *testing.T) {
	idx := NewMemoryIndex()
	if err := idx.SetQueryScorer("tfidf"); err != nil {
		t.Fatal(err)
	}
	if err := idx.SetGlobalN(0); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Query("hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results under N=0 override, got %v", results)
	}
}

func TestUnknownConfigKey(t *testing.T) {
	idx := NewMemoryIndex()
	if _, err := idx.Config("bogus"); err == nil {
		t.Fatal("expected error for unknown config key")
	}
	if err := idx.SetConfig("bogus", 1); err == nil {
		t.Fatal("expected error for unknown config key")
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	idx := NewMemoryIndex()
	if err := idx.IndexStringBuffers([]NamedBuffer{{Name: "a", Text: "x"}}); err != nil {
		t.Fatal(err)
	}
	err := idx.IndexStringBuffers([]NamedBuffer{{Name: "a", Text: "y"}})
	if err == nil {
		t.Fatal("expected error re-indexing the same name")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
