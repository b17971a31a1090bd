package rpcserver_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/simsearch/simsearch/internal/rpcclient"
	"github.com/simsearch/simsearch/internal/rpcserver"
	"github.com/simsearch/simsearch/internal/simindex"
)

func newTestServer(t *testing.T, idx simindex.SimIndex) (*httptest.Server, *rpcclient.Client) {
	t.Helper()
	srv := rpcserver.New(idx, "sim0")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	client := rpcclient.NewFromURL(ts.URL)
	return ts, client
}

func TestRPCRoundTripIndexAndQuery(t *testing.T) {
	idx := simindex.NewMemoryIndex()
	_, client := newTestServer(t, idx)

	if err := idx.IndexStringBuffers([]simindex.NamedBuffer{{Name: "doc1", Text: "hello world"}}); err != nil {
		t.Fatal(err)
	}

	raw, err := client.Call("sim0.get_local_N", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "1" {
		t.Errorf("get_local_N result = %s, want 1", raw)
	}
}

func TestRPCRejectsUnwhitelistedMethod(t *testing.T) {
	idx := simindex.NewMemoryIndex()
	_, client := newTestServer(t, idx)

	_, err := client.Call("sim0.index_files", nil)
	if err == nil {
		t.Fatal("expected error for unwhitelisted method")
	}
}

func TestRPCRejectsWrongNamespace(t *testing.T) {
	idx := simindex.NewMemoryIndex()
	_, client := newTestServer(t, idx)

	_, err := client.Call("other.get_local_N", nil)
	if err == nil {
		t.Fatal("expected error for mismatched namespace prefix")
	}
}

func TestRPCQueryAndPostingsList(t *testing.T) {
	idx := simindex.NewMemoryIndex()
	_, client := newTestServer(t, idx)

	if err := idx.IndexStringBuffers([]simindex.NamedBuffer{
		{Name: "doc1", Text: "hello there world hello"},
		{Name: "doc2", Text: "hello world"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := idx.SetQueryScorer("simple_count"); err != nil {
		t.Fatal(err)
	}

	var results []simindex.Result
	raw, err := client.Call("sim0.query", map[string]any{"q": "hello world"})
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Name != "doc1" {
		t.Errorf("query results = %+v, want doc1 first", results)
	}

	var postings []simindex.Posting
	raw, err = client.Call("sim0.postings_list", map[string]any{"term": "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &postings); err != nil {
		t.Fatal(err)
	}
	if len(postings) != 2 {
		t.Errorf("postings_list(hello) len = %d, want 2", len(postings))
	}
}
