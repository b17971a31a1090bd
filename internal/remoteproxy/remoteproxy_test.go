package remoteproxy

import (
	"encoding/json"
	"testing"

	"github.com/simsearch/simsearch/internal/simindex"
)

// fakeChannel records the namespaced method and args it was called with and
// returns a canned response per method, standing in for an RPC transport.
type fakeChannel struct {
	calls     []string
	responses map[string]any
	errs      map[string]error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{responses: make(map[string]any), errs: make(map[string]error)}
}

func (f *fakeChannel) Call(method string, args map[string]any) (json.RawMessage, error) {
	f.calls = append(f.calls, method)
	if err, ok := f.errs[method]; ok {
		return nil, err
	}
	resp, ok := f.responses[method]
	if !ok {
		return nil, nil
	}
	return json.Marshal(resp)
}

func TestRemoteProxyForwardsWithNamespace(t *testing.T) {
	ch := newFakeChannel()
	ch.responses["sim0.get_local_N"] = 5
	p := New(ch, "sim0")

	n, err := p.GetLocalN()
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("GetLocalN() = %d, want 5", n)
	}
	if len(ch.calls) != 1 || ch.calls[0] != "sim0.get_local_N" {
		t.Errorf("calls = %v, want [sim0.get_local_N]", ch.calls)
	}
}

func TestRemoteProxyIsRemote(t *testing.T) {
	p := New(newFakeChannel(), "sim0")
	if !p.IsRemote() {
		t.Error("expected IsRemote() == true")
	}
}

func TestRemoteProxyRejectsUnwhitelistedMethods(t *testing.T) {
	p := New(newFakeChannel(), "sim0")

	if err := p.IndexFiles(nil); err == nil {
		t.Error("expected IndexFiles to be rejected")
	} else if _, ok := err.(*simindex.UnsupportedMethodError); !ok {
		t.Errorf("expected *UnsupportedMethodError, got %T", err)
	}
	if err := p.IndexFilenames(nil); err == nil {
		t.Error("expected IndexFilenames to be rejected")
	}
	if err := p.LoadStoplist(nil); err == nil {
		t.Error("expected LoadStoplist to be rejected")
	}
}

func TestRemoteProxyRejectsInstanceScorer(t *testing.T) {
	p := New(newFakeChannel(), "sim0")
	err := p.SetQueryScorer(struct{}{})
	if err == nil {
		t.Fatal("expected error installing an instance scorer across a remote boundary")
	}
	if _, ok := err.(*simindex.UnsupportedMethodError); !ok {
		t.Errorf("expected *UnsupportedMethodError, got %T", err)
	}
}

func TestRemoteProxyForwardsNameScorer(t *testing.T) {
	ch := newFakeChannel()
	p := New(ch, "sim0")
	if err := p.SetQueryScorer("tfidf"); err != nil {
		t.Fatal(err)
	}
	if len(ch.calls) != 1 || ch.calls[0] != "sim0.set_query_scorer" {
		t.Errorf("calls = %v", ch.calls)
	}
}

func TestRemoteProxyPostingsListDecodesCompoundDocids(t *testing.T) {
	ch := newFakeChannel()
	ch.responses["sim0.postings_list"] = []simindex.Posting{
		{DocID: "0-1", Freq: 2},
		{DocID: "1-3", Freq: 1},
	}
	p := New(ch, "sim0")
	postings, err := p.PostingsList("hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 2 || postings[0].DocID != "0-1" {
		t.Errorf("postings = %v", postings)
	}
}

func TestRemoteProxyPropagatesChannelError(t *testing.T) {
	ch := newFakeChannel()
	ch.errs["sim0.name_to_docid"] = &simindex.NotFoundError{Kind: "name", Key: "ghost"}
	p := New(ch, "sim0")
	if _, err := p.NameToDocid("ghost"); err == nil {
		t.Fatal("expected error to propagate")
	}
}
