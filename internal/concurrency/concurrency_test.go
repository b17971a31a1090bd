package concurrency

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/simsearch/simsearch/internal/simindex"
)

// newDocServer serves "hello world" at every path, so IndexURLs has a real
// fetch to run on the worker pool.
func newDocServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "<html><body>hello world</body></html>")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnvelopeWriteThenRead(t *testing.T) {
	e := New(simindex.NewMemoryIndex())
	if err := e.IndexStringBuffers([]simindex.NamedBuffer{{Name: "doc1", Text: "hello world"}}); err != nil {
		t.Fatal(err)
	}
	n, err := e.GetLocalN()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("N = %d, want 1", n)
	}
}

func TestEnvelopeDrainsAsyncWriteBeforeRead(t *testing.T) {
	srv := newDocServer(t)
	e := New(simindex.NewMemoryIndex())

	if err := e.IndexURLs([]string{srv.URL + "/doc1"}); err != nil {
		t.Fatal(err)
	}

	// IndexURLs returned immediately; the fetch and index run on the pool.
	// The very next read must block on the drain and observe the document.
	n, err := e.GetLocalN()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("N = %d, want 1 (read raced the async write)", n)
	}

	results, err := e.Query("hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != srv.URL+"/doc1" {
		t.Errorf("query(hello) = %v, want the fetched URL", results)
	}
}

func TestEnvelopeReRaisesAsyncErrorAtNextRead(t *testing.T) {
	srv := newDocServer(t)
	e := New(simindex.NewMemoryIndex())

	if err := e.IndexURLs([]string{srv.URL + "/missing"}); err != nil {
		t.Fatal(err)
	}

	if _, err := e.GetLocalN(); err == nil {
		t.Fatal("expected the async fetch failure to surface at the draining read")
	}
	// The error is cleared once raised; the next read is clean.
	if _, err := e.GetLocalN(); err != nil {
		t.Errorf("second read after error = %v, want nil", err)
	}
}

func TestEnvelopePoolFullRejectsSubmission(t *testing.T) {
	srv := newDocServer(t)
	e := New(simindex.NewMemoryIndex())

	// Hold the write lock so every submitted task blocks inside doWrite:
	// the workers pin themselves, the queue backs up, and submissions past
	// poolWorkers+poolQueue must be rejected rather than block the caller.
	e.mu.Lock()
	successes := 0
	failures := 0
	for i := 0; i < poolWorkers+poolQueue+20; i++ {
		err := e.IndexURLs([]string{fmt.Sprintf("%s/doc%d", srv.URL, i)})
		if err != nil {
			failures++
		} else {
			successes++
		}
	}
	e.mu.Unlock()

	if failures == 0 {
		t.Fatal("expected at least one submission to be rejected with a full pool")
	}

	n, err := e.GetLocalN()
	if err != nil {
		t.Fatal(err)
	}
	if n != successes {
		t.Errorf("N = %d, want %d (one document per accepted submission)", n, successes)
	}
}

func TestEnvelopeQueryEmptyIndex(t *testing.T) {
	e := New(simindex.NewMemoryIndex())
	results, err := e.Query("anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
}

func TestEnvelopeConcurrentWritesAndReads(t *testing.T) {
	srv := newDocServer(t)
	e := New(simindex.NewMemoryIndex())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			_, _ = e.GetLocalN()
		}
		close(done)
	}()
	for i := 0; i < 20; i++ {
		name := string(rune('a' + i))
		if err := e.IndexStringBuffers([]simindex.NamedBuffer{{Name: name, Text: "x"}}); err != nil {
			t.Fatal(err)
		}
		if i%5 == 0 {
			if err := e.IndexURLs([]string{fmt.Sprintf("%s/async%d", srv.URL, i)}); err != nil {
				t.Fatal(err)
			}
		}
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for concurrent reads")
	}
	n, err := e.GetLocalN()
	if err != nil {
		t.Fatal(err)
	}
	if n != 24 {
		t.Errorf("N = %d, want 24 (20 sync + 4 async)", n)
	}
}
