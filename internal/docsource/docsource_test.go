package docsource

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"http://example.com/a":  true,
		"https://example.com/a": true,
		"/tmp/doc1.txt":         false,
		"doc1.txt":              false,
	}
	for name, want := range cases {
		if got := IsURL(name); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOpenLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc1.txt")
	if err := os.WriteFile(path, []byte("hello there world"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := DefaultFetcher()
	r, err := f.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello there world" {
		t.Errorf("got %q", data)
	}
}

func TestOpenMissingFile(t *testing.T) {
	f := DefaultFetcher()
	if _, err := f.Open("/nonexistent/doc.txt"); err == nil {
		t.Errorf("expected error opening missing file")
	}
}

func TestOpenURLStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><style>.x{}</style></head><body><p>hello</p><script>evil()</script><p>world</p></body></html>`))
	}))
	defer srv.Close()

	f := DefaultFetcher()
	r, err := f.Open(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "hello") || !strings.Contains(text, "world") {
		t.Errorf("expected visible text preserved, got %q", text)
	}
	if strings.Contains(text, "evil()") {
		t.Errorf("expected script content stripped, got %q", text)
	}
}

func TestOpenURLNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := DefaultFetcher()
	if _, err := f.Open(srv.URL); err == nil {
		t.Errorf("expected error for 404 response")
	}
}

func TestOpenAllIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	os.WriteFile(good, []byte("hi"), 0o644)

	f := DefaultFetcher()
	streams := f.OpenAll([]string{good, filepath.Join(dir, "missing.txt")})
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}
	if _, err := io.ReadAll(streams[0].Reader); err != nil {
		t.Errorf("good file should read cleanly: %v", err)
	}
	if _, err := io.ReadAll(streams[1].Reader); err == nil {
		t.Errorf("missing file should report an error on read")
	}
}

func TestStripHTMLNoTags(t *testing.T) {
	text, err := StripHTML(strings.NewReader("plain text"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "plain text") {
		t.Errorf("got %q", text)
	}
}
