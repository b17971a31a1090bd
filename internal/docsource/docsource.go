// Package docsource resolves document names into named text streams for
// indexing. A "name" is either a filesystem path or an "http://"/"https://"
// URL; URL bodies have HTML tags stripped before the caller sees them.
package docsource

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Named pairs a document name with its opened content stream. The stream
// must be closed by the caller once consumed.
type Named struct {
	Name   string
	Reader io.ReadCloser
}

// IsURL reports whether name should be fetched over HTTP rather than opened
// from the local filesystem.
func IsURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// Fetcher opens a single named text stream.
type Fetcher struct {
	// Client performs URL fetches. Defaults to a client with a 30s timeout
	// when left zero-valued.
	Client *http.Client
}

// DefaultFetcher returns a Fetcher configured with a bounded-timeout client,
// so a single unreachable URL can't hang a batch indexing call forever.
func DefaultFetcher() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return DefaultFetcher().Client
}

// Open resolves name to a readable stream: a local file for a path, or the
// stripped text body of an HTTP(S) response for a URL.
func (f *Fetcher) Open(name string) (io.ReadCloser, error) {
	if IsURL(name) {
		return f.openURL(name)
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("docsource: open %s: %w", name, err)
	}
	return file, nil
}

func (f *Fetcher) openURL(url string) (io.ReadCloser, error) {
	resp, err := f.client().Get(url)
	if err != nil {
		return nil, fmt.Errorf("docsource: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docsource: fetch %s: status %d", url, resp.StatusCode)
	}
	text, err := StripHTML(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("docsource: parse %s: %w", url, err)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

// OpenAll resolves each name in order. A failure fetching one URL does not
// abort the whole batch: the error is carried in that name's reader, and
// the caller decides whether to skip or fail the batch.
func (f *Fetcher) OpenAll(names []string) []Named {
	streams := make([]Named, 0, len(names))
	for _, name := range names {
		r, err := f.Open(name)
		if err != nil {
			streams = append(streams, Named{Name: name, Reader: errReader{err}})
			continue
		}
		streams = append(streams, Named{Name: name, Reader: r})
	}
	return streams
}

// errReader is a ReadCloser that always reports the open error, so a failed
// fetch surfaces at the point its content would have been consumed, instead
// of being silently swallowed by OpenAll.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
func (e errReader) Close() error             { return nil }

// StripHTML parses r as HTML and returns its visible text content, with
// <script> and <style> subtrees dropped.
func StripHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	walkText(doc, &b)
	return b.String(), nil
}

func walkText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
}
