// Package termvec builds term-frequency vectors from text, the same
// representation used for both indexed documents and free-form queries.
//
// The stoplist is checked against the raw token before case folding, which
// is observable whenever a stoplist entry and a document token differ only
// in case.
package termvec

import (
	"bufio"
	"io"
	"strings"
)

// Stoplist is a set of raw (not case-folded) tokens to exclude.
type Stoplist map[string]struct{}

// NewStoplist builds a Stoplist from a list of tokens.
func NewStoplist(words ...string) Stoplist {
	s := make(Stoplist, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Config controls tokenization policy.
type Config struct {
	// Lowercase folds tokens to lowercase after the stoplist check. Default
	// true when built via DefaultConfig.
	Lowercase bool
	// Stoplist holds raw tokens to exclude; a nil Stoplist matches nothing.
	Stoplist Stoplist
}

// DefaultConfig returns the default tokenization policy: lowercase on, no
// stoplist.
func DefaultConfig() Config {
	return Config{Lowercase: true, Stoplist: nil}
}

// Vec is a term->frequency mapping. Frequencies are always >= 1.
type Vec map[string]int

// Build reads whitespace-separated tokens from r, one line at a time, and
// returns their term-frequency vector under cfg. The stoplist is checked
// against the raw token before any case folding. Build consumes r to EOF.
func Build(r io.Reader, cfg Config) (Vec, error) {
	vec := make(Vec)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, token := range strings.Fields(scanner.Text()) {
			if _, stopped := cfg.Stoplist[token]; stopped {
				continue
			}
			if cfg.Lowercase {
				token = strings.ToLower(token)
			}
			vec[token]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vec, nil
}

// BuildString is a convenience wrapper around Build for an in-memory string.
func BuildString(s string, cfg Config) (Vec, error) {
	return Build(strings.NewReader(s), cfg)
}

// ReadStoplist tokenizes r on whitespace (ignoring line structure) and
// returns the resulting Stoplist.
func ReadStoplist(r io.Reader) (Stoplist, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	stop := make(Stoplist)
	for scanner.Scan() {
		for _, token := range strings.Fields(scanner.Text()) {
			stop[token] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stop, nil
}

// Canonicalize applies cfg's case-folding policy to a single term, as used
// at postings-lookup and query-tokenization time. It does not apply the
// stoplist: the stoplist only ever filters tokens during vector
// construction, never a single already-extracted term.
func Canonicalize(term string, cfg Config) string {
	if cfg.Lowercase {
		return strings.ToLower(term)
	}
	return term
}
