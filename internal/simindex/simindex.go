// Package simindex implements the inverted-index capability set: the
// public operation surface every leaf, storage-backed variant, collection,
// remote proxy, and concurrency envelope implements by delegation.
package simindex

import (
	"io"
)

// Result is one scored hit translated back to a document name, the unit
// returned by Query. Results cross transport boundaries, so they are always
// a materialized slice, never a lazy iterator.
type Result struct {
	Name  string
	Score float64
}

// Posting is one (docid, frequency) entry as seen at the SimIndex boundary.
// DocID is always a string here: a decimal docid at a leaf, the compound
// "<shard>-<rest>" node-docid at a collection. Unifying the public postings
// shape across every implementation keeps compound ids out of callers that
// don't care which kind of node they're talking to.
type Posting struct {
	DocID string
	Freq  int
}

// NamedBuffer pairs a document name with its full text body, the shape
// collections use once a stream has to cross a transport boundary.
type NamedBuffer struct {
	Name string
	Text string
}

// NamedStream pairs a document name with an open, caller-owned stream.
// Ingestion reads it to EOF but never closes it; closing stays with the
// caller.
type NamedStream struct {
	Name   string
	Reader io.Reader
}

// SimIndex is the full index operation set, shared by every concrete
// implementation in this module: MemoryIndex, StoreIndex, Collection,
// RemoteProxy, and the concurrency Envelope.
type SimIndex interface {
	// IndexFiles ingests documents read from already-open streams.
	IndexFiles(streams []NamedStream) error
	// IndexStringBuffers ingests documents supplied as in-memory text.
	IndexStringBuffers(buffers []NamedBuffer) error
	// IndexFilenames ingests documents read from local filesystem paths.
	IndexFilenames(names []string) error
	// IndexURLs fetches and ingests documents from HTTP(S) URLs.
	IndexURLs(urls []string) error

	// DelDocids removes documents by docid. Unknown ids are tolerated.
	DelDocids(ids ...string) error

	// DocidToName resolves a docid to its document name.
	DocidToName(docid string) (string, error)
	// NameToDocid resolves a document name to its docid.
	NameToDocid(name string) (string, error)

	// PostingsList returns term's postings, or an empty slice if absent.
	PostingsList(term string) ([]Posting, error)
	// DocidsWithTerms returns the sorted docids containing every term.
	DocidsWithTerms(terms []string) ([]string, error)
	// DocnamesWithTerms is DocidsWithTerms translated to names.
	DocnamesWithTerms(terms []string) ([]string, error)

	// Query tokenizes the free-text q, scores it against the index and
	// returns descending-score results.
	Query(q string) ([]Result, error)

	// LoadStoplist replaces the configured stoplist from a token stream.
	LoadStoplist(r io.Reader) error

	// Config reads a single recognized configuration key.
	Config(key string) (any, error)
	// SetConfig sets a single configuration key.
	SetConfig(key string, value any) error
	// UpdateConfig merges multiple configuration keys at once.
	UpdateConfig(values map[string]any) error

	// SetQueryScorer installs a scorer by registry name or instance. A
	// remote-spanning tree requires a name (see RemoteProxy).
	SetQueryScorer(scorer any) error

	// GetLocalN reports this node's own live document count, ignoring any
	// global override, used by a parent collection for reconciliation.
	GetLocalN() (int, error)
	// GetLocalDFMap reports this node's own document-frequency table.
	GetLocalDFMap() (map[string]int, error)
	// GetNameToDocidMap reports this node's full name->docid table.
	GetNameToDocidMap() (map[string]string, error)

	// SetGlobalN installs a global document-count override for scoring.
	SetGlobalN(n int) error
	// SetGlobalDFMap installs a global document-frequency override.
	SetGlobalDFMap(df map[string]int) error
}
