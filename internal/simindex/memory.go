package simindex

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/simsearch/simsearch/internal/docsource"
	"github.com/simsearch/simsearch/internal/scoring"
	"github.com/simsearch/simsearch/internal/termvec"
)

// MemoryIndex is the in-process leaf index. All mutable state lives as
// ordinary Go maps with no internal locking of its own; the concurrency
// envelope in internal/concurrency is the one synchronization point.
type MemoryIndex struct {
	cfg termvec.Config

	nextDocid int
	nameToID  map[string]int
	idToName  map[int]string

	vectors  map[int]termvec.Vec
	postings map[string][]scoring.Posting
	df       map[string]int
	doclen   map[int]float64

	n int

	globalN     *int
	globalDF    map[string]int
	hasGlobalDF bool

	scorer   scoring.Scorer
	features map[int]map[string]any

	fetcher *docsource.Fetcher
}

// NewMemoryIndex builds an empty leaf index with the default configuration
// (lowercase folding on, no stoplist) and the tfidf scorer.
func NewMemoryIndex() *MemoryIndex {
	scorer, _ := scoring.New("tfidf")
	return &MemoryIndex{
		cfg:      termvec.DefaultConfig(),
		nameToID: make(map[string]int),
		idToName: make(map[int]string),
		vectors:  make(map[int]termvec.Vec),
		postings: make(map[string][]scoring.Posting),
		df:       make(map[string]int),
		doclen:   make(map[int]float64),
		scorer:   scorer,
		features: make(map[int]map[string]any),
		fetcher:  docsource.DefaultFetcher(),
	}
}

var _ SimIndex = (*MemoryIndex)(nil)

// IndexFiles ingests each already-open stream, assigning it a fresh docid.
func (m *MemoryIndex) IndexFiles(streams []NamedStream) error {
	for _, s := range streams {
		if err := m.indexOne(s.Name, s.Reader); err != nil {
			return err
		}
	}
	return nil
}

// IndexStringBuffers ingests each in-memory document body.
func (m *MemoryIndex) IndexStringBuffers(buffers []NamedBuffer) error {
	streams := make([]NamedStream, len(buffers))
	for i, b := range buffers {
		streams[i] = NamedStream{Name: b.Name, Reader: strings.NewReader(b.Text)}
	}
	return m.IndexFiles(streams)
}

// IndexFilenames reads and ingests each local filesystem path, a thin
// wrapper over IndexFiles.
func (m *MemoryIndex) IndexFilenames(names []string) error {
	streams := make([]NamedStream, 0, len(names))
	for _, name := range names {
		r, err := m.fetcher.Open(name)
		if err != nil {
			return err
		}
		defer r.Close()
		streams = append(streams, NamedStream{Name: name, Reader: r})
	}
	return m.IndexFiles(streams)
}

// IndexURLs fetches and ingests each URL. A single failed fetch does not
// abort the remaining URLs; the first encountered error is returned to the
// caller after all URLs have been attempted.
func (m *MemoryIndex) IndexURLs(urls []string) error {
	named := m.fetcher.OpenAll(urls)
	var firstErr error
	for _, n := range named {
		if err := m.indexOne(n.Name, n.Reader); err != nil && firstErr == nil {
			firstErr = err
		}
		n.Reader.Close()
	}
	return firstErr
}

func (m *MemoryIndex) indexOne(name string, r io.Reader) error {
	if _, exists := m.nameToID[name]; exists {
		return &BadRequestError{Msg: fmt.Sprintf("name %q already indexed", name)}
	}
	vec, err := termvec.Build(r, m.cfg)
	if err != nil {
		return err
	}

	docid := m.nextDocid
	m.nextDocid++
	m.nameToID[name] = docid
	m.idToName[docid] = name
	m.vectors[docid] = vec
	m.doclen[docid] = docLength(vec)
	m.n++

	for term, freq := range vec {
		m.postings[term] = append(m.postings[term], scoring.Posting{DocID: docid, Freq: freq})
		m.df[term]++
	}
	return nil
}

func docLength(vec termvec.Vec) float64 {
	var sumSquares float64
	for _, f := range vec {
		sumSquares += float64(f) * float64(f)
	}
	return math.Sqrt(sumSquares)
}

// DelDocids removes each docid from every map: its postings entries, its
// df contributions, its vector, length, and name mapping. Unknown docids
// are tolerated silently.
func (m *MemoryIndex) DelDocids(ids ...string) error {
	for _, idStr := range ids {
		docid, err := strconv.Atoi(idStr)
		if err != nil {
			continue // unknown ids are a no-op, same as a double delete
		}
		m.delOne(docid)
	}
	return nil
}

func (m *MemoryIndex) delOne(docid int) {
	name, ok := m.idToName[docid]
	if !ok {
		return
	}
	vec := m.vectors[docid]
	for term := range vec {
		m.df[term]--
		if m.df[term] <= 0 {
			delete(m.df, term)
		}
		m.postings[term] = removePosting(m.postings[term], docid)
		if len(m.postings[term]) == 0 {
			delete(m.postings, term)
		}
	}
	delete(m.vectors, docid)
	delete(m.doclen, docid)
	delete(m.nameToID, name)
	delete(m.idToName, docid)
	delete(m.features, docid)
	m.n--
}

func removePosting(postings []scoring.Posting, docid int) []scoring.Posting {
	out := postings[:0]
	for _, p := range postings {
		if p.DocID != docid {
			out = append(out, p)
		}
	}
	return out
}

// DocidToName resolves docid to its name.
func (m *MemoryIndex) DocidToName(docidStr string) (string, error) {
	docid, err := strconv.Atoi(docidStr)
	if err != nil {
		return "", &NotFoundError{Kind: "docid", Key: docidStr}
	}
	name, ok := m.idToName[docid]
	if !ok {
		return "", &NotFoundError{Kind: "docid", Key: docidStr}
	}
	return name, nil
}

// NameToDocid resolves name to its stringified docid.
func (m *MemoryIndex) NameToDocid(name string) (string, error) {
	docid, ok := m.nameToID[name]
	if !ok {
		return "", &NotFoundError{Kind: "name", Key: name}
	}
	return strconv.Itoa(docid), nil
}

// PostingsList returns the postings for term's canonical form, or an empty
// slice if the term is absent. The returned slice is a copy: callers must
// not be able to mutate index state through it.
func (m *MemoryIndex) PostingsList(term string) ([]Posting, error) {
	canon := termvec.Canonicalize(term, m.cfg)
	postings := m.postings[canon]
	out := make([]Posting, len(postings))
	for i, p := range postings {
		out[i] = Posting{DocID: strconv.Itoa(p.DocID), Freq: p.Freq}
	}
	return out, nil
}

// DocidsWithTerms returns the sorted intersection of postings-docid sets
// across all given terms. An empty terms list returns empty.
func (m *MemoryIndex) DocidsWithTerms(terms []string) ([]string, error) {
	if len(terms) == 0 {
		return []string{}, nil
	}
	var sets []map[int]struct{}
	for _, term := range terms {
		canon := termvec.Canonicalize(term, m.cfg)
		set := make(map[int]struct{})
		for _, p := range m.postings[canon] {
			set[p.DocID] = struct{}{}
		}
		sets = append(sets, set)
	}
	result := sets[0]
	for _, s := range sets[1:] {
		next := make(map[int]struct{})
		for id := range result {
			if _, ok := s[id]; ok {
				next[id] = struct{}{}
			}
		}
		result = next
	}
	ids := make([]int, 0, len(result))
	for id := range result {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return out, nil
}

// DocnamesWithTerms translates DocidsWithTerms to document names.
func (m *MemoryIndex) DocnamesWithTerms(terms []string) ([]string, error) {
	ids, err := m.DocidsWithTerms(terms)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, idStr := range ids {
		name, err := m.DocidToName(idStr)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Query tokenizes q under this index's configuration, merges postings for
// its distinct terms, and scores the result with the configured scorer.
func (m *MemoryIndex) Query(q string) ([]Result, error) {
	queryVec, err := termvec.BuildString(q, m.cfg)
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(queryVec))
	for term := range queryVec {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	postingsLists := make([]scoring.TermPostings, 0, len(terms))
	for _, term := range terms {
		postings := m.postings[term]
		postingsLists = append(postingsLists, scoring.TermPostings{Term: term, Postings: postings})
	}

	hits := m.scorer.Score(queryVec, postingsLists, m)

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		name, ok := m.idToName[h.DocID]
		if !ok {
			continue
		}
		results = append(results, Result{Name: name, Score: h.Score})
	}
	return results, nil
}

// N implements scoring.Corpus: the global override, when set, shadows the
// local live-document count.
func (m *MemoryIndex) N() int {
	if m.globalN != nil {
		return *m.globalN
	}
	return m.n
}

// DF implements scoring.Corpus. Absent terms report 1, never 0, so idf
// never divides by zero.
func (m *MemoryIndex) DF(term string) int {
	table := m.df
	if m.hasGlobalDF {
		table = m.globalDF
	}
	if df, ok := table[term]; ok && df > 0 {
		return df
	}
	return 1
}

// DocLen implements scoring.Corpus. Doc length is always local: a
// collection never overrides it, since it's per-document, not aggregate.
func (m *MemoryIndex) DocLen(docid int) float64 {
	return m.doclen[docid]
}

// LoadStoplist tokenizes r on whitespace and replaces the configured
// stoplist wholesale.
func (m *MemoryIndex) LoadStoplist(r io.Reader) error {
	stop, err := termvec.ReadStoplist(r)
	if err != nil {
		return err
	}
	m.cfg.Stoplist = stop
	return nil
}

// Config reads a single recognized key: "lowercase" or "stoplist".
func (m *MemoryIndex) Config(key string) (any, error) {
	switch key {
	case "lowercase":
		return m.cfg.Lowercase, nil
	case "stoplist":
		return m.cfg.Stoplist, nil
	default:
		return nil, &BadRequestError{Msg: "unknown configuration key " + key}
	}
}

// SetConfig sets a single recognized key.
func (m *MemoryIndex) SetConfig(key string, value any) error {
	switch key {
	case "lowercase":
		b, ok := value.(bool)
		if !ok {
			return &BadRequestError{Msg: "lowercase requires a bool value"}
		}
		m.cfg.Lowercase = b
	case "stoplist":
		stop, err := coerceStoplist(value)
		if err != nil {
			return err
		}
		m.cfg.Stoplist = stop
	default:
		return &BadRequestError{Msg: "unknown configuration key " + key}
	}
	return nil
}

// coerceStoplist accepts the stoplist value shapes that reach SetConfig: a
// native termvec.Stoplist, a []string, or the []any a JSON-decoded config
// call produces on the RPC path.
func coerceStoplist(value any) (termvec.Stoplist, error) {
	switch v := value.(type) {
	case termvec.Stoplist:
		return v, nil
	case []string:
		return termvec.NewStoplist(v...), nil
	case []any:
		words := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &BadRequestError{Msg: "stoplist entries must be strings"}
			}
			words = append(words, s)
		}
		return termvec.NewStoplist(words...), nil
	default:
		return nil, &BadRequestError{Msg: "stoplist requires a set of terms"}
	}
}

// UpdateConfig merges multiple keys, applying each via SetConfig.
func (m *MemoryIndex) UpdateConfig(values map[string]any) error {
	for key, value := range values {
		if err := m.SetConfig(key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetQueryScorer installs a scorer, accepted either as a registry name or
// an already-constructed scoring.Scorer instance.
func (m *MemoryIndex) SetQueryScorer(s any) error {
	switch v := s.(type) {
	case string:
		scorer, err := scoring.New(v)
		if err != nil {
			return &BadRequestError{Msg: err.Error()}
		}
		m.scorer = scorer
	case scoring.Scorer:
		m.scorer = v
	default:
		return &BadRequestError{Msg: "scorer must be a name or a scoring.Scorer"}
	}
	return nil
}

// GetLocalN reports the live document count, ignoring any global override.
func (m *MemoryIndex) GetLocalN() (int, error) { return m.n, nil }

// GetLocalDFMap reports the local document-frequency table, ignoring any
// global override. The returned map is a copy.
func (m *MemoryIndex) GetLocalDFMap() (map[string]int, error) {
	out := make(map[string]int, len(m.df))
	for term, df := range m.df {
		out[term] = df
	}
	return out, nil
}

// GetNameToDocidMap reports the full name->docid table, stringified.
func (m *MemoryIndex) GetNameToDocidMap() (map[string]string, error) {
	out := make(map[string]string, len(m.nameToID))
	for name, docid := range m.nameToID {
		out[name] = strconv.Itoa(docid)
	}
	return out, nil
}

// SetGlobalN installs a global document-count override for scoring.
func (m *MemoryIndex) SetGlobalN(n int) error {
	m.globalN = &n
	return nil
}

// SetGlobalDFMap installs a global document-frequency override for
// scoring. A nil map clears the override, reverting to local stats.
func (m *MemoryIndex) SetGlobalDFMap(df map[string]int) error {
	m.globalDF = df
	m.hasGlobalDF = df != nil
	return nil
}

// Features returns the opaque per-document feature map stashed for docid,
// nil if none was ever set.
func (m *MemoryIndex) Features(docidStr string) (map[string]any, error) {
	docid, err := strconv.Atoi(docidStr)
	if err != nil {
		return nil, &NotFoundError{Kind: "docid", Key: docidStr}
	}
	if _, ok := m.idToName[docid]; !ok {
		return nil, &NotFoundError{Kind: "docid", Key: docidStr}
	}
	return m.features[docid], nil
}

// SetFeatures stashes an opaque feature map for docid. Scoring never reads
// it.
func (m *MemoryIndex) SetFeatures(docidStr string, features map[string]any) error {
	docid, err := strconv.Atoi(docidStr)
	if err != nil {
		return &NotFoundError{Kind: "docid", Key: docidStr}
	}
	if _, ok := m.idToName[docid]; !ok {
		return &NotFoundError{Kind: "docid", Key: docidStr}
	}
	m.features[docid] = features
	return nil
}

