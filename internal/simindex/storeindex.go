package simindex

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/simsearch/simsearch/internal/docsource"
	"github.com/simsearch/simsearch/internal/scoring"
	"github.com/simsearch/simsearch/internal/termvec"
)

// Store is a dict-like external key-value mapping with string keys and
// arbitrary values. All mutation goes through Get+Put: a value returned by
// Get must never be mutated in place and expected to persist. Go interfaces
// can't forbid a caller from mutating a returned map, so this is a
// documented contract rather than a compiler-enforced one.
type Store interface {
	Get(key string) (value any, ok bool)
	Put(key string, value any)
	Delete(key string)
	Len() int
	Close() error
}

// StoreIndex is the storage-backed leaf variant: identical contract to
// MemoryIndex, but every mutable map is an externally supplied Store
// instead of a native Go map.
type StoreIndex struct {
	cfg termvec.Config

	nextDocid int

	nameToID  Store // name -> docid (string)
	idToName  Store // docid (string) -> name
	vectors   Store // docid (string) -> map[string]int
	postings  Store // term -> []scoring.Posting
	df        Store // term -> int
	doclen    Store // docid (string) -> float64
	features  Store

	globalN     *int
	globalDF    map[string]int
	hasGlobalDF bool

	scorer  scoring.Scorer
	fetcher *docsource.Fetcher
}

// Stores bundles the seven externally supplied backing stores a StoreIndex
// needs, one per mutable map.
type Stores struct {
	NameToID Store
	IDToName Store
	Vectors  Store
	Postings Store
	DF       Store
	Doclen   Store
	Features Store
}

// NewStoreIndex builds a storage-backed leaf over the given stores. N at
// construction is derived from the docid->name store's size.
func NewStoreIndex(stores Stores) *StoreIndex {
	scorer, _ := scoring.New("tfidf")
	return &StoreIndex{
		cfg:       termvec.DefaultConfig(),
		nextDocid: stores.IDToName.Len(),
		nameToID:  stores.NameToID,
		idToName:  stores.IDToName,
		vectors:   stores.Vectors,
		postings:  stores.Postings,
		df:        stores.DF,
		doclen:    stores.Doclen,
		features:  stores.Features,
		scorer:    scorer,
		fetcher:   docsource.DefaultFetcher(),
	}
}

var _ SimIndex = (*StoreIndex)(nil)

// Close disposes each backing store in turn.
func (s *StoreIndex) Close() error {
	var firstErr error
	for _, store := range []Store{s.nameToID, s.idToName, s.vectors, s.postings, s.df, s.doclen, s.features} {
		if store == nil {
			continue
		}
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *StoreIndex) IndexFiles(streams []NamedStream) error {
	for _, stream := range streams {
		if err := s.indexOne(stream.Name, stream.Reader); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreIndex) IndexStringBuffers(buffers []NamedBuffer) error {
	streams := make([]NamedStream, len(buffers))
	for i, b := range buffers {
		streams[i] = NamedStream{Name: b.Name, Reader: strings.NewReader(b.Text)}
	}
	return s.IndexFiles(streams)
}

func (s *StoreIndex) IndexFilenames(names []string) error {
	streams := make([]NamedStream, 0, len(names))
	for _, name := range names {
		r, err := s.fetcher.Open(name)
		if err != nil {
			return err
		}
		defer r.Close()
		streams = append(streams, NamedStream{Name: name, Reader: r})
	}
	return s.IndexFiles(streams)
}

func (s *StoreIndex) IndexURLs(urls []string) error {
	named := s.fetcher.OpenAll(urls)
	var firstErr error
	for _, n := range named {
		if err := s.indexOne(n.Name, n.Reader); err != nil && firstErr == nil {
			firstErr = err
		}
		n.Reader.Close()
	}
	return firstErr
}

func (s *StoreIndex) indexOne(name string, r io.Reader) error {
	if _, exists := s.nameToID.Get(name); exists {
		return &BadRequestError{Msg: fmt.Sprintf("name %q already indexed", name)}
	}
	vec, err := termvec.Build(r, s.cfg)
	if err != nil {
		return err
	}

	docid := s.nextDocid
	s.nextDocid++
	docidKey := strconv.Itoa(docid)

	s.nameToID.Put(name, docidKey)
	s.idToName.Put(docidKey, name)

	rawVec := make(map[string]int, len(vec))
	for term, freq := range vec {
		rawVec[term] = freq
	}
	s.vectors.Put(docidKey, rawVec)
	s.doclen.Put(docidKey, docLength(vec))

	for term, freq := range vec {
		s.postings.Put(term, appendPosting(s.getPostings(term), scoring.Posting{DocID: docid, Freq: freq}))
		count, _ := s.df.Get(term)
		c, _ := count.(int)
		s.df.Put(term, c+1)
	}
	return nil
}

func appendPosting(existing []scoring.Posting, p scoring.Posting) []scoring.Posting {
	return append(existing, p)
}

func (s *StoreIndex) getPostings(term string) []scoring.Posting {
	v, ok := s.postings.Get(term)
	if !ok {
		return nil
	}
	postings, _ := v.([]scoring.Posting)
	return postings
}

func (s *StoreIndex) DelDocids(ids ...string) error {
	for _, docidKey := range ids {
		name, ok := s.idToName.Get(docidKey)
		if !ok {
			continue
		}
		nameStr, _ := name.(string)

		rawVec, _ := s.vectors.Get(docidKey)
		vec, _ := rawVec.(map[string]int)
		docid, err := strconv.Atoi(docidKey)
		if err != nil {
			continue
		}
		for term := range vec {
			count, _ := s.df.Get(term)
			c, _ := count.(int)
			c--
			if c <= 0 {
				s.df.Delete(term)
			} else {
				s.df.Put(term, c)
			}
			remaining := removePosting(s.getPostings(term), docid)
			if len(remaining) == 0 {
				s.postings.Delete(term)
			} else {
				s.postings.Put(term, remaining)
			}
		}
		s.vectors.Delete(docidKey)
		s.doclen.Delete(docidKey)
		s.nameToID.Delete(nameStr)
		s.idToName.Delete(docidKey)
		s.features.Delete(docidKey)
	}
	return nil
}

func (s *StoreIndex) DocidToName(docid string) (string, error) {
	v, ok := s.idToName.Get(docid)
	if !ok {
		return "", &NotFoundError{Kind: "docid", Key: docid}
	}
	name, _ := v.(string)
	return name, nil
}

func (s *StoreIndex) NameToDocid(name string) (string, error) {
	v, ok := s.nameToID.Get(name)
	if !ok {
		return "", &NotFoundError{Kind: "name", Key: name}
	}
	docid, _ := v.(string)
	return docid, nil
}

func (s *StoreIndex) PostingsList(term string) ([]Posting, error) {
	canon := termvec.Canonicalize(term, s.cfg)
	postings := s.getPostings(canon)
	out := make([]Posting, len(postings))
	for i, p := range postings {
		out[i] = Posting{DocID: strconv.Itoa(p.DocID), Freq: p.Freq}
	}
	return out, nil
}

func (s *StoreIndex) DocidsWithTerms(terms []string) ([]string, error) {
	if len(terms) == 0 {
		return []string{}, nil
	}
	var sets []map[int]struct{}
	for _, term := range terms {
		canon := termvec.Canonicalize(term, s.cfg)
		set := make(map[int]struct{})
		for _, p := range s.getPostings(canon) {
			set[p.DocID] = struct{}{}
		}
		sets = append(sets, set)
	}
	result := sets[0]
	for _, set := range sets[1:] {
		next := make(map[int]struct{})
		for id := range result {
			if _, ok := set[id]; ok {
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

func (s *StoreIndex) DocnamesWithTerms(terms []string) ([]string, error) {
	ids, err := s.DocidsWithTerms(terms)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := s.DocidToName(id)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *StoreIndex) Query(q string) ([]Result, error) {
	queryVec, err := termvec.BuildString(q, s.cfg)
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
		postingsLists = append(postingsLists, scoring.TermPostings{Term: term, Postings: s.getPostings(term)})
	}

	hits := s.scorer.Score(queryVec, postingsLists, s)
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		name, err := s.DocidToName(strconv.Itoa(h.DocID))
		if err != nil {
			continue
		}
		results = append(results, Result{Name: name, Score: h.Score})
	}
	return results, nil
}

func (s *StoreIndex) N() int {
	if s.globalN != nil {
		return *s.globalN
	}
	return s.idToName.Len()
}

func (s *StoreIndex) DF(term string) int {
	if s.hasGlobalDF {
		if df, ok := s.globalDF[term]; ok && df > 0 {
			return df
		}
		return 1
	}
	v, ok := s.df.Get(term)
	if !ok {
		return 1
	}
	c, _ := v.(int)
	if c <= 0 {
		return 1
	}
	return c
}

func (s *StoreIndex) DocLen(docid int) float64 {
	v, ok := s.doclen.Get(strconv.Itoa(docid))
	if !ok {
		return 0
	}
	l, _ := v.(float64)
	return l
}

func (s *StoreIndex) LoadStoplist(r io.Reader) error {
	stop, err := termvec.ReadStoplist(r)
	if err != nil {
		return err
	}
	s.cfg.Stoplist = stop
	return nil
}

func (s *StoreIndex) Config(key string) (any, error) {
	switch key {
	case "lowercase":
		return s.cfg.Lowercase, nil
	case "stoplist":
		return s.cfg.Stoplist, nil
	default:
		return nil, &BadRequestError{Msg: "unknown configuration key " + key}
	}
}

func (s *StoreIndex) SetConfig(key string, value any) error {
	switch key {
	case "lowercase":
		b, ok := value.(bool)
		if !ok {
			return &BadRequestError{Msg: "lowercase requires a bool value"}
		}
		s.cfg.Lowercase = b
	case "stoplist":
		stop, err := coerceStoplist(value)
		if err != nil {
			return err
		}
		s.cfg.Stoplist = stop
	default:
		return &BadRequestError{Msg: "unknown configuration key " + key}
	}
	return nil
}

func (s *StoreIndex) UpdateConfig(values map[string]any) error {
	for key, value := range values {
		if err := s.SetConfig(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreIndex) SetQueryScorer(scorer any) error {
	switch v := scorer.(type) {
	case string:
		sc, err := scoring.New(v)
		if err != nil {
			return &BadRequestError{Msg: err.Error()}
		}
		s.scorer = sc
	case scoring.Scorer:
		s.scorer = v
	default:
		return &BadRequestError{Msg: "scorer must be a name or a scoring.Scorer"}
	}
	return nil
}

func (s *StoreIndex) GetLocalN() (int, error) { return s.idToName.Len(), nil }

func (s *StoreIndex) GetLocalDFMap() (map[string]int, error) {
	// Store doesn't expose enumeration beyond Get/Put/Delete/Len, so a
	// full local df table is only available when the backing Store also
	// implements Range (MapStore does). A non-enumerable Store reports an
	// empty table and cannot sit directly under a reconciling collection.
	type enumerable interface {
		Range(func(key string, value any) bool)
	}
	out := make(map[string]int)
	if e, ok := s.df.(enumerable); ok {
		e.Range(func(key string, value any) bool {
			if c, ok := value.(int); ok {
				out[key] = c
			}
			return true
		})
	}
	return out, nil
}

func (s *StoreIndex) GetNameToDocidMap() (map[string]string, error) {
	type enumerable interface {
		Range(func(key string, value any) bool)
	}
	out := make(map[string]string)
	if e, ok := s.nameToID.(enumerable); ok {
		e.Range(func(key string, value any) bool {
			if id, ok := value.(string); ok {
				out[key] = id
			}
			return true
		})
	}
	return out, nil
}

func (s *StoreIndex) SetGlobalN(n int) error {
	s.globalN = &n
	return nil
}

func (s *StoreIndex) SetGlobalDFMap(df map[string]int) error {
	s.globalDF = df
	s.hasGlobalDF = df != nil
	return nil
}

// Features returns the opaque per-document feature map stashed for docid.
func (s *StoreIndex) Features(docid string) (map[string]any, error) {
	if _, ok := s.idToName.Get(docid); !ok {
		return nil, &NotFoundError{Kind: "docid", Key: docid}
	}
	v, ok := s.features.Get(docid)
	if !ok {
		return nil, nil
	}
	f, _ := v.(map[string]any)
	return f, nil
}

// SetFeatures stashes an opaque feature map for docid. The whole map is
// re-assigned, never mutated in place.
func (s *StoreIndex) SetFeatures(docid string, features map[string]any) error {
	if _, ok := s.idToName.Get(docid); !ok {
		return &NotFoundError{Kind: "docid", Key: docid}
	}
	s.features.Put(docid, features)
	return nil
}
