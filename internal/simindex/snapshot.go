package simindex

import (
	"io"
	"sort"

	"github.com/simsearch/simsearch/internal/scoring"
	"github.com/simsearch/simsearch/internal/snapshot"
	"github.com/simsearch/simsearch/internal/termvec"
)

var _ snapshot.Exporter = (*MemoryIndex)(nil)
var _ snapshot.Importer = (*MemoryIndex)(nil)

// ExportSnapshot implements snapshot.Exporter.
func (m *MemoryIndex) ExportSnapshot() snapshot.Snapshot {
	stoplist := make([]string, 0, len(m.cfg.Stoplist))
	for term := range m.cfg.Stoplist {
		stoplist = append(stoplist, term)
	}

	vectors := make(map[int]map[string]int, len(m.vectors))
	for docid, vec := range m.vectors {
		copied := make(map[string]int, len(vec))
		for term, freq := range vec {
			copied[term] = freq
		}
		vectors[docid] = copied
	}

	nameToID := make(map[string]int, len(m.nameToID))
	for name, id := range m.nameToID {
		nameToID[name] = id
	}
	df := make(map[string]int, len(m.df))
	for term, count := range m.df {
		df[term] = count
	}
	doclen := make(map[int]float64, len(m.doclen))
	for id, l := range m.doclen {
		doclen[id] = l
	}
	var features map[int]map[string]any
	if len(m.features) > 0 {
		features = make(map[int]map[string]any, len(m.features))
		for id, f := range m.features {
			features[id] = f
		}
	}

	return snapshot.Snapshot{
		Lowercase: m.cfg.Lowercase,
		Stoplist:  stoplist,
		NextDocid: m.nextDocid,
		NameToID:  nameToID,
		Vectors:   vectors,
		DF:        df,
		Doclen:    doclen,
		N:         m.n,
		Features:  features,
	}
}

// ImportSnapshot implements snapshot.Importer. The scorer and any global
// overrides are left untouched: the scorer is re-attached externally, and
// global overrides belong to the parent collection, not the snapshot.
func (m *MemoryIndex) ImportSnapshot(s snapshot.Snapshot) {
	m.cfg.Lowercase = s.Lowercase
	m.cfg.Stoplist = termvec.NewStoplist(s.Stoplist...)
	m.nextDocid = s.NextDocid

	m.nameToID = make(map[string]int, len(s.NameToID))
	m.idToName = make(map[int]string, len(s.NameToID))
	for name, id := range s.NameToID {
		m.nameToID[name] = id
		m.idToName[id] = name
	}

	m.vectors = make(map[int]termvec.Vec, len(s.Vectors))
	m.postings = make(map[string][]scoring.Posting)
	docids := make([]int, 0, len(s.Vectors))
	for docid := range s.Vectors {
		docids = append(docids, docid)
	}
	sort.Ints(docids)
	for _, docid := range docids {
		vec := make(termvec.Vec, len(s.Vectors[docid]))
		for term, freq := range s.Vectors[docid] {
			vec[term] = freq
			m.postings[term] = append(m.postings[term], scoring.Posting{DocID: docid, Freq: freq})
		}
		m.vectors[docid] = vec
	}

	m.df = make(map[string]int, len(s.DF))
	for term, count := range s.DF {
		m.df[term] = count
	}
	m.doclen = make(map[int]float64, len(s.Doclen))
	for id, l := range s.Doclen {
		m.doclen[id] = l
	}
	m.n = s.N
	m.features = s.Features
	if m.features == nil {
		m.features = make(map[int]map[string]any)
	}
}

// Save writes a compressed snapshot of m to w.
func (m *MemoryIndex) Save(w io.Writer, algo snapshot.Algorithm) error {
	return snapshot.Save(w, m, algo)
}

// Load replaces m's state with the snapshot read from r. m's scorer is
// left as-is; callers that want a specific scorer call SetQueryScorer
// afterward.
func (m *MemoryIndex) Load(r io.Reader, algo snapshot.Algorithm) error {
	return snapshot.Load(r, m, algo)
}
