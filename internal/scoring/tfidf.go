package scoring

import "math"

// TFWeighting selects the term-frequency weighting function used by
// TFIDFScorer.
type TFWeighting int

const (
	// TFWeightRaw uses the identity function (unscaled tf). Default.
	TFWeightRaw TFWeighting = iota
	// TFWeightLog uses sublinear scaling: 1 + ln(tf).
	TFWeightLog
)

// TFIDFScorer ranks documents by tf·idf-weighted cosine similarity.
//
// This is an approximation of the true cosine: document length is computed
// at index time using unit term weights, independent of the scorer's own
// tf weighting. Query length is not factored in since it's a monotonic
// transform that doesn't affect relative ordering.
type TFIDFScorer struct {
	tfWeight TFWeighting
}

// NewTFIDFScorer builds a TFIDFScorer with the given tf-weighting scheme.
func NewTFIDFScorer(w TFWeighting) TFIDFScorer {
	return TFIDFScorer{tfWeight: w}
}

func (s TFIDFScorer) weighTF(tf int) float64 {
	if s.tfWeight == TFWeightLog {
		if tf <= 0 {
			return 0
		}
		return 1 + math.Log(float64(tf))
	}
	return float64(tf)
}

// Score implements Scorer. Returns empty when N == 0, without consulting
// DF or DocLen.
func (s TFIDFScorer) Score(queryVec map[string]int, postingsLists []TermPostings, corpus Corpus) []Hit {
	n := corpus.N()
	if n == 0 {
		return nil
	}

	byDoc := make(map[int]float64)
	for _, tp := range postingsLists {
		df := corpus.DF(tp.Term)
		idf := math.Log(float64(n) / float64(df))
		queryTermWeight := s.weighTF(queryVec[tp.Term]) * idf
		for _, p := range tp.Postings {
			byDoc[p.DocID] += s.weighTF(p.Freq) * queryTermWeight
		}
	}

	hits := make([]Hit, 0, len(byDoc))
	for docid, weight := range byDoc {
		docLen := corpus.DocLen(docid)
		if docLen == 0 {
			continue
		}
		hits = append(hits, Hit{DocID: docid, Score: weight / docLen})
	}
	return sortHits(hits)
}
