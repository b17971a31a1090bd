package scoring

// SimpleCountScorer scores a document by the sum, over query terms, of the
// term's raw frequency in the document. Query-term multiplicities are
// ignored: "hello hello" ranks identically to "hello".
type SimpleCountScorer struct{}

// Score implements Scorer.
func (SimpleCountScorer) Score(queryVec map[string]int, postingsLists []TermPostings, corpus Corpus) []Hit {
	byDoc := make(map[int]float64)
	for _, tp := range postingsLists {
		for _, p := range tp.Postings {
			byDoc[p.DocID] += float64(p.Freq)
		}
	}
	hits := make([]Hit, 0, len(byDoc))
	for docid, score := range byDoc {
		hits = append(hits, Hit{DocID: docid, Score: score})
	}
	return sortHits(hits)
}
