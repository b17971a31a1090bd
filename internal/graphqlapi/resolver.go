// Package graphqlapi exposes a read-only GraphQL surface over a SimIndex:
// query, postingsList, and docnamesWithTerms. It never mutates the wrapped
// index (no GraphQL mutations are defined), keeping the write path
// exclusively on the RPC surface of internal/rpcserver.
package graphqlapi

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/simsearch/simsearch/internal/simindex"
)

// Resolver resolves GraphQL fields against a wrapped SimIndex.
type Resolver struct {
	index simindex.SimIndex
}

// NewResolver builds a Resolver over index.
func NewResolver(index simindex.SimIndex) *Resolver {
	return &Resolver{index: index}
}

// Query resolves the "query" field: free-text query scored against the
// index, returned as materialized (name, score) hits.
func (res *Resolver) Query(p graphql.ResolveParams) (interface{}, error) {
	q, ok := p.Args["q"].(string)
	if !ok {
		return nil, fmt.Errorf("q is required")
	}
	hits, err := res.index.Query(q)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	out := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		out = append(out, map[string]interface{}{"name": h.Name, "score": h.Score})
	}
	return out, nil
}

// PostingsList resolves the "postingsList" field.
func (res *Resolver) PostingsList(p graphql.ResolveParams) (interface{}, error) {
	term, ok := p.Args["term"].(string)
	if !ok {
		return nil, fmt.Errorf("term is required")
	}
	postings, err := res.index.PostingsList(term)
	if err != nil {
		return nil, fmt.Errorf("postings_list failed: %w", err)
	}
	out := make([]map[string]interface{}, 0, len(postings))
	for _, p := range postings {
		out = append(out, map[string]interface{}{"docid": p.DocID, "freq": p.Freq})
	}
	return out, nil
}

// DocnamesWithTerms resolves the "docnamesWithTerms" field.
func (res *Resolver) DocnamesWithTerms(p graphql.ResolveParams) (interface{}, error) {
	raw, ok := p.Args["terms"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("terms is required")
	}
	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		s, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("terms must be a list of strings")
		}
		terms = append(terms, s)
	}
	names, err := res.index.DocnamesWithTerms(terms)
	if err != nil {
		return nil, fmt.Errorf("docnames_with_terms failed: %w", err)
	}
	return names, nil
}
