package graphqlapi

import (
	"github.com/graphql-go/graphql"

	"github.com/simsearch/simsearch/internal/simindex"
)

// Schema builds the read-only GraphQL schema over index.
func Schema(index simindex.SimIndex) (graphql.Schema, error) {
	hitType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Hit",
		Description: "A scored document returned from a query",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Document name",
			},
			"score": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Float),
				Description: "Score assigned by the configured scorer",
			},
		},
	})

	postingType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Posting",
		Description: "A single (docid, frequency) entry for a term",
		Fields: graphql.Fields{
			"docid": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.String),
				Description: "Document id (compound, if this index is a collection)",
			},
			"freq": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Term frequency within the document",
			},
		},
	})

	resolver := NewResolver(index)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root read-only query type for the search index",
		Fields: graphql.Fields{
			"query": &graphql.Field{
				Type:        graphql.NewList(hitType),
				Description: "Score a free-text query against the index",
				Args: graphql.FieldConfigArgument{
					"q": &graphql.ArgumentConfig{
						Type:        graphql.NewNonNull(graphql.String),
						Description: "Query text",
					},
				},
				Resolve: resolver.Query,
			},
			"postingsList": &graphql.Field{
				Type:        graphql.NewList(postingType),
				Description: "Postings list for a single term",
				Args: graphql.FieldConfigArgument{
					"term": &graphql.ArgumentConfig{
						Type:        graphql.NewNonNull(graphql.String),
						Description: "Term",
					},
				},
				Resolve: resolver.PostingsList,
			},
			"docnamesWithTerms": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Document names containing every given term",
				Args: graphql.FieldConfigArgument{
					"terms": &graphql.ArgumentConfig{
						Type:        graphql.NewList(graphql.NewNonNull(graphql.String)),
						Description: "Terms that must all be present",
					},
				},
				Resolve: resolver.DocnamesWithTerms,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
