// Package graph assembles the GraphQL schema of the facade and
// implements its field resolvers.
package graph

import (
	"github.com/graphql-go/graphql"
)

// CacheHints declares the advisory max-age, in seconds, of every
// query field. They are not enforced here; the server surfaces the
// minimum hint of each response for the external caching layer.
var CacheHints = map[string]int{
	"commits": 3600,
	"steps":   3600,
	"songs":   3600,
	"album":   3600,
	"book":    86400,
}

// MinCacheAge returns the smallest cache hint across the given
// fields, or 0 when no field carries a hint.
func MinCacheAge(fields []string) int {
	min := 0
	for _, f := range fields {
		hint, ok := CacheHints[f]
		if !ok {
			continue
		}
		if min == 0 || hint < min {
			min = hint
		}
	}
	return min
}

// NewSchema builds the executable schema, binding every query field
// to its resolver.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	albumType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Album",
		Fields: graphql.Fields{
			"name":   &graphql.Field{Type: graphql.String},
			"artist": &graphql.Field{Type: graphql.String},
		},
	})

	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"name":   &graphql.Field{Type: graphql.String},
			"author": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"commits": &graphql.Field{
				Type:        graphql.Int,
				Description: "Commits authored over the last 30 days.",
				Resolve:     r.Commits,
			},
			"steps": &graphql.Field{
				Type:        graphql.Int,
				Description: "Steps taken over the last 30 days.",
				Resolve:     r.Steps,
			},
			"songs": &graphql.Field{
				Type:        graphql.Int,
				Description: "Distinct songs played over the last month.",
				Resolve:     r.Songs,
			},
			"album": &graphql.Field{
				Type:        albumType,
				Description: "Most played album of the last month.",
				Resolve:     r.Album,
			},
			"book": &graphql.Field{
				Type:        bookType,
				Description: "The book currently being read.",
				Resolve:     r.Book,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
