// Package gql serves the book library over GraphQL.
package gql

import (
	"time"

	"github.com/graphql-go/graphql"

	"pdflibrary/internal/domain"
)

var bookType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Book",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"author":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"fileName":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"fileSize":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"uploadDate":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"createdAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"updatedAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var bookInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "BookInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"title":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"author":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

// NewSchema builds the schema with every field resolved through r.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	bookList := graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookType)))
	idArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"books": &graphql.Field{
				Type:    bookList,
				Resolve: r.Books,
			},
			"book": &graphql.Field{
				Type:    bookType,
				Args:    graphql.FieldConfigArgument{"id": idArg},
				Resolve: r.Book,
			},
			"searchBooks": &graphql.Field{
				Type: bookList,
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.SearchBooks,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"deleteBook": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"id": idArg},
				Resolve: r.DeleteBook,
			},
			"updateBook": &graphql.Field{
				Type: graphql.NewNonNull(bookType),
				Args: graphql.FieldConfigArgument{
					"id":    idArg,
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(bookInputType)},
				},
				Resolve: r.UpdateBook,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

func toGraph(b *domain.Book) map[string]interface{} {
	return map[string]interface{}{
		"id":          b.ID,
		"title":       b.Title,
		"author":      b.Author,
		"description": b.Description,
		"fileName":    b.FileName,
		"fileSize":    int(b.FileSize),
		"uploadDate":  b.UploadDate.UTC().Format(time.RFC3339),
		"createdAt":   b.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toGraphList(books []domain.Book) []interface{} {
	out := make([]interface{}, 0, len(books))
	for i := range books {
		out = append(out, toGraph(&books[i]))
	}
	return out
}
