package graphql

import (
	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/gqlerror"
	"github.com/pkg/errors"
)

// Document is a compiled query. It depends on the query text alone, so one
// Document can serve every request with the same text regardless of
// variables or operation name.
//
// A query that fails to parse or validate still compiles to a Document:
// Doc is nil and Errors lists the failures.
type Document struct {
	Query  string
	Doc    *ast.QueryDocument
	Errors gqlerror.List
}

// Valid reports whether the document compiled without errors.
func (d *Document) Valid() bool {
	return d != nil && d.Doc != nil && len(d.Errors) == 0
}

// Operation returns the operation called name. An empty name selects the
// only operation of a single-operation document.
func (d *Document) Operation(name string) (*ast.OperationDefinition, error) {
	if !d.Valid() {
		return nil, ErrInvalidDocument
	}
	if len(d.Doc.Operations) > 1 && name == "" {
		return nil, errors.New("Operation name must by supplied when query has more " +
			"than 1 operation.")
	}
	op := d.Doc.Operations.ForName(name)
	if op == nil {
		return nil, errors.Errorf("Supplied operation name %s isn't present in the request.", name)
	}
	return op, nil
}

// Weight returns the cache weight of the document, the length of its query
// text.
func Weight(query string, _ *Document) int64 {
	return int64(len(query))
}
