package graphql

import (
	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/validator"
)

// Request is a GraphQL request as sent over HTTP.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Extensions    map[string]interface{} `json:"extensions,omitempty"`
}

// Operation is one operation of a compiled Document, ready to execute with
// the request's coerced variables.
type Operation struct {
	Document   *Document
	Definition *ast.OperationDefinition
	Variables  map[string]interface{}
	Schema     *ast.Schema
}

// NewOperation selects the operation named by req from doc and coerces
// req's variables against it. Variables are never part of the cached
// Document.
func NewOperation(schema *ast.Schema, doc *Document, req *Request) (*Operation, error) {
	def, err := doc.Operation(req.OperationName)
	if err != nil {
		return nil, err
	}

	vars, gqlErr := validator.VariableValues(schema, def, req.Variables)
	if gqlErr != nil {
		return nil, gqlErr
	}

	return &Operation{
		Document:   doc,
		Definition: def,
		Variables:  vars,
		Schema:     schema,
	}, nil
}

// IsQuery reports whether the operation is a query.
func (o *Operation) IsQuery() bool {
	return o.Definition.Operation == ast.Query
}
