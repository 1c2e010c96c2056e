package graphql

import (
	"context"
	"strings"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/gqlerror"
	"github.com/dgraph-io/gqlparser/v2/parser"
	"github.com/dgraph-io/gqlparser/v2/validator"
	// Registers the standard rules that validator.Validate runs.
	_ "github.com/dgraph-io/gqlparser/v2/validator/rules"
	"github.com/pkg/errors"
)

// Compiler parses and validates queries against one schema.
type Compiler struct {
	schema *ast.Schema
}

// NewCompiler returns a Compiler for schema.
func NewCompiler(schema *ast.Schema) (*Compiler, error) {
	if schema == nil {
		return nil, ErrNilSchema
	}
	return &Compiler{schema: schema}, nil
}

// Schema returns the schema queries are validated against.
func (c *Compiler) Schema() *ast.Schema { return c.schema }

// Compile turns query into a Document. Validation runs without variables,
// so the result depends on the query text alone and is safe to cache.
//
// Syntax and validation failures are recorded in Document.Errors. The only
// error returned is the context's, when it is already done.
func (c *Compiler) Compile(ctx context.Context, query string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "compile aborted")
	}

	d := &Document{Query: query}
	if strings.TrimSpace(query) == "" {
		d.Errors = gqlerror.List{gqlerror.Errorf("%s", ErrNoQuery.Error())}
		return d, nil
	}

	doc, perr := parser.ParseQuery(&ast.Source{Input: query})
	if perr != nil {
		d.Errors = AsGQLErrors(perr)
		return d, nil
	}

	if errs := validator.Validate(c.schema, doc, nil); len(errs) != 0 {
		d.Errors = errs
		return d, nil
	}

	d.Doc = doc
	return d, nil
}
