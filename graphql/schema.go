package graphql

import (
	"context"
	"os"
	"strings"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/parser"
	"github.com/dgraph-io/gqlparser/v2/validator"
	"github.com/pkg/errors"

	"github.com/jonwraymond/gqlcache/observe"
)

// SchemaFiles merges the deprecated single schemaFile setting into
// schemaFiles. Blank names and repeats are dropped; order is kept.
func SchemaFiles(schemaFile string, schemaFiles []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range append(append([]string(nil), schemaFiles...), schemaFile) {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// LoadSchema reads and merges the SDL files into one schema.
func LoadSchema(ctx context.Context, logger observe.Logger, files ...string) (*ast.Schema, error) {
	sources, err := ReadSchemaFiles(ctx, logger, files...)
	if err != nil {
		return nil, err
	}
	return ParseSchema(sources...)
}

// ReadSchemaFiles reads each SDL file into a source, logging every file
// loaded.
func ReadSchemaFiles(ctx context.Context, logger observe.Logger, files ...string) ([]*ast.Source, error) {
	if logger == nil {
		logger = observe.NopLogger()
	}
	sources := make([]*ast.Source, 0, len(files))
	for _, name := range files {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read schema file %s", name)
		}
		logger.Info(ctx, "loading GraphQL schema file", observe.Field{Key: "file", Value: name})
		sources = append(sources, &ast.Source{Name: name, Input: string(b)})
	}
	return sources, nil
}

// ParseSchema merges the SDL sources, after the built-in scalars and
// introspection types, and validates the result.
func ParseSchema(sources ...*ast.Source) (*ast.Schema, error) {
	if len(sources) == 0 {
		return nil, ErrNoSchema
	}

	doc, perr := parser.ParseSchemas(append([]*ast.Source{validator.Prelude}, sources...)...)
	if perr != nil {
		return nil, errors.Wrap(perr, "unable to parse schema")
	}

	sch, verr := validator.ValidateSchemaDocument(doc)
	if verr != nil {
		return nil, errors.Wrap(verr, "invalid schema")
	}
	return sch, nil
}
