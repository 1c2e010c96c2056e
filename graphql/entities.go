package graphql

import (
	"context"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/gqlerror"
)

// Apollo federation names for entity lookup by reference.
const (
	EntitiesField      = "_entities"
	RepresentationsArg = "representations"
	TypenameKey        = "__typename"
)

// EntityResolver resolves a federated entity from its representation: the
// __typename and key fields a gateway sends to _entities.
type EntityResolver interface {
	ResolveReference(ctx context.Context, representation map[string]any) (any, error)
}

// EntityResolverFunc adapts a function to EntityResolver.
type EntityResolverFunc func(ctx context.Context, representation map[string]any) (any, error)

// ResolveReference calls f(ctx, representation).
func (f EntityResolverFunc) ResolveReference(ctx context.Context, representation map[string]any) (any, error) {
	return f(ctx, representation)
}

// EntityResolvers picks the resolver for a representation by its
// __typename.
type EntityResolvers map[string]EntityResolver

// ResolveReference resolves representation with the resolver registered
// for its type.
func (m EntityResolvers) ResolveReference(ctx context.Context, representation map[string]any) (any, error) {
	typename, _ := representation[TypenameKey].(string)
	if typename == "" {
		return nil, NewValidationError("representation has no %s", TypenameKey)
	}
	r, ok := m[typename]
	if !ok {
		return nil, NewValidationError("no entity resolver for type %q", typename)
	}
	return r.ResolveReference(ctx, representation)
}

// ResolveEntities resolves every representation passed to field, an
// _entities selection of op, through r. The result has one value per
// representation, in order. A representation that fails leaves nil in its
// slot and an error located at its index; the others still resolve.
func ResolveEntities(ctx context.Context, r EntityResolver, op *Operation, field *ast.Field) ([]any, gqlerror.List) {
	fieldPath := ast.Path{ast.PathName(field.Alias)}
	reps, ok := field.ArgumentMap(op.Variables)[RepresentationsArg].([]interface{})
	if !ok {
		return nil, gqlerror.List{gqlerror.ErrorPathf(fieldPath, "%s must be a list", RepresentationsArg)}
	}

	out := make([]any, len(reps))
	var errs gqlerror.List
	for i, item := range reps {
		path := append(ast.Path{}, fieldPath...)
		path = append(path, ast.PathIndex(i))
		if err := ctx.Err(); err != nil {
			errs = append(errs, gqlerror.ErrorPathf(path, "%v", err))
			break
		}

		rep, ok := item.(map[string]interface{})
		if !ok {
			errs = append(errs, gqlerror.ErrorPathf(path, "representation must be an object"))
			continue
		}
		v, err := r.ResolveReference(ctx, rep)
		if err != nil {
			for _, e := range AsGQLErrors(err) {
				e.Path = path
				errs = append(errs, e)
			}
			continue
		}
		out[i] = v
	}
	return out, errs
}
