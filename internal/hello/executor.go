package hello

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/pkg/errors"

	"github.com/jonwraymond/gqlcache/graphql"
)

// Executor resolves operations against the greeting schema.
type Executor struct {
	greeter *Greeter
}

// NewExecutor returns an Executor answering saying with g.
func NewExecutor(g *Greeter) *Executor {
	return &Executor{greeter: g}
}

// collected is a response key and every field selected under it. Fields
// sharing a response key are merged.
type collected struct {
	field *ast.Field
	sets  []ast.SelectionSet
}

// Execute implements graphql.Executor.
func (e *Executor) Execute(ctx context.Context, op *graphql.Operation) *graphql.Response {
	if !op.IsQuery() {
		return graphql.ErrorResponsef("%s operations are not supported", op.Definition.Operation)
	}

	res := &graphql.Response{}
	for _, c := range collectFields(op, "Query", op.Definition.SelectionSet) {
		if err := ctx.Err(); err != nil {
			res.WithError(errors.Wrap(err, "execution aborted"))
			return res
		}

		path := ast.Path{ast.PathName(c.field.Alias)}
		value, err := e.resolveQuery(op, c, path)
		if err != nil {
			res.WithError(located(err, path))
			value = []byte("null")
		}
		res.AddData(member(c.field.Alias, value))
	}
	return res
}

func (e *Executor) resolveQuery(op *graphql.Operation, c collected, path ast.Path) ([]byte, error) {
	switch c.field.Name {
	case "__typename":
		return json.Marshal("Query")
	case "saying":
		var name *string
		if v, ok := c.field.ArgumentMap(op.Variables)["name"].(string); ok {
			name = &v
		}
		s, err := e.greeter.Greet(name)
		if err != nil {
			return nil, err
		}
		return resolveSaying(op, s, c.sets, path)
	default:
		return nil, errors.Errorf("field %s is not supported", c.field.Name)
	}
}

func resolveSaying(op *graphql.Operation, s Saying, sets []ast.SelectionSet, path ast.Path) ([]byte, error) {
	var sel ast.SelectionSet
	for _, set := range sets {
		sel = append(sel, set...)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range collectFields(op, "Saying", sel) {
		var (
			v   []byte
			err error
		)
		switch c.field.Name {
		case "__typename":
			v, err = json.Marshal("Saying")
		case "id":
			v, err = json.Marshal(s.ID)
		case "content":
			v, err = json.Marshal(s.Content)
		default:
			err = errors.Errorf("field %s.%s is not supported", path, c.field.Name)
		}
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(member(c.field.Alias, v))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// collectFields flattens fragments and applies @skip and @include,
// returning fields in response key order.
func collectFields(op *graphql.Operation, typeName string, set ast.SelectionSet) []collected {
	var (
		out   []collected
		index = make(map[string]int)
	)

	var walk func(set ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, s := range set {
			switch s := s.(type) {
			case *ast.Field:
				if !included(op, s.Directives) {
					continue
				}
				if i, ok := index[s.Alias]; ok {
					out[i].sets = append(out[i].sets, s.SelectionSet)
					continue
				}
				index[s.Alias] = len(out)
				out = append(out, collected{field: s, sets: []ast.SelectionSet{s.SelectionSet}})

			case *ast.InlineFragment:
				if !included(op, s.Directives) || (s.TypeCondition != "" && s.TypeCondition != typeName) {
					continue
				}
				walk(s.SelectionSet)

			case *ast.FragmentSpread:
				if !included(op, s.Directives) {
					continue
				}
				def := s.Definition
				if def == nil {
					def = op.Document.Doc.Fragments.ForName(s.Name)
				}
				if def == nil || def.TypeCondition != typeName {
					continue
				}
				walk(def.SelectionSet)
			}
		}
	}
	walk(set)
	return out
}

func included(op *graphql.Operation, dirs ast.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(op.Variables)["if"].(bool); skip {
			return false
		}
	}
	if d := dirs.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(op.Variables)["if"].(bool); !include {
			return false
		}
	}
	return true
}

func member(key string, value []byte) []byte {
	k, _ := json.Marshal(key)
	return append(append(k, ':'), value...)
}

// located attaches path to validation errors that have none.
func located(err error, path ast.Path) error {
	var ve *graphql.ValidationError
	if errors.As(err, &ve) && ve.Path == nil {
		return ve.WithPath(path)
	}
	return err
}
