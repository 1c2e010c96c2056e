package graphql

import (
	"context"
	"fmt"
	"testing"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/gqlcache/cache"
)

const testSchema = `
type Query {
	greeting(name: String): String
	count: Int!
}
`

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	sch, err := ParseSchema(&ast.Source{Name: "test.graphql", Input: testSchema})
	require.NoError(t, err)
	c, err := NewCompiler(sch)
	require.NoError(t, err)
	return c
}

func newTestCache(t *testing.T, spec string) *cache.Cache[*Document] {
	t.Helper()
	c, err := cache.New[*Document](cache.MustParsePolicy(spec), cache.WithWeigher[*Document](Weight))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// echoExecutor answers every top level field with its name, and greeting
// with the name argument.
var echoExecutor = ExecutorFunc(func(_ context.Context, op *Operation) *Response {
	res := &Response{}
	for _, sel := range op.Definition.SelectionSet {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		var value string
		switch f.Name {
		case "greeting":
			name, _ := f.ArgumentMap(op.Variables)["name"].(string)
			value = fmt.Sprintf("%q", "hello "+name)
		case "count":
			value = "1"
		default:
			value = fmt.Sprintf("%q", f.Name)
		}
		res.AddData([]byte(fmt.Sprintf("%q:%s", f.Alias, value)))
	}
	return res
})
