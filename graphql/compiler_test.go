package graphql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	c := newTestCompiler(t)

	tests := []struct {
		name      string
		query     string
		valid     bool
		errSubstr string
	}{
		{"valid query", `{ greeting(name: "Ada") }`, true, ""},
		{"named operations", `query A { count } query B { greeting }`, true, ""},
		{"syntax error", `{ greeting(`, false, "Expected"},
		{"unknown field", `{ nope }`, false, `Cannot query field "nope"`},
		{"unknown argument", `{ count(limit: 1) }`, false, `Unknown argument "limit"`},
		{"unused variable", `query ($n: Int) { count }`, false, `Variable "$n" is never used`},
		{"blank", "  ", false, "no query string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := c.Compile(context.Background(), tt.query)
			require.NoError(t, err)
			require.NotNil(t, doc)
			assert.Equal(t, tt.query, doc.Query)
			assert.Equal(t, tt.valid, doc.Valid())
			if tt.errSubstr != "" {
				require.NotEmpty(t, doc.Errors)
				assert.Contains(t, doc.Errors.Error(), tt.errSubstr)
				assert.Nil(t, doc.Doc)
			}
		})
	}
}

func TestCompile_CanceledContext(t *testing.T) {
	c := newTestCompiler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := c.Compile(ctx, `{ count }`)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, doc)
}

func TestNewCompiler_NilSchema(t *testing.T) {
	_, err := NewCompiler(nil)
	assert.ErrorIs(t, err, ErrNilSchema)
}

func TestDocument_Operation(t *testing.T) {
	c := newTestCompiler(t)
	ctx := context.Background()

	single, err := c.Compile(ctx, `query Only { count }`)
	require.NoError(t, err)
	op, err := single.Operation("")
	require.NoError(t, err)
	assert.Equal(t, "Only", op.Name)

	multi, err := c.Compile(ctx, `query A { count } query B { count }`)
	require.NoError(t, err)
	_, err = multi.Operation("")
	assert.EqualError(t, err, "Operation name must by supplied when query has more than 1 operation.")
	op, err = multi.Operation("B")
	require.NoError(t, err)
	assert.Equal(t, "B", op.Name)
	_, err = multi.Operation("C")
	assert.EqualError(t, err, "Supplied operation name C isn't present in the request.")

	bad, err := c.Compile(ctx, `{`)
	require.NoError(t, err)
	_, err = bad.Operation("")
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestNewOperation_Variables(t *testing.T) {
	c := newTestCompiler(t)
	doc, err := c.Compile(context.Background(), `query Greet($name: String) { greeting(name: $name) }`)
	require.NoError(t, err)

	op, err := NewOperation(c.Schema(), doc, &Request{
		Variables: map[string]interface{}{"name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", op.Variables["name"])
	assert.True(t, op.IsQuery())
	assert.Same(t, doc, op.Document)

	_, err = NewOperation(c.Schema(), doc, &Request{
		Variables: map[string]interface{}{"name": 42},
	})
	assert.Error(t, err)
}
