// Package hello is the example GraphQL service: a greeting per request,
// numbered by a counter.
package hello

import (
	_ "embed"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/pkg/errors"

	"github.com/jonwraymond/gqlcache/graphql"
)

const (
	DefaultTemplate = "Hello, %s!"
	DefaultName     = "Stranger"

	// MaxNameLength bounds the name argument, in characters.
	MaxNameLength = 256
)

//go:embed schema.graphql
var schemaSDL string

// Schema returns the SDL of the greeting service.
func Schema() *ast.Source {
	return &ast.Source{Name: "hello.graphql", Input: schemaSDL}
}

// Saying is one greeting.
type Saying struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Greeter formats greetings from a template. It is safe for concurrent
// use.
type Greeter struct {
	template    string
	defaultName string
	counter     atomic.Int64
}

// NewGreeter returns a Greeter. Empty arguments take the package defaults.
// The template must pass ValidateTemplate.
func NewGreeter(template, defaultName string) (*Greeter, error) {
	if template == "" {
		template = DefaultTemplate
	}
	if defaultName == "" {
		defaultName = DefaultName
	}
	if err := ValidateTemplate(template); err != nil {
		return nil, err
	}
	return &Greeter{template: template, defaultName: defaultName}, nil
}

// ValidateTemplate checks that template holds exactly one %s, where the
// name goes. A literal percent sign is written %%.
func ValidateTemplate(template string) error {
	names := 0
	for rest := template; ; {
		i := strings.IndexByte(rest, '%')
		if i < 0 {
			break
		}
		if i+1 == len(rest) {
			return errors.Errorf("greeting template %q ends with a bare %%", template)
		}
		switch rest[i+1] {
		case '%':
		case 's':
			names++
		default:
			return errors.Errorf("greeting template %q: unsupported verb %%%c, use %%s", template, rest[i+1])
		}
		rest = rest[i+2:]
	}
	if names != 1 {
		return errors.Errorf("greeting template %q must contain exactly one %%s, found %d", template, names)
	}
	return nil
}

// Greet greets name, or the default name when name is nil.
func (g *Greeter) Greet(name *string) (Saying, error) {
	who := g.defaultName
	if name != nil {
		if utf8.RuneCountInString(*name) > MaxNameLength {
			return Saying{}, graphql.NewValidationError("name must be at most %d characters", MaxNameLength)
		}
		who = *name
	}
	return Saying{
		ID:      g.counter.Add(1),
		Content: fmt.Sprintf(g.template, who),
	}, nil
}
