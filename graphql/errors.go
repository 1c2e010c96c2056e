package graphql

import (
	"fmt"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/gqlerror"
	"github.com/pkg/errors"
)

var (
	// ErrNoSchema is returned when no schema source is given.
	ErrNoSchema = errors.New("graphql: no schema specified")

	// ErrNilSchema is returned by NewCompiler for a nil schema.
	ErrNilSchema = errors.New("graphql: schema is nil")

	// ErrInvalidDocument is returned when an operation is requested from a
	// document that failed to compile.
	ErrInvalidDocument = errors.New("graphql: document has errors")

	// ErrNoQuery is returned for a request without query text.
	ErrNoQuery = errors.New("no query string supplied in request")
)

// ValidationError reports invalid user input found while executing an
// operation, such as an argument out of range. Its message is returned to
// the client verbatim and carries no internal detail.
type ValidationError struct {
	Message string
	Path    ast.Path
}

// NewValidationError returns a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

// WithPath returns a copy of e located at path.
func (e *ValidationError) WithPath(path ast.Path) *ValidationError {
	return &ValidationError{Message: e.Message, Path: path}
}

// GQLError converts e to its GraphQL response form.
func (e *ValidationError) GQLError() *gqlerror.Error {
	return &gqlerror.Error{
		Message:    e.Message,
		Path:       e.Path,
		Extensions: map[string]interface{}{"classification": "ValidationError"},
	}
}

// AsGQLErrors formats err as a list of GraphQL errors. A gqlerror.List is
// returned as is, a single *gqlerror.Error or *ValidationError becomes a one
// item list, and any other error is printed into a message. A nil input
// results in nil output.
func AsGQLErrors(err error) gqlerror.List {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case gqlerror.List:
		return e
	case *gqlerror.Error:
		return gqlerror.List{e}
	case *ValidationError:
		return gqlerror.List{e.GQLError()}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return gqlerror.List{ve.GQLError()}
	}
	return gqlerror.List{&gqlerror.Error{Message: err.Error()}}
}
