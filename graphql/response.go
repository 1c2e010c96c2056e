package graphql

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/dgraph-io/gqlparser/v2/gqlerror"
	"github.com/pkg/errors"
)

// Response is a GraphQL response. Data holds the JSON object of results,
// built up with AddData.
type Response struct {
	Errors     gqlerror.List
	Data       bytes.Buffer
	Extensions *Extensions
}

// Extensions are the implementation specific response extensions.
type Extensions struct {
	RequestID string   `json:"requestID,omitempty"`
	Tracing   *Tracing `json:"tracing,omitempty"`
}

// ErrorResponsef returns a Response containing a single GraphQL error with
// a message obtained by Sprintf-ing the arguments.
func ErrorResponsef(format string, args ...interface{}) *Response {
	return &Response{
		Errors: gqlerror.List{gqlerror.Errorf(format, args...)},
	}
}

// ErrorResponse formats an error as a list of GraphQL errors and builds a
// response with that error list and no data.
func ErrorResponse(err error) *Response {
	return &Response{
		Errors: AsGQLErrors(err),
	}
}

// AddData adds p, a `"key":value` member, to r's data object. An empty p
// has no effect.
func (r *Response) AddData(p []byte) {
	if r == nil || len(p) == 0 {
		return
	}

	if r.Data.Len() > 0 {
		// The buffer always ends in the closing brace.
		r.Data.Truncate(r.Data.Len() - 1)
		r.Data.WriteRune(',')
	}
	if r.Data.Len() == 0 {
		r.Data.WriteRune('{')
	}

	r.Data.Write(p)
	r.Data.WriteRune('}')
}

// WithError appends err to r's errors.
func (r *Response) WithError(err error) {
	if r == nil || err == nil {
		return
	}
	r.Errors = append(r.Errors, AsGQLErrors(err)...)
}

const (
	errNoResponse = `{"errors":[{"message":"Internal error - no response to write."}],"data":null}`
	errMarshal    = `{"errors":[{"message":"Internal error - failed to marshal a valid JSON response"}],"data":null}`
)

// WriteTo writes the response as unindented JSON to w. If the response
// cannot be marshaled a fixed internal error is written instead and the
// marshal error is returned.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	if r == nil {
		n, err := io.WriteString(w, errNoResponse)
		return int64(n), err
	}

	js, merr := json.Marshal(struct {
		Errors     gqlerror.List   `json:"errors,omitempty"`
		Data       json.RawMessage `json:"data,omitempty"`
		Extensions *Extensions     `json:"extensions,omitempty"`
	}{
		Errors:     r.Errors,
		Data:       r.Data.Bytes(),
		Extensions: r.Extensions,
	})
	if merr != nil {
		js = []byte(errMarshal)
	}

	n, err := w.Write(js)
	if err == nil && merr != nil {
		err = errors.Wrap(merr, "failed to marshal a valid JSON response")
	}
	return int64(n), err
}
