package graphql

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jonwraymond/gqlcache/cache"
	"github.com/jonwraymond/gqlcache/observe"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Executor runs a compiled operation.
type Executor interface {
	Execute(ctx context.Context, op *Operation) *Response
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, op *Operation) *Response

// Execute calls f(ctx, op).
func (f ExecutorFunc) Execute(ctx context.Context, op *Operation) *Response {
	return f(ctx, op)
}

// Handler serves GraphQL over HTTP. It is safe for concurrent use.
type Handler struct {
	docs     *cache.Cache[*Document]
	compiler *Compiler
	exec     Executor
	logger   observe.Logger
	tracing  bool
	maxBody  int64
	now      func() time.Time

	instrument []Instrumentation
	inst       Instrumentation
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(l observe.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTracing adds request timing to every response's extensions.
func WithTracing(enabled bool) HandlerOption {
	return func(h *Handler) { h.tracing = enabled }
}

// WithInstrumentation adds ins to the chain run around the compile and
// execute phases of every request. Repeated options append.
func WithInstrumentation(ins ...Instrumentation) HandlerOption {
	return func(h *Handler) { h.instrument = append(h.instrument, ins...) }
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler returns a Handler that compiles queries with compiler, keeps
// the compiled documents in docs and runs them with exec.
func NewHandler(docs *cache.Cache[*Document], compiler *Compiler, exec Executor, opts ...HandlerOption) (*Handler, error) {
	switch {
	case docs == nil:
		return nil, errors.New("graphql: document cache is nil")
	case compiler == nil:
		return nil, errors.New("graphql: compiler is nil")
	case exec == nil:
		return nil, errors.New("graphql: executor is nil")
	}

	h := &Handler{
		docs:     docs,
		compiler: compiler,
		exec:     exec,
		logger:   observe.NopLogger(),
		maxBody:  DefaultMaxBodyBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if len(h.instrument) > 0 {
		h.inst = ChainInstrumentation(h.instrument...)
	}
	return h, nil
}

// Resolve compiles, or fetches from the cache, the request's document and
// executes the selected operation. It always returns a response.
func (h *Handler) Resolve(ctx context.Context, req *Request) *Response {
	var tr *Tracing
	if h.tracing {
		tr = newTracing(h.now())
	}

	res := h.resolve(ctx, req, tr)
	if res == nil {
		res = ErrorResponsef("Internal error - executor returned no response")
	}
	if res.Extensions == nil {
		res.Extensions = &Extensions{}
	}
	res.Extensions.RequestID = uuid.NewString()
	if tr != nil {
		tr.finish(h.now())
		res.Extensions.Tracing = tr
	}
	return res
}

func (h *Handler) resolve(ctx context.Context, req *Request, tr *Tracing) *Response {
	if req == nil || req.Query == "" {
		return ErrorResponse(ErrNoQuery)
	}

	compileCtx, endCompile := ctx, func(*Document, cache.Source, error) {}
	if h.inst != nil {
		compileCtx, endCompile = h.inst.BeginCompile(ctx, req.Query)
	}
	start := h.now()
	r := h.docs.Lookup(compileCtx, req.Query, h.compiler.Compile)
	if tr != nil {
		tr.Parsing = tr.phase(start, h.now())
		tr.Cache = r.Source.String()
	}
	endCompile(r.Value, r.Source, r.Err)
	if r.Err != nil {
		return ErrorResponse(r.Err)
	}
	doc := r.Value
	if !doc.Valid() {
		return &Response{Errors: doc.Errors}
	}

	start = h.now()
	op, err := NewOperation(h.compiler.Schema(), doc, req)
	if tr != nil {
		tr.Validation = tr.phase(start, h.now())
	}
	if err != nil {
		return ErrorResponse(err)
	}

	execCtx, endExecute := ctx, func(*Response) {}
	if h.inst != nil {
		execCtx, endExecute = h.inst.BeginExecute(ctx, op)
	}
	start = h.now()
	res := h.exec.Execute(execCtx, op)
	if tr != nil {
		tr.Execution = tr.phase(start, h.now())
	}
	endExecute(res)
	return res
}

// ServeHTTP handles GET and POST GraphQL requests and writes a GraphQL JSON
// response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	acceptGzip := strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error(r.Context(), "panic while serving GraphQL request",
				observe.Field{Key: "panic", Value: p},
			)
			h.write(r.Context(), w, http.StatusInternalServerError, ErrorResponsef("Internal Server Error"), acceptGzip)
		}
	}()

	addCorsHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	gqlReq, status, err := h.getRequest(r)
	if err != nil {
		if status == http.StatusMethodNotAllowed {
			w.Header().Set("Allow", "GET, POST, OPTIONS")
		}
		h.write(r.Context(), w, status, ErrorResponse(err), acceptGzip)
		return
	}

	h.write(r.Context(), w, http.StatusOK, h.Resolve(r.Context(), gqlReq), acceptGzip)
}

// write sends rr through a gzip writer when the client accepts it.
func (h *Handler) write(ctx context.Context, w http.ResponseWriter, status int, rr *Response, acceptGzip bool) {
	var out io.Writer = w
	if acceptGzip {
		w.Header().Set("Content-Encoding", "gzip")
		gzw := gzip.NewWriter(w)
		defer gzw.Close()
		out = gzw
	}
	w.WriteHeader(status)

	if _, err := rr.WriteTo(out); err != nil {
		h.logger.Error(ctx, "unable to write GraphQL response", observe.Field{Key: "error", Value: err})
	}
}

type gzreadCloser struct {
	*gzip.Reader
	io.Closer
}

func (gz gzreadCloser) Close() error {
	if err := gz.Reader.Close(); err != nil {
		return err
	}
	return gz.Closer.Close()
}

func (h *Handler) getRequest(r *http.Request) (*Request, int, error) {
	gqlReq := &Request{}

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		gqlReq.Query = query.Get("query")
		gqlReq.OperationName = query.Get("operationName")
		if variables, ok := query["variables"]; ok && variables[0] != "" {
			d := json.NewDecoder(strings.NewReader(variables[0]))
			d.UseNumber()
			if err := d.Decode(&gqlReq.Variables); err != nil {
				return nil, http.StatusBadRequest, errors.Wrap(err, "Not a valid GraphQL request body")
			}
		}

	case http.MethodPost:
		body := http.MaxBytesReader(nil, r.Body, h.maxBody)
		var in io.Reader = body
		if r.Header.Get("Content-Encoding") == "gzip" {
			zr, err := gzip.NewReader(body)
			if err != nil {
				return nil, http.StatusBadRequest, errors.Wrap(err, "Unable to parse gzip")
			}
			r.Body = gzreadCloser{zr, r.Body}
			// The limit applies to the decompressed bytes too.
			in = http.MaxBytesReader(nil, zr, h.maxBody)
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return nil, http.StatusBadRequest, errors.Wrap(err, "unable to parse media type")
		}

		switch mediaType {
		case "application/json":
			d := json.NewDecoder(in)
			d.UseNumber()
			if err := d.Decode(gqlReq); err != nil {
				return nil, bodyErrorStatus(err), errors.Wrap(err, "Not a valid GraphQL request body")
			}
		case "application/graphql":
			b, err := io.ReadAll(in)
			if err != nil {
				return nil, bodyErrorStatus(err), errors.Wrap(err, "unable to read request body")
			}
			if int64(len(b)) > h.maxBody {
				return nil, http.StatusRequestEntityTooLarge, errors.New("request body too large")
			}
			gqlReq.Query = string(b)
			gqlReq.OperationName = r.URL.Query().Get("operationName")
		default:
			return nil, http.StatusUnsupportedMediaType, errors.New(
				"Unrecognised Content-Type.  Please use application/json or application/graphql for GraphQL requests")
		}

	default:
		return nil, http.StatusMethodNotAllowed,
			errors.New("Unrecognised request method.  Please use GET or POST for GraphQL requests")
	}

	return gqlReq, http.StatusOK, nil
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func addCorsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Content-Encoding")
}
