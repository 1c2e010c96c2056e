package hello

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jonwraymond/gqlcache/graphql"
	"github.com/jonwraymond/gqlcache/observe"
)

// Resource serves greetings as plain JSON at /hello-world?name=.
type Resource struct {
	greeter *Greeter
	logger  observe.Logger
}

// NewResource returns a Resource answering with g. A nil logger discards
// output.
func NewResource(g *Greeter, logger observe.Logger) *Resource {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Resource{greeter: g, logger: logger}
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (res *Resource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		res.write(w, r, http.StatusMethodNotAllowed, errorBody{
			Code:    http.StatusMethodNotAllowed,
			Message: "HTTP 405 Method Not Allowed",
		})
		return
	}

	var name *string
	if v, ok := r.URL.Query()["name"]; ok {
		name = &v[0]
	}

	s, err := res.greeter.Greet(name)
	if err != nil {
		var ve *graphql.ValidationError
		if errors.As(err, &ve) {
			res.write(w, r, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: ve.Message})
			return
		}
		res.logger.Error(r.Context(), "unable to greet", observe.Field{Key: "error", Value: err})
		res.write(w, r, http.StatusInternalServerError, errorBody{
			Code:    http.StatusInternalServerError,
			Message: "There was an error processing your request.",
		})
		return
	}
	res.write(w, r, http.StatusOK, s)
}

func (res *Resource) write(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		res.logger.Warn(r.Context(), "unable to write greeting", observe.Field{Key: "error", Value: err})
	}
}
