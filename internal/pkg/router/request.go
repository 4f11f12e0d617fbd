package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
)

// Request wraps *http.Request with typed accessors for params, queries and
// request bodies.
type Request struct {
	*http.Request
}

// GetParam returns the named path parameter, or "" when absent.
func (r *Request) GetParam(name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// GetParamInt64 parses the named path parameter as int64, returning 0 when
// the parameter is absent or malformed.
func (r *Request) GetParamInt64(name string) int64 {
	val, err := strconv.ParseInt(r.GetParam(name), 10, 64)
	if err != nil {
		return 0
	}
	return val
}

// GetQuery returns the first value of the named query parameter.
func (r *Request) GetQuery(name string) string {
	return r.URL.Query().Get(name)
}

// GetQueries returns all values of the named query parameter.
func (r *Request) GetQueries(name string) []string {
	return r.URL.Query()[name]
}

// GetQueryInt32 parses the named query parameter as int32, falling back to
// def when absent or malformed.
func (r *Request) GetQueryInt32(name string, def int32) int32 {
	val, err := strconv.ParseInt(r.GetQuery(name), 10, 32)
	if err != nil {
		return def
	}
	return int32(val)
}

// GetQueryInt64 parses the named query parameter as int64, falling back to
// def when absent or malformed.
func (r *Request) GetQueryInt64(name string, def int64) int64 {
	val, err := strconv.ParseInt(r.GetQuery(name), 10, 64)
	if err != nil {
		return def
	}
	return val
}

// GetQueryDate parses the named query parameter as a date in 2006-01-02
// format. The zero time is returned when absent or malformed.
func (r *Request) GetQueryDate(name string) time.Time {
	val, err := time.Parse(time.DateOnly, r.GetQuery(name))
	if err != nil {
		return time.Time{}
	}
	return val
}

// DecodeBody decodes the JSON request body into dst. Unknown fields and
// trailing data are rejected.
func (r *Request) DecodeBody(dst any) error {
	defer func() {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			return
		}
	}()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat("invalid request body")
	}

	if err := dec.Decode(&struct{}{}); err == nil || !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat("request body must only contain a single JSON object")
	}

	return nil
}

func matchedRoutePath(r *http.Request) string {
	if route := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); route != "" {
		return route
	}
	return r.URL.Path
}
