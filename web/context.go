package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/witlox/dcron/codec"
	"github.com/witlox/dcron/ioutils"
)

const contentTypeHeader = "Content-Type"

var jsonCodec = codec.JsonCodec()

// Context bundles a single HTTP request/response pair, in the shape of the
// teacher's rest.ServerContext: thin accessors over the stdlib types plus
// codec-backed writers, never a framework request object of its own.
type Context struct {
	request  *http.Request
	response http.ResponseWriter
}

func newContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{request: r, response: w}
}

// FormValue returns the named form field, parsing the request body on
// first use.
func (c *Context) FormValue(name string) string {
	return c.request.FormValue(name)
}

// Method returns the request's HTTP method.
func (c *Context) Method() string {
	return c.request.Method
}

// WriteJSON writes data as a JSON response body with the given status code.
func (c *Context) WriteJSON(statusCode int, data interface{}) error {
	c.response.Header().Set(contentTypeHeader, ioutils.MimeApplicationJSON)
	c.response.WriteHeader(statusCode)
	return jsonCodec.Write(data, c.response)
}

// WriteHTML writes body as an HTML response with the given status code.
func (c *Context) WriteHTML(statusCode int, body string) {
	c.response.Header().Set(contentTypeHeader, "text/html; charset=utf-8")
	c.response.WriteHeader(statusCode)
	_, _ = io.Copy(c.response, strings.NewReader(body))
}

// WriteText writes body as a plain-text response with the given status code.
func (c *Context) WriteText(statusCode int, body string) {
	c.response.Header().Set(contentTypeHeader, "text/plain; charset=utf-8")
	c.response.WriteHeader(statusCode)
	_, _ = io.Copy(c.response, strings.NewReader(body))
}

// WantsJSON reports whether the caller asked for a JSON view via the Accept
// header or an explicit format query parameter, falling back to HTML.
func (c *Context) WantsJSON() bool {
	if c.request.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(c.request.Header.Get("Accept"), "application/json")
}
