package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// Compress gzips JSON and HTML responses of at least minSize bytes for clients
// that send Accept-Encoding: gzip. It wraps the whole engine, not a route.
func Compress(h http.Handler, minSize int) (http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.ContentTypes([]string{"application/json", "text/html"}),
	)
	if err != nil {
		return nil, err
	}
	return wrap(h), nil
}
