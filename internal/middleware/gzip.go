package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

var compressor = chimiddleware.Compress(gzip.DefaultCompression,
	"application/json", "text/plain", "text/html")

type gzipReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func (g *gzipReader) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

func (g *gzipReader) Close() error {
	if err := g.zr.Close(); err != nil {
		return err
	}
	return g.body.Close()
}

// GzipMiddleware распаковывает сжатые тела запросов и сжимает ответы для
// клиентов, принимающих gzip.
func GzipMiddleware(next http.Handler) http.Handler {
	compressed := compressor(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			r.Body = &gzipReader{body: r.Body, zr: zr}
			r.Header.Del("Content-Encoding")
			r.Header.Del("Content-Length")
		}

		compressed.ServeHTTP(w, r)
	})
}
