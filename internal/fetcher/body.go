package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// readBody reads a response body, undoing its Content-Encoding and
// truncating it at maxBodySize.
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrMalformedResponse, err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// toUTF8 converts body to UTF-8 using the Content-Type charset, a BOM, or a
// <meta charset> declaration. Undecodable bodies are returned unchanged.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}
