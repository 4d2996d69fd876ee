package body

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Source is where a dataset body comes from: a local path or an http(s) URL.
type Source struct {
	Location string
	Headers  map[string]string
	// Compression is "gzip", "zstd", "none" or "auto". Auto picks it by the location suffix,
	// or for remote sources by the Content-Encoding header.
	Compression string
}

func (s Source) Remote() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

type decompressor func(r io.Reader) (io.ReadCloser, error)

var decompressors = map[string]decompressor{
	"none": nil,
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		rz, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return rz.IOReadCloser(), nil
	},
}

var suffixToCompression = map[string]string{
	".gz":   "gzip",
	".gzip": "gzip",
	".zst":  "zstd",
}

// Open starts reading the body. The returned reader is decompressed already.
// Remote requests are bound to ctx.
func Open(ctx context.Context, client *http.Client, source Source) (io.ReadCloser, error) {
	var raw io.ReadCloser
	compression := source.Compression
	if compression == "" {
		compression = "auto"
	}

	if source.Remote() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Location, nil)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't create request")
		}
		for k, v := range source.Headers {
			req.Header.Set(k, v)
		}
		res, err := client.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't send request")
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			res.Body.Close()
			return nil, errors.Errorf("unexpected response status: %s", res.Status)
		}
		raw = res.Body
		if compression == "auto" {
			switch res.Header.Get("Content-Encoding") {
			case "gzip":
				compression = "gzip"
			case "zstd":
				compression = "zstd"
			}
		}
	} else {
		f, err := os.Open(source.Location)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't open file")
		}
		raw = f
	}

	if compression == "auto" {
		compression = "none"
		for suffix, name := range suffixToCompression {
			if strings.HasSuffix(source.Location, suffix) {
				compression = name
			}
		}
	}

	decompress, ok := decompressors[compression]
	if !ok {
		raw.Close()
		return nil, errors.Errorf("unknown compression %s", compression)
	}
	if decompress == nil {
		return raw, nil
	}
	rz, err := decompress(raw)
	if err != nil {
		raw.Close()
		return nil, errors.Wrapf(err, "couldn't initialize %s decompression", compression)
	}
	return &decompressed{ReadCloser: rz, raw: raw}, nil
}

type decompressed struct {
	io.ReadCloser
	raw io.Closer
}

func (d *decompressed) Close() error {
	err := d.ReadCloser.Close()
	if rawErr := d.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}
