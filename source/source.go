// Package source reads JSON-LD documents from disk, standard input or
// http(s) URLs, and watches local documents for changes.
package source

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/internal/httpclient"
)

// Stdin is the path that reads the document from standard input.
const Stdin = "-"

type loadOptions struct {
	client *httpclient.Client
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithHTTPClient sets the client used for remote documents.
func WithHTTPClient(c *httpclient.Client) LoadOption {
	return func(o *loadOptions) { o.client = c }
}

// IsRemote reports whether path names an http(s) URL.
func IsRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads the document at path: standard input for "-", a remote
// document for an http(s) URL, otherwise a file.
func Load(ctx context.Context, path string, opts ...LoadOption) (string, error) {
	if path == Stdin {
		return Read(os.Stdin, "stdin")
	}
	if IsRemote(path) {
		o := loadOptions{}
		for _, opt := range opts {
			opt(&o)
		}
		if o.client == nil {
			o.client = httpclient.New(httpclient.DefaultTimeout)
		}
		data, err := o.client.Fetch(ctx, path)
		if err != nil {
			return "", errors.Wrapf(err, "fetch document %s", path)
		}
		if len(data) == 0 {
			return "", errors.NewInvalidRequestError("document %s is empty", path)
		}
		return string(data), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.WithHint(
				errors.Wrapf(errors.ErrNotFound, "document %s", path),
				"pass a JSON-LD file path, an http(s) URL, or - to read standard input",
			)
		}
		return "", errors.Wrapf(err, "open document %s", path)
	}
	defer f.Close()
	return Read(f, path)
}

// Read consumes r as a document. name only labels errors.
func Read(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrapf(err, "read document %s", name)
	}
	if len(data) == 0 {
		return "", errors.NewInvalidRequestError("document %s is empty", name)
	}
	return string(data), nil
}
