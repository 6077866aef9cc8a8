// Package source fetches the raw bytes behind an image reference: a local
// path, a file:// URL, an http(s) URL or a data: URL.
package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// DefaultMaxBytes caps how much a single source may return.
const DefaultMaxBytes int64 = 64 << 20

// ErrUnavailable wraps every failure to produce the bytes of a source.
var ErrUnavailable = errors.New("source unavailable")

// Loader resolves file paths, data URLs and http(s) URLs to bytes.
type Loader struct {
	// Client is used for http and https references. nil means http.DefaultClient.
	Client *http.Client
	// MaxBytes limits the size of any one source. <= 0 means DefaultMaxBytes.
	MaxBytes int64
}

var defaultLoader = &Loader{}

// Load fetches ref with a default Loader.
func Load(ctx context.Context, ref string) ([]byte, error) {
	return defaultLoader.Load(ctx, ref)
}

// Load returns the bytes behind ref.
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUnavailable)
	}
	var (
		raw []byte
		err error
	)
	switch scheme := schemeOf(ref); scheme {
	case "data":
		raw, err = parseDataURL(ref)
	case "http", "https":
		raw, err = l.fetch(ctx, ref)
	case "file":
		var u *url.URL
		if u, err = url.Parse(ref); err == nil {
			raw, err = l.readFile(u.Path)
		}
	default:
		raw, err = l.readFile(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, describe(ref), err)
	}
	if int64(len(raw)) > l.maxBytes() {
		return nil, fmt.Errorf("%w: %s: larger than %d bytes", ErrUnavailable, describe(ref), l.maxBytes())
	}
	return raw, nil
}

func (l *Loader) maxBytes() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return l.MaxBytes
}

func (l *Loader) client() *http.Client {
	if l.Client == nil {
		return http.DefaultClient
	}
	return l.Client
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %s", resp.Status)
	}
	// One extra byte lets Load notice an oversized body.
	return io.ReadAll(io.LimitReader(resp.Body, l.maxBytes()+1))
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, l.maxBytes()+1))
}

// schemeOf returns the lower-cased URL scheme of ref, or "" for plain paths.
// Windows drive letters such as C:\ are not schemes.
func schemeOf(ref string) string {
	i := strings.Index(ref, ":")
	if i < 2 {
		return ""
	}
	scheme := strings.ToLower(ref[:i])
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return ""
		}
	}
	switch scheme {
	case "data", "http", "https", "file":
		return scheme
	}
	return ""
}

// parseDataURL decodes data:[<mediatype>][;base64],<data>.
func parseDataURL(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(ref[len("data:"):], ",")
	if !ok {
		return nil, errors.New("data url without ','")
	}
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers drop the padding.
			if raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
				return nil, fmt.Errorf("decode base64 payload: %w", err)
			}
		}
		return raw, nil
	}
	raw, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("unescape payload: %w", err)
	}
	return []byte(raw), nil
}

// describe shortens data URLs for error messages.
func describe(ref string) string {
	if schemeOf(ref) == "data" && len(ref) > 40 {
		return fmt.Sprintf("%q", ref[:40]+"...")
	}
	return fmt.Sprintf("%q", ref)
}
