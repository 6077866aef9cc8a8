package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.png")
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0666))

	raw, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, []byte("pixels"), raw)

	raw, err = Load(context.Background(), "file://"+filepath.ToSlash(path))
	require.NoError(t, err)
	require.Equal(t, []byte("pixels"), raw)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDataURL(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "base64", ref: "data:image/png;base64,aGVsbG8=", want: "hello"},
		{name: "base64 unpadded", ref: "data:image/png;base64,aGVsbG8", want: "hello"},
		{name: "base64 wrapped", ref: "data:;base64,aGVs\nbG8=", want: "hello"},
		{name: "percent encoded", ref: "data:text/plain,hi%20there", want: "hi there"},
		{name: "upper case scheme", ref: "DATA:,x", want: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Load(context.Background(), tt.ref)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(raw))
		})
	}

	_, err := Load(context.Background(), "data:image/png;base64")
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = Load(context.Background(), "data:;base64,!!!")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write([]byte("remote pixels"))
		case "/big.png":
			w.Write([]byte(strings.Repeat("x", 100)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := &Loader{Client: srv.Client(), MaxBytes: 50}

	raw, err := l.Load(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	require.Equal(t, "remote pixels", string(raw))

	_, err = l.Load(context.Background(), srv.URL+"/missing.png")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Contains(t, err.Error(), "404")

	_, err = l.Load(context.Background(), srv.URL+"/big.png")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadHTTPCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Loader{Client: srv.Client()}).Load(ctx, srv.URL)
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(context.Background(), "  ")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSchemeOf(t *testing.T) {
	require.Equal(t, "", schemeOf(`C:\images\mask.png`))
	require.Equal(t, "", schemeOf("relative/path.png"))
	require.Equal(t, "", schemeOf("ftp://example.com/a.png"))
	require.Equal(t, "https", schemeOf("HTTPS://example.com/a.png"))
	require.Equal(t, "data", schemeOf("data:,x"))
}
