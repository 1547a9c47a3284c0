package repository

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/files/report.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		if r.Header.Get("Range") == "bytes=0-0" {
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte("%"))
			return
		}
		_, _ = w.Write([]byte("%PDF-1.7"))
	})
	mux.HandleFunc("/files/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})
	return httptest.NewServer(mux)
}

func TestHTTPAttachmentFetcher_Probe(t *testing.T) {
	srv := newFileServer()
	defer srv.Close()
	f := NewHTTPAttachmentFetcher(time.Second)

	assert.NoError(t, f.Probe(context.Background(), srv.URL+"/files/report.pdf"))
	assert.Error(t, f.Probe(context.Background(), srv.URL+"/files/missing.pdf"))
}

func TestHTTPAttachmentFetcher_Download(t *testing.T) {
	srv := newFileServer()
	defer srv.Close()
	f := NewHTTPAttachmentFetcher(time.Second)

	var buf bytes.Buffer
	n, err := f.Download(context.Background(), srv.URL+"/files/report.pdf", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "%PDF-1.7", buf.String())

	buf.Reset()
	_, err = f.Download(context.Background(), srv.URL+"/files/missing.pdf", &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestHTTPAttachmentFetcher_Timeout(t *testing.T) {
	srv := newFileServer()
	defer srv.Close()

	err := NewHTTPAttachmentFetcher(50*time.Millisecond).Probe(context.Background(), srv.URL+"/files/slow")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewHTTPAttachmentFetcher(time.Second).Probe(ctx, srv.URL+"/files/report.pdf"), context.Canceled)
}
