package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><h1>Data Scientist</h1></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher("offerwatch-test", time.Second)
	doc, err := f.Fetch(context.Background(), srv.URL+"/fr/companies/acme/jobs/x")
	require.NoError(t, err)
	assert.Equal(t, "Data Scientist", doc.Find("h1").Text())
	assert.Equal(t, "offerwatch-test", gotUA)
}

func TestHTTPFetcher_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher("", 0).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusGone, fe.Status)
	assert.Equal(t, srv.URL, fe.URL)
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher("", time.Second).Fetch(context.Background(), url)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.Status)
	assert.Error(t, fe.Unwrap())
}
