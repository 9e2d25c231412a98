package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchParsesDocument(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent: %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`<ul class="props"><li>one</li><li>two</li></ul>`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), Options{UserAgent: "test-agent"})
	doc, err := f.Fetch(context.Background(), server.URL+"/da-nang/mua-can-ho?cp=1")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if n := doc.Find("ul.props > li").Length(); n != 2 {
		t.Fatalf("expected 2 items, got %d", n)
	}
	if doc.Url == nil || doc.Url.Path != "/da-nang/mua-can-ho" {
		t.Fatalf("document url not set: %v", doc.Url)
	}
}

func TestFetchHTTPStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), Options{})
	_, err := f.Fetch(context.Background(), server.URL)
	fe, ok := asFetchError(err)
	if !ok {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Kind != KindHTTPStatus || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected error: %+v", fe)
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := NewHTTPFetcher(&http.Client{Timeout: 50 * time.Millisecond}, Options{})
	_, err := f.Fetch(context.Background(), server.URL)
	fe, ok := asFetchError(err)
	if !ok || fe.Kind != KindTimeout {
		t.Fatalf("expected timeout FetchError, got %v", err)
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	f := NewHTTPFetcher(nil, Options{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), addr)
	fe, ok := asFetchError(err)
	if !ok || fe.Kind != KindNetwork {
		t.Fatalf("expected network FetchError, got %v", err)
	}
}

func TestFetchDelaySpacesRequests(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>ok</p>`))
	}))
	defer server.Close()

	delay := 60 * time.Millisecond
	f := NewHTTPFetcher(server.Client(), Options{Delay: delay})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("Fetch %d error: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < delay*3/2 {
		t.Fatalf("expected three fetches to take at least %v, took %v", delay*3/2, elapsed)
	}
}
