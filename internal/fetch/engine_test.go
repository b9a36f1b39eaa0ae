package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2lambda123/ultralytics-yolov5/internal/transport"
)

func fastOptions() Options {
	topts := transport.DefaultOptions()
	topts.RetryAttempts = 2
	topts.RetryBackoff = time.Millisecond
	topts.RetryMaxBackoff = 5 * time.Millisecond
	return Options{Transport: topts}
}

func TestFetchSuccess(t *testing.T) {
	body := strings.Repeat("w", 200_000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "yolov5s.pt")
	e := NewEngine(fastOptions())

	out := e.Fetch(context.Background(), Request{
		URL:      server.URL,
		Dest:     dest,
		MinBytes: 100_000,
	})

	if !out.Succeeded {
		t.Fatalf("Fetch failed: %v", out.Err)
	}
	if out.FellBack {
		t.Error("successful primary transfer should not fall back")
	}
	if out.Bytes != int64(len(body)) {
		t.Errorf("Bytes = %d, want %d", out.Bytes, len(body))
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("destination missing: %v", err)
	}
}

func TestFetchUndersizedRemovesFileAndFallsBack(t *testing.T) {
	// Remote always answers with a 50-byte body, far below the minimum.
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(strings.Repeat("x", 50)))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "f.bin")
	e := NewEngine(fastOptions())

	out := e.Fetch(context.Background(), Request{
		URL:      server.URL,
		Dest:     dest,
		MinBytes: 100_000,
	})

	if out.Succeeded {
		t.Fatal("undersized download must not succeed")
	}
	if !out.FellBack {
		t.Error("expected fallback to the resumable transport")
	}
	if out.Err == nil {
		t.Error("expected an error detail")
	}
	if hits < 2 {
		t.Errorf("alternate transport was not attempted (hits = %d)", hits)
	}
	if _, err := os.Stat(dest); err == nil {
		t.Error("undersized file must not remain on disk")
	}
}

func TestFetchUsesAlternateURLOnFallback(t *testing.T) {
	body := strings.Repeat("y", 150_000)

	var altHits int
	alt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		altHits++
		w.Write([]byte(body))
	}))
	defer alt.Close()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	dest := filepath.Join(t.TempDir(), "yolov5m.pt")
	e := NewEngine(fastOptions())

	out := e.Fetch(context.Background(), Request{
		URL:          primary.URL,
		AlternateURL: alt.URL,
		Dest:         dest,
		MinBytes:     100_000,
	})

	if !out.Succeeded {
		t.Fatalf("Fetch failed: %v", out.Err)
	}
	if !out.FellBack {
		t.Error("expected fallback")
	}
	if altHits == 0 {
		t.Error("alternate URL was never requested")
	}
}

func TestFetchFallbackRecoversPrimaryFailure(t *testing.T) {
	body := strings.Repeat("z", 150_000)

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "yolov5l.pt")
	e := NewEngine(fastOptions())

	out := e.Fetch(context.Background(), Request{
		URL:      server.URL,
		Dest:     dest,
		MinBytes: 100_000,
	})

	if !out.Succeeded {
		t.Fatalf("Fetch failed: %v", out.Err)
	}
	if !out.FellBack {
		t.Error("expected fallback after primary 503")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(got) != len(body) {
		t.Errorf("size = %d, want %d", len(got), len(body))
	}
}

func TestFetchTotalFailureLeavesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "gone.pt")
	e := NewEngine(fastOptions())

	out := e.Fetch(context.Background(), Request{
		URL:      server.URL,
		Dest:     dest,
		MinBytes: 100_000,
	})

	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if _, err := os.Stat(dest); err == nil {
		t.Error("no file may remain after a failed fetch")
	}
}
