package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func htmlPage(n int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for b.Len() < n {
		b.WriteString("<p>filler paragraph text to pad the body out.</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestFast_AcceptsQualifyingHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(htmlPage(3000)))
	}))
	defer srv.Close()

	f := NewFast()
	result, ok := f.Fetch(context.Background(), srv.URL, time.Second, Options{})
	if !ok {
		t.Fatal("expected fetch to succeed")
	}
	if result.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", result.StatusCode)
	}
	if len(result.HTML) < minBodyBytes {
		t.Fatalf("expected body >= %d bytes, got %d", minBodyBytes, len(result.HTML))
	}
}

func TestFast_RejectsSmallBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>tiny</body></html>"))
	}))
	defer srv.Close()

	f := NewFast()
	_, ok := f.Fetch(context.Background(), srv.URL, time.Second, Options{})
	if ok {
		t.Fatal("expected fetch to reject an undersized body")
	}
}

func TestFast_RejectsNonHTMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(htmlPage(3000)))
	}))
	defer srv.Close()

	f := NewFast()
	_, ok := f.Fetch(context.Background(), srv.URL, time.Second, Options{})
	if ok {
		t.Fatal("expected fetch to reject a non-HTML content type")
	}
}

func TestFast_AppliesExtraHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom-Header")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlPage(3000)))
	}))
	defer srv.Close()

	f := NewFast()
	_, ok := f.Fetch(context.Background(), srv.URL, time.Second, Options{Headers: map[string]string{"X-Custom-Header": "present"}})
	if !ok {
		t.Fatal("expected fetch to succeed")
	}
	if gotHeader != "present" {
		t.Fatalf("expected custom header to be forwarded, got %q", gotHeader)
	}
}

func TestFast_RejectsTransportFailure(t *testing.T) {
	f := NewFast()
	_, ok := f.Fetch(context.Background(), "http://127.0.0.1:1", time.Second, Options{})
	if ok {
		t.Fatal("expected fetch to reject an unreachable target")
	}
}

func TestFast_FollowsRedirects(t *testing.T) {
	var final string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(htmlPage(3000)))
	}))
	defer srv.Close()
	final = srv.URL + "/final"

	f := NewFast()
	result, ok := f.Fetch(context.Background(), srv.URL+"/start", time.Second, Options{})
	if !ok {
		t.Fatal("expected fetch to succeed after redirect")
	}
	if result.FinalURL != final {
		t.Fatalf("expected final URL %q, got %q", final, result.FinalURL)
	}
}
