package websites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kvaesitso/kvs/internal/remote"
	"github.com/kvaesitso/kvs/internal/search"
	"go.uber.org/zap"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"example.com", "https://example.com", true},
		{"  sub.example.org/docs/a?b=c ", "https://sub.example.org/docs/a?b=c", true},
		{"http://localhost:8080", "http://localhost:8080", true},
		{"HTTPS://Example.com", "HTTPS://Example.com", true},
		{"https://", "", false},
		{"ftp://example.com", "", false},
		{"example", "", false},
		{"example.c0m", "", false},
		{"-bad.com", "", false},
		{"bad-.com", "", false},
		{"my-site.co.uk", "https://my-site.co.uk", true},
		{"hello world.com", "", false},
		{"", "", false},
		{"3.14", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeURL(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NormalizeURL(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	const doc = `<!doctype html><html><head>
<title> Example Domain </title>
<meta name="description" content="Plain description">
<meta property="og:description" content="OG description">
<meta name="theme-color" content="#336699">
<meta property="og:image" content="/img/cover.jpg">
<link rel="stylesheet" href="/style.css">
<link rel="shortcut icon" href="/favicon.ico">
<link rel="apple-touch-icon" href="icons/touch.png">
</head><body><p>hi</p></body></html>`

	got, err := parsePage("https://example.com/docs/", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	want := search.Website{
		URL:         "https://example.com/docs/",
		Label:       "Example Domain",
		Description: "OG description",
		ImageURL:    "https://example.com/img/cover.jpg",
		FaviconURL:  "https://example.com/docs/icons/touch.png",
		Color:       "#336699",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("website mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePageFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		label       string
		description string
		favicon     string
	}{
		{
			name:    "og title wins",
			doc:     `<html><head><title>T</title><meta property="og:title" content="OG"></head></html>`,
			label:   "OG",
			favicon: "",
		},
		{
			name:  "url when untitled",
			doc:   `<html><body>nothing</body></html>`,
			label: "https://example.com",
		},
		{
			name:        "meta description",
			doc:         `<html><head><title>T</title><meta name="description" content="D"></head></html>`,
			label:       "T",
			description: "D",
		},
		{
			name:    "itemprop image before icon",
			doc:     `<html><head><title>T</title><link rel="icon" href="/i.ico"><meta itemprop="image" content="/logo.svg"></head></html>`,
			label:   "T",
			favicon: "https://example.com/logo.svg",
		},
		{
			name:    "any png link",
			doc:     `<html><head><title>T</title><link rel="preload" href="/mask.png"></head></html>`,
			label:   "T",
			favicon: "https://example.com/mask.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePage("https://example.com", []byte(tt.doc))
			if err != nil {
				t.Fatal(err)
			}
			if got.Label != tt.label || got.Description != tt.description || got.FaviconURL != tt.favicon {
				t.Errorf("got label=%q description=%q favicon=%q", got.Label, got.Description, got.FaviconURL)
			}
		})
	}
}

func TestSearchEmitsEmptyThenPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Local</title></head></html>`))
	}))
	defer srv.Close()

	f := remote.NewFetcher(remote.Options{Enabled: true, Timeout: 2 * time.Second, RequestsPerSecond: 1000, Burst: 10}, nil, zap.NewNop())
	var emits [][]search.Website
	err := New(f, nil).Search(context.Background(), srv.URL, true, func(w []search.Website) { emits = append(emits, w) })
	if err != nil {
		t.Fatal(err)
	}
	if len(emits) != 2 || len(emits[0]) != 0 || len(emits[1]) != 1 || emits[1][0].Label != "Local" {
		t.Fatalf("emits = %+v", emits)
	}
}

func TestSearchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := remote.NewFetcher(remote.Options{Enabled: true, Timeout: 2 * time.Second, RequestsPerSecond: 1000, Burst: 10}, nil, zap.NewNop())
	for _, net := range []bool{true, false} {
		var emits [][]search.Website
		err := New(f, nil).Search(context.Background(), srv.URL, net, func(w []search.Website) { emits = append(emits, w) })
		if err != nil {
			t.Fatal(err)
		}
		if len(emits) != 1 || len(emits[0]) != 0 {
			t.Errorf("network=%v emits = %+v, want a single empty list", net, emits)
		}
	}
}
