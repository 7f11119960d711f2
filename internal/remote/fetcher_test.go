package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache("", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testOptions() Options {
	return Options{
		Enabled:           true,
		UserAgent:         "kvs-test",
		Timeout:           2 * time.Second,
		TTL:               time.Minute,
		RequestsPerSecond: 1000,
		Burst:             100,
	}
}

func TestGetSendsUserAgentAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if ua := r.Header.Get("User-Agent"); ua != "kvs-test" {
			t.Errorf("User-Agent = %q, want kvs-test", ua)
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := NewFetcher(testOptions(), testCache(t), zap.NewNop())
	for range 3 {
		body, err := f.Get(context.Background(), srv.URL+"/page")
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "hello" {
			t.Errorf("body = %q, want hello", body)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestGetOffline(t *testing.T) {
	opts := testOptions()
	opts.Enabled = false
	f := NewFetcher(opts, nil, zap.NewNop())
	if _, err := f.Get(context.Background(), "http://example.invalid/"); !errors.Is(err, ErrOffline) {
		t.Fatalf("err = %v, want ErrOffline", err)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcher(testOptions(), testCache(t), zap.NewNop())
	_, err := f.Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want StatusError 429", err)
	}

	// Failures are not cached.
	_, err = f.Get(context.Background(), srv.URL)
	if !errors.As(err, &se) {
		t.Fatalf("second err = %v, want StatusError", err)
	}
}

func TestGetDeduplicatesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte("shared"))
	}))
	defer srv.Close()

	f := NewFetcher(testOptions(), nil, zap.NewNop())
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := f.Get(context.Background(), srv.URL+"/same")
			if err != nil || string(body) != "shared" {
				t.Errorf("Get = %q, %v", body, err)
			}
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestGetHonorsCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(testOptions(), nil, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.Get(ctx, srv.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestGetAbortsAbandonedRequest(t *testing.T) {
	var started atomic.Int32
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started.Add(1)
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-time.After(5 * time.Second):
			_, _ = w.Write([]byte("late"))
		}
	}))
	defer srv.Close()

	f := NewFetcher(testOptions(), nil, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.Get(ctx, srv.URL+"/slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatal("server request still running after the caller gave up")
	}
	if n := started.Load(); n != 1 {
		t.Errorf("server requests = %d, want 1", n)
	}
}

func TestGetKeepsRequestWhileOthersWait(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("shared"))
	}))
	defer srv.Close()

	f := NewFetcher(testOptions(), nil, zap.NewNop())
	done := make(chan error, 1)
	go func() {
		body, err := f.Get(context.Background(), srv.URL+"/same")
		if err == nil && string(body) != "shared" {
			err = errors.New("unexpected body " + string(body))
		}
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Get(ctx, srv.URL+"/same"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("remaining caller: %v", err)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"kvs"}`))
	}))
	defer srv.Close()

	f := NewFetcher(testOptions(), nil, zap.NewNop())
	var v struct {
		Name string `json:"name"`
	}
	if err := f.GetJSON(context.Background(), srv.URL, &v); err != nil {
		t.Fatal(err)
	}
	if v.Name != "kvs" {
		t.Errorf("name = %q, want kvs", v.Name)
	}
}

func TestCacheZeroTTLStoresNothing(t *testing.T) {
	c := testCache(t)
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get("k"); ok {
		t.Error("value stored with zero TTL")
	}
	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("Get = %q, %v", v, ok)
	}
}
