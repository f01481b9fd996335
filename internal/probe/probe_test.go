package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbe_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	status, err := New(Config{UserAgent: "pubharvest-test"}).Probe(context.Background(), srv.URL+"/pub/index.html")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if gotUA != "pubharvest-test" {
		t.Errorf("user agent = %q", gotUA)
	}
}

func TestProbe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	status, err := New(Config{}).Probe(context.Background(), srv.URL)
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("expected ErrUnhealthy, got %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}

func TestProbe_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	status, err := New(Config{}).Probe(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("expected ErrUnhealthy, got %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	status, err := New(Config{Timeout: 2 * time.Second}).Probe(context.Background(), url)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})
	if p.config.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", p.config.Timeout)
	}
	if p.config.UserAgent == "" {
		t.Error("expected default user agent")
	}
}
