package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticResolve(t *testing.T) {
	p := Static{"nest-client-id": "cid-1"}

	v, err := p.Resolve(context.Background(), "nest-client-id")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != "cid-1" {
		t.Errorf("expected cid-1, got %q", v)
	}

	if _, err := p.Resolve(context.Background(), "missing"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientResolve(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name":"projects/p1/secrets/nest-client-id/versions/1","payload":{"data":%q}}`,
			base64.StdEncoding.EncodeToString([]byte("cid-1")))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "p1", "store-token")
	v, err := c.Resolve(context.Background(), "nest-client-id")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != "cid-1" {
		t.Errorf("expected cid-1, got %q", v)
	}
	if want := "/v1/projects/p1/secrets/nest-client-id/versions/latest:access"; gotPath != want {
		t.Errorf("expected path %s, got %s", want, gotPath)
	}
	if gotAuth != "Bearer store-token" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestClientResolveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "p1", "")
	if _, err := c.Resolve(context.Background(), "missing"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientResolveBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"payload":{"data":"%%% not base64 %%%"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "p1", "")
	if _, err := c.Resolve(context.Background(), "nest-client-id"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientResolveStoreDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "p1", "")
	if _, err := c.Resolve(context.Background(), "nest-client-id"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
