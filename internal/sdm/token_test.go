package sdm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenSourceRefresh(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = map[string]string{
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
			"refresh_token": r.PostFormValue("refresh_token"),
			"grant_type":    r.PostFormValue("grant_type"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-123","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL)
	token, err := ts.Refresh(context.Background(), "cid", "csec", "rtok")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token != "at-123" {
		t.Errorf("expected token at-123, got %q", token)
	}

	want := map[string]string{
		"client_id":     "cid",
		"client_secret": "csec",
		"refresh_token": "rtok",
		"grant_type":    "refresh_token",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("expected form %s=%q, got %q", k, v, gotForm[k])
		}
	}
}

func TestTokenSourceRefreshRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL)
	if _, err := ts.Refresh(context.Background(), "cid", "csec", "rtok"); !errors.Is(err, ErrTokenRefresh) {
		t.Errorf("expected ErrTokenRefresh, got %v", err)
	}
}

func TestTokenSourceRefreshNoAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL)
	if _, err := ts.Refresh(context.Background(), "cid", "csec", "rtok"); !errors.Is(err, ErrTokenRefresh) {
		t.Errorf("expected ErrTokenRefresh, got %v", err)
	}
}

func TestTokenSourceRefreshEmptyCredentials(t *testing.T) {
	ts := NewTokenSource("http://unused.invalid")
	if _, err := ts.Refresh(context.Background(), "", "csec", "rtok"); !errors.Is(err, ErrTokenRefresh) {
		t.Errorf("expected ErrTokenRefresh for empty client id, got %v", err)
	}
}
