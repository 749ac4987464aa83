package address

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestLookupResolvesAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/01310100/json/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second)
	addr, err := r.Lookup(context.Background(), "01310-100")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if addr.City != "São Paulo" || addr.State != "SP" || addr.Neighborhood != "Bela Vista" {
		t.Fatalf("unexpected address: %+v", addr)
	}
}

func TestLookupRejectsShortCEPBeforeAnyRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second)
	if _, err := r.Lookup(context.Background(), "0131"); err != ErrInvalidCEP {
		t.Fatalf("expected ErrInvalidCEP, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("no network request may be issued for an invalid CEP")
	}
}

func TestLookupMapsErroToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"erro":true}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, time.Second)
	if _, err := r.Lookup(context.Background(), "99999999"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
