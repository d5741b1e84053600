package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_PassesOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL+"/health", time.Second)
	assert.NoError(t, p.Probe(context.Background()))
}

func TestProbe_PassesOnAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL, time.Second)
	assert.NoError(t, p.Probe(context.Background()))
}

func TestProbe_FailsOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL, time.Second)
	err := p.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestProbe_FailsOnConnectionRefused(t *testing.T) {
	// Reserve a port, then close the server so nothing listens on it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewHTTPProber(url, time.Second)
	assert.Error(t, p.Probe(context.Background()))
}

func TestProbe_FailsOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL, 50*time.Millisecond)
	assert.Error(t, p.Probe(context.Background()))
}

func TestProbe_RecoveryAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL, time.Second)
	assert.Error(t, p.Probe(context.Background()))
	assert.Error(t, p.Probe(context.Background()))
	assert.NoError(t, p.Probe(context.Background()))
	assert.EqualValues(t, 3, calls.Load())
}

func TestNewHTTPProber_DefaultTimeout(t *testing.T) {
	p := NewHTTPProber("http://localhost:8000/health", 0)
	assert.Equal(t, "http://localhost:8000/health", p.URL())
}
