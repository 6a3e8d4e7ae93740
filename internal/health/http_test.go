package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPCheckerHealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).Check(context.Background())
	require.True(t, result.Healthy, result.Message)
	require.Positive(t, result.Duration)
}

func TestHTTPCheckerUnhealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := NewHTTPChecker(server.URL).Check(context.Background())
	require.False(t, result.Healthy)
}

func TestHTTPCheckerUnreachable(t *testing.T) {
	checker := NewHTTPChecker("http://127.0.0.1:1")
	result := checker.Check(context.Background())
	require.False(t, result.Healthy)
}
