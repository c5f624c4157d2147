package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const propertyPage = `<!doctype html>
<html><head>
<title>Fallback title</title>
<meta property="og:title" content="Harbour View Lofts">
<meta name="description" content="Twelve loft apartments by the old harbour.">
<meta property="og:image" content="https://cdn.example.com/lofts.jpg">
<meta name="property:area" content="1,250 sqm">
</head><body><address> 4 Quay Street, Bristol </address></body></html>`

func TestParseArea(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"1,250 sqm", 1250},
		{"85.5 m2", 85},
		{"1 000 m²", 1000},
		{"1000 sq ft", 92},
		{"", 0},
		{"unknown", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseArea(tt.input))
		})
	}
}

func TestResolve(t *testing.T) {
	f := NewFetcher(1000, 0, zap.NewNop())

	got, err := f.Resolve("ipfs://bafy123/meta.html")
	require.NoError(t, err)
	assert.Equal(t, "https://ipfs.io/ipfs/bafy123/meta.html", got)

	got, err = f.Resolve("https://example.com/p/1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/p/1", got)

	_, err = f.Resolve("ftp://example.com/p/1")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestFetchParsesOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, propertyPage)
	}))
	defer srv.Close()

	f := NewFetcher(1000, 0, zap.NewNop())
	p, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Harbour View Lofts", p.Title)
	assert.Equal(t, "Twelve loft apartments by the old harbour.", p.Description)
	assert.Equal(t, "https://cdn.example.com/lofts.jpg", p.Image)
	assert.Equal(t, "4 Quay Street, Bristol", p.Address)
	require.NotNil(t, p.AreaSqm)
	assert.Equal(t, 1250, *p.AreaSqm)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<html><head><title>Plain</title></head></html>`)
	}))
	defer srv.Close()

	f := NewFetcher(1000, 2, zap.NewNop())
	p, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Plain", p.Title)
	assert.Nil(t, p.AreaSqm)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(1000, 3, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
