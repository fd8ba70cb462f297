package airports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCode_Success(t *testing.T) {
	t.Parallel()

	want := Airport{
		IATA:    "BKK",
		ICAO:    "VTBS",
		Name:    "Suvarnabhumi Airport",
		Lat:     13.69,
		Lng:     100.75,
		City:    "Bangkok",
		Country: "Thailand",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/airports/BKK", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.LookupCode(context.Background(), "bkk")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestLookupCode_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	got, err := client.LookupCode(context.Background(), "ZZZ")

	require.NoError(t, err, "missing airports are a normal outcome")
	assert.Nil(t, got)
}

func TestLookupCode_InvalidCode(t *testing.T) {
	t.Parallel()

	client := NewClient("")
	_, err := client.LookupCode(context.Background(), "not-a-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid code")
}

func TestLookupCode_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	_, err := client.LookupCode(context.Background(), "VTBS")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestValidCode(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidCode("BKK"))
	assert.True(t, ValidCode("vtbs"))
	assert.False(t, ValidCode("BK"))
	assert.False(t, ValidCode("BKKKK"))
	assert.False(t, ValidCode("B1K"))
}
