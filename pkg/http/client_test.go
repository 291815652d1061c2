package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		var in map[string]int
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		_ = json.NewEncoder(w).Encode(map[string]int{"double": in["n"] * 2})
	}))
	defer srv.Close()

	c := NewClient()
	var out map[string]int
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodPost,
		URL:         srv.URL + "/ok",
		QueryParams: map[string][]string{"days": {"7"}},
		Body:        map[string]int{"n": 21},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out["double"])

	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/fail"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}
