package fawazahmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/langowen/currency/internal/currency_fetcher/adapter/api_client"
	"github.com/langowen/currency/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *Source {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewSource(api_client.NewHTTPClient(time.Second, 0, 1), srv.URL+"/usd.json")
}

func TestFetchFlat(t *testing.T) {
	rates, err := serve(t, http.StatusOK, `{"cop":3800,"eur":0.90,"mxn":17.2}`).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"COP": 3800, "EUR": 0.90, "MXN": 17.2}, rates)
}

func TestFetchNested(t *testing.T) {
	body := `{"date":"2025-11-12","usd":{"cop":3746.5,"eur":0.92,"btc":0.00001}}`

	rates, err := serve(t, http.StatusOK, body).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3746.5, rates["COP"])
	assert.Equal(t, 0.92, rates["EUR"])
	assert.NotContains(t, rates, "DATE")
}

func TestFetchFailures(t *testing.T) {
	_, err := serve(t, http.StatusBadGateway, `{}`).Fetch(context.Background())
	assert.ErrorIs(t, err, entities.ErrNetwork)

	_, err = serve(t, http.StatusOK, `[1,2,3]`).Fetch(context.Background())
	assert.ErrorIs(t, err, entities.ErrParse)

	_, err = serve(t, http.StatusOK, `{"date":"2025-11-12"}`).Fetch(context.Background())
	assert.ErrorIs(t, err, entities.ErrParse)
}
