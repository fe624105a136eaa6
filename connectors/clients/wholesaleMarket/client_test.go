package wholesalemarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ess-scheduler/auth"
)

const sample = `{"france_power_exchanges":[{"start_date":"2025-07-01T00:00:00+02:00","end_date":"2025-07-02T00:00:00+02:00","values":[
{"start_date":"2025-07-01T01:00:00+02:00","end_date":"2025-07-01T02:00:00+02:00","value":100,"price":35.5},
{"start_date":"2025-07-01T00:00:00+02:00","end_date":"2025-07-01T01:00:00+02:00","value":100,"price":42.1}]}]}`

func TestFetchPrices(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()

	var query, authz string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("start_date")
		authz = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(sample))
	}))
	defer api.Close()

	loc := time.FixedZone("CEST", 2*3600)
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, loc)
	c := &Client{BaseURL: api.URL}
	cred := auth.NewClientCred(auth.Conf{ClientID: "id", ClientSecret: "s", AuthURL: tokens.URL})
	resp, err := c.Fetch(context.Background(), cred, WithStartDate(start), WithEndDate(start.AddDate(0, 0, 1)))
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01T00:00:00+02:00", query)
	assert.Equal(t, "Bearer tok", authz)

	prices, err := resp.Prices()
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.True(t, prices[0].Start.Equal(start))
	assert.Equal(t, 42.1, prices[0].Price)
}

func TestFetchRequiresTwoOptions(t *testing.T) {
	c := &Client{}
	_, err := c.Fetch(context.Background(), nil, WithStartDate(time.Now()))
	require.Error(t, err)
}

func TestFetchStatusError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer api.Close()
	c := &Client{BaseURL: api.URL}
	_, err := c.Fetch(context.Background(), nil, WithStartDate(time.Now()), WithEndDate(time.Now()))
	require.ErrorContains(t, err, "429")
}
