package enrich

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ipinfoResponse = `{
	"ip": "8.8.8.8",
	"city": "Mountain View",
	"region": "California",
	"country": "US",
	"loc": "37.4056,-122.0775",
	"org": "AS15169 Google LLC",
	"postal": "94043",
	"timezone": "America/Los_Angeles"
}`

func newTestLocator(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *IPInfoLocator {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)

	l := NewIPInfoLocator("test-token", timeout)
	l.client.BaseURL = base

	return l
}

func TestIPInfoLocator_Locate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		l := newTestLocator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(ipinfoResponse))
		}, time.Second)

		geo, err := l.Locate(context.Background(), net.ParseIP("8.8.8.8"))

		require.NoError(t, err)
		assert.Equal(t, "Mountain View", geo.City.String)
		assert.Equal(t, "California", geo.Region.String)
		assert.Equal(t, "US", geo.Country.String)
		assert.Equal(t, "37.4056,-122.0775", geo.Coordinates.String)
		assert.Equal(t, "AS15169 Google LLC", geo.Organization.String)
		assert.Equal(t, "94043", geo.PostalCode.String)
		assert.Equal(t, "America/Los_Angeles", geo.Timezone.String)
	})

	t.Run("missing fields stay null", func(t *testing.T) {
		l := newTestLocator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ip": "8.8.8.8", "country": "US"}`))
		}, time.Second)

		geo, err := l.Locate(context.Background(), net.ParseIP("8.8.8.8"))

		require.NoError(t, err)
		assert.Equal(t, "US", geo.Country.String)
		assert.False(t, geo.City.Valid)
		assert.False(t, geo.PostalCode.Valid)
	})

	t.Run("provider error", func(t *testing.T) {
		l := newTestLocator(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, time.Second)

		_, err := l.Locate(context.Background(), net.ParseIP("8.8.8.8"))

		assert.Error(t, err)
	})

	t.Run("private address is not sent", func(t *testing.T) {
		var calls atomic.Int32
		l := newTestLocator(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}, time.Second)

		for _, ip := range []string{"127.0.0.1", "10.0.0.1", "192.168.1.1", "::1"} {
			_, err := l.Locate(context.Background(), net.ParseIP(ip))
			assert.Error(t, err, ip)
		}
		assert.Zero(t, calls.Load())
	})

	t.Run("context deadline", func(t *testing.T) {
		l := newTestLocator(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, 5*time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := l.Locate(ctx, net.ParseIP("8.8.8.8"))

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}
