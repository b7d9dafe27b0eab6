// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("will retry failed requests", func(t *testing.T) {
		var attempts atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := New(
			RetryRequests(
				MaxAttempts(2),
				MinWaitDuration(time.Millisecond),
				MaxWaitDuration(5*time.Millisecond),
			),
		)

		resp, err := c.Get(srv.URL)
		require.Nil(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, int64(2), attempts.Load())
	})

	t.Run("will not retry without the retry option", func(t *testing.T) {
		var attempts atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New()

		resp, err := c.Get(srv.URL)
		require.Nil(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		require.Equal(t, int64(1), attempts.Load())
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("will open the circuit after consecutive failures", func(t *testing.T) {
		var attempts atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(
			WithTransport(RoundTripperWith(
				http.DefaultTransport,
				CircuitBreaker(
					CircuitName("test"),
					CircuitTripCount(2),
				),
			)),
		)

		for i := 0; i < 2; i++ {
			_, err := c.Get(srv.URL)
			require.NotNil(t, err)
		}

		// circuit is now open so the request never reaches the server
		_, err := c.Get(srv.URL)
		require.NotNil(t, err)
		require.Equal(t, int64(2), attempts.Load())
	})

	t.Run("will pass through successful requests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := New(
			WithTransport(RoundTripperWith(
				http.DefaultTransport,
				CircuitBreaker(CircuitName("test")),
			)),
		)

		resp, err := c.Get(srv.URL)
		require.Nil(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
