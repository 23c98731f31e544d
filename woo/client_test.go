package woo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/internal/httpclient"
)

func testClient(t *testing.T, srv *httptest.Server, pageSize int) *Client {
	t.Helper()
	return NewClientWithHTTP(
		config.StoreConfig{
			URL:            srv.URL,
			ConsumerKey:    "ck_test",
			ConsumerSecret: "cs_test",
			LabelSecret:    "shhh",
		},
		config.HTTPConfig{
			TimeoutSeconds:         5,
			MaxRetries:             2,
			RetryInitialIntervalMS: 1,
			RetryMaxIntervalMS:     5,
		},
		pageSize,
		nil,
		httpclient.WrapClient(srv.Client()),
	)
}

func ordersPage(start, n int) []Order {
	orders := make([]Order, n)
	for i := range orders {
		id := int64(start + i)
		orders[i] = Order{ID: id, Number: strconv.FormatInt(id, 10), Status: "processing"}
	}
	return orders
}

func TestFetchOrdersPagination(t *testing.T) {
	const pageSize = 3
	var requestedPages []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wp-json/wc/v3/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ck_test", user)
		assert.Equal(t, "cs_test", pass)

		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("per_page"))
		assert.Equal(t, "date", q.Get("orderby"))
		assert.NotEmpty(t, q.Get("after"))
		assert.Equal(t, "processing,completed", q.Get("status"))
		requestedPages = append(requestedPages, q.Get("page"))

		switch q.Get("page") {
		case "1":
			json.NewEncoder(w).Encode(ordersPage(100, pageSize))
		case "2":
			// Short page ends pagination.
			json.NewEncoder(w).Encode(ordersPage(103, 1))
		default:
			t.Errorf("unexpected page request %q", q.Get("page"))
		}
	}))
	defer srv.Close()

	c := testClient(t, srv, pageSize)
	orders, err := c.FetchOrders(context.Background(), FetchOptions{
		After:    time.Now().Add(-48 * time.Hour),
		Statuses: []string{"processing", "completed"},
	})
	require.NoError(t, err)

	assert.Len(t, orders, 4)
	assert.Equal(t, []string{"1", "2"}, requestedPages)
	assert.Equal(t, int64(100), orders[0].ID)
	assert.Equal(t, int64(103), orders[3].ID)
}

func TestFetchOrdersExactPageBoundary(t *testing.T) {
	// A full page followed by an empty one: pagination must not loop forever.
	const pageSize = 2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			json.NewEncoder(w).Encode(ordersPage(1, pageSize))
			return
		}
		json.NewEncoder(w).Encode([]Order{})
	}))
	defer srv.Close()

	orders, err := testClient(t, srv, pageSize).FetchOrders(context.Background(), FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]Order{})
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 100).FetchOrders(context.Background(), FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestGetExhaustsRetries(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 100).FetchOrders(context.Background(), FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsTransientError(err))
	assert.Equal(t, 3, attempts, "initial attempt plus MaxRetries")
}

func TestGetDoesNotRetryAuthFailures(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 100).FetchOrders(context.Background(), FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Equal(t, 1, attempts)
}

func TestTestConnection(t *testing.T) {
	t.Run("healthy store", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wc/v3/system_status", r.URL.Path)
			fmt.Fprint(w, `{"environment":{}}`)
		}))
		defer srv.Close()

		assert.NoError(t, testClient(t, srv, 100).TestConnection(context.Background()))
	})

	t.Run("bad credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		err := testClient(t, srv, 100).TestConnection(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsConfigurationError(err))
	})
}

func TestFetchLabelURL(t *testing.T) {
	t.Run("store has a label", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/wp-admin/admin-ajax.php", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "bpost_monitor_get_label", q.Get("action"))
			assert.Equal(t, "7421", q.Get("order_id"))
			assert.Equal(t, "shhh", q.Get("secret"))
			fmt.Fprint(w, `{"success":true,"data":{"label_url":"https://labels.example.com/7421.pdf"}}`)
		}))
		defer srv.Close()

		u, err := testClient(t, srv, 100).FetchLabelURL(context.Background(), 7421)
		require.NoError(t, err)
		assert.Equal(t, "https://labels.example.com/7421.pdf", u)
	})

	t.Run("store has no label", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success":false}`)
		}))
		defer srv.Close()

		u, err := testClient(t, srv, 100).FetchLabelURL(context.Background(), 7421)
		require.NoError(t, err)
		assert.Equal(t, "", u)
	})

	t.Run("no secret configured skips lookup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("should not be called")
		}))
		defer srv.Close()

		c := NewClientWithHTTP(
			config.StoreConfig{URL: srv.URL, ConsumerKey: "k", ConsumerSecret: "s"},
			config.HTTPConfig{TimeoutSeconds: 5},
			100, nil, httpclient.WrapClient(srv.Client()))

		u, err := c.FetchLabelURL(context.Background(), 7421)
		require.NoError(t, err)
		assert.Equal(t, "", u)
	})
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://shop.example.com/wp-admin/admin-ajax.php?...",
		redactURL("https://shop.example.com/wp-admin/admin-ajax.php?secret=shhh&order_id=1"))
	assert.Equal(t, "https://shop.example.com/wp-json/wc/v3/orders",
		redactURL("https://shop.example.com/wp-json/wc/v3/orders"))
}
