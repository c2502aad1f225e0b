package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riwa-pos/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTP(srv.URL, "tok", &http.Client{Timeout: 2 * time.Second})
}

func TestCreateOrder_SendsKeyAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/create", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "k-1", r.Header.Get("Idempotency-Key"))

		var body map[string]any
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		assert.Equal(t, "k-1", body["idempotency_key"])
		assert.Equal(t, 2.625, body["total"])

		_, _ = w.Write([]byte(`{"success":true,"order":{"id":"o1","order_number":"ORD-20240101-0001","status":"pending","total":2.625}}`))
	})

	conf, err := c.CreateOrder(context.Background(), "k-1", domain.Order{
		OrderType: domain.OrderTypeQSR,
		Total:     domain.MustMoney("2.625"),
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", conf.OrderID)
	assert.Equal(t, "ORD-20240101-0001", conf.OrderNumber)
	assert.Equal(t, domain.StatusPending, conf.Status)
	assert.Equal(t, "2.625", conf.Total.String())
}

func TestErrorTaxonomy(t *testing.T) {
	rejected := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Failed to create order"}`, http.StatusInternalServerError)
	})
	_, err := rejected.CreateOrder(context.Background(), "k", domain.Order{})
	var re *RejectedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.False(t, IsNetwork(err))
	assert.True(t, IsRejected(err))

	malformed := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orders":`))
	})
	_, err = malformed.ListOrders(context.Background(), 10)
	assert.ErrorIs(t, err, ErrMalformed)

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	down := NewWithHTTP(base, "", &http.Client{Timeout: time.Second})
	err = down.Bump(context.Background(), "k1")
	assert.True(t, IsNetwork(err))
	assert.False(t, errors.Is(err, ErrMalformed))
}

func TestListOrders_NormalizesRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"orders":[
			{"id":"a","order_type":"Delivery","status":"pending","subtotal":6.75,"tax_amount":0.338,"total_amount":9.263,"delivery_address":"Block 4"},
			{"id":"b","order_type":"qsr","status":"ready","tax":0.125,"total":2.625}
		]}`))
	})
	orders, err := c.ListOrders(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, domain.OrderTypeDelivery, orders[0].OrderType)
	assert.Equal(t, "0.338", orders[0].Tax.String())
	assert.Equal(t, "9.263", orders[0].Total.String())
	assert.Equal(t, "Block 4", orders[0].CustomerAddress)
	assert.Equal(t, domain.StatusReady, orders[1].Status)
	assert.Equal(t, "2.625", orders[1].Total.String())
}

func TestKDSItems_StationAndStatus(t *testing.T) {
	var gotStation []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotStation = append(gotStation, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"items":[
			{"id":"k1","order_id":"o1","item_name_en":"Maboos","quantity":2,"status":"pending","order":{"order_number":"ORD-1","order_type":"takeaway"}},
			{"id":"k2","order_id":"o1","item_name":"Tea","status":"completed"}
		]}`))
	})
	items, err := c.KDSItems(context.Background(), "grill")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Maboos", items[0].ItemName)
	assert.Equal(t, "ORD-1", items[0].OrderNumber)
	assert.Equal(t, domain.OrderTypeTakeaway, items[0].OrderType)
	assert.Equal(t, domain.KDSPending, items[0].Status)
	assert.Equal(t, domain.KDSDone, items[1].Status)
	assert.Equal(t, 1, items[1].Quantity)

	_, err = c.KDSItems(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"station=grill", ""}, gotStation)
}

func TestUpdateStatus_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var req domain.StatusUpdateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "o1", req.OrderID)
		assert.Equal(t, domain.StatusAccepted, req.Status)
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, c.UpdateStatus(context.Background(), "o1", domain.StatusAccepted))
}
