package kitchen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibedrinks/api/internal/kitchen"
	"github.com/vibedrinks/api/internal/orderflow"
)

type fakeServer struct {
	*httptest.Server
	itemHits    atomic.Int32
	refreshHits atomic.Int32
	lastStatus  atomic.Value
	lastRecord  atomic.Value
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	orderID := uuid.MustParse("6f1c1f6e-8d9b-4c55-9a51-1f0d3c0a7b11")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"accessToken":  "stale-access",
			"refreshToken": "refresh-1",
			"user":         map[string]string{"id": uuid.NewString(), "name": "Cozinha", "role": "kitchen"},
		})
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		fs.refreshHits.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{"accessToken": "fresh-access", "refreshToken": "refresh-2"})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{"id": uuid.NewString(), "name": "Cozinha", "role": "kitchen"})
	})
	mux.HandleFunc("GET /api/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeTestJSON(w, http.StatusOK, []map[string]interface{}{{
			"id":         orderID,
			"userId":     uuid.New(),
			"orderType":  "pickup",
			"status":     "accepted",
			"subtotal":   "25.50",
			"createdAt":  "2026-05-01T18:00:00Z",
			"acceptedAt": "2026-05-01T18:00:00Z",
		}})
	})
	mux.HandleFunc("GET /api/order-items", func(w http.ResponseWriter, r *http.Request) {
		fs.itemHits.Add(1)
		switch r.URL.Query().Get("orderIds") {
		case orderID.String():
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`not json`))
		default:
			writeTestJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		}
	})
	mux.HandleFunc("PATCH /api/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.lastStatus.Store(r.PathValue("id") + ":" + body["status"])
		if body["status"] == "delivered" {
			writeTestJSON(w, http.StatusConflict, map[string]string{"error": "invalid status transition"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{})
	})
	mux.HandleFunc("POST /api/orders/{id}/items/{itemId}/ingredients", func(w http.ResponseWriter, r *http.Request) {
		var c kitchen.Consumption
		_ = json.NewDecoder(r.Body).Decode(&c)
		fs.lastRecord.Store(c)
		writeTestJSON(w, http.StatusCreated, map[string]string{})
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_LoginAndRefreshOn401(t *testing.T) {
	fs := newFakeServer(t)
	c := kitchen.NewClient(fs.URL+"/", nil)
	ctx := context.Background()

	_, err := c.Login(ctx, "kitchen@vibedrinks.com", "wrong")
	require.ErrorIs(t, err, kitchen.ErrUnauthorized)

	user, err := c.Login(ctx, "kitchen@vibedrinks.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "kitchen", user.Role)
	assert.Equal(t, "stale-access", c.AccessToken())

	orders, err := c.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderflow.StatusAccepted, orders[0].Status)
	assert.Equal(t, "25.5", orders[0].Subtotal.String())
	require.NotNil(t, orders[0].AcceptedAt)
	assert.Nil(t, orders[0].PreparingAt)

	assert.Equal(t, "fresh-access", c.AccessToken())
	assert.Equal(t, int32(1), fs.refreshHits.Load())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Cozinha", me.Name)
	assert.Equal(t, int32(1), fs.refreshHits.Load(), "fresh token needs no refresh")
}

func TestClient_ListOrderItems_EmptyAndBrokenResponses(t *testing.T) {
	fs := newFakeServer(t)
	c := kitchen.NewClient(fs.URL, nil)
	ctx := context.Background()

	items, err := c.ListOrderItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(0), fs.itemHits.Load(), "empty batch must not hit the API")

	// Undecodable body
	items, err = c.ListOrderItems(ctx, []uuid.UUID{uuid.MustParse("6f1c1f6e-8d9b-4c55-9a51-1f0d3c0a7b11")})
	require.NoError(t, err)
	assert.Empty(t, items)

	// Non-OK status
	items, err = c.ListOrderItems(ctx, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(2), fs.itemHits.Load())
}

func TestClient_Mutations(t *testing.T) {
	fs := newFakeServer(t)
	c := kitchen.NewClient(fs.URL, nil)
	ctx := context.Background()
	orderID, itemID, iceID := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, c.UpdateStatus(ctx, orderID, orderflow.StatusPreparing))
	assert.Equal(t, orderID.String()+":preparing", fs.lastStatus.Load())

	err := c.UpdateStatus(ctx, orderID, orderflow.StatusDelivered)
	var se *kitchen.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, "invalid status transition", se.Message)

	want := kitchen.Consumption{IngredientProductID: iceID, Quantity: 2, ShouldDeductStock: true}
	require.NoError(t, c.RecordIngredient(ctx, orderID, itemID, want))
	assert.Equal(t, want, fs.lastRecord.Load())
}
