package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/database"
	"github.com/vibedrinks/api/internal/handler"
	"github.com/vibedrinks/api/internal/middleware"
)

type mockProductStore struct {
	products []database.Product
	err      error
}

func (m *mockProductStore) ListProducts(_ context.Context) ([]database.Product, error) {
	return m.products, m.err
}

func setupProductRouter(store handler.ProductStore) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/api/products", handler.NewProductHandler(store).RegisterRoutes)
	return r
}

func TestListProducts(t *testing.T) {
	iceCat := uuid.New()
	store := &mockProductStore{products: []database.Product{
		{ID: uuid.New(), CategoryID: iceCat, Name: "Gelo em cubos", Price: testNumeric("8"), Stock: 40, IsActive: true},
		{ID: uuid.New(), CategoryID: iceCat, Name: "Gelo de coco", Price: testNumeric("12.9"), Stock: 0, IsActive: false},
	}}
	r := setupProductRouter(store)

	rr := doAuthRequest(t, r, "GET", "/api/products", nil, claimsFor("kitchen"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("products: got %d, want 2", len(resp))
	}
	if resp[0]["price"] != "8.00" || resp[0]["stock"] != float64(40) || resp[0]["categoryId"] != iceCat.String() {
		t.Errorf("first product: got %v", resp[0])
	}
	if resp[1]["isActive"] != false {
		t.Errorf("inactive products are listed as inactive, got %v", resp[1]["isActive"])
	}
}

func TestListProducts_Errors(t *testing.T) {
	r := setupProductRouter(&mockProductStore{err: errors.New("db down")})

	rr := doAuthRequest(t, r, "GET", "/api/products", nil, claimsFor("kitchen"))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}

	req := httptest.NewRequest("GET", "/api/products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
