package testsupport

import (
	"context"
	"testing"

	"conveyor/internal/catalog"
	"conveyor/internal/config"
	"conveyor/internal/pipeline"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedProduct inserts a product row for tests using the provided store.
func SeedProduct(t testing.TB, store *catalog.Store, sku string, status pipeline.Status) *catalog.Product {
	t.Helper()

	product := &catalog.Product{
		SKU:    sku,
		Name:   "Product " + sku,
		Brand:  "acme",
		Status: status,
	}
	if err := store.InsertProduct(context.Background(), product); err != nil {
		t.Fatalf("store.InsertProduct: %v", err)
	}
	return product
}
