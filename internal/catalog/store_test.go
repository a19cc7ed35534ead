package catalog_test

import (
	"context"
	"fmt"
	"testing"

	"conveyor/internal/catalog"
	"conveyor/internal/pipeline"
	"conveyor/internal/testsupport"
)

func TestOpenCreatesSchemaAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	seeded := testsupport.SeedProduct(t, store, "SKU-001", pipeline.StatusStaging)

	fetched, err := store.GetBySKU(ctx, seeded.SKU)
	if err != nil {
		t.Fatalf("GetBySKU failed: %v", err)
	}
	if fetched == nil || fetched.Status != pipeline.StatusStaging {
		t.Fatalf("unexpected fetched product: %#v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	missing, err := store.GetBySKU(ctx, "SKU-NOPE")
	if err != nil {
		t.Fatalf("GetBySKU missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing sku, got %#v", missing)
	}
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		product := &catalog.Product{
			SKU:    fmt.Sprintf("WID-%03d", i),
			Name:   fmt.Sprintf("Widget %d", i),
			Brand:  "acme",
			Status: pipeline.StatusScraped,
		}
		if err := store.InsertProduct(ctx, product); err != nil {
			t.Fatalf("InsertProduct: %v", err)
		}
	}
	other := &catalog.Product{SKU: "GAD-001", Name: "Gadget", Brand: "globex", Status: pipeline.StatusScraped}
	if err := store.InsertProduct(ctx, other); err != nil {
		t.Fatalf("InsertProduct: %v", err)
	}

	page, err := store.ListProducts(ctx, pipeline.StatusScraped, catalog.ListFilters{Brand: "acme"}, 0, 2)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if page.TotalCount != 5 {
		t.Fatalf("total = %d, want 5", page.TotalCount)
	}
	if len(page.Products) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Products))
	}

	search, err := store.ListProducts(ctx, pipeline.StatusScraped, catalog.ListFilters{Search: "Gadget"}, 0, 10)
	if err != nil {
		t.Fatalf("ListProducts search: %v", err)
	}
	if search.TotalCount != 1 || search.Products[0].SKU != "GAD-001" {
		t.Fatalf("unexpected search result: %#v", search)
	}
}

func TestMatchingSKUsCoversFullResultSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		testsupport.SeedProduct(t, store, fmt.Sprintf("SKU-%03d", i), pipeline.StatusConsolidated)
	}
	testsupport.SeedProduct(t, store, "SKU-OTHER", pipeline.StatusApproved)

	match, err := store.MatchingSKUs(ctx, pipeline.StatusConsolidated, catalog.ListFilters{})
	if err != nil {
		t.Fatalf("MatchingSKUs: %v", err)
	}
	if match.Count != 3 || len(match.SKUs) != 3 {
		t.Fatalf("unexpected match: %#v", match)
	}
}

func TestStatusCountsIncludeEmptyBuckets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedProduct(t, store, "SKU-A", pipeline.StatusApproved)
	testsupport.SeedProduct(t, store, "SKU-B", pipeline.StatusApproved)

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if len(counts) != len(pipeline.AllStatuses()) {
		t.Fatalf("expected a bucket per status, got %d", len(counts))
	}
	byStatus := make(map[pipeline.Status]int)
	for _, count := range counts {
		byStatus[count.Status] = count.Count
	}
	if byStatus[pipeline.StatusApproved] != 2 {
		t.Fatalf("approved = %d, want 2", byStatus[pipeline.StatusApproved])
	}
	if byStatus[pipeline.StatusPublished] != 0 {
		t.Fatalf("published = %d, want 0", byStatus[pipeline.StatusPublished])
	}
}

func TestBulkSetStatusSkipsFailedRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedProduct(t, store, "SKU-OK", pipeline.StatusConsolidated)
	testsupport.SeedProduct(t, store, "SKU-BAD", pipeline.StatusConsolidated)
	if err := store.MarkProductFailed(ctx, "SKU-BAD", "scrape timeout"); err != nil {
		t.Fatalf("MarkProductFailed: %v", err)
	}

	updated, err := store.BulkSetStatus(ctx, []string{"SKU-OK", "SKU-BAD"}, pipeline.StatusApproved)
	if err != nil {
		t.Fatalf("BulkSetStatus: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}

	bad, err := store.GetBySKU(ctx, "SKU-BAD")
	if err != nil {
		t.Fatalf("GetBySKU: %v", err)
	}
	if bad.Status != pipeline.StatusFailed {
		t.Fatalf("failed row moved to %q", bad.Status)
	}
	if bad.RetryCount != 1 || bad.ErrorMessage != "scrape timeout" {
		t.Fatalf("unexpected failure bookkeeping: %#v", bad)
	}
}

func TestSetProductStatusResetsFailedRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedProduct(t, store, "SKU-RETRY", pipeline.StatusScraped)
	if err := store.MarkProductFailed(ctx, "SKU-RETRY", "boom"); err != nil {
		t.Fatalf("MarkProductFailed: %v", err)
	}
	if err := store.SetProductStatus(ctx, "SKU-RETRY", pipeline.StatusStaging); err != nil {
		t.Fatalf("SetProductStatus: %v", err)
	}

	product, err := store.GetBySKU(ctx, "SKU-RETRY")
	if err != nil {
		t.Fatalf("GetBySKU: %v", err)
	}
	if product.Status != pipeline.StatusStaging {
		t.Fatalf("status = %q, want staging", product.Status)
	}
	if product.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %q", product.ErrorMessage)
	}

	if err := store.SetProductStatus(ctx, "SKU-MISSING", pipeline.StatusStaging); err == nil {
		t.Fatal("expected error for missing sku")
	}
}

func TestDeleteProductsReportsCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedProduct(t, store, "SKU-1", pipeline.StatusStaging)
	testsupport.SeedProduct(t, store, "SKU-2", pipeline.StatusStaging)

	deleted, err := store.DeleteProducts(ctx, []string{"SKU-1", "SKU-2", "SKU-GONE"})
	if err != nil {
		t.Fatalf("DeleteProducts: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
}

func TestAuditAppendAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entry := &catalog.AuditEntry{
		JobType:      "bulk_transition",
		JobID:        "job-1",
		FromState:    "various",
		ToState:      "approved",
		ActorType:    "system",
		MetadataJSON: `{"updated_count":2}`,
	}
	if err := store.AppendAudit(ctx, entry); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("expected audit id to be assigned")
	}

	entries, err := store.ListAudit(ctx, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 1 || entries[0].ToState != "approved" {
		t.Fatalf("unexpected audit entries: %#v", entries)
	}
}

func TestBatchLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	batch := &catalog.Batch{ID: "batch-1", TotalCount: 2, SKUsJSON: `["SKU-1","SKU-2"]`}
	if err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if batch.Status != catalog.BatchPending {
		t.Fatalf("status = %q, want pending", batch.Status)
	}

	claimed, err := store.NextPendingBatch(ctx)
	if err != nil {
		t.Fatalf("NextPendingBatch: %v", err)
	}
	if claimed == nil || claimed.ID != "batch-1" || claimed.Status != catalog.BatchRunning {
		t.Fatalf("unexpected claimed batch: %#v", claimed)
	}

	if again, err := store.NextPendingBatch(ctx); err != nil || again != nil {
		t.Fatalf("expected no second claim, got (%#v, %v)", again, err)
	}

	claimed.Status = catalog.BatchCompleted
	claimed.Progress = 100
	claimed.ProcessedCount = 2
	if err := store.UpdateBatch(ctx, claimed); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	fetched, err := store.GetBatch(ctx, "batch-1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if fetched.Status != catalog.BatchCompleted || fetched.Progress != 100 {
		t.Fatalf("unexpected batch: %#v", fetched)
	}
	if !fetched.Status.IsTerminal() {
		t.Fatal("completed must be terminal")
	}
}
