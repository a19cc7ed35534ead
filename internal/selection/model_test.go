package selection_test

import (
	"context"
	"errors"
	"testing"

	"conveyor/internal/catalog"
	"conveyor/internal/pipeline"
	"conveyor/internal/selection"
)

type fakeLister struct {
	skus []string
	err  error
}

func (f *fakeLister) MatchingSKUs(context.Context, pipeline.Status, catalog.ListFilters) (*catalog.MatchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.MatchResult{SKUs: f.skus, Count: len(f.skus)}, nil
}

func TestToggleSingleAndAnchor(t *testing.T) {
	model := selection.NewModel(pipeline.StatusConsolidated)
	model.SetVisible([]string{"A", "B", "C", "D"})

	model.Toggle("B", 1, false)
	if !model.IsSelected("B") || model.Count() != 1 {
		t.Fatalf("unexpected selection: %v", model.Selected())
	}

	model.Toggle("B", 1, false)
	if model.IsSelected("B") || model.Count() != 0 {
		t.Fatal("expected toggle to deselect")
	}
}

func TestToggleRangeCopiesStateOfNamedSKU(t *testing.T) {
	model := selection.NewModel(pipeline.StatusConsolidated)
	model.SetVisible([]string{"A", "B", "C", "D", "E"})

	model.Toggle("B", 1, false)
	model.Toggle("D", 3, true)
	for _, sku := range []string{"B", "C", "D"} {
		if !model.IsSelected(sku) {
			t.Fatalf("expected %s selected, have %v", sku, model.Selected())
		}
	}
	if model.IsSelected("A") || model.IsSelected("E") {
		t.Fatalf("range overshot: %v", model.Selected())
	}

	// D is now selected, so repeating the range toggle deselects the span.
	model.Toggle("D", 3, true)
	if model.Count() != 0 {
		t.Fatalf("expected empty selection, got %v", model.Selected())
	}
}

func TestToggleRangeDeselects(t *testing.T) {
	model := selection.NewModel(pipeline.StatusConsolidated)
	model.SetVisible([]string{"A", "B", "C", "D"})

	model.ToggleAllVisible()
	model.Toggle("A", 0, false) // deselect A, anchor 0
	model.Toggle("A", 0, false) // reselect A, anchor 0
	model.Toggle("C", 2, true)  // C selected, so range A..C deselects
	if model.IsSelected("A") || model.IsSelected("B") || model.IsSelected("C") {
		t.Fatalf("expected A..C deselected: %v", model.Selected())
	}
	if !model.IsSelected("D") {
		t.Fatal("D should be untouched")
	}
}

func TestToggleAllVisibleFlipsBetweenPageAndClear(t *testing.T) {
	model := selection.NewModel(pipeline.StatusScraped)
	model.SetVisible([]string{"A", "B"})

	model.ToggleAllVisible()
	if model.Count() != 2 {
		t.Fatalf("count = %d, want 2", model.Count())
	}
	model.ToggleAllVisible()
	if model.Count() != 0 {
		t.Fatalf("count = %d, want 0", model.Count())
	}
}

func TestSelectAllMatchingReplacesSelection(t *testing.T) {
	model := selection.NewModel(pipeline.StatusConsolidated)
	model.SetVisible([]string{"A"})
	model.Toggle("A", 0, false)

	lister := &fakeLister{skus: []string{"X", "Y", "Z"}}
	count, err := model.SelectAllMatching(context.Background(), lister)
	if err != nil {
		t.Fatalf("SelectAllMatching: %v", err)
	}
	if count != 3 || model.Count() != 3 {
		t.Fatalf("count = %d, selected = %d", count, model.Count())
	}
	if !model.AllMatching() {
		t.Fatal("expected allMatching=true")
	}
	if model.IsSelected("A") {
		t.Fatal("previous selection should be replaced")
	}
}

func TestSelectAllMatchingIsAtomicOnError(t *testing.T) {
	model := selection.NewModel(pipeline.StatusConsolidated)
	model.SetVisible([]string{"A"})
	model.Toggle("A", 0, false)

	lister := &fakeLister{err: errors.New("connection reset")}
	if _, err := model.SelectAllMatching(context.Background(), lister); err == nil {
		t.Fatal("expected error")
	}
	if !model.IsSelected("A") || model.Count() != 1 {
		t.Fatal("failed materialization must not touch the selection")
	}
	if model.AllMatching() {
		t.Fatal("allMatching must stay false on failure")
	}
}

func TestFilterChangeClearsSelection(t *testing.T) {
	model := selection.NewModel(pipeline.StatusConsolidated)
	model.SetVisible([]string{"A", "B"})
	model.ToggleAllVisible()

	lister := &fakeLister{skus: []string{"A", "B"}}
	if _, err := model.SelectAllMatching(context.Background(), lister); err != nil {
		t.Fatalf("SelectAllMatching: %v", err)
	}

	model.SetFilter(pipeline.StatusConsolidated, catalog.ListFilters{Brand: "acme"})
	if model.Count() != 0 {
		t.Fatalf("selection not cleared: %v", model.Selected())
	}
	if model.AllMatching() {
		t.Fatal("allMatching must reset on filter change")
	}

	// Setting the identical filter again is not a change.
	model.Toggle("A", 0, false)
	model.SetFilter(pipeline.StatusConsolidated, catalog.ListFilters{Brand: "acme"})
	if model.Count() != 1 {
		t.Fatal("identical filter must not clear the selection")
	}
}
