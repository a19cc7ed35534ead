package selection

import (
	"context"
	"fmt"
	"sort"

	"conveyor/internal/catalog"
	"conveyor/internal/pipeline"
)

// MatchingLister is the store read used to materialize select-all-matching.
type MatchingLister interface {
	MatchingSKUs(ctx context.Context, status pipeline.Status, filters catalog.ListFilters) (*catalog.MatchResult, error)
}

// Model holds the selection state for one review session.
type Model struct {
	status  pipeline.Status
	filters catalog.ListFilters

	visible     []string
	selected    map[string]struct{}
	anchor      int
	allMatching bool
}

// NewModel constructs an empty selection scoped to a status tab.
func NewModel(status pipeline.Status) *Model {
	return &Model{
		status:   status,
		selected: make(map[string]struct{}),
		anchor:   -1,
	}
}

// Status returns the status tab the selection is scoped to.
func (m *Model) Status() pipeline.Status {
	return m.status
}

// Filters returns the active filters.
func (m *Model) Filters() catalog.ListFilters {
	return m.filters
}

// SetVisible records the SKUs of the currently displayed page, in display order.
func (m *Model) SetVisible(skus []string) {
	m.visible = append(m.visible[:0], skus...)
	if m.anchor >= len(m.visible) {
		m.anchor = -1
	}
}

// SetFilter replaces the active tab and filters. Any change clears the
// selection and drops the all-matching flag.
func (m *Model) SetFilter(status pipeline.Status, filters catalog.ListFilters) {
	if status == m.status && filters == m.filters {
		return
	}
	m.status = status
	m.filters = filters
	m.Clear()
}

// Clear empties the selection and resets the anchor.
func (m *Model) Clear() {
	m.selected = make(map[string]struct{})
	m.anchor = -1
	m.allMatching = false
}

// Toggle flips membership of one SKU, or of the contiguous visible range
// between the anchor and index when rangeModifier is set. A range copies the
// pre-toggle state of the named SKU onto every SKU in the range.
func (m *Model) Toggle(sku string, index int, rangeModifier bool) {
	m.allMatching = false
	if rangeModifier && m.anchor >= 0 && index >= 0 && index < len(m.visible) {
		_, wasSelected := m.selected[sku]
		lo, hi := m.anchor, index
		if lo > hi {
			lo, hi = hi, lo
		}
		for i := lo; i <= hi; i++ {
			if wasSelected {
				delete(m.selected, m.visible[i])
			} else {
				m.selected[m.visible[i]] = struct{}{}
			}
		}
		return
	}

	if _, ok := m.selected[sku]; ok {
		delete(m.selected, sku)
	} else {
		m.selected[sku] = struct{}{}
	}
	m.anchor = index
}

// ToggleAllVisible selects every SKU on the current page, or deselects them
// all when the page is already fully selected.
func (m *Model) ToggleAllVisible() {
	m.allMatching = false
	if m.pageFullySelected() {
		for _, sku := range m.visible {
			delete(m.selected, sku)
		}
		return
	}
	for _, sku := range m.visible {
		m.selected[sku] = struct{}{}
	}
}

func (m *Model) pageFullySelected() bool {
	if len(m.visible) == 0 {
		return false
	}
	for _, sku := range m.visible {
		if _, ok := m.selected[sku]; !ok {
			return false
		}
	}
	return true
}

// SelectAllMatching replaces the selection with every SKU matching the
// active tab and filters. The materialization is atomic: on any fetch error
// the existing selection is left untouched.
func (m *Model) SelectAllMatching(ctx context.Context, lister MatchingLister) (int, error) {
	match, err := lister.MatchingSKUs(ctx, m.status, m.filters)
	if err != nil {
		return 0, fmt.Errorf("select all matching: %w", err)
	}
	next := make(map[string]struct{}, match.Count)
	for _, sku := range match.SKUs {
		next[sku] = struct{}{}
	}
	m.selected = next
	m.allMatching = true
	return match.Count, nil
}

// AllMatching reports whether the selection covers every matching record
// rather than hand-picked rows.
func (m *Model) AllMatching() bool {
	return m.allMatching
}

// IsSelected reports membership of one SKU.
func (m *Model) IsSelected(sku string) bool {
	_, ok := m.selected[sku]
	return ok
}

// Count returns the number of selected SKUs.
func (m *Model) Count() int {
	return len(m.selected)
}

// Selected returns the selected SKUs in stable order.
func (m *Model) Selected() []string {
	skus := make([]string, 0, len(m.selected))
	for sku := range m.selected {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}
