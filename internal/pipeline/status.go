package pipeline

import "strings"

// Status represents the lifecycle of a product in the catalog.
type Status string

const (
	StatusStaging      Status = "staging"
	StatusScraped      Status = "scraped"
	StatusConsolidated Status = "consolidated"
	StatusApproved     Status = "approved"
	StatusPublished    Status = "published"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusStaging,
	StatusScraped,
	StatusConsolidated,
	StatusApproved,
	StatusPublished,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status accepts no further bulk actions.
// Failed rows leave the status only through an explicit per-product reset.
func (s Status) IsTerminal() bool {
	return s == StatusFailed
}
