package bulk

import "errors"

// ErrEmptySelection rejects a bulk request carrying no SKUs.
var ErrEmptySelection = errors.New("selection is empty")

// ErrNotAllowed rejects an action the transition table does not permit for
// the current tab, including inert table cells.
var ErrNotAllowed = errors.New("action not allowed for current status")

// ErrStagingReadOnly rejects bulk writes against the staging tab. The
// transition table itself does not forbid them; this is coordinator policy.
var ErrStagingReadOnly = errors.New("staging tab is read-only for bulk actions")
