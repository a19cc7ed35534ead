package pipeline

// transitions is a total table: every known (action, status) cell maps to a
// resulting status. Cells that map a status onto itself are inert; callers
// that need hard rejection of inert pairs use Transition instead of
// NextStatus.
var transitions = map[Action]map[Status]Status{
	ActionConsolidate: {
		StatusStaging:      StatusConsolidated,
		StatusScraped:      StatusConsolidated,
		StatusConsolidated: StatusConsolidated,
		StatusApproved:     StatusApproved,
		StatusPublished:    StatusPublished,
		StatusFailed:       StatusFailed,
	},
	ActionApprove: {
		StatusStaging:      StatusStaging,
		StatusScraped:      StatusScraped,
		StatusConsolidated: StatusApproved,
		StatusApproved:     StatusApproved,
		StatusPublished:    StatusPublished,
		StatusFailed:       StatusFailed,
	},
	ActionPublish: {
		StatusStaging:      StatusStaging,
		StatusScraped:      StatusScraped,
		StatusConsolidated: StatusConsolidated,
		StatusApproved:     StatusPublished,
		StatusPublished:    StatusPublished,
		StatusFailed:       StatusFailed,
	},
	ActionReject: {
		StatusStaging:      StatusStaging,
		StatusScraped:      StatusStaging,
		StatusConsolidated: StatusStaging,
		StatusApproved:     StatusConsolidated,
		StatusPublished:    StatusApproved,
		StatusFailed:       StatusFailed,
	},
}

// NextStatus resolves the transition table for a (status, action) pair.
// Unknown pairs return the current status unchanged, keeping the function
// total over arbitrary input.
func NextStatus(current Status, action Action) Status {
	row, ok := transitions[action]
	if !ok {
		return current
	}
	next, ok := row[current]
	if !ok {
		return current
	}
	return next
}

// Transition resolves the table and additionally reports whether the pair
// actually moves the product. Inert cells return (current, false), which
// callers treat as a policy rejection rather than a silent pass.
func Transition(current Status, action Action) (Status, bool) {
	next := NextStatus(current, action)
	return next, next != current
}
