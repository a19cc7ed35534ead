package pipeline

import "strings"

// Action is a review operation applied to products in bulk.
type Action string

const (
	ActionConsolidate Action = "consolidate"
	ActionApprove     Action = "approve"
	ActionPublish     Action = "publish"
	ActionReject      Action = "reject"
)

var allActions = []Action{
	ActionConsolidate,
	ActionApprove,
	ActionPublish,
	ActionReject,
}

var actionSet = func() map[Action]struct{} {
	set := make(map[Action]struct{}, len(allActions))
	for _, action := range allActions {
		set[action] = struct{}{}
	}
	return set
}()

// AllActions returns the ordered list of known actions.
func AllActions() []Action {
	cp := make([]Action, len(allActions))
	copy(cp, allActions)
	return cp
}

// ParseAction converts a string into a known Action.
func ParseAction(value string) (Action, bool) {
	normalized := Action(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := actionSet[normalized]
	return normalized, ok
}
