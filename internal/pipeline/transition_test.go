package pipeline

import "testing"

func TestTransitionTableIsTotal(t *testing.T) {
	for _, action := range AllActions() {
		row, ok := transitions[action]
		if !ok {
			t.Fatalf("no row for action %q", action)
		}
		for _, status := range AllStatuses() {
			next, ok := row[status]
			if !ok {
				t.Fatalf("no cell for (%q, %q)", status, action)
			}
			if _, known := statusSet[next]; !known {
				t.Fatalf("cell (%q, %q) maps to unknown status %q", status, action, next)
			}
		}
	}
}

func TestNextStatusMatchesPolicy(t *testing.T) {
	cases := []struct {
		current Status
		action  Action
		want    Status
	}{
		{StatusStaging, ActionConsolidate, StatusConsolidated},
		{StatusScraped, ActionConsolidate, StatusConsolidated},
		{StatusConsolidated, ActionApprove, StatusApproved},
		{StatusApproved, ActionPublish, StatusPublished},
		{StatusConsolidated, ActionReject, StatusStaging},
		{StatusScraped, ActionReject, StatusStaging},
		{StatusApproved, ActionReject, StatusConsolidated},
		{StatusPublished, ActionReject, StatusApproved},
	}
	for _, tc := range cases {
		if got := NextStatus(tc.current, tc.action); got != tc.want {
			t.Fatalf("NextStatus(%q, %q) = %q, want %q", tc.current, tc.action, got, tc.want)
		}
	}
}

func TestTransitionRejectsInertPairs(t *testing.T) {
	inert := []struct {
		current Status
		action  Action
	}{
		{StatusStaging, ActionApprove},
		{StatusScraped, ActionPublish},
		{StatusConsolidated, ActionPublish},
		{StatusApproved, ActionConsolidate},
		{StatusPublished, ActionPublish},
		{StatusStaging, ActionReject},
	}
	for _, tc := range inert {
		next, ok := Transition(tc.current, tc.action)
		if ok {
			t.Fatalf("Transition(%q, %q) reported movement to %q", tc.current, tc.action, next)
		}
		if next != tc.current {
			t.Fatalf("inert Transition(%q, %q) changed status to %q", tc.current, tc.action, next)
		}
	}
}

func TestFailedNeverMoves(t *testing.T) {
	for _, action := range AllActions() {
		next, ok := Transition(StatusFailed, action)
		if ok || next != StatusFailed {
			t.Fatalf("Transition(failed, %q) = (%q, %v)", action, next, ok)
		}
	}
	if !StatusFailed.IsTerminal() {
		t.Fatal("failed must be terminal")
	}
}

func TestRejectIsIdempotentFromConsolidated(t *testing.T) {
	first := NextStatus(StatusConsolidated, ActionReject)
	if first != StatusStaging {
		t.Fatalf("first reject = %q, want staging", first)
	}
	second, moved := Transition(first, ActionReject)
	if second != StatusStaging {
		t.Fatalf("second reject = %q, want staging", second)
	}
	if moved {
		t.Fatal("second reject from staging must be inert")
	}
}

func TestParseStatusAndAction(t *testing.T) {
	if status, ok := ParseStatus("  Approved "); !ok || status != StatusApproved {
		t.Fatalf("ParseStatus = (%q, %v)", status, ok)
	}
	if _, ok := ParseStatus("shipped"); ok {
		t.Fatal("unknown status accepted")
	}
	if action, ok := ParseAction("REJECT"); !ok || action != ActionReject {
		t.Fatalf("ParseAction = (%q, %v)", action, ok)
	}
	if _, ok := ParseAction(""); ok {
		t.Fatal("empty action accepted")
	}
}
