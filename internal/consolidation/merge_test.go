package consolidation

import "testing"

func TestMergeInputWinsOverSources(t *testing.T) {
	result, err := merge(
		`{"name":"Widget Pro","price":10}`,
		`{"amazon":{"name":"Widget PRO!!","color":"red"}}`,
		[]string{"amazon"},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if result.Fields["name"] != "Widget Pro" {
		t.Fatalf("name = %v, input must win", result.Fields["name"])
	}
	if result.Fields["color"] != "red" {
		t.Fatalf("color = %v, source must fill gaps", result.Fields["color"])
	}
}

func TestMergeRespectsSourcePriority(t *testing.T) {
	result, err := merge(
		"",
		`{"shopify":{"color":"blue"},"amazon":{"color":"red"}}`,
		[]string{"amazon", "shopify"},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if result.Fields["color"] != "red" {
		t.Fatalf("color = %v, amazon outranks shopify", result.Fields["color"])
	}
}

func TestMergeNormalizesBrandCasing(t *testing.T) {
	result, err := merge(`{"brand":"ACME CORP"}`, "", nil)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if result.Fields["brand"] != "Acme Corp" {
		t.Fatalf("brand = %v", result.Fields["brand"])
	}
}

func TestMergeConfidenceRewardsAgreement(t *testing.T) {
	agreed, err := merge(
		"",
		`{"amazon":{"color":"red"},"shopify":{"color":"red"}}`,
		[]string{"amazon", "shopify"},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if agreed.Confidence != 1 {
		t.Fatalf("agreeing sources should score 1, got %g", agreed.Confidence)
	}

	disputed, err := merge(
		"",
		`{"amazon":{"color":"red"},"shopify":{"color":"blue"}}`,
		[]string{"amazon", "shopify"},
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if disputed.Confidence != 0 {
		t.Fatalf("disputed field should score 0, got %g", disputed.Confidence)
	}
}

func TestMergeRejectsMalformedPayloads(t *testing.T) {
	if _, err := merge(`{not json`, "", nil); err == nil {
		t.Fatal("expected input parse error")
	}
	if _, err := merge("", `{"amazon": []}`, nil); err == nil {
		t.Fatal("expected source parse error")
	}
}

func TestMergeEmptyPayloadsYieldEmptyRecord(t *testing.T) {
	result, err := merge("", "", nil)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Fields) != 0 || result.Confidence != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}
