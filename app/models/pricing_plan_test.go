package models

import "testing"

func TestPricingPlanIsFree(t *testing.T) {
	tests := []struct {
		price int64
		want  bool
	}{
		{price: 0, want: true},
		{price: -100, want: true},
		{price: 1, want: false},
		{price: 2999, want: false},
	}

	for _, tt := range tests {
		p := PricingPlan{PriceCents: tt.price}
		if got := p.IsFree(); got != tt.want {
			t.Fatalf("IsFree() with price %d = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestPricingPlanFeatureList(t *testing.T) {
	p := PricingPlan{}
	if got := p.FeatureList(); got != nil {
		t.Fatalf("expected nil feature list for empty column, got %v", got)
	}

	p.FeaturesJSON = `["gallery","menu_items"]`
	got := p.FeatureList()
	if len(got) != 2 || got[0] != "gallery" || got[1] != "menu_items" {
		t.Fatalf("unexpected feature list from JSON: %v", got)
	}

	// Legacy comma-separated values still decode.
	p.FeaturesJSON = "gallery, products ,"
	got = p.FeatureList()
	if len(got) != 2 || got[0] != "gallery" || got[1] != "products" {
		t.Fatalf("unexpected feature list from legacy value: %v", got)
	}
}

func TestPricingPlanSetFeatureList(t *testing.T) {
	p := PricingPlan{}
	if err := p.SetFeatureList([]string{"badges"}); err != nil {
		t.Fatalf("SetFeatureList: %v", err)
	}
	if p.FeaturesJSON != `["badges"]` {
		t.Fatalf("unexpected stored value: %s", p.FeaturesJSON)
	}
}
