package plans

import (
	"reflect"
	"testing"
)

func TestNormalizeFeaturesCanonicalKeys(t *testing.T) {
	in := []string{"branding", "gallery", "products", "services", "menu_items", "badges", "featured_listing"}
	got := NormalizeFeatures(in)
	if len(got) != len(in) {
		t.Fatalf("expected all canonical keys kept, got %v", got)
	}
	// Idempotence: normalizing the output changes nothing.
	if again := NormalizeFeatures(got); !reflect.DeepEqual(got, again) {
		t.Fatalf("normalization not idempotent: %v vs %v", got, again)
	}
}

func TestNormalizeFeaturesAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Custom Logo Upload", want: FeatureBranding},
		{in: "cover image", want: FeatureBranding},
		{in: "Restaurant Menu", want: FeatureMenuItems},
		{in: "photo upload", want: FeatureGallery},
		{in: "Product catalog", want: FeatureProducts},
		{in: "service bookings", want: FeatureServices},
		{in: "Verified check", want: FeatureBadges},
		{in: "Promoted placement", want: FeatureFeaturedListing},
	}

	for _, tt := range tests {
		got := NormalizeFeatures([]string{tt.in})
		if len(got) != 1 || got[0] != tt.want {
			t.Fatalf("NormalizeFeatures(%q) = %v, want [%s]", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeFeaturesDedupAndDrop(t *testing.T) {
	got := NormalizeFeatures([]string{"Gallery", "gallery", "photo upload"})
	if len(got) != 1 || got[0] != FeatureGallery {
		t.Fatalf("expected single gallery key, got %v", got)
	}

	got = NormalizeFeatures([]string{"teleportation", "", "   "})
	if len(got) != 0 {
		t.Fatalf("expected unknown entries dropped silently, got %v", got)
	}
}

func TestHasFeature(t *testing.T) {
	features := NormalizeFeatures([]string{"gallery", "badges"})
	if !HasFeature(features, FeatureGallery) {
		t.Fatal("expected gallery to be present")
	}
	if HasFeature(features, FeatureProducts) {
		t.Fatal("did not expect products to be present")
	}
}

func TestLabelFor(t *testing.T) {
	if got := LabelFor(FeatureMenuItems); got != "Menu Items" {
		t.Fatalf("LabelFor(menu_items) = %q", got)
	}
	// Unknown keys fall back to the raw key, never an error.
	if got := LabelFor("mystery_feature"); got != "mystery_feature" {
		t.Fatalf("LabelFor(unknown) = %q", got)
	}
}
