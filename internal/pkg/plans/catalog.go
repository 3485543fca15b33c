package plans

import (
	"sort"
	"strings"
)

// Canonical plan feature keys. Everything a plan can entitle a listing to is
// one of these; legacy free-text feature labels are folded into them by
// NormalizeFeatures.
const (
	FeatureBranding        = "branding"
	FeatureGallery         = "gallery"
	FeatureProducts        = "products"
	FeatureServices        = "services"
	FeatureMenuItems       = "menu_items"
	FeatureBadges          = "badges"
	FeatureFeaturedListing = "featured_listing"
)

var featureLabels = map[string]string{
	FeatureBranding:        "Logo & Cover Branding",
	FeatureGallery:         "Photo Gallery",
	FeatureProducts:        "Product Showcase",
	FeatureServices:        "Service Listings",
	FeatureMenuItems:       "Menu Items",
	FeatureBadges:          "Verified Badges",
	FeatureFeaturedListing: "Featured Placement",
}

// featureAliases maps substrings of legacy labels to canonical keys. Order
// matters: the first match wins, so more specific patterns come first.
var featureAliases = []struct {
	contains string
	key      string
}{
	{contains: "logo", key: FeatureBranding},
	{contains: "cover", key: FeatureBranding},
	{contains: "brand", key: FeatureBranding},
	{contains: "menu", key: FeatureMenuItems},
	{contains: "photo", key: FeatureGallery},
	{contains: "image", key: FeatureGallery},
	{contains: "picture", key: FeatureGallery},
	{contains: "product", key: FeatureProducts},
	{contains: "service", key: FeatureServices},
	{contains: "badge", key: FeatureBadges},
	{contains: "verified", key: FeatureBadges},
	{contains: "featured", key: FeatureFeaturedListing},
	{contains: "promot", key: FeatureFeaturedListing},
}

// NormalizeFeatures folds an arbitrary list of feature names (canonical keys
// or free-text legacy labels) into a deduplicated, sorted list of canonical
// keys. Entries that match nothing are dropped silently.
func NormalizeFeatures(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		key := normalizeFeature(entry)
		if key == "" {
			continue
		}
		seen[key] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func normalizeFeature(entry string) string {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return ""
	}
	if _, ok := featureLabels[entry]; ok {
		return entry
	}
	for _, alias := range featureAliases {
		if strings.Contains(entry, alias.contains) {
			return alias.key
		}
	}
	return ""
}

// HasFeature reports whether a normalized feature list contains key.
func HasFeature(features []string, key string) bool {
	for _, f := range features {
		if f == key {
			return true
		}
	}
	return false
}

// LabelFor returns the human label for a canonical key, or the raw key when
// it is unknown. It never fails.
func LabelFor(key string) string {
	if label, ok := featureLabels[strings.ToLower(strings.TrimSpace(key))]; ok {
		return label
	}
	return key
}
