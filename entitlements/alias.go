package entitlements

// Aliases records which bundle products deliberately cover which component
// assessments. A grant cached under a bundle id satisfies a page requiring
// any of the bundle's components. Everything else is exact-match: the legacy
// substring-containment rule is gone, so textually overlapping product ids
// no longer leak access into each other.
type Aliases map[string][]string

// Covers reports whether a grant for owned satisfies required.
func (a Aliases) Covers(owned, required string) bool {
	if owned == required {
		return true
	}
	for _, component := range a[owned] {
		if component == required {
			return true
		}
	}
	return false
}

// BundlesFor returns the bundle ids whose grants cover the given product.
// Order is unspecified; callers treat the result as a set.
func (a Aliases) BundlesFor(product string) []string {
	var out []string
	for bundle, components := range a {
		for _, c := range components {
			if c == product {
				out = append(out, bundle)
				break
			}
		}
	}
	return out
}
