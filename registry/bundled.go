package registry

import "github.com/devskill-org/solarstatus/profile"

// bundledOrder is the declaration order bundled profiles register in:
// when two patterns match equally well, the earlier entry wins
// (spec.md §4.5 scenario 2 — the more specific deye_sun_12k pattern is
// declared ahead of the broader deye_p3 and deye_hybrid_generic
// patterns, which also match its models).
var bundledOrder = []string{
	"deye/deye_sun_12k",
	"deye/deye_p3",
	"deye/deye_hybrid_generic",
	"growatt/growatt_sph",
}

// NewFromBundled builds a Registry from every embedded profile
// resource, in bundledOrder.
func NewFromBundled() (*Registry, error) {
	refs := make([]ProfileReference, 0, len(bundledOrder))
	for _, id := range bundledOrder {
		def, err := profile.LoadBundled(id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ProfileReference{
			ID:            id,
			Manufacturer:  def.Info.Manufacturer,
			ModelPatterns: def.Info.ModelPatterns,
		})
	}
	return New(refs), nil
}
