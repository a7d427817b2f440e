package profile

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed resources
var bundledFS embed.FS

// bundledPaths maps a profile id to its embedded resource path. Ids
// are the spec.md §4.1 bundle keys: "<manufacturer>/<file-stem>".
var bundledPaths = map[string]string{
	"deye/deye_p3":             "resources/deye/deye_p3.yaml",
	"deye/deye_sun_12k":        "resources/deye/deye_sun_12k.yaml",
	"deye/deye_hybrid_generic": "resources/deye/deye_hybrid_generic.yaml",
	"growatt/growatt_sph":      "resources/growatt/growatt_sph.yaml",
}

// BundledProfileIDs returns every bundled profile id in deterministic
// (lexical) order, for registry construction and diagnostics.
func BundledProfileIDs() []string {
	ids := make([]string, 0, len(bundledPaths))
	for id := range bundledPaths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadBundled parses the embedded profile with the given id.
func LoadBundled(id string) (*InverterDefinition, error) {
	path, ok := bundledPaths[id]
	if !ok {
		return nil, fmt.Errorf("profile: no bundled resource with id %q", id)
	}
	data, err := bundledFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: reading bundled resource %q: %w", id, err)
	}
	return Parse(data, id)
}
