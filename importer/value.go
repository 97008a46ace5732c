package importer

import (
	"fmt"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/types"
)

// Metadata describes one produced asset: its identity plus the dependency
// sets the build stage consumes. BuildDeps are assets required to compile
// this asset; LoadDeps are assets required at runtime to use it. Both are
// sets: order is irrelevant and duplicates collapse during normalization.
type Metadata struct {
	ID        types.AssetID    `json:"id"`
	BuildDeps []types.AssetRef `json:"build_deps,omitempty"`
	LoadDeps  []types.AssetRef `json:"load_deps,omitempty"`
}

// AddBuildDep appends a build dependency, ignoring duplicates.
func (m *Metadata) AddBuildDep(ref types.AssetRef) {
	m.BuildDeps = appendRef(m.BuildDeps, ref)
}

// AddLoadDep appends a load dependency, ignoring duplicates.
func (m *Metadata) AddLoadDep(ref types.AssetRef) {
	m.LoadDeps = appendRef(m.LoadDeps, ref)
}

func appendRef(refs []types.AssetRef, ref types.AssetRef) []types.AssetRef {
	for _, existing := range refs {
		if existing == ref {
			return refs
		}
	}
	return append(refs, ref)
}

func dedupRefs(refs []types.AssetRef) []types.AssetRef {
	if len(refs) < 2 {
		return refs
	}
	out := refs[:0]
	seen := make(map[types.AssetRef]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// ImportedAsset is one asset produced by an import run: its metadata, an
// opaque serialized payload holding the format-specific structured data, and
// an optional human-readable name.
type ImportedAsset struct {
	Metadata Metadata `json:"metadata"`
	Name     string   `json:"name,omitempty"`
	Payload  []byte   `json:"payload"`

	// SearchTags are optional free-form labels attached by the importer for
	// editor-side asset search.
	SearchTags []string `json:"search_tags,omitempty"`
}

// Value is the ordered sequence of assets produced by one import run. The
// ordering reflects declaration order from the importer; it carries no
// meaning beyond reproducibility.
type Value struct {
	Assets []ImportedAsset `json:"assets"`
}

// AssetIDs returns the identities of all produced assets, in declaration
// order.
func (v *Value) AssetIDs() []types.AssetID {
	ids := make([]types.AssetID, len(v.Assets))
	for i, asset := range v.Assets {
		ids[i] = asset.Metadata.ID
	}
	return ids
}

// Validate checks the closed-world contract the build stage relies on:
// every asset has a non-nil identity and no identity appears twice within
// the run.
func (v *Value) Validate() error {
	seen := make(map[types.AssetID]struct{}, len(v.Assets))
	for i, asset := range v.Assets {
		id := asset.Metadata.ID
		if id.IsNil() {
			return errors.WrapInvalid(
				fmt.Errorf("asset %d has no identity", i),
				"Value", "Validate", "asset identity check")
		}
		if _, dup := seen[id]; dup {
			return errors.WrapInvalid(
				fmt.Errorf("asset identity %s produced twice", id),
				"Value", "Validate", "duplicate identity check")
		}
		seen[id] = struct{}{}
	}
	return nil
}

// normalize collapses duplicate dependency entries on every asset.
func (v *Value) normalize() {
	for i := range v.Assets {
		meta := &v.Assets[i].Metadata
		meta.BuildDeps = dedupRefs(meta.BuildDeps)
		meta.LoadDeps = dedupRefs(meta.LoadDeps)
	}
}
