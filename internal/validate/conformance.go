package validate

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/internal/pkgstore"
)

const (
	// DEF_MIN_CLAIMS is the lowest acceptable claim count for a
	// conforming research output.
	DEF_MIN_CLAIMS = 5
	// DEF_MIN_ENTITIES is the lowest acceptable entity count.
	DEF_MIN_ENTITIES = 3
)

// ConformanceValidator runs the V2 tier: do the declared outputs actually
// exist on disk and hold enough extracted substance.
type ConformanceValidator struct {
	fs    afero.Fs
	store pkgstore.Store

	// StoreRoot and ArtifactDir are the two relative roots output paths
	// are resolved against when they are not absolute.
	StoreRoot   string
	ArtifactDir string

	MinClaims   int
	MinEntities int
}

// NewConformanceValidator creates the V2 validator. storeRoot and
// artifactDir may be empty; empty roots are skipped during resolution.
func NewConformanceValidator(fs afero.Fs, store pkgstore.Store, storeRoot, artifactDir string) *ConformanceValidator {
	return &ConformanceValidator{
		fs:          fs,
		store:       store,
		StoreRoot:   storeRoot,
		ArtifactDir: artifactDir,
		MinClaims:   DEF_MIN_CLAIMS,
		MinEntities: DEF_MIN_ENTITIES,
	}
}

// Validate performs the V2 checks. All five checks run even when earlier
// ones fail; review needs the complete picture, not the first failure.
func (v *ConformanceValidator) Validate(pkgID string) (*Report, error) {
	p, err := v.store.Get(pkgID)
	if err != nil {
		return nil, err
	}

	var r Report

	resolved := make(map[string]string, len(p.Metadata.OutputsGenerated))
	var missing []string
	for _, out := range p.Metadata.OutputsGenerated {
		path, ok := v.resolve(out)
		if !ok {
			missing = append(missing, out)
			continue
		}
		resolved[out] = path
	}
	r.add("outputs_exist", len(p.Metadata.OutputsGenerated) > 0 && len(missing) == 0,
		"outputs not found on disk: %s", strings.Join(missing, ", "))

	var empty []string
	for out, path := range resolved {
		info, err := v.fs.Stat(path)
		if err != nil || info.Size() == 0 {
			empty = append(empty, out)
		}
	}
	r.add("outputs_non_empty", len(empty) == 0,
		"empty outputs: %s", strings.Join(empty, ", "))

	var badJSON []string
	for out, path := range resolved {
		if strings.ToLower(filepath.Ext(path)) != ".json" {
			continue
		}
		raw, err := afero.ReadFile(v.fs, path)
		if err != nil || !json.Valid(raw) {
			badJSON = append(badJSON, out)
		}
	}
	r.add("json_outputs_parse", len(badJSON) == 0,
		"unparseable json outputs: %s", strings.Join(badJSON, ", "))

	r.add("claims_extracted", p.Metadata.ClaimsExtracted >= v.MinClaims,
		"claims_extracted is %d, want at least %d", p.Metadata.ClaimsExtracted, v.MinClaims)

	r.add("entities_found", p.Metadata.EntitiesFound >= v.MinEntities,
		"entities_found is %d, want at least %d", p.Metadata.EntitiesFound, v.MinEntities)

	r.finish()
	return &r, nil
}

// resolve tries the declared path as absolute, then relative to the store
// root, then relative to the artifact dir. The first candidate that exists
// wins.
func (v *ConformanceValidator) resolve(out string) (string, bool) {
	var candidates []string
	if filepath.IsAbs(out) {
		candidates = append(candidates, out)
	}
	if v.StoreRoot != "" {
		candidates = append(candidates, filepath.Join(v.StoreRoot, out))
	}
	if v.ArtifactDir != "" {
		candidates = append(candidates, filepath.Join(v.ArtifactDir, out))
	}
	for _, c := range candidates {
		if ok, err := afero.Exists(v.fs, c); err == nil && ok {
			return c, true
		}
	}
	return "", false
}
