package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"

	"tacticsdb/pkg/domain"
)

// ManifestFile is the key of the project manifest inside a data directory.
const ManifestFile = "metadata.json"

// SchemaVersion is the catalog schema this build reads and writes.
const SchemaVersion = "1.2.0"

var supportedSchema = version.Must(version.NewVersion(SchemaVersion))

// Manifest describes one serialized project. It is written after every
// catalog file, so its presence marks a complete save.
type Manifest struct {
	SaveID        string            `json:"save_id"`
	SchemaVersion string            `json:"schema_version"`
	Format        Format            `json:"format"`
	Catalogs      []ManifestCatalog `json:"catalogs"`
	SavedAt       time.Time         `json:"saved_at"`
}

// ManifestCatalog is one catalog entry of a Manifest.
type ManifestCatalog struct {
	Key   domain.CatalogKey `json:"key"`
	File  string            `json:"file"`
	Count int               `json:"count"`
	ETag  string            `json:"etag,omitempty"`
}

func newManifest(f Format, now time.Time) Manifest {
	return Manifest{
		SaveID:        uuid.NewString(),
		SchemaVersion: SchemaVersion,
		Format:        f,
		SavedAt:       now.UTC(),
	}
}

// Newer reports whether the manifest was written by a newer schema than this
// build supports.
func (m Manifest) Newer() (bool, error) {
	v, err := version.NewVersion(m.SchemaVersion)
	if err != nil {
		return false, fmt.Errorf("manifest schema version %q: %w", m.SchemaVersion, err)
	}
	return v.GreaterThan(supportedSchema), nil
}

func (m Manifest) encode() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func decodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	if _, err := uuid.Parse(m.SaveID); err != nil {
		return Manifest{}, fmt.Errorf("manifest save id: %w", err)
	}
	return m, nil
}
