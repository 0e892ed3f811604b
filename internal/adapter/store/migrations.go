package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// ComputeFingerprint hashes the settings that make vectors comparable.
// Vectors from indexes with different fingerprints must never be mixed.
func ComputeFingerprint(model string, dimension int, metric string) string {
	relevant := struct {
		Schema    int    `json:"schema"`
		Model     string `json:"model"`
		Dimension int    `json:"dimension"`
		Metric    string `json:"metric"`
	}{CurrentSchemaVersion, model, dimension, metric}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes whether a previous index can seed a new build.
type MigrationResult struct {
	NeedsRebuild bool
	OldVersion   int
	NewVersion   int
	Reason       string
}

// CheckMigration decides if vectors in meta can be reused by a build with the
// given embedding settings.
func CheckMigration(meta domain.IndexMeta, model string, dimension int, metric string) *MigrationResult {
	result := &MigrationResult{
		OldVersion: meta.SchemaVersion,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case meta.SchemaVersion > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("index created by newer version (v%d > v%d)", meta.SchemaVersion, CurrentSchemaVersion)
	case meta.SchemaVersion < CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", meta.SchemaVersion, CurrentSchemaVersion)
	case ComputeFingerprint(meta.Model, meta.Dimension, meta.Metric) != ComputeFingerprint(model, dimension, metric):
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding settings changed (%s/%d/%s -> %s/%d/%s)",
			meta.Model, meta.Dimension, meta.Metric, model, dimension, metric)
	}
	return result
}

// CheckQueryModel returns a *domain.ModelMismatchError when the query embedder
// differs from the one the index was built with.
func CheckQueryModel(meta domain.IndexMeta, model string, dimension int) error {
	if meta.Model != model || meta.Dimension != dimension {
		return &domain.ModelMismatchError{
			IndexModel:     meta.Model,
			IndexDimension: meta.Dimension,
			QueryModel:     model,
			QueryDimension: dimension,
		}
	}
	return nil
}
