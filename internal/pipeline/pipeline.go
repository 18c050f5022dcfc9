// Package pipeline defines the narrow interface the core site uses to
// consult the external CD pipeline (named out of scope, as a "core
// collaborator", by spec §1). Generalized from
// original_source/squishy_REST_API/database_client/pipeline_mssql.py's
// PipelineMSSQLConnection into an interface so C3's /api/pipeline handlers
// and the Coordinator's pipeline_updates() depend only on this contract, not
// a concrete SQL dialect — per SPEC_FULL.md §9's "cyclic references" fix.
package pipeline

import (
	"context"

	"github.com/lucho00cuba/baseline-core/internal/model"
)

// Source is read-mostly from the core's perspective: Updates/Sites are
// read-only queries; MarkHashed is the one write the core performs, to
// record that it has computed a hash for a pipeline-approved update.
type Source interface {
	// Updates returns TeamCity-style authorized updates, both processed
	// and unprocessed (HashValue empty for unprocessed), ordered by
	// timestamp ascending.
	Updates(ctx context.Context) ([]model.PipelineUpdate, error)

	// Sites returns the authoritative site list from the pipeline's own
	// store, used to sync this deployment's local site table
	// (GET /api/pipeline?action=sites per spec §6.1).
	Sites(ctx context.Context) ([]string, error)

	// MarkHashed records hashValue against the first unprocessed row
	// matching updatePath.
	MarkHashed(ctx context.Context, updatePath, hashValue string) error

	Health(ctx context.Context) bool
}
