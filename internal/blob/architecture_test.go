package blob

import (
	"testing"

	"tacticsdb/testutil"
)

// TestOnlyBlobPackageImportsInfra ensures that only the top-level blob
// package wraps the infra-backed implementations. Other packages must depend
// on the blob.Store interface instead of importing infra packages directly.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	testutil.AssertLayering(t, "tacticsdb/...", true, testutil.Rule{
		From:      testutil.Module,
		Allowed:   []string{"tacticsdb/internal/blob", "tacticsdb/internal/infra/blob"},
		Forbidden: testutil.PrefixForbidden("tacticsdb/internal/infra/blob"),
		Reason:    "go through tacticsdb/internal/blob",
	})
}

// TestSnapshotBackendsOnlyReachedFromCommands keeps the SQL snapshot stores
// behind the database.SnapshotStore interface.
func TestSnapshotBackendsOnlyReachedFromCommands(t *testing.T) {
	testutil.AssertLayering(t, "tacticsdb/...", false, testutil.Rule{
		From:      "tacticsdb/internal",
		Allowed:   []string{"tacticsdb/internal/infra/persistence"},
		Forbidden: testutil.PrefixForbidden("tacticsdb/internal/infra/persistence"),
		Reason:    "snapshot stores are chosen by cmd/tacticsdb",
	})
}
