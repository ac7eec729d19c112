package domain

import (
	"testing"

	"tacticsdb/testutil"
)

// TestDomainImportsOnlyStdlib keeps the entity model free of internal
// packages and third-party modules.
func TestDomainImportsOnlyStdlib(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyForbidden(
		testutil.InternalImportForbidden,
		testutil.ThirdPartyImportForbidden,
	), "domain is the leaf of the import graph")
}
