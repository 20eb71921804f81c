package core

import (
	"testing"

	"cagecore/testutil"
)

func TestCoreDoesNotImportDrivers(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageDriverImport, "core talks to storage through domain.PersistentStore and blob core.Store")
}
