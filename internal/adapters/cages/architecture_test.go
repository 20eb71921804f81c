package cages_test

import (
	"testing"

	"cagecore/testutil"
)

func TestHandlerDoesNotImportStores(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.PersistenceImport, testutil.StorageDriverImport), "handlers go through the service")
}
