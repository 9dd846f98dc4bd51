package httpapi

import (
	"testing"

	"uksledger/testutil"
)

func TestHandlersReachStorageThroughCore(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.InfraImportForbidden, testutil.StorageDriverForbidden),
		"handlers must go through core.Service")
}
