package core

import (
	"strings"
	"testing"

	"canvascore/testutil"
)

// The store never reaches into concrete persistence backends; snapshot
// stores are injected (internal/config opens and wires them). Test files
// are exempt so contract tests can use the in-memory store.
func TestCoreDoesNotImportInfra(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		func(path string) bool { return strings.HasPrefix(path, "canvascore/internal/infra") },
		"core stays persistence-agnostic; backends are injected via options")
}
