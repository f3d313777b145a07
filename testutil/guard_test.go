package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestThirdPartyImportForbidden(t *testing.T) {
	forbidden := ThirdPartyImportForbidden("canvascore")
	cases := []struct {
		path string
		want bool
	}{
		{"encoding/json", false},
		{"sync", false},
		{"canvascore/pkg/domain", false},
		{"canvascore", false},
		{"github.com/google/uuid", true},
		{"modernc.org/sqlite", true},
	}
	for _, tc := range cases {
		if got := forbidden(tc.path); got != tc.want {
			t.Fatalf("forbidden(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestInternalImportForbidden(t *testing.T) {
	if !InternalImportForbidden("canvascore/internal/core") {
		t.Fatal("expected internal path to be forbidden")
	}
	if InternalImportForbidden("canvascore/pkg/domain") {
		t.Fatal("pkg path should not be forbidden")
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	src := `package sample

import (
	"fmt"
	"example.com/outside/pkg"
)

var _ = fmt.Sprintf
var _ = pkg.Thing
`
	if err := os.WriteFile(filepath.Join(dir, "sample.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	// Test files must be ignored even when they import forbidden paths.
	testSrc := "package sample\n\nimport _ \"example.com/outside/other\"\n"
	if err := os.WriteFile(filepath.Join(dir, "sample_test.go"), []byte(testSrc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	viols, err := directImportViolations(dir, func(p string) bool {
		return strings.HasPrefix(p, "example.com/")
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 {
		t.Fatalf("expected 1 violation, got %v", viols)
	}
	if !strings.Contains(viols[0], "example.com/outside/pkg") {
		t.Fatalf("unexpected violation %q", viols[0])
	}
}

func TestAssertNoTransitiveDependencyUsesStubbedLister(t *testing.T) {
	orig := goListDeps
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\ncanvascore/pkg/domain\n"), nil
	}
	defer func() { goListDeps = orig }()

	// Should pass: nothing forbidden in the stubbed output.
	AssertNoTransitiveDependency(t, "./...", func(p string) bool {
		return strings.Contains(p, "/internal/")
	}, "domain stays free of internal packages")
}
