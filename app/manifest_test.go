package app

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadManifestRequiresFields(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "app_id: test\n")
	if _, err := LoadManifest(dir); err == nil {
		t.Fatal("expected error for missing protocol_version/entrypoint")
	}
}

func TestLoadManifestParsesValidDocument(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
app_id: demo
protocol_version: "1"
entrypoint: "demo:App"
required_capabilities: [window.write]
`)
	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.AppID != "demo" || m.Entrypoint != "demo:App" {
		t.Fatalf("got %+v", m)
	}
	if len(m.RequiredCapabilities) != 1 || m.RequiredCapabilities[0] != "window.write" {
		t.Fatalf("got %+v", m.RequiredCapabilities)
	}
}

func TestLoadManifestRejectsMissingFile(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); err == nil {
		t.Fatal("expected error for missing app.yaml")
	}
}

func TestLoadManifestRejectsVariantWithoutOS(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
app_id: demo
protocol_version: "1"
entrypoint: "demo:App"
variants:
  - id: v1
`)
	if _, err := LoadManifest(dir); err == nil {
		t.Fatal("expected error for variant missing os")
	}
}

func TestResolveVariantNoVariantsUsesManifestEntrypoint(t *testing.T) {
	m := Manifest{Entrypoint: "demo:App"}
	resolved, err := ResolveVariant(m, "/apps/demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Entrypoint != "demo:App" || resolved.ModuleRoot != "/apps/demo" {
		t.Fatalf("got %+v", resolved)
	}
}

func TestResolveVariantPrefersArchMatch(t *testing.T) {
	m := Manifest{
		Entrypoint: "demo:App",
		Variants: []Variant{
			{ID: "os-only", OS: runtime.GOOS, Entrypoint: "demo:OSOnly"},
			{ID: "arch-match", OS: runtime.GOOS, Arch: runtime.GOARCH, Entrypoint: "demo:ArchMatch"},
		},
	}
	resolved, err := ResolveVariant(m, "/apps/demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Entrypoint != "demo:ArchMatch" {
		t.Fatalf("got %q, want arch-matched variant to win", resolved.Entrypoint)
	}
}

func TestResolveVariantRejectsModuleRootEscape(t *testing.T) {
	m := Manifest{
		Entrypoint: "demo:App",
		Variants: []Variant{
			{ID: "v1", OS: runtime.GOOS, ModuleRoot: "../../etc"},
		},
	}
	if _, err := ResolveVariant(m, "/apps/demo"); err == nil {
		t.Fatal("expected error for module_root escaping app directory")
	}
}

func TestResolveVariantErrorsWhenNoHostMatch(t *testing.T) {
	m := Manifest{
		Entrypoint: "demo:App",
		Variants:   []Variant{{ID: "v1", OS: "not-a-real-os"}},
	}
	if _, err := ResolveVariant(m, "/apps/demo"); err == nil {
		t.Fatal("expected error when no variant matches the host")
	}
}
