// Package app implements the App Runtime: manifest loading, platform
// variant resolution, capability grant/deny decisions, and the
// AppContext façade a lifecycle runs against.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variant narrows an app's entrypoint and module root to a specific
// (os, arch) host.
type Variant struct {
	ID         string `yaml:"id"`
	OS         string `yaml:"os"`
	Arch       string `yaml:"arch"`
	ModuleRoot string `yaml:"module_root"`
	Entrypoint string `yaml:"entrypoint"`
}

// Manifest is the declarative app.yaml document.
type Manifest struct {
	AppID                     string    `yaml:"app_id"`
	ProtocolVersion           string    `yaml:"protocol_version"`
	Entrypoint                string    `yaml:"entrypoint"`
	RequiredCapabilities      []string  `yaml:"required_capabilities"`
	OptionalCapabilities      []string  `yaml:"optional_capabilities"`
	MinRuntimeProtocolVersion string    `yaml:"min_runtime_protocol_version"`
	MaxRuntimeProtocolVersion string    `yaml:"max_runtime_protocol_version"`
	PlatformSupport           []string  `yaml:"platform_support"`
	Variants                  []Variant `yaml:"variants"`
}

// LoadManifest reads and validates app.yaml from appDir.
func LoadManifest(appDir string) (Manifest, error) {
	manifestPath := filepath.Join(appDir, "app.yaml")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("app: manifest not found: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("app: invalid manifest: %w", err)
	}
	if m.AppID == "" {
		return Manifest{}, fmt.Errorf("app: manifest missing required field: app_id")
	}
	if m.ProtocolVersion == "" {
		return Manifest{}, fmt.Errorf("app: manifest missing required field: protocol_version")
	}
	if m.Entrypoint == "" {
		return Manifest{}, fmt.Errorf("app: manifest missing required field: entrypoint")
	}
	for _, v := range m.Variants {
		if v.ID == "" || v.OS == "" {
			return Manifest{}, fmt.Errorf("app: variant entries require id and os")
		}
	}
	return m, nil
}

// ResolvedVariant is the effective entrypoint and module root for the
// current host, after applying a matching variant override (if any).
type ResolvedVariant struct {
	Entrypoint string
	ModuleRoot string
}

// ResolveVariant picks the first variant matching the host (os, arch),
// preferring an arch match over an os-only match, and rejects a
// module_root that escapes appDir via `..`. With no variants declared,
// the manifest's own entrypoint and appDir apply unchanged.
func ResolveVariant(m Manifest, appDir string) (ResolvedVariant, error) {
	if len(m.Variants) == 0 {
		return ResolvedVariant{Entrypoint: m.Entrypoint, ModuleRoot: appDir}, nil
	}

	hostOS := runtime.GOOS
	hostArch := runtime.GOARCH

	var osOnly *Variant
	for i := range m.Variants {
		v := &m.Variants[i]
		if v.OS != hostOS {
			continue
		}
		if v.Arch != "" && v.Arch == hostArch {
			return resolveVariantFields(*v, m, appDir)
		}
		if v.Arch == "" && osOnly == nil {
			osOnly = v
		}
	}
	if osOnly != nil {
		return resolveVariantFields(*osOnly, m, appDir)
	}
	return ResolvedVariant{}, fmt.Errorf("app: no variant matches host os=%s arch=%s", hostOS, hostArch)
}

func resolveVariantFields(v Variant, m Manifest, appDir string) (ResolvedVariant, error) {
	entrypoint := v.Entrypoint
	if entrypoint == "" {
		entrypoint = m.Entrypoint
	}

	moduleRoot := appDir
	if v.ModuleRoot != "" {
		if strings.Contains(filepath.ToSlash(v.ModuleRoot), "..") {
			return ResolvedVariant{}, fmt.Errorf("app: variant %q module_root escapes app directory: %s", v.ID, v.ModuleRoot)
		}
		moduleRoot = filepath.Join(appDir, v.ModuleRoot)
	}

	return ResolvedVariant{Entrypoint: entrypoint, ModuleRoot: moduleRoot}, nil
}
