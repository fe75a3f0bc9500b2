package model

import (
	"errors"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"core_1f2e.bundle", "core_1f2e.bundle"},
		{"file:with:colons.bundle", "file_with_colons.bundle"},
		{"file<with>brackets.bundle", "file_with_brackets.bundle"},
		{"file|with|pipes.bundle", "file_with_pipes.bundle"},
		{"file?with*wildcards.bundle", "file_with_wildcards.bundle"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"trailing spaces   ", "trailing spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBundle_CacheFileName(t *testing.T) {
	b := &Bundle{GUID: "a", FileName: "remote/dir/ui:main.bundle"}
	if got := b.CacheFileName(); got != "ui_main.bundle" {
		t.Errorf("CacheFileName() = %q, want %q", got, "ui_main.bundle")
	}
}

func TestBundle_Tags(t *testing.T) {
	untagged := &Bundle{GUID: "a"}
	dlc := &Bundle{GUID: "b", Tags: []string{"dlc", "hd"}}

	if untagged.HasAnyTags() {
		t.Error("HasAnyTags() should be false for a bundle without tags")
	}
	if !dlc.HasAnyTags() {
		t.Error("HasAnyTags() should be true for a tagged bundle")
	}
	if !dlc.HasTag([]string{"hd"}) {
		t.Error(`HasTag(["hd"]) should be true`)
	}
	if dlc.HasTag([]string{"sd"}) {
		t.Error(`HasTag(["sd"]) should be false`)
	}
	if dlc.HasTag(nil) {
		t.Error("HasTag(nil) should be false")
	}
}

func testBundles() []*Bundle {
	return []*Bundle{
		{GUID: "shader", FileName: "shader.bundle"},
		{GUID: "tex", FileName: "tex.bundle", DependIDs: []string{"shader"}},
		{GUID: "ui", FileName: "ui.bundle", DependIDs: []string{"tex", "font"}},
		{GUID: "font", FileName: "font.bundle"},
		{GUID: "hero", FileName: "hero.bundle", DependIDs: []string{"tex"}, Tags: []string{"dlc"}},
	}
}

func TestNewManifest_Integrity(t *testing.T) {
	tests := []struct {
		name    string
		bundles []*Bundle
		assets  []*Asset
	}{
		{
			name:    "dangling bundle dependency",
			bundles: []*Bundle{{GUID: "a", FileName: "a", DependIDs: []string{"missing"}}},
		},
		{
			name:    "duplicate guid",
			bundles: []*Bundle{{GUID: "a", FileName: "a"}, {GUID: "a", FileName: "b"}},
		},
		{
			name:    "duplicate file name",
			bundles: []*Bundle{{GUID: "a", FileName: "x"}, {GUID: "b", FileName: "x"}},
		},
		{
			name:    "sanitized cache name collision",
			bundles: []*Bundle{{GUID: "a", FileName: "ui:core.bundle"}, {GUID: "b", FileName: "ui_core.bundle"}},
		},
		{
			name:    "same base name in different directories",
			bundles: []*Bundle{{GUID: "a", FileName: "a/x.bundle"}, {GUID: "b", FileName: "b/x.bundle"}},
		},
		{
			name:    "empty guid",
			bundles: []*Bundle{{FileName: "x"}},
		},
		{
			name:    "asset main bundle missing",
			bundles: []*Bundle{{GUID: "a", FileName: "a"}},
			assets:  []*Asset{{Path: "Assets/A.prefab", BundleID: "b"}},
		},
		{
			name:    "asset dependency missing",
			bundles: []*Bundle{{GUID: "a", FileName: "a"}},
			assets:  []*Asset{{Path: "Assets/A.prefab", BundleID: "a", DependIDs: []string{"z"}}},
		},
		{
			name:    "duplicate folded asset path",
			bundles: []*Bundle{{GUID: "a", FileName: "a"}},
			assets: []*Asset{
				{Path: "Assets/A.prefab", BundleID: "a"},
				{Path: "assets/a.prefab", BundleID: "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManifest("main", "v1", true, tt.bundles, tt.assets)
			if err == nil {
				t.Fatal("expected integrity error but got none")
			}
			if !errors.Is(err, ErrManifestIntegrity) {
				t.Errorf("error %v does not wrap ErrManifestIntegrity", err)
			}
		})
	}
}

func TestManifest_AllDependencies(t *testing.T) {
	assets := []*Asset{
		{Path: "Assets/UI/Login.prefab", BundleID: "ui"},
		{Path: "Assets/Hero.prefab", BundleID: "hero", DependIDs: []string{"font"}},
	}
	m, err := NewManifest("main", "v1", false, testBundles(), assets)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}

	deps, err := m.AllDependencies("Assets/UI/Login.prefab")
	if err != nil {
		t.Fatalf("AllDependencies: %v", err)
	}
	want := []string{"tex", "shader", "font"}
	if got := guids(deps); !equal(got, want) {
		t.Errorf("AllDependencies(login) = %v, want %v", got, want)
	}

	deps, err = m.AllDependencies("Assets/Hero.prefab")
	if err != nil {
		t.Fatalf("AllDependencies: %v", err)
	}
	want = []string{"tex", "shader", "font"}
	if got := guids(deps); !equal(got, want) {
		t.Errorf("AllDependencies(hero) = %v, want %v", got, want)
	}

	if _, err := m.AllDependencies("Assets/Missing.prefab"); !errors.Is(err, ErrManifestIntegrity) {
		t.Errorf("AllDependencies(missing) error = %v, want ErrManifestIntegrity", err)
	}
}

func TestManifest_LocationToLower(t *testing.T) {
	assets := []*Asset{{Path: "Assets/UI/Login.prefab", BundleID: "ui"}}

	folded, err := NewManifest("main", "v1", true, testBundles(), assets)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	b, err := folded.MainBundle("ASSETS/ui/login.PREFAB")
	if err != nil {
		t.Fatalf("MainBundle with folding: %v", err)
	}
	if b.GUID != "ui" {
		t.Errorf("MainBundle().GUID = %q, want %q", b.GUID, "ui")
	}
	if got := folded.TryMappingToAssetPath("assets/ui/login.prefab"); got != "Assets/UI/Login.prefab" {
		t.Errorf("TryMappingToAssetPath() = %q", got)
	}

	exact, err := NewManifest("main", "v1", false, testBundles(), assets)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	if _, err := exact.MappingToAssetPath("assets/ui/login.prefab"); err == nil {
		t.Error("MappingToAssetPath should fail without case folding")
	}
}

func TestManifest_AssetsByTags(t *testing.T) {
	assets := []*Asset{
		{Path: "a", BundleID: "ui"},
		{Path: "b", BundleID: "hero", Tags: []string{"dlc"}},
		{Path: "c", BundleID: "hero", Tags: []string{"hd", "dlc"}},
	}
	m, err := NewManifest("main", "v1", false, testBundles(), assets)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	got := m.AssetsByTags([]string{"dlc"})
	if len(got) != 2 || got[0].Path != "b" || got[1].Path != "c" {
		t.Errorf("AssetsByTags(dlc) returned %d assets", len(got))
	}
}

func TestLoadMode_String(t *testing.T) {
	tests := []struct {
		mode LoadMode
		want string
	}{
		{LoadFromCache, "cache"},
		{LoadFromBuiltin, "builtin"},
		{LoadFromRemote, "remote"},
		{LoadMode(9), "unknown(9)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func guids(bundles []*Bundle) []string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.GUID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
