package resolve

import (
	"errors"
	"strings"
	"testing"

	"github.com/handiism/assetsync/internal/model"
)

type state struct {
	cached  map[string]bool
	builtin map[string]bool
}

func (s state) engine() Engine {
	return Engine{
		IsCached:  func(b *model.Bundle) bool { return s.cached[b.GUID] },
		IsBuiltin: func(fileName string) bool { return s.builtin[fileName] },
	}
}

func (s state) resolver() Resolver {
	return Resolver{
		MainHost:     "https://cdn.example.com/main/",
		FallbackHost: "https://mirror.example.com/main",
		IsCached:     func(b *model.Bundle) bool { return s.cached[b.GUID] },
		IsBuiltin:    func(fileName string) bool { return s.builtin[fileName] },
		BuiltinURL:   func(fileName string) string { return "file:///app/builtin/" + fileName },
	}
}

func dlcManifest(t *testing.T) *model.Manifest {
	t.Helper()
	bundles := []*model.Bundle{
		{GUID: "A", FileName: "a.bundle"},
		{GUID: "B", FileName: "b.bundle", Tags: []string{"dlc"}},
		{GUID: "C", FileName: "c.bundle", Tags: []string{"dlc"}},
	}
	m, err := model.NewManifest("main", "v1", false, bundles, nil)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	return m
}

func graphManifest(t *testing.T) *model.Manifest {
	t.Helper()
	bundles := []*model.Bundle{
		{GUID: "shader", FileName: "shader.bundle"},
		{GUID: "tex", FileName: "tex.bundle", DependIDs: []string{"shader"}},
		{GUID: "font", FileName: "font.bundle"},
		{GUID: "ui", FileName: "ui.bundle", DependIDs: []string{"font", "tex"}},
		{GUID: "hero", FileName: "hero.bundle", DependIDs: []string{"tex"}, Tags: []string{"hd"}},
		{GUID: "music", FileName: "music.bundle", Tags: []string{"audio"}},
	}
	assets := []*model.Asset{
		{Path: "Assets/UI/Login.prefab", BundleID: "ui"},
		{Path: "Assets/Hero.prefab", BundleID: "hero"},
		{Path: "Assets/Tex/Stone.png", BundleID: "tex"},
	}
	m, err := model.NewManifest("main", "v1", false, bundles, assets)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	return m
}

func ids(bundles []*model.Bundle) string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.GUID
	}
	return strings.Join(out, ",")
}

func TestEngine_DownloadListByTags(t *testing.T) {
	tests := []struct {
		name  string
		state state
		crit  Criterion
		want  string
	}{
		{name: "dlc tag", crit: ByTags("dlc"), want: "A,B,C"},
		{name: "empty tag set", crit: ByTags(), want: "A"},
		{name: "unknown tag", crit: ByTags("hd"), want: "A"},
		{name: "all", crit: All(), want: "A,B,C"},
		{
			name:  "cached excluded",
			state: state{cached: map[string]bool{"B": true}},
			crit:  ByTags("dlc"),
			want:  "A,C",
		},
		{
			name:  "builtin excluded",
			state: state{builtin: map[string]bool{"a.bundle": true}},
			crit:  All(),
			want:  "B,C",
		},
		{
			name:  "empty tag set excludes cached base",
			state: state{cached: map[string]bool{"A": true}},
			crit:  ByTags(),
			want:  "",
		},
	}

	m := dlcManifest(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.state.engine().DownloadList(m, tt.crit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("DownloadList(%s) = [%s], want [%s]", tt.crit, ids(got), tt.want)
			}
		})
	}
}

func TestEngine_DownloadListAllExcludesLocal(t *testing.T) {
	m := graphManifest(t)
	s := state{
		cached:  map[string]bool{"tex": true},
		builtin: map[string]bool{"font.bundle": true},
	}

	got, err := s.engine().DownloadList(m, All())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range got {
		if s.cached[b.GUID] || s.builtin[b.FileName] {
			t.Errorf("DownloadList(all) includes local bundle %s", b.GUID)
		}
	}
	if ids(got) != "shader,ui,hero,music" {
		t.Errorf("DownloadList(all) = [%s]", ids(got))
	}
}

func TestEngine_DownloadListByAssetPaths(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		state state
		want  string
	}{
		{
			name:  "single asset closure",
			paths: []string{"Assets/UI/Login.prefab"},
			want:  "shader,tex,font,ui",
		},
		{
			name:  "shared dependency appears once",
			paths: []string{"Assets/Tex/Stone.png", "Assets/Hero.prefab"},
			want:  "shader,tex,hero",
		},
		{
			name:  "duplicate paths",
			paths: []string{"Assets/Hero.prefab", "Assets/Hero.prefab"},
			want:  "shader,tex,hero",
		},
		{
			name:  "cached dependency excluded",
			paths: []string{"Assets/UI/Login.prefab"},
			state: state{cached: map[string]bool{"shader": true}},
			want:  "tex,font,ui",
		},
	}

	m := graphManifest(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.state.engine().DownloadList(m, ByAssetPaths(tt.paths...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("DownloadList = [%s], want [%s]", ids(got), tt.want)
			}
		})
	}
}

func TestEngine_ClosureIsSuperset(t *testing.T) {
	m := graphManifest(t)
	e := state{}.engine()

	full, err := e.DownloadList(m, ByAssetPaths("Assets/UI/Login.prefab", "Assets/Hero.prefab"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, err := e.DownloadList(m, ByAssetPaths("Assets/Tex/Stone.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inFull := make(map[string]bool)
	for _, b := range full {
		inFull[b.GUID] = true
	}
	for _, b := range sub {
		if !inFull[b.GUID] {
			t.Errorf("bundle %s of a dependency subset missing from the full closure", b.GUID)
		}
	}
}

func TestEngine_InvalidAssetPath(t *testing.T) {
	m := graphManifest(t)

	got, err := state{}.engine().DownloadList(m, ByAssetPaths("Assets/Missing.prefab", "Assets/Hero.prefab", "Assets/Gone.png"))
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("error = %v, want ErrInvalidSelection", err)
	}
	if !errors.Is(err, model.ErrManifestIntegrity) {
		t.Errorf("error = %v should also carry the integrity cause", err)
	}
	for _, p := range []string{"Assets/Missing.prefab", "Assets/Gone.png"} {
		if !strings.Contains(err.Error(), p) {
			t.Errorf("error %q does not name %s", err, p)
		}
	}
	if ids(got) != "shader,tex,hero" {
		t.Errorf("valid paths not resolved: [%s]", ids(got))
	}
}

func TestEngine_UnpackList(t *testing.T) {
	m := graphManifest(t)
	s := state{
		cached:  map[string]bool{"music": true},
		builtin: map[string]bool{"shader.bundle": true, "hero.bundle": true, "music.bundle": true},
	}

	tests := []struct {
		name    string
		crit    Criterion
		want    string
		wantErr bool
	}{
		{name: "all builtin not cached", crit: All(), want: "shader,hero"},
		{name: "tag match only", crit: ByTags("hd"), want: "hero"},
		{name: "cached tag excluded", crit: ByTags("audio"), want: ""},
		{name: "paths rejected", crit: ByAssetPaths("Assets/Hero.prefab"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.engine().UnpackList(m, tt.crit)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSelection) {
					t.Errorf("error = %v, want ErrInvalidSelection", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("UnpackList(%s) = [%s], want [%s]", tt.crit, ids(got), tt.want)
			}
		})
	}
}

func TestResolver_Priority(t *testing.T) {
	b := &model.Bundle{GUID: "A", FileName: "a.bundle"}

	tests := []struct {
		name         string
		state        state
		wantMode     model.LoadMode
		wantMain     string
		wantFallback string
	}{
		{
			name:     "cached wins over builtin",
			state:    state{cached: map[string]bool{"A": true}, builtin: map[string]bool{"a.bundle": true}},
			wantMode: model.LoadFromCache,
		},
		{
			name:         "builtin uses streaming path twice",
			state:        state{builtin: map[string]bool{"a.bundle": true}},
			wantMode:     model.LoadFromBuiltin,
			wantMain:     "file:///app/builtin/a.bundle",
			wantFallback: "file:///app/builtin/a.bundle",
		},
		{
			name:         "remote",
			wantMode:     model.LoadFromRemote,
			wantMain:     "https://cdn.example.com/main/a.bundle",
			wantFallback: "https://mirror.example.com/main/a.bundle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.state.resolver().Resolve(b)
			if info.Mode != tt.wantMode {
				t.Errorf("Mode = %s, want %s", info.Mode, tt.wantMode)
			}
			if info.MainURL != tt.wantMain || info.FallbackURL != tt.wantFallback {
				t.Errorf("URLs = (%q, %q), want (%q, %q)", info.MainURL, info.FallbackURL, tt.wantMain, tt.wantFallback)
			}
			if info.Bundle != b {
				t.Error("info does not reference the bundle")
			}
		})
	}
}

func TestResolver_NilBundlePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Resolve(nil) did not panic")
		}
	}()
	state{}.resolver().Resolve(nil)
}
