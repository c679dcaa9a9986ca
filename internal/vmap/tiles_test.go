package vmap

import (
	"testing"

	"github.com/Faultbox/midgard-vmap/pkg/archive"
)

func TestTileKeyStreamPath(t *testing.T) {
	m := MapEntry{ID: 1, Name: "Prontera"}
	tests := []struct {
		key  TileKey
		want string
	}{
		{TileKey{MapID: 1, MapName: "Prontera", X: 3, Y: 41}, "world/maps/prontera/prontera_3_41.plc"},
		{WorldSpawnKey(m), "world/maps/prontera/prontera.plc"},
	}
	for _, tt := range tests {
		if got := tt.key.StreamPath(); got != tt.want {
			t.Errorf("%s.StreamPath() = %q, want %q", tt.key, got, tt.want)
		}
		back, ok := ParseStreamPath(m, tt.want)
		if !ok || back != tt.key {
			t.Errorf("ParseStreamPath(%q) = %v, %v", tt.want, back, ok)
		}
	}
	if got := (TileKey{MapID: 1, X: 3, Y: 41}).DirectoryFileName(); got != "001_03_41.vdir" {
		t.Errorf("DirectoryFileName() = %q", got)
	}
}

func TestParseStreamPathRejects(t *testing.T) {
	m := MapEntry{ID: 1, Name: "prontera"}
	for _, p := range []string{
		"world/maps/prontera/prontera_64_0.plc",
		"world/maps/prontera/prontera_1.plc",
		"world/maps/prontera/prontera_a_b.plc",
		"world/maps/prontera/prontera_1_2.rsw",
		"world/maps/geffen/geffen_1_2.plc",
		"world/maps/prontera/other_1_2.plc",
	} {
		if k, ok := ParseStreamPath(m, p); ok {
			t.Errorf("ParseStreamPath(%q) = %v, want rejection", p, k)
		}
	}
}

func TestDiscoverTiles(t *testing.T) {
	src := archive.Memory{}
	for _, p := range []string{
		"world/maps/prontera/prontera_2_1.plc",
		"world/maps/prontera/prontera_1_1.plc",
		"world/maps/prontera/prontera_0_2.plc",
		"world/maps/prontera/prontera.plc",
		"world/maps/geffen/geffen_5_5.plc",
		"world/maps/payon/payon_1_1.plc",
		"world/models/tree.m2",
	} {
		src.Put(p, nil)
	}

	maps := []MapEntry{{ID: 2, Name: "geffen"}, {ID: 1, Name: "prontera"}}
	got := DiscoverTiles(src, maps)
	want := []TileKey{
		{MapID: 1, MapName: "prontera", X: 1, Y: 1},
		{MapID: 1, MapName: "prontera", X: 2, Y: 1},
		{MapID: 1, MapName: "prontera", X: 0, Y: 2},
		{MapID: 1, MapName: "prontera", X: 65, Y: 65},
		{MapID: 2, MapName: "geffen", X: 5, Y: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("DiscoverTiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tile %d = %v, want %v", i, got[i], want[i])
		}
	}
}
