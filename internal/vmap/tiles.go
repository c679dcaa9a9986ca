package vmap

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-vmap/pkg/archive"
	"github.com/Faultbox/midgard-vmap/pkg/encoding"
	"github.com/Faultbox/midgard-vmap/pkg/formats"
)

// TileGridSize is the number of tiles along each map axis.
const TileGridSize = 64

// MapEntry names one map to extract.
type MapEntry struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
}

// TileKey identifies one placement stream.
type TileKey struct {
	MapID   uint32
	MapName string
	X, Y    uint32
}

// WorldSpawnKey returns the map-wide key of m.
func WorldSpawnKey(m MapEntry) TileKey {
	return TileKey{MapID: m.ID, MapName: m.Name, X: formats.WorldSpawnTile, Y: formats.WorldSpawnTile}
}

// IsWorldSpawn reports whether k is the map-wide pseudo tile.
func (k TileKey) IsWorldSpawn() bool {
	return k.X == formats.WorldSpawnTile && k.Y == formats.WorldSpawnTile
}

// StreamPath returns the archive path of the tile's placement stream.
func (k TileKey) StreamPath() string {
	name := strings.ToLower(k.MapName)
	if k.IsWorldSpawn() {
		return path.Join("world/maps", name, name+".plc")
	}
	return path.Join("world/maps", name, fmt.Sprintf("%s_%d_%d.plc", name, k.X, k.Y))
}

// DirectoryFileName returns the output file name of the tile directory.
func (k TileKey) DirectoryFileName() string {
	return formats.DirectoryFileName(k.MapID, k.X, k.Y)
}

func (k TileKey) String() string {
	return fmt.Sprintf("%s(%d)[%d,%d]", k.MapName, k.MapID, k.X, k.Y)
}

// ParseStreamPath recognizes a placement stream path of map m.
func ParseStreamPath(m MapEntry, p string) (TileKey, bool) {
	name := strings.ToLower(m.Name)
	dir := path.Join("world/maps", name) + "/"
	p = encoding.NormalizeModelPath(p)
	if !strings.HasPrefix(p, dir) || path.Ext(p) != ".plc" {
		return TileKey{}, false
	}
	base := strings.TrimSuffix(strings.TrimPrefix(p, dir), ".plc")
	if base == name {
		return WorldSpawnKey(m), true
	}
	rest, ok := strings.CutPrefix(base, name+"_")
	if !ok {
		return TileKey{}, false
	}
	xs, ys, ok := strings.Cut(rest, "_")
	if !ok {
		return TileKey{}, false
	}
	x, errX := strconv.ParseUint(xs, 10, 32)
	y, errY := strconv.ParseUint(ys, 10, 32)
	if errX != nil || errY != nil || x >= TileGridSize || y >= TileGridSize {
		return TileKey{}, false
	}
	return TileKey{MapID: m.ID, MapName: m.Name, X: uint32(x), Y: uint32(y)}, true
}

// DiscoverTiles lists every placement stream of the given maps present in
// src. Keys are ordered by map, then y, then x, with the worldspawn stream
// of each map last.
func DiscoverTiles(src archive.Source, maps []MapEntry) []TileKey {
	var keys []TileKey
	files := src.List()
	for _, m := range maps {
		for _, f := range files {
			if k, ok := ParseStreamPath(m, f); ok {
				keys = append(keys, k)
			}
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.MapID != b.MapID {
			return a.MapID < b.MapID
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return keys
}
