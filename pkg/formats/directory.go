package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// Directory file errors.
var (
	ErrInvalidDirectoryMagic       = errors.New("invalid directory magic: expected 'VDIR'")
	ErrUnsupportedDirectoryVersion = errors.New("unsupported directory version")
	ErrTruncatedDirectoryData      = errors.New("truncated directory data")
)

// Directory file layout constants.
const (
	DirectoryMagic   = "VDIR"
	DirectoryVersion = 1
	DirectoryExt     = ".vdir"

	// WorldSpawnTile is the tile coordinate used for map-wide placements.
	WorldSpawnTile = 65

	maxNameLength = 1024
)

// PlacementFlags describe a directory record.
type PlacementFlags uint32

const (
	FlagM2         PlacementFlags = 1 << 0 // Placement references model geometry
	FlagWorldSpawn PlacementFlags = 1 << 1 // Map-wide placement, not bound to a tile
	FlagHasBound   PlacementFlags = 1 << 2 // Bound holds the world-space box
)

// String lists the set flags.
func (f PlacementFlags) String() string {
	var parts []string
	if f&FlagM2 != 0 {
		parts = append(parts, "M2")
	}
	if f&FlagWorldSpawn != 0 {
		parts = append(parts, "WorldSpawn")
	}
	if f&FlagHasBound != 0 {
		parts = append(parts, "HasBound")
	}
	if rest := f &^ (FlagM2 | FlagWorldSpawn | FlagHasBound); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// DirectoryRecord is one placement in a tile directory.
type DirectoryRecord struct {
	Flags    PlacementFlags
	ModelRef uint32
	Scale    uint16 // fixed point, ScaleUnit = 1.0
	Position math.Vec3
	Rotation math.Vec3
	Bound    math.AABB
	Name     string // geometry file name
}

// ScaleFactor decodes the fixed-point scale.
func (r DirectoryRecord) ScaleFactor() float32 {
	return float32(r.Scale) / ScaleUnit
}

// recordFixed is the fixed-size part of a record on disk.
type recordFixed struct {
	Flags    PlacementFlags
	ModelRef uint32
	Scale    uint16
	Position math.Vec3
	Rotation math.Vec3
	BoundMin math.Vec3
	BoundMax math.Vec3
	NameLen  uint32
}

type directoryHeader struct {
	Magic       [4]byte
	Version     uint32
	MapID       uint32
	TileX       uint32
	TileY       uint32
	RecordCount uint32
}

// Directory lists every placement of one tile in stream order.
type Directory struct {
	MapID   uint32
	TileX   uint32
	TileY   uint32
	Records []DirectoryRecord
}

// FileName returns the conventional directory file name for the tile.
func (d *Directory) FileName() string {
	return DirectoryFileName(d.MapID, d.TileX, d.TileY)
}

// DirectoryFileName formats the directory file name for a tile.
func DirectoryFileName(mapID, x, y uint32) string {
	return fmt.Sprintf("%03d_%02d_%02d%s", mapID, x, y, DirectoryExt)
}

// MarshalBinary encodes the directory.
func (d *Directory) MarshalBinary() ([]byte, error) {
	h := directoryHeader{
		Version:     DirectoryVersion,
		MapID:       d.MapID,
		TileX:       d.TileX,
		TileY:       d.TileY,
		RecordCount: uint32(len(d.Records)),
	}
	copy(h.Magic[:], DirectoryMagic)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &h)
	for i, rec := range d.Records {
		if len(rec.Name) > maxNameLength {
			return nil, fmt.Errorf("record %d: name too long (%d bytes)", i, len(rec.Name))
		}
		fixed := recordFixed{
			Flags:    rec.Flags,
			ModelRef: rec.ModelRef,
			Scale:    rec.Scale,
			Position: rec.Position,
			Rotation: rec.Rotation,
			BoundMin: rec.Bound.Min,
			BoundMax: rec.Bound.Max,
			NameLen:  uint32(len(rec.Name)),
		}
		if err := binary.Write(&buf, binary.LittleEndian, &fixed); err != nil {
			return nil, err
		}
		buf.WriteString(rec.Name)
	}
	return buf.Bytes(), nil
}

// ReadDirectory decodes a directory file.
func ReadDirectory(data []byte) (*Directory, error) {
	r := bytes.NewReader(data)

	var h directoryHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedDirectoryData)
	}
	if string(h.Magic[:]) != DirectoryMagic {
		return nil, ErrInvalidDirectoryMagic
	}
	if h.Version != DirectoryVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDirectoryVersion, h.Version)
	}

	d := &Directory{MapID: h.MapID, TileX: h.TileX, TileY: h.TileY}
	d.Records = make([]DirectoryRecord, 0, min(h.RecordCount, 4096))
	for i := uint32(0); i < h.RecordCount; i++ {
		var fixed recordFixed
		if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
			return nil, fmt.Errorf("%w: record %d", ErrTruncatedDirectoryData, i)
		}
		if fixed.NameLen > maxNameLength || int(fixed.NameLen) > r.Len() {
			return nil, fmt.Errorf("%w: record %d name length %d", ErrTruncatedDirectoryData, i, fixed.NameLen)
		}
		name := make([]byte, fixed.NameLen)
		if _, err := r.Read(name); err != nil && fixed.NameLen > 0 {
			return nil, fmt.Errorf("%w: record %d name", ErrTruncatedDirectoryData, i)
		}
		d.Records = append(d.Records, DirectoryRecord{
			Flags:    fixed.Flags,
			ModelRef: fixed.ModelRef,
			Scale:    fixed.Scale,
			Position: fixed.Position,
			Rotation: fixed.Rotation,
			Bound:    math.AABB{Min: fixed.BoundMin, Max: fixed.BoundMax},
			Name:     string(name),
		})
	}
	return d, nil
}

// ReadDirectoryFile decodes a directory file from disk.
func ReadDirectoryFile(path string) (*Directory, error) {
	data, err := readFile(path, "directory")
	if err != nil {
		return nil, err
	}
	return ReadDirectory(data)
}
