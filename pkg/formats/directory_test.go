package formats

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-vmap/pkg/math"
)

func TestDirectory_RoundTripPreservesOrder(t *testing.T) {
	want := &Directory{MapID: 1, TileX: 32, TileY: 48}
	for i := 0; i < 10; i++ {
		f := float32(i)
		want.Records = append(want.Records, DirectoryRecord{
			Flags:    FlagM2 | FlagHasBound,
			ModelRef: uint32(9000 - i),
			Scale:    uint16(1024 + 17*i),
			Position: math.Vec3{X: f + 0.25, Y: -f, Z: f * 100},
			Rotation: math.Vec3{X: 0, Y: f * 36, Z: 1},
			Bound:    math.AABB{Min: math.Vec3{X: -f}, Max: math.Vec3{X: f}},
			Name:     "world_generic_tree" + string(rune('a'+i)) + GeometryExt,
		})
	}

	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	got, err := ReadDirectory(data)
	if err != nil {
		t.Fatalf("ReadDirectory failed: %v", err)
	}

	if got.MapID != 1 || got.TileX != 32 || got.TileY != 48 {
		t.Errorf("tile = %d/%d/%d, want 1/32/48", got.MapID, got.TileX, got.TileY)
	}
	if len(got.Records) != len(want.Records) {
		t.Fatalf("record count = %d, want %d", len(got.Records), len(want.Records))
	}
	for i := range want.Records {
		if got.Records[i] != want.Records[i] {
			t.Errorf("Records[%d] = %+v, want %+v", i, got.Records[i], want.Records[i])
		}
	}
}

func TestReadDirectory_Errors(t *testing.T) {
	d := &Directory{Records: []DirectoryRecord{{Flags: FlagM2, Name: "rock.vmo"}}}
	valid, _ := d.MarshalBinary()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedDirectoryData},
		{"bad magic", append([]byte("XXXX"), valid[4:]...), ErrInvalidDirectoryMagic},
		{"truncated record", valid[:len(valid)-10], ErrTruncatedDirectoryData},
		{"truncated name", valid[:len(valid)-1], ErrTruncatedDirectoryData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDirectory(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlacementFlags_String(t *testing.T) {
	tests := []struct {
		flags PlacementFlags
		want  string
	}{
		{0, "None"},
		{FlagM2, "M2"},
		{FlagM2 | FlagWorldSpawn, "M2|WorldSpawn"},
		{FlagM2 | FlagHasBound | 0x10, "M2|HasBound|0x10"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDirectoryFileName(t *testing.T) {
	if got := DirectoryFileName(1, 32, 5); got != "001_32_05.vdir" {
		t.Errorf("DirectoryFileName = %q", got)
	}
}
