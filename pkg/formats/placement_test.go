package formats

import (
	"errors"
	"testing"
)

func makePlacementStream(n int) *PlacementStream {
	s := &PlacementStream{
		Names: []string{`World\Generic\Tree01.mdx`, "world/generic/rock.m2", "월드/나무.m2"},
	}
	for i := 0; i < n; i++ {
		f := float32(i)
		s.Records = append(s.Records, PlacementRecord{
			NameIndex: uint32(i % 3),
			UniqueID:  uint32(1000 + i),
			Position:  [3]float32{f, f * 2, f * 3},
			Rotation:  [3]float32{0, f * 10, 0},
			Scale:     uint16(1024 + i),
			Flags:     uint16(i),
		})
	}
	return s
}

func TestParsePlacements_RoundTrip(t *testing.T) {
	want := makePlacementStream(7)
	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	got, err := ParsePlacements(data)
	if err != nil {
		t.Fatalf("ParsePlacements failed: %v", err)
	}

	if len(got.Names) != 3 {
		t.Fatalf("name count = %d, want 3", len(got.Names))
	}
	if got.Names[2] != "월드/나무.m2" {
		t.Errorf("Names[2] = %q, want EUC-KR decoded name", got.Names[2])
	}
	if len(got.Records) != 7 {
		t.Fatalf("record count = %d, want 7", len(got.Records))
	}
	for i := range want.Records {
		if got.Records[i] != want.Records[i] {
			t.Errorf("Records[%d] = %+v, want %+v", i, got.Records[i], want.Records[i])
		}
	}
}

func TestPlacementReader_Truncated(t *testing.T) {
	s := makePlacementStream(5)
	data, _ := s.MarshalBinary()
	// Keep only 3 of the 5 declared records.
	data = data[:len(data)-2*PlacementRecordSize]

	pr, err := NewPlacementReader(data)
	if err != nil {
		t.Fatalf("NewPlacementReader failed: %v", err)
	}
	if pr.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", pr.Count())
	}

	read := 0
	for pr.Remaining() > 0 {
		if _, err = pr.Next(); err != nil {
			break
		}
		read++
	}
	if read != 3 {
		t.Errorf("read %d records before failure, want 3", read)
	}
	if !errors.Is(err, ErrTruncatedPlacementData) {
		t.Errorf("error = %v, want ErrTruncatedPlacementData", err)
	}

	if _, err := ParsePlacements(data); !errors.Is(err, ErrTruncatedPlacementData) {
		t.Errorf("ParsePlacements error = %v, want ErrTruncatedPlacementData", err)
	}
}

func TestPlacementReader_Header(t *testing.T) {
	valid, _ := makePlacementStream(1).MarshalBinary()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedPlacementData},
		{"bad magic", append([]byte("XXXX"), valid[4:]...), ErrInvalidPlacementMagic},
		{"bad version", append([]byte("TPLC\x02\x00\x00\x00"), valid[8:]...), ErrUnsupportedPlacementVersion},
		{"names cut", valid[:14], ErrTruncatedPlacementData},
		{"huge name count", []byte("TPLC\x01\x00\x00\x00\xff\xff\xff\xff"), ErrTruncatedPlacementData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlacementReader(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlacementReader_ModelName(t *testing.T) {
	data, _ := makePlacementStream(3).MarshalBinary()
	pr, err := NewPlacementReader(data)
	if err != nil {
		t.Fatalf("NewPlacementReader failed: %v", err)
	}

	rec, _ := pr.Next()
	name, err := pr.ModelName(rec)
	if err != nil {
		t.Fatalf("ModelName failed: %v", err)
	}
	if name != `World\Generic\Tree01.m2` {
		t.Errorf("ModelName = %q, want legacy extension rewritten", name)
	}

	_, err = pr.ModelName(PlacementRecord{NameIndex: 3})
	if !errors.Is(err, ErrPlacementNameIndex) {
		t.Errorf("error = %v, want ErrPlacementNameIndex", err)
	}
}

func TestFixModelExtension(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tree.mdx", "tree.m2"},
		{"TREE.MDL", "TREE.m2"},
		{"tree.m2", "tree.m2"},
		{"tree", "tree"},
	}
	for _, tt := range tests {
		if got := FixModelExtension(tt.in); got != tt.want {
			t.Errorf("FixModelExtension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlacementRecord_ScaleFactor(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float32
	}{
		{1024, 1.0},
		{512, 0.5},
		{2048, 2.0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := (PlacementRecord{Scale: tt.raw}).ScaleFactor(); got != tt.want {
			t.Errorf("ScaleFactor(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestPlacementReader_Finish(t *testing.T) {
	data, err := makePlacementStream(2).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		read    int
		wantErr error
	}{
		{"exact", data, 2, nil},
		{"unread records", data, 1, ErrPlacementCountMismatch},
		{"trailing record", append(append([]byte{}, data...), make([]byte, PlacementRecordSize)...), 2, ErrPlacementCountMismatch},
		{"trailing byte", append(append([]byte{}, data...), 0), 2, ErrPlacementCountMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, err := NewPlacementReader(tt.data)
			if err != nil {
				t.Fatalf("NewPlacementReader failed: %v", err)
			}
			for i := 0; i < tt.read; i++ {
				if _, err := pr.Next(); err != nil {
					t.Fatalf("Next failed: %v", err)
				}
			}
			if err := pr.Finish(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Finish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := ParsePlacements(tests[2].data); !errors.Is(err, ErrPlacementCountMismatch) {
		t.Errorf("ParsePlacements(trailing) error = %v, want ErrPlacementCountMismatch", err)
	}
}
