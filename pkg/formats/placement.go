package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-vmap/pkg/encoding"
	"github.com/Faultbox/midgard-vmap/pkg/math"
)

// Placement stream errors.
var (
	ErrInvalidPlacementMagic       = errors.New("invalid placement magic: expected 'TPLC'")
	ErrUnsupportedPlacementVersion = errors.New("unsupported placement version")
	ErrTruncatedPlacementData      = errors.New("truncated placement data")
	ErrPlacementNameIndex          = errors.New("placement name index out of range")
	ErrPlacementCountMismatch      = errors.New("placement count does not match stream length")
)

// Placement stream layout constants.
const (
	PlacementMagic      = "TPLC"
	PlacementVersion    = 1
	PlacementRecordSize = 36

	// ScaleUnit is the fixed-point denominator of PlacementRecord.Scale.
	ScaleUnit = 1024
)

// PlacementRecord is one model occurrence as stored in a tile stream.
// Position is in client axis order; Rotation holds Euler angles in degrees.
type PlacementRecord struct {
	NameIndex uint32
	UniqueID  uint32
	Position  [3]float32
	Rotation  [3]float32
	Scale     uint16
	Flags     uint16
}

// ScaleFactor decodes the fixed-point scale.
func (r PlacementRecord) ScaleFactor() float32 {
	return float32(r.Scale) / ScaleUnit
}

// ClientPosition returns Position as a vector.
func (r PlacementRecord) ClientPosition() math.Vec3 {
	return math.FromArray(r.Position)
}

// PlacementReader walks a tile stream one record at a time.
//
// The stream is: magic, version u32, name count u32, that many
// null-terminated EUC-KR model paths, instance count u32, then instance
// count records of PlacementRecordSize bytes.
type PlacementReader struct {
	r       *bytes.Reader
	version uint32
	names   []string
	count   uint32
	read    uint32
}

// NewPlacementReader parses the stream header and the model name table.
func NewPlacementReader(data []byte) (*PlacementReader, error) {
	if len(data) < 8 {
		return nil, ErrTruncatedPlacementData
	}
	if string(data[0:4]) != PlacementMagic {
		return nil, ErrInvalidPlacementMagic
	}

	pr := &PlacementReader{r: bytes.NewReader(data[4:])}
	if err := binary.Read(pr.r, binary.LittleEndian, &pr.version); err != nil {
		return nil, fmt.Errorf("%w: reading version", ErrTruncatedPlacementData)
	}
	if pr.version != PlacementVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPlacementVersion, pr.version)
	}

	var nameCount uint32
	if err := binary.Read(pr.r, binary.LittleEndian, &nameCount); err != nil {
		return nil, fmt.Errorf("%w: reading name count", ErrTruncatedPlacementData)
	}
	// Every name takes at least its terminator.
	if int64(nameCount) > int64(pr.r.Len()) {
		return nil, fmt.Errorf("%w: %d names declared, %d bytes left", ErrTruncatedPlacementData, nameCount, pr.r.Len())
	}
	pr.names = make([]string, 0, nameCount)
	for i := uint32(0); i < nameCount; i++ {
		name, err := readCString(pr.r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading name %d", ErrTruncatedPlacementData, i)
		}
		pr.names = append(pr.names, name)
	}

	if err := binary.Read(pr.r, binary.LittleEndian, &pr.count); err != nil {
		return nil, fmt.Errorf("%w: reading instance count", ErrTruncatedPlacementData)
	}
	return pr, nil
}

// Names returns the decoded model name table.
func (pr *PlacementReader) Names() []string {
	return pr.names
}

// Count returns the declared number of instances.
func (pr *PlacementReader) Count() uint32 {
	return pr.count
}

// Remaining returns how many declared records have not been read yet.
func (pr *PlacementReader) Remaining() uint32 {
	return pr.count - pr.read
}

// Next reads the next record. It returns ErrTruncatedPlacementData when the
// stream ends before the declared count is reached.
func (pr *PlacementReader) Next() (PlacementRecord, error) {
	var rec PlacementRecord
	if pr.read >= pr.count {
		return rec, fmt.Errorf("%w: all %d records already read", ErrTruncatedPlacementData, pr.count)
	}
	if err := binary.Read(pr.r, binary.LittleEndian, &rec); err != nil {
		return rec, fmt.Errorf("%w: record %d of %d", ErrTruncatedPlacementData, pr.read, pr.count)
	}
	pr.read++
	return rec, nil
}

// Finish checks that the declared count covered the whole stream. It fails
// with ErrPlacementCountMismatch when records remain unread or bytes follow
// the last declared record.
func (pr *PlacementReader) Finish() error {
	if pr.read != pr.count {
		return fmt.Errorf("%w: read %d of %d records", ErrPlacementCountMismatch, pr.read, pr.count)
	}
	if n := pr.r.Len(); n > 0 {
		return fmt.Errorf("%w: %d bytes after %d records", ErrPlacementCountMismatch, n, pr.count)
	}
	return nil
}

// ModelName resolves the record's name index against the name table.
// Legacy .mdx and .mdl references resolve to the .m2 file that replaced them.
func (pr *PlacementReader) ModelName(rec PlacementRecord) (string, error) {
	if int(rec.NameIndex) >= len(pr.names) {
		return "", fmt.Errorf("%w: %d of %d", ErrPlacementNameIndex, rec.NameIndex, len(pr.names))
	}
	return FixModelExtension(pr.names[rec.NameIndex]), nil
}

// FixModelExtension rewrites legacy model extensions to .m2.
func FixModelExtension(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".mdx") || strings.HasSuffix(lower, ".mdl") {
		return name[:len(name)-4] + ".m2"
	}
	return name
}

// PlacementStream is a fully decoded tile stream.
type PlacementStream struct {
	Names   []string
	Records []PlacementRecord
}

// ParsePlacements decodes a whole tile stream.
func ParsePlacements(data []byte) (*PlacementStream, error) {
	pr, err := NewPlacementReader(data)
	if err != nil {
		return nil, err
	}
	s := &PlacementStream{Names: pr.Names(), Records: make([]PlacementRecord, 0, min(pr.Count(), 4096))}
	for pr.Remaining() > 0 {
		rec, err := pr.Next()
		if err != nil {
			return nil, err
		}
		s.Records = append(s.Records, rec)
	}
	if err := pr.Finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// MarshalBinary encodes the stream. Names are written as EUC-KR.
func (s *PlacementStream) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(PlacementMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(PlacementVersion))
	binary.Write(&buf, binary.LittleEndian, uint32(len(s.Names)))
	for _, name := range s.Names {
		buf.Write(encoding.UTF8ToEUCKR(name))
		buf.WriteByte(0)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(s.Records)))
	if err := binary.Write(&buf, binary.LittleEndian, s.Records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readCString reads bytes up to and including a null terminator.
func readCString(r *bytes.Reader) (string, error) {
	var raw []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return encoding.CString(raw), nil
		}
		raw = append(raw, b)
	}
}
