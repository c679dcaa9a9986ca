// Package grf provides reading and writing of GRF archives, the packed
// read-only containers that hold client model data.
package grf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/Faultbox/midgard-vmap/pkg/encoding"
)

const (
	grfMagic      = "Master of Magic"
	grfVersion    = 0x200
	headerSize    = 46
	entryDataSize = 17
)

// Entry flags.
const (
	FlagFile      = 0x01
	FlagEncrypted = 0x02
)

// GRF errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrNotFound           = errors.New("file not found in archive")
	ErrEncrypted          = errors.New("encrypted entries are not supported")
	ErrCorruptEntry       = errors.New("corrupt GRF entry")
)

// Archive represents an opened GRF archive. It is safe for concurrent use.
type Archive struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	header   Header
	fileList map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive := &Archive{
		file:     file,
		path:     path,
		fileList: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if err := archive.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table: %w", err)
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		return err
	}
	return nil
}

// Path returns the file system path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) readHeader() error {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := binary.Read(a.file, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}

	if a.header.Version != grfVersion {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}

	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize
	if _, err := a.file.Seek(tableOffset, io.SeekStart); err != nil {
		return err
	}

	var compressedSize, uncompressedSize uint32
	if err := binary.Read(a.file, binary.LittleEndian, &compressedSize); err != nil {
		return fmt.Errorf("reading table size: %w", err)
	}
	if err := binary.Read(a.file, binary.LittleEndian, &uncompressedSize); err != nil {
		return fmt.Errorf("reading table size: %w", err)
	}

	compressedData := make([]byte, compressedSize)
	if _, err := io.ReadFull(a.file, compressedData); err != nil {
		return fmt.Errorf("reading table: %w", err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return fmt.Errorf("decompressing table: %w", err)
	}
	defer reader.Close()

	tableData := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(reader, tableData); err != nil {
		return fmt.Errorf("decompressing table: %w", err)
	}

	fileCount := a.header.FileCount - a.header.Seed - 7
	offset := 0

	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(tableData[offset:], 0)
		if nameEnd < 0 {
			break
		}
		// Names are stored as EUC-KR; keys use the same UTF-8 form as every
		// other source.
		name := encoding.CString(tableData[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+entryDataSize > len(tableData) {
			break
		}

		entry := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(tableData[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(tableData[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(tableData[offset+8:]),
			Flags:            tableData[offset+12],
			Offset:           binary.LittleEndian.Uint32(tableData[offset+13:]),
		}
		offset += entryDataSize

		if entry.Flags&FlagFile != 0 {
			a.fileList[entry.Name] = entry
		}
	}

	return nil
}

// List returns all file paths in the archive.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for path := range a.fileList {
		result = append(result, path)
	}
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[normalizePath(path)]
	return ok
}

// Read reads a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.fileList[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if entry.Flags&FlagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}
	if entry.CompressedSize > entry.AlignedSize {
		return nil, fmt.Errorf("%w: %s: compressed size exceeds aligned size", ErrCorruptEntry, path)
	}

	compressedData, err := a.readAt(int64(entry.Offset)+headerSize, entry.AlignedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, path, err)
	}

	if entry.CompressedSize == entry.UncompressedSize {
		return compressedData[:entry.UncompressedSize], nil
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressedData[:entry.CompressedSize]))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, path, err)
	}
	defer reader.Close()

	result := make([]byte, entry.UncompressedSize)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, path, err)
	}
	return result, nil
}

// readAt serializes access to the shared file handle.
func (a *Archive) readAt(offset int64, size uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil, os.ErrClosed
	}
	buf := make([]byte, size)
	if _, err := a.file.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func normalizePath(path string) string {
	return encoding.NormalizeModelPath(path)
}
