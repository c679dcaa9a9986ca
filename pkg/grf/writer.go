package grf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"

	"github.com/Faultbox/midgard-vmap/pkg/encoding"
)

// File is one entry to be packed by Create.
type File struct {
	Name    string
	Content []byte
	// Store writes the content uncompressed.
	Store bool
}

// Create writes a version 0x200 GRF archive containing files.
// Names are stored EUC-KR encoded with backslashes like client archives.
func Create(path string, files []File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var body bytes.Buffer
	var table bytes.Buffer
	offset := uint32(0)

	for _, f := range files {
		data := f.Content
		if !f.Store {
			var compressed bytes.Buffer
			w := zlib.NewWriter(&compressed)
			if _, err := w.Write(f.Content); err != nil {
				return fmt.Errorf("compressing %s: %w", f.Name, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("compressing %s: %w", f.Name, err)
			}
			data = compressed.Bytes()
		}

		// Align to 8 bytes
		aligned := uint32(len(data))
		if aligned%8 != 0 {
			aligned += 8 - aligned%8
		}

		body.Write(data)
		body.Write(make([]byte, aligned-uint32(len(data))))

		name := bytes.ReplaceAll(encoding.UTF8ToEUCKR(f.Name), []byte("/"), []byte("\\"))
		table.Write(name)
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, uint32(len(data)))
		binary.Write(&table, binary.LittleEndian, aligned)
		binary.Write(&table, binary.LittleEndian, uint32(len(f.Content)))
		table.WriteByte(FlagFile)
		binary.Write(&table, binary.LittleEndian, offset)

		offset += aligned
	}

	var compressedTable bytes.Buffer
	tw := zlib.NewWriter(&compressedTable)
	if _, err := tw.Write(table.Bytes()); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}

	header := Header{
		TableOffset: offset,
		// FileCount in GRF is: actualCount + seed + 7 (seed is 0)
		FileCount: uint32(len(files)) + 7,
		Version:   grfVersion,
	}
	copy(header.Magic[:], grfMagic)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, &header)
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(compressedTable.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(compressedTable.Bytes())

	return os.WriteFile(path, out.Bytes(), 0644)
}
