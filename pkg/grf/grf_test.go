package grf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Faultbox/midgard-vmap/pkg/encoding"
)

// testGRFPath returns path to a client GRF file if one is checked out.
func testGRFPath() string {
	paths := []string{
		"../../data/rdata.grf",
		"../../data/data.grf",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func writeTestGRF(t *testing.T, files []File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := Create(path, files); err != nil {
		t.Fatalf("failed to create GRF: %v", err)
	}
	return path
}

var testFiles = []File{
	{Name: "data/test.txt", Content: []byte("Hello, GRF!")},
	{Name: "World/Generic/Tree01.m2", Content: bytes.Repeat([]byte("MD20"), 64)},
	{Name: "world/maps/azeroth/azeroth_32_48.plc", Content: []byte("TPLC"), Store: true},
	{Name: "data/subfolder/nested/file.txt", Content: []byte("Nested file content")},
}

func TestCreateAndOpen(t *testing.T) {
	path := writeTestGRF(t, testFiles)

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	if archive.header.Version != grfVersion {
		t.Errorf("Version = 0x%x, want 0x%x", archive.header.Version, grfVersion)
	}

	files := archive.List()
	sort.Strings(files)
	want := []string{
		"data/subfolder/nested/file.txt",
		"data/test.txt",
		"world/generic/tree01.m2",
		"world/maps/azeroth/azeroth_32_48.plc",
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("List() = %v, want %v", files, want)
	}
}

func TestRead(t *testing.T) {
	archive, err := Open(writeTestGRF(t, testFiles))
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	for _, f := range testFiles {
		t.Run(f.Name, func(t *testing.T) {
			data, err := archive.Read(f.Name)
			if err != nil {
				t.Fatalf("Read(%s) failed: %v", f.Name, err)
			}
			if !bytes.Equal(data, f.Content) {
				t.Errorf("Read(%s) = %q, want %q", f.Name, data, f.Content)
			}
		})
	}
}

func TestContainsCaseInsensitive(t *testing.T) {
	archive, err := Open(writeTestGRF(t, testFiles))
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	if !archive.Contains(`WORLD\GENERIC\TREE01.M2`) {
		t.Error("Contains should match regardless of case and separators")
	}
	if archive.Contains("nonexistent/file/path.txt") {
		t.Error("Contains returned true for non-existent file")
	}

}

func TestReadMissing(t *testing.T) {
	archive, err := Open(writeTestGRF(t, testFiles))
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	_, err = archive.Read("missing.m2")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReadConcurrent(t *testing.T) {
	archive, err := Open(writeTestGRF(t, testFiles))
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := testFiles[i%len(testFiles)]
			data, err := archive.Read(f.Name)
			if err != nil {
				t.Errorf("Read(%s) failed: %v", f.Name, err)
				return
			}
			if !bytes.Equal(data, f.Content) {
				t.Errorf("Read(%s) returned wrong content", f.Name)
			}
		}(i)
	}
	wg.Wait()
}

func TestOpenInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.grf")
	if err := os.WriteFile(path, make([]byte, 64), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Open(bad) error = %v, want ErrInvalidMagic", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.grf")); err == nil {
		t.Error("expected error opening missing file")
	}
}

func TestOpenClientArchive(t *testing.T) {
	path := testGRFPath()
	if path == "" {
		t.Skip("No GRF file available for testing")
	}

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	t.Logf("Opened: %s", path)
	t.Logf("File count: %d", len(archive.fileList))
}

func TestKoreanNames(t *testing.T) {
	const name = "World/Models/나무.m2"
	content := []byte("korean tree")

	archive, err := Open(writeTestGRF(t, []File{{Name: name, Content: content}}))
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	defer archive.Close()

	if files := archive.List(); len(files) != 1 || files[0] != "world/models/나무.m2" {
		t.Errorf("List() = %q, want decoded UTF-8 name", files)
	}
	if !archive.Contains(`WORLD\MODELS\나무.M2`) {
		t.Error("Contains should match the decoded name")
	}
	data, err := archive.Read("world/models/나무.m2")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("Read() = %q, want %q", data, content)
	}
}

func TestCreateStoresEUCKRNames(t *testing.T) {
	path := writeTestGRF(t, []File{{Name: "나무.m2", Content: []byte("x"), Store: true}})
	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open GRF: %v", err)
	}
	tableOffset := int64(archive.header.TableOffset) + headerSize
	archive.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// The uncompressed table size follows the compressed one.
	got := binary.LittleEndian.Uint32(raw[tableOffset+4:])

	// Two bytes per syllable in EUC-KR, three in UTF-8.
	name := encoding.UTF8ToEUCKR("나무.m2")
	if len(name) != 7 {
		t.Fatalf("EUC-KR name length = %d, want 7", len(name))
	}
	if want := uint32(len(name) + 1 + entryDataSize); got != want {
		t.Errorf("table size = %d, want %d", got, want)
	}
}
