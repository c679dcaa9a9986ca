package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-vmap/pkg/grf"
)

func TestDir(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "World", "Generic", "Tree.M2")
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("loose"), 0644); err != nil {
		t.Fatal(err)
	}

	dir, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}

	if !dir.Contains(`world\generic\tree.m2`) {
		t.Error("Contains should be case-insensitive")
	}
	data, err := dir.Read("WORLD/GENERIC/TREE.M2")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "loose" {
		t.Errorf("Read = %q, want %q", data, "loose")
	}

	_, err = dir.Read("missing.m2")
	if !IsNotFound(err) {
		t.Errorf("Read(missing) error = %v, want not found", err)
	}
}

func TestOpenPriority(t *testing.T) {
	tmp := t.TempDir()
	grfPath := filepath.Join(tmp, "data.grf")
	err := grf.Create(grfPath, []grf.File{
		{Name: "world/generic/tree.m2", Content: []byte("packed")},
		{Name: "world/generic/rock.m2", Content: []byte("rock")},
	})
	if err != nil {
		t.Fatalf("grf.Create failed: %v", err)
	}

	patch := filepath.Join(tmp, "patch")
	if err := os.MkdirAll(filepath.Join(patch, "world", "generic"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(patch, "world", "generic", "tree.m2"), []byte("patched"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Open([]string{grfPath}, []string{patch})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	tests := []struct {
		path string
		want string
	}{
		{"world/generic/tree.m2", "patched"},
		{"World/Generic/Rock.m2", "rock"},
	}
	for _, tt := range tests {
		data, err := m.Read(tt.path)
		if err != nil {
			t.Fatalf("Read(%s) failed: %v", tt.path, err)
		}
		if string(data) != tt.want {
			t.Errorf("Read(%s) = %q, want %q", tt.path, data, tt.want)
		}
	}

	if got := len(m.List()); got != 2 {
		t.Errorf("List() returned %d paths, want 2", got)
	}

	_, err = m.Read("nope.m2")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(nope) error = %v, want ErrNotFound", err)
	}
}

func TestOpenMissingArchive(t *testing.T) {
	_, err := Open([]string{filepath.Join(t.TempDir(), "missing.grf")}, nil)
	if err == nil {
		t.Error("expected error opening missing archive")
	}
}

func TestMemory(t *testing.T) {
	m := Memory{}
	m.Put(`World\Tree.m2`, []byte{1, 2, 3})

	if !m.Contains("world/tree.m2") {
		t.Error("Contains returned false for stored path")
	}
	data, err := m.Read("WORLD/TREE.M2")
	if err != nil || len(data) != 3 {
		t.Errorf("Read = %v, %v", data, err)
	}
	if _, err := m.Read("other.m2"); !IsNotFound(err) {
		t.Errorf("Read(other) error = %v, want not found", err)
	}
}
