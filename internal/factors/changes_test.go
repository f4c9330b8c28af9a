package factors

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMajorChanges(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "major_changes.json")
	body := `{"metadata": {"title": "Major changes 2025"}, "major_changes": [{"category": "Electricity", "change": "grid factor down 7%"}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	mc, err := LoadMajorChanges(path)
	if err != nil {
		t.Fatalf("LoadMajorChanges() error = %v", err)
	}
	if mc.Metadata["title"] != "Major changes 2025" || len(mc.Changes) != 1 || mc.Changes[0]["category"] != "Electricity" {
		t.Fatalf("changes = %+v", mc)
	}
}

func TestLoadMajorChanges_FillsEmptySections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "major_changes.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mc, err := LoadMajorChanges(path)
	if err != nil {
		t.Fatalf("LoadMajorChanges() error = %v", err)
	}
	if mc.Metadata == nil || mc.Changes == nil {
		t.Fatalf("changes = %+v, want empty non-nil sections", mc)
	}

	if _, err := LoadMajorChanges(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNoMajorChanges(t *testing.T) {
	t.Parallel()

	mc := NoMajorChanges()
	if mc.Metadata["title"] != "No major changes data available" || len(mc.Changes) != 0 {
		t.Fatalf("placeholder = %+v", mc)
	}
}
