package fsstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTextAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "leads.csv")

	if err := WriteTextAtomic(path, "phone,name\n"); err != nil {
		t.Fatalf("WriteTextAtomic error = %v", err)
	}
	got, exists, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText error = %v", err)
	}
	if !exists {
		t.Fatal("ReadText exists = false after write")
	}
	if got != "phone,name\n" {
		t.Errorf("ReadText = %q, want %q", got, "phone,name\n")
	}
	if info, err := os.Stat(path); err != nil {
		t.Fatalf("Stat error = %v", err)
	} else if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file perm = %o, want 0600", perm)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("Stat dir error = %v", err)
	} else if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("dir perm = %o, want 0700", perm)
	}

	// Overwrite must fully replace, never append.
	if err := WriteTextAtomic(path, "x\n"); err != nil {
		t.Fatalf("WriteTextAtomic overwrite error = %v", err)
	}
	got, _, err = ReadText(path)
	if err != nil {
		t.Fatalf("ReadText error = %v", err)
	}
	if got != "x\n" {
		t.Errorf("ReadText after overwrite = %q, want %q", got, "x\n")
	}
}

func TestReadTextMissingFile(t *testing.T) {
	_, exists, err := ReadText(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("ReadText error = %v", err)
	}
	if exists {
		t.Error("ReadText exists = true for missing file")
	}
}

func TestWriteJSONAtomicAndReadJSON(t *testing.T) {
	type report struct {
		ID   string `json:"id"`
		Sent int    `json:"sent"`
	}
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteJSONAtomic(path, report{ID: "r1", Sent: 3}); err != nil {
		t.Fatalf("WriteJSONAtomic error = %v", err)
	}
	var out report
	ok, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON error = %v", err)
	}
	if !ok {
		t.Fatal("ReadJSON ok = false")
	}
	if out.ID != "r1" || out.Sent != 3 {
		t.Errorf("ReadJSON = %+v, want {r1 3}", out)
	}
}

func TestReadJSONCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	var out map[string]any
	if _, err := ReadJSON(path, &out); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("ReadJSON error = %v, want ErrDecodeFailed", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if err := WriteTextAtomic("  ", "x"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("WriteTextAtomic error = %v, want ErrInvalidPath", err)
	}
}
